// Package fullmath implements multiply-then-divide over 256-bit unsigned
// integers with a 512-bit intermediate product.
package fullmath

import (
	cons "github.com/ftchann/uniswap-quoter/lib/constants"
	"github.com/ftchann/uniswap-quoter/lib/invariant"

	ui "github.com/holiman/uint256"
)

var (
	ErrDivisionByZero = invariant.New(invariant.ErrDomain, "fullmath: division by zero")
	ErrMulDivOverflow = invariant.New(invariant.ErrOverflow, "fullmath: mulDiv overflow")
)

// MulDiv returns floor(a*b/denominator).
func MulDiv(a, b, denominator *ui.Int) (*ui.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivisionByZero
	}
	result, overflow := new(ui.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return nil, ErrMulDivOverflow
	}
	return result, nil
}

// MulDivRoundingUp returns ceil(a*b/denominator).
func MulDivRoundingUp(a, b, denominator *ui.Int) (*ui.Int, error) {
	result, err := MulDiv(a, b, denominator)
	if err != nil {
		return nil, err
	}
	if a.IsZero() || b.IsZero() {
		return result, nil
	}
	rem := new(ui.Int).MulMod(a, b, denominator)
	if !rem.IsZero() {
		if result.Eq(cons.MaxUint256) {
			return nil, ErrMulDivOverflow
		}
		result.Add(result, cons.One)
	}
	return result, nil
}

// DivRoundingUp returns ceil(x/y). There is no overflow check: x/y rounded
// up can only reach MaxUint256 when y is one.
func DivRoundingUp(x, y *ui.Int) (*ui.Int, error) {
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}
	quotient, rem := new(ui.Int), new(ui.Int)
	quotient.DivMod(x, y, rem)
	if !rem.IsZero() {
		quotient.Add(quotient, cons.One)
	}
	return quotient, nil
}
