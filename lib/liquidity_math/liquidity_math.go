package liquidity_math

import (
	cons "github.com/ftchann/uniswap-quoter/lib/constants"
	"github.com/ftchann/uniswap-quoter/lib/invariant"

	ui "github.com/holiman/uint256"
)

var (
	ErrLiquiditySub = invariant.New(invariant.ErrViolation, "liquidity_math: liquidity below zero")
	ErrLiquidityAdd = invariant.New(invariant.ErrOverflow, "liquidity_math: liquidity above uint128")
)

// AddDelta adds a signed liquidity delta, given in two's complement, to x.
func AddDelta(x, delta *ui.Int) (*ui.Int, error) {
	if delta.Sign() < 0 {
		negDelta := new(ui.Int).Neg(delta)
		if negDelta.Gt(x) {
			return nil, ErrLiquiditySub
		}
		return new(ui.Int).Sub(x, negDelta), nil
	}
	z, overflow := new(ui.Int).AddOverflow(x, delta)
	if overflow || z.Gt(cons.MaxUint128) {
		return nil, ErrLiquidityAdd
	}
	return z, nil
}
