package sqrtprice_math

import (
	cons "github.com/ftchann/uniswap-quoter/lib/constants"
	fm "github.com/ftchann/uniswap-quoter/lib/fullmath"
	"github.com/ftchann/uniswap-quoter/lib/invariant"

	ui "github.com/holiman/uint256"
)

var (
	ErrZeroPrice      = invariant.New(invariant.ErrDomain, "sqrtprice_math: sqrt price is zero")
	ErrZeroLiquidity  = invariant.New(invariant.ErrDomain, "sqrtprice_math: liquidity is zero")
	ErrPriceOverflow  = invariant.New(invariant.ErrOverflow, "sqrtprice_math: next sqrt price exceeds uint160")
	ErrPriceUnderflow = invariant.New(invariant.ErrOverflow, "sqrtprice_math: next sqrt price underflows")
	ErrDeltaOverflow  = invariant.New(invariant.ErrOverflow, "sqrtprice_math: amount delta exceeds int256")
)

// GetAmount0Delta
// Gets the amount0 delta between two prices: liquidity / sqrt(lower) - liquidity / sqrt(upper),
// i.e. liquidity * (sqrt(upper) - sqrt(lower)) / (sqrt(upper) * sqrt(lower))
// The prices may be passed in either order.
func GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int, roundUp bool) (*ui.Int, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return nil, ErrZeroPrice
	}

	numerator1 := new(ui.Int).Lsh(liquidity, 96)
	numerator2 := new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		res, err := fm.MulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96)
		if err != nil {
			return nil, err
		}
		return fm.DivRoundingUp(res, sqrtRatioAX96)
	}

	res, err := fm.MulDiv(numerator1, numerator2, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	return res.Div(res, sqrtRatioAX96), nil
}

// GetAmount1Delta
// Gets the amount1 delta between two prices: liquidity * (sqrt(upper) - sqrt(lower))
func GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int, roundUp bool) (*ui.Int, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	ratioDiff := new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return fm.MulDivRoundingUp(liquidity, ratioDiff, cons.Q96)
	}
	return fm.MulDiv(liquidity, ratioDiff, cons.Q96)
}

// GetAmount0DeltaSigned takes a signed liquidity (two's complement int128).
// Positive liquidity rounds up, negative liquidity rounds down and negates.
func GetAmount0DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int) (*ui.Int, error) {
	if liquidity.Sign() < 0 {
		res, err := GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, new(ui.Int).Neg(liquidity), false)
		if err != nil {
			return nil, err
		}
		return toSigned(res, true)
	}
	res, err := GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
	if err != nil {
		return nil, err
	}
	return toSigned(res, false)
}

// GetAmount1DeltaSigned is the amount1 counterpart of GetAmount0DeltaSigned.
func GetAmount1DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int) (*ui.Int, error) {
	if liquidity.Sign() < 0 {
		res, err := GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, new(ui.Int).Neg(liquidity), false)
		if err != nil {
			return nil, err
		}
		return toSigned(res, true)
	}
	res, err := GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
	if err != nil {
		return nil, err
	}
	return toSigned(res, false)
}

// GetNextSqrtPriceFromInput
// Gets the next sqrt price given an input amount of token0 or token1.
// Rounds so that the target price is not passed.
func GetNextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *ui.Int, zeroForOne bool) (*ui.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrZeroPrice
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput
// Gets the next sqrt price given an output amount of token0 or token1.
// Rounds so that the target price is passed.
func GetNextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut *ui.Int, zeroForOne bool) (*ui.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrZeroPrice
	}
	if liquidity.IsZero() {
		return nil, ErrZeroLiquidity
	}
	if zeroForOne {
		return getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountOut, false)
	}
	return getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountOut, false)
}

// always rounds up: moving up when adding, not moving down far enough when removing
func getNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *ui.Int, add bool) (*ui.Int, error) {
	if amount.IsZero() {
		return new(ui.Int).Set(sqrtPX96), nil
	}

	numerator1 := new(ui.Int).Lsh(liquidity, 96)
	product, overflow := new(ui.Int).MulOverflow(amount, sqrtPX96)

	if add {
		if !overflow {
			denominator, carry := new(ui.Int).AddOverflow(numerator1, product)
			if !carry {
				return fm.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
			}
		}
		denominator, carry := new(ui.Int).AddOverflow(new(ui.Int).Div(numerator1, sqrtPX96), amount)
		if carry {
			return nil, ErrPriceOverflow
		}
		return fm.DivRoundingUp(numerator1, denominator)
	}

	if overflow || !numerator1.Gt(product) {
		return nil, ErrPriceUnderflow
	}
	denominator := new(ui.Int).Sub(numerator1, product)
	next, err := fm.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
	if err != nil {
		return nil, err
	}
	if next.Gt(cons.MaxUint160) {
		return nil, ErrPriceOverflow
	}
	return next, nil
}

// always rounds down: not moving up far enough when adding, moving down when removing
func getNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *ui.Int, add bool) (*ui.Int, error) {
	var (
		quotient *ui.Int
		err      error
	)
	if add {
		if amount.Cmp(cons.MaxUint160) <= 0 {
			quotient = new(ui.Int).Div(new(ui.Int).Lsh(amount, 96), liquidity)
		} else if quotient, err = fm.MulDiv(amount, cons.Q96, liquidity); err != nil {
			return nil, err
		}
		next, carry := new(ui.Int).AddOverflow(sqrtPX96, quotient)
		if carry || next.Gt(cons.MaxUint160) {
			return nil, ErrPriceOverflow
		}
		return next, nil
	}

	if amount.Cmp(cons.MaxUint160) <= 0 {
		quotient, err = fm.DivRoundingUp(new(ui.Int).Lsh(amount, 96), liquidity)
	} else {
		quotient, err = fm.MulDivRoundingUp(amount, cons.Q96, liquidity)
	}
	if err != nil {
		return nil, err
	}
	if !sqrtPX96.Gt(quotient) {
		return nil, ErrPriceUnderflow
	}
	return new(ui.Int).Sub(sqrtPX96, quotient), nil
}

func toSigned(x *ui.Int, negate bool) (*ui.Int, error) {
	if x.Gt(cons.MaxInt256) {
		return nil, ErrDeltaOverflow
	}
	if negate {
		return x.Neg(x), nil
	}
	return x, nil
}
