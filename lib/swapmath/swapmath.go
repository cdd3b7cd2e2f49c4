package swapmath

import (
	cons "github.com/ftchann/uniswap-quoter/lib/constants"
	fm "github.com/ftchann/uniswap-quoter/lib/fullmath"
	"github.com/ftchann/uniswap-quoter/lib/invariant"
	sqrtmath "github.com/ftchann/uniswap-quoter/lib/sqrtprice_math"

	ui "github.com/holiman/uint256"
)

var (
	MaxFee = ui.NewInt(cons.MaxFee)

	ErrInvalidFee = invariant.New(invariant.ErrDomain, "swapmath: fee must be below 1e6 pips")
)

// ComputeSwapStep computes the result of swapping some amount in, or out, given the parameters of the swap.
// The fee, plus the amount in, will never exceed the amount remaining if the swap's amountSpecified is positive.
// amountRemainingI is signed: positive for exact input, negative for exact output.
func ComputeSwapStep(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemainingI *ui.Int, feePips int) (sqrtRatioNextX96, amountIn, amountOut, feeAmount *ui.Int, err error) {
	if feePips < 0 || feePips >= cons.MaxFee {
		return nil, nil, nil, nil, ErrInvalidFee
	}
	fee := ui.NewInt(uint64(feePips))
	feeComplement := new(ui.Int).Sub(MaxFee, fee)

	zeroForOne := sqrtRatioCurrentX96.Cmp(sqrtRatioTargetX96) >= 0
	exactIn := amountRemainingI.Sign() >= 0
	amountRemainingAbs := new(ui.Int).Abs(amountRemainingI)

	if exactIn {
		amountRemainingLessFee, err := fm.MulDiv(amountRemainingI, feeComplement, MaxFee)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if zeroForOne {
			amountIn, err = sqrtmath.GetAmount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			amountIn, err = sqrtmath.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if amountRemainingLessFee.Cmp(amountIn) >= 0 {
			sqrtRatioNextX96 = new(ui.Int).Set(sqrtRatioTargetX96)
		} else {
			sqrtRatioNextX96, err = sqrtmath.GetNextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	} else {
		if zeroForOne {
			amountOut, err = sqrtmath.GetAmount1Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			amountOut, err = sqrtmath.GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if amountRemainingAbs.Cmp(amountOut) >= 0 {
			sqrtRatioNextX96 = new(ui.Int).Set(sqrtRatioTargetX96)
		} else {
			sqrtRatioNextX96, err = sqrtmath.GetNextSqrtPriceFromOutput(sqrtRatioCurrentX96, liquidity, amountRemainingAbs, zeroForOne)
			if err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}

	max := sqrtRatioTargetX96.Eq(sqrtRatioNextX96)

	// get the input/output amounts
	if zeroForOne {
		if !(max && exactIn) {
			if amountIn, err = sqrtmath.GetAmount0Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true); err != nil {
				return nil, nil, nil, nil, err
			}
		}
		if !(max && !exactIn) {
			if amountOut, err = sqrtmath.GetAmount1Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false); err != nil {
				return nil, nil, nil, nil, err
			}
		}
	} else {
		if !(max && exactIn) {
			if amountIn, err = sqrtmath.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, true); err != nil {
				return nil, nil, nil, nil, err
			}
		}
		if !(max && !exactIn) {
			if amountOut, err = sqrtmath.GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, false); err != nil {
				return nil, nil, nil, nil, err
			}
		}
	}

	// cap the output amount to not exceed the remaining output amount
	if !exactIn && amountOut.Gt(amountRemainingAbs) {
		amountOut = amountRemainingAbs
	}

	if exactIn && !sqrtRatioNextX96.Eq(sqrtRatioTargetX96) {
		// we didn't reach the target, so take the remainder of the maximum input as fee
		feeAmount = new(ui.Int).Sub(amountRemainingI, amountIn)
	} else if feeAmount, err = fm.MulDivRoundingUp(amountIn, fee, feeComplement); err != nil {
		return nil, nil, nil, nil, err
	}

	return sqrtRatioNextX96, amountIn, amountOut, feeAmount, nil
}
