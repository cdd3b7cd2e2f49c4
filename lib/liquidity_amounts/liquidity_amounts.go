// Package liquidity_amounts converts between token amounts and the liquidity
// of a position bounded by two sqrt prices.
package liquidity_amounts

import (
	cons "github.com/ftchann/uniswap-quoter/lib/constants"
	"github.com/ftchann/uniswap-quoter/lib/fullmath"
	"github.com/ftchann/uniswap-quoter/lib/invariant"
	sm "github.com/ftchann/uniswap-quoter/lib/sqrtprice_math"

	ui "github.com/holiman/uint256"
)

var (
	ErrEmptyRange      = invariant.New(invariant.ErrDomain, "liquidity_amounts: sqrt price bounds are equal")
	ErrLiquidityTooBig = invariant.New(invariant.ErrOverflow, "liquidity_amounts: liquidity exceeds uint128")
)

func sortRatios(a, b *ui.Int) (*ui.Int, *ui.Int, error) {
	if a.Gt(b) {
		a, b = b, a
	}
	if a.Eq(b) {
		return nil, nil, ErrEmptyRange
	}
	return a, b, nil
}

func toUint128(x *ui.Int) (*ui.Int, error) {
	if x.Gt(cons.MaxUint128) {
		return nil, ErrLiquidityTooBig
	}
	return x, nil
}

// GetLiquidityForAmount0 returns amount0 * (sqrt(upper)*sqrt(lower)) / (sqrt(upper)-sqrt(lower)).
func GetLiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0 *ui.Int) (*ui.Int, error) {
	sqrtRatioAX96, sqrtRatioBX96, err := sortRatios(sqrtRatioAX96, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	intermediate, err := fullmath.MulDiv(sqrtRatioAX96, sqrtRatioBX96, cons.Q96)
	if err != nil {
		return nil, err
	}
	liquidity, err := fullmath.MulDiv(amount0, intermediate, new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
	if err != nil {
		return nil, err
	}
	return toUint128(liquidity)
}

// GetLiquidityForAmount1 returns amount1 / (sqrt(upper)-sqrt(lower)).
func GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1 *ui.Int) (*ui.Int, error) {
	sqrtRatioAX96, sqrtRatioBX96, err := sortRatios(sqrtRatioAX96, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	liquidity, err := fullmath.MulDiv(amount1, cons.Q96, new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
	if err != nil {
		return nil, err
	}
	return toUint128(liquidity)
}

// GetLiquidityForAmounts returns the largest liquidity that amount0 and
// amount1 can fund at the current price sqrtRatioX96.
func GetLiquidityForAmounts(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1 *ui.Int) (*ui.Int, error) {
	sqrtRatioAX96, sqrtRatioBX96, err := sortRatios(sqrtRatioAX96, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	switch {
	case !sqrtRatioX96.Gt(sqrtRatioAX96):
		return GetLiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0)
	case sqrtRatioX96.Lt(sqrtRatioBX96):
		liquidity0, err := GetLiquidityForAmount0(sqrtRatioX96, sqrtRatioBX96, amount0)
		if err != nil {
			return nil, err
		}
		liquidity1, err := GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioX96, amount1)
		if err != nil {
			return nil, err
		}
		if liquidity0.Lt(liquidity1) {
			return liquidity0, nil
		}
		return liquidity1, nil
	default:
		return GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1)
	}
}

// GetAmountsForLiquidity returns the token amounts a position of liquidity
// holds at sqrtRatioX96, rounded down.
func GetAmountsForLiquidity(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int) (amount0, amount1 *ui.Int, err error) {
	sqrtRatioAX96, sqrtRatioBX96, err = sortRatios(sqrtRatioAX96, sqrtRatioBX96)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case !sqrtRatioX96.Gt(sqrtRatioAX96):
		amount0, err = sm.GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, false)
		return amount0, new(ui.Int), err
	case sqrtRatioX96.Lt(sqrtRatioBX96):
		amount0, err = sm.GetAmount0Delta(sqrtRatioX96, sqrtRatioBX96, liquidity, false)
		if err != nil {
			return nil, nil, err
		}
		amount1, err = sm.GetAmount1Delta(sqrtRatioAX96, sqrtRatioX96, liquidity, false)
		return amount0, amount1, err
	default:
		amount1, err = sm.GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, false)
		return new(ui.Int), amount1, err
	}
}
