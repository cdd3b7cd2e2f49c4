// Package prices converts between Q64.96 sqrt prices, ticks and human
// readable prices quoted in token1 per token0.
package prices

import (
	cons "github.com/ftchann/uniswap-quoter/lib/constants"
	"github.com/ftchann/uniswap-quoter/lib/fullmath"
	"github.com/ftchann/uniswap-quoter/lib/invariant"
	"github.com/ftchann/uniswap-quoter/lib/tickmath"

	ui "github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places kept when dividing by 2^192.
const Precision = 36

var (
	ErrNonPositivePrice = invariant.New(invariant.ErrDomain, "prices: price must be positive")
	ErrPriceTooLarge    = invariant.New(invariant.ErrOverflow, "prices: price does not fit 256 bits")
)

var q192 = decimal.NewFromBigInt(cons.Q192.ToBig(), 0)

// EncodeSqrtRatioX96 returns sqrt(amount1/amount0) as a Q64.96 number,
// rounded down.
func EncodeSqrtRatioX96(amount1, amount0 *ui.Int) (*ui.Int, error) {
	ratioX192, err := fullmath.MulDiv(amount1, cons.Q192, amount0)
	if err != nil {
		return nil, err
	}
	return new(ui.Int).Sqrt(ratioX192), nil
}

// SqrtPriceToPrice returns the price of token0 in token1 adjusted for the
// token decimals.
func SqrtPriceToPrice(sqrtPriceX96 *ui.Int, decimals0, decimals1 int32) decimal.Decimal {
	sqrtPrice := decimal.NewFromBigInt(sqrtPriceX96.ToBig(), 0)
	return sqrtPrice.Mul(sqrtPrice).Shift(decimals0-decimals1).DivRound(q192, Precision)
}

// PriceToSqrtPriceX96 is the inverse of SqrtPriceToPrice, rounded down.
func PriceToSqrtPriceX96(price decimal.Decimal, decimals0, decimals1 int32) (*ui.Int, error) {
	if !price.IsPositive() {
		return nil, ErrNonPositivePrice
	}
	raw := price.Shift(decimals1 - decimals0)
	amount1, overflow := ui.FromBig(raw.Coefficient())
	if overflow {
		return nil, ErrPriceTooLarge
	}
	amount0 := new(ui.Int).Set(cons.One)
	ten := ui.NewInt(10)
	if exp := raw.Exponent(); exp > 0 {
		scale, overflow := pow10(ten, uint64(exp))
		if overflow {
			return nil, ErrPriceTooLarge
		}
		if _, overflow = amount1.MulOverflow(amount1, scale); overflow {
			return nil, ErrPriceTooLarge
		}
	} else if exp < 0 {
		scale, overflow := pow10(ten, uint64(-exp))
		if overflow {
			return nil, ErrPriceTooLarge
		}
		amount0 = scale
	}
	return EncodeSqrtRatioX96(amount1, amount0)
}

func pow10(ten *ui.Int, n uint64) (*ui.Int, bool) {
	if n > 77 {
		return nil, true
	}
	return new(ui.Int).Exp(ten, ui.NewInt(n)), false
}

// TickToPrice returns the human price at tick.
func TickToPrice(tick int, decimals0, decimals1 int32) (decimal.Decimal, error) {
	sqrtRatioX96, err := tickmath.GetSqrtRatioAtTick(tick)
	if err != nil {
		return decimal.Zero, err
	}
	return SqrtPriceToPrice(sqrtRatioX96, decimals0, decimals1), nil
}

// PriceToTick returns the greatest tick whose price does not exceed price.
func PriceToTick(price decimal.Decimal, decimals0, decimals1 int32) (int, error) {
	sqrtPriceX96, err := PriceToSqrtPriceX96(price, decimals0, decimals1)
	if err != nil {
		return 0, err
	}
	return tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
}
