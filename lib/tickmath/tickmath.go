package tickmath

import (
	"github.com/ftchann/uniswap-quoter/lib/bitmath"
	cons "github.com/ftchann/uniswap-quoter/lib/constants"
	"github.com/ftchann/uniswap-quoter/lib/invariant"

	ui "github.com/holiman/uint256"
)

const (
	MinTick int = -887272  // The minimum tick that can be used on any pool.
	MaxTick int = -MinTick // The maximum tick that can be used on any pool.
)

var (
	MinSqrtRatio = ui.NewInt(4295128739)                                                    // The sqrt ratio corresponding to the minimum tick that could be used on any pool.
	MaxSqrtRatio = ui.MustFromDecimal("1461446703485210103287273052203988822378723970342") // The sqrt ratio corresponding to the maximum tick that could be used on any pool.

	ErrTickOutOfBounds      = invariant.New(invariant.ErrDomain, "tickmath: tick out of bounds")
	ErrSqrtRatioOutOfBounds = invariant.New(invariant.ErrDomain, "tickmath: sqrt ratio out of bounds")
	ErrInvalidTickSpacing   = invariant.New(invariant.ErrDomain, "tickmath: tick spacing must be positive")
)

var (
	ratioOdd = ui.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001")

	// ladder[i] is sqrt(1.0001^-(2^(i+1))) as a Q128.128
	ladder = [19]*ui.Int{
		ui.MustFromHex("0xfff97272373d413259a46990580e213a"),
		ui.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		ui.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		ui.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		ui.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		ui.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		ui.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		ui.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		ui.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		ui.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		ui.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		ui.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		ui.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		ui.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		ui.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		ui.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		ui.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
		ui.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		ui.MustFromHex("0x48a170391f7dc42444e8fa2"),
	}

	magicSqrt10001 = ui.MustFromHex("0x3627a301d71055774c85")
	magicTickLow   = ui.MustFromHex("0x28f6481ab7f045a5af012a19d003aaa")
	magicTickHigh  = ui.MustFromHex("0xdb2df09e81959a81455e260799a0632f")
)

// GetSqrtRatioAtTick
// Returns the sqrt ratio as a Q64.96 for the given tick. The sqrt ratio is computed as sqrt(1.0001)^tick
// @param tick the tick for which to compute the sqrt ratio
func GetSqrtRatioAtTick(tick int) (*ui.Int, error) {
	absTick := tick
	if tick < 0 {
		absTick = -tick
	}
	if absTick > MaxTick {
		return nil, ErrTickOutOfBounds
	}

	ratio := new(ui.Int)
	if absTick&0x1 != 0 {
		ratio.Set(ratioOdd)
	} else {
		ratio.Set(cons.Q128)
	}
	for i, mulBy := range ladder {
		if absTick&(0x2<<i) != 0 {
			mulShift(ratio, mulBy)
		}
	}
	if tick > 0 {
		ratio.Div(cons.MaxUint256, ratio)
	}

	// back to Q96, rounding up
	roundUp := ratio.Uint64()&0xffffffff != 0
	ratio.Rsh(ratio, 32)
	if roundUp {
		ratio.Add(ratio, cons.One)
	}
	return ratio, nil
}

// GetTickAtSqrtRatio returns the greatest tick whose sqrt ratio is less than
// or equal to sqrtRatioX96.
func GetTickAtSqrtRatio(sqrtRatioX96 *ui.Int) (int, error) {
	if sqrtRatioX96.Lt(MinSqrtRatio) || sqrtRatioX96.Gt(MaxSqrtRatio) {
		return 0, ErrSqrtRatioOutOfBounds
	}

	sqrtRatioX128 := new(ui.Int).Lsh(sqrtRatioX96, 32)
	msb, err := bitmath.MostSignificantBit(sqrtRatioX128)
	if err != nil {
		return 0, err
	}
	r := new(ui.Int)
	if msb >= 128 {
		r.Rsh(sqrtRatioX128, msb-127)
	} else {
		r.Lsh(sqrtRatioX128, 127-msb)
	}

	// log2 is a signed Q64.64 held in two's complement
	log2 := new(ui.Int).Lsh(new(ui.Int).Sub(ui.NewInt(uint64(msb)), ui.NewInt(128)), 64)

	f, bit := new(ui.Int), new(ui.Int)
	for i := 0; i < 14; i++ {
		r.Mul(r, r)
		r.Rsh(r, 127)
		f.Rsh(r, 128)
		log2.Or(log2, bit.Lsh(f, uint(63-i)))
		r.Rsh(r, uint(f.Uint64()))
	}

	logSqrt10001 := new(ui.Int).Mul(log2, magicSqrt10001)

	tickLow := signedInt(new(ui.Int).SRsh(new(ui.Int).Sub(logSqrt10001, magicTickLow), 128))
	tickHigh := signedInt(new(ui.Int).SRsh(new(ui.Int).Add(logSqrt10001, magicTickHigh), 128))

	if tickLow == tickHigh {
		return tickLow, nil
	}

	sqrtRatio, err := GetSqrtRatioAtTick(tickHigh)
	if err != nil {
		return 0, err
	}
	if sqrtRatio.Cmp(sqrtRatioX96) <= 0 {
		return tickHigh, nil
	}
	return tickLow, nil
}

// NearestUsableTick rounds tick to the closest multiple of tickSpacing that
// stays inside the tick range. Halves round towards positive infinity.
func NearestUsableTick(tick, tickSpacing int) (int, error) {
	if tickSpacing <= 0 {
		return 0, ErrInvalidTickSpacing
	}
	if tick < MinTick || tick > MaxTick {
		return 0, ErrTickOutOfBounds
	}
	rounded := floorDiv(2*tick+tickSpacing, 2*tickSpacing) * tickSpacing
	if rounded < MinTick {
		return rounded + tickSpacing, nil
	}
	if rounded > MaxTick {
		return rounded - tickSpacing, nil
	}
	return rounded, nil
}

// MinUsableTick is the lowest initializable tick for tickSpacing.
func MinUsableTick(tickSpacing int) int {
	return MinTick / tickSpacing * tickSpacing
}

// MaxUsableTick is the highest initializable tick for tickSpacing.
func MaxUsableTick(tickSpacing int) int {
	return MaxTick / tickSpacing * tickSpacing
}

// TickSpacingToMaxLiquidityPerTick is the liquidity cap per tick that keeps the
// sum over every usable tick within uint128.
func TickSpacingToMaxLiquidityPerTick(tickSpacing int) (*ui.Int, error) {
	if tickSpacing <= 0 {
		return nil, ErrInvalidTickSpacing
	}
	numTicks := (MaxUsableTick(tickSpacing)-MinUsableTick(tickSpacing))/tickSpacing + 1
	return new(ui.Int).Div(cons.MaxUint128, ui.NewInt(uint64(numTicks))), nil
}

func mulShift(val, mulBy *ui.Int) {
	val.Mul(val, mulBy)
	val.Rsh(val, 128)
}

// signedInt reads the low 64 bits of a two's complement value.
func signedInt(x *ui.Int) int {
	return int(int64(x.Uint64()))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
