package constants

import (
	ui "github.com/holiman/uint256"
)

var (
	Zero        = new(ui.Int)
	One         = new(ui.Int).SetOne()
	MaxUint256  = new(ui.Int).SetAllOne()
	MaxUint160  = new(ui.Int).Sub(new(ui.Int).Lsh(One, 160), One)
	MaxUint128  = new(ui.Int).Sub(new(ui.Int).Lsh(One, 128), One)
	MaxInt256   = new(ui.Int).Rsh(MaxUint256, 1)
	Q96         = new(ui.Int).Lsh(One, 96)
	Q128        = new(ui.Int).Lsh(One, 128)
	Q192        = new(ui.Int).Lsh(One, 192)
	E6          = ui.NewInt(1_000_000)
	E18         = new(ui.Int).Exp(ui.NewInt(10), ui.NewInt(18))
	NegativeOne = new(ui.Int).Neg(One)
)

// MaxFee is the fee denominator: fees are expressed in hundredths of a bip.
const MaxFee = 1_000_000

type FeeAmount int

const (
	FeeLowest FeeAmount = 100
	FeeLow    FeeAmount = 500
	FeeMedium FeeAmount = 3000
	FeeHigh   FeeAmount = 10000
)

var TickSpaces = map[FeeAmount]int{
	FeeLowest: 1,
	FeeLow:    10,
	FeeMedium: 60,
	FeeHigh:   200,
}

// TickSpacing returns the default spacing of a fee tier and whether it is known.
func (f FeeAmount) TickSpacing() (int, bool) {
	spacing, ok := TickSpaces[f]
	return spacing, ok
}
