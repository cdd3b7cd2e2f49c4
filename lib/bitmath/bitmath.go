package bitmath

import (
	"math/bits"

	"github.com/ftchann/uniswap-quoter/lib/invariant"

	ui "github.com/holiman/uint256"
)

var ErrZeroValue = invariant.New(invariant.ErrDomain, "bitmath: zero has no set bits")

// MostSignificantBit returns the index of the highest set bit of x.
func MostSignificantBit(x *ui.Int) (uint, error) {
	if x.IsZero() {
		return 0, ErrZeroValue
	}
	return uint(x.BitLen() - 1), nil
}

// LeastSignificantBit returns the index of the lowest set bit of x.
func LeastSignificantBit(x *ui.Int) (uint, error) {
	if x.IsZero() {
		return 0, ErrZeroValue
	}
	// limbs are little-endian
	for i, limb := range x {
		if limb != 0 {
			return uint(i*64 + bits.TrailingZeros64(limb)), nil
		}
	}
	return 0, ErrZeroValue
}
