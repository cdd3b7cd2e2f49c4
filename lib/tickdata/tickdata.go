package tickdata

import (
	"sort"

	"github.com/ftchann/uniswap-quoter/lib/invariant"
	"github.com/ftchann/uniswap-quoter/lib/tickbitmap"
	"github.com/ftchann/uniswap-quoter/lib/tickmath"

	ui "github.com/holiman/uint256"
)

var (
	ErrInvalidTickSpacing = invariant.New(invariant.ErrDomain, "tickdata: tick spacing must be positive")
	ErrSpacingMismatch    = invariant.New(invariant.ErrDomain, "tickdata: tick spacing differs from the provider's")
	ErrTickMisaligned     = invariant.New(invariant.ErrDomain, "tickdata: tick is not a multiple of the tick spacing")
	ErrTickOutOfRange     = invariant.New(invariant.ErrDomain, "tickdata: tick outside the tick range")
	ErrTicksUnsorted      = invariant.New(invariant.ErrDomain, "tickdata: ticks are not sorted by index")
	ErrMissingLiquidity   = invariant.New(invariant.ErrDomain, "tickdata: tick without liquidity values")
	ErrNetNotZero         = invariant.New(invariant.ErrViolation, "tickdata: liquidity net does not sum to zero")
	ErrTickNotFound       = invariant.New(invariant.ErrViolation, "tickdata: tick is not initialized")
	ErrGrossUnderflow     = invariant.New(invariant.ErrViolation, "tickdata: liquidity removed exceeds the tick's gross liquidity")
	ErrGrossOverflow      = invariant.New(invariant.ErrOverflow, "tickdata: gross liquidity exceeds the maximum per tick")
)

// Tick is an initialized tick. LiquidityNet is a signed int128 in two's
// complement.
type Tick struct {
	Index          int
	LiquidityGross *ui.Int
	LiquidityNet   *ui.Int
}

// Provider looks up initialized ticks for the swap loop. Implementations are
// read-only while a swap runs.
type Provider interface {
	// GetTick returns an initialized tick.
	GetTick(index int) (Tick, error)
	// NextInitializedTickWithinOneWord behaves like the tick bitmap search:
	// the next initialized tick in the same 256-tick word, or the word
	// boundary with initialized false.
	NextInitializedTickWithinOneWord(tick int, lte bool, tickSpacing int) (int, bool, error)
}

// Store is a Provider that mints and burns can change.
type Store interface {
	Provider
	TickSpacing() int
	// UpdateTick adds a signed liquidity delta to the lower (upper == false) or
// upper end of a position. A tick whose gross liquidity drops to zero is
// removed.
func (t *TickData) UpdateTick(index int, liquidityDelta *ui.Int, upper bool) error {
	i := sort.Search(len(t.ticks), func(i int) bool { return t.ticks[i].Index >= index })
	found := i < len(t.ticks) && t.ticks[i].Index == index
	current := Tick{Index: index}
	if found {
		current = t.ticks[i]
	}
	next, err := updateTick(current, found, liquidityDelta, upper, t.tickSpacing)
	if err != nil {
		return err
	}

	switch {
	case found && next.LiquidityGross.IsZero():
		t.ticks = append(t.ticks[:i], t.ticks[i+1:]...)
	case found:
		t.ticks[i] = next
	case !next.LiquidityGross.IsZero():
		t.ticks = append(t.ticks, Tick{})
		copy(t.ticks[i+1:], t.ticks[i:])
		t.ticks[i] = next
	}
	return nil
}

// Clone copies the tick list. Tick values are never changed in place, so the
// liquidity pointers are shared.
func (t *TickData) Clone() Store {
	return &TickData{
		ticks:       append([]Tick(nil), t.ticks...),
		tickSpacing: t.tickSpacing,
	}
}

// updateTick returns tick after adding liquidityDelta to one end of a
// position.
func updateTick(tick Tick, found bool, liquidityDelta *ui.Int, upper bool, tickSpacing int) (Tick, error) {
	if tick.Index%tickSpacing != 0 {
		return tick, ErrTickMisaligned
	}
	if tick.Index < tickmath.MinTick || tick.Index > tickmath.MaxTick {
		return tick, ErrTickOutOfRange
	}
	if !found {
		if liquidityDelta.Sign() < 0 {
			return tick, ErrTickNotFound
		}
		tick.LiquidityGross, tick.LiquidityNet = new(ui.Int), new(ui.Int)
	}

	if liquidityDelta.Sign() < 0 && new(ui.Int).Neg(liquidityDelta).Gt(tick.LiquidityGross) {
		return tick, ErrGrossUnderflow
	}
	gross := new(ui.Int).Add(tick.LiquidityGross, liquidityDelta)
	maxLiquidity, err := tickmath.TickSpacingToMaxLiquidityPerTick(tickSpacing)
	if err != nil {
		return tick, err
	}
	if gross.Gt(maxLiquidity) {
		return tick, ErrGrossOverflow
	}

	net := new(ui.Int)
	if upper {
		net.Sub(tick.LiquidityNet, liquidityDelta)
	} else {
		net.Add(tick.LiquidityNet, liquidityDelta)
	}
	return Tick{Index: tick.Index, LiquidityGross: gross, LiquidityNet: net}, nil
}

func (t *TickData) NextInitializedTickWithinOneWord(tick int, lte bool, tickSpacing int) (int, bool, error) {
	if tickSpacing != t.tickSpacing {
		return 0, false, ErrSpacingMismatch
	}
	compressed := tickbitmap.Compress(tick, tickSpacing)
	if lte {
		wordPos, _ := tickbitmap.Position(compressed)
		minimum := (wordPos << 8) * tickSpacing
		if len(t.ticks) == 0 || t.isBelowSmallest(tick) {
			return minimum, false, nil
		}

		index := t.nextInitializedTick(tick, lte).Index
		nextInitializedTick := max(minimum, index)
		return nextInitializedTick, nextInitializedTick == index, nil
	}

	wordPos, _ := tickbitmap.Position(compressed + 1)
	maximum := (((wordPos + 1) << 8) - 1) * tickSpacing
	if len(t.ticks) == 0 || t.isAtOrAboveLargest(tick) {
		return maximum, false, nil
	}
	index := t.nextInitializedTick(tick, lte).Index
	nextInitializedTick := min(maximum, index)
	return nextInitializedTick, nextInitializedTick == index, nil
}

// binarySearch returns the position of the largest tick at or below tick.
// The caller guarantees tick is not below the smallest tick.
func (t *TickData) binarySearch(tick int) int {
	return sort.Search(len(t.ticks), func(i int) bool { return t.ticks[i].Index > tick }) - 1
}

func (t *TickData) nextInitializedTick(tick int, lte bool) Tick {
	if lte {
		if t.isAtOrAboveLargest(tick) {
			return t.ticks[len(t.ticks)-1]
		}
		return t.ticks[t.binarySearch(tick)]
	}
	if t.isBelowSmallest(tick) {
		return t.ticks[0]
	}
	return t.ticks[t.binarySearch(tick)+1]
}
