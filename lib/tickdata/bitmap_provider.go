package tickdata

import (
	"maps"

	"github.com/ftchann/uniswap-quoter/lib/tickbitmap"

	ui "github.com/holiman/uint256"
)

// BitmapProvider answers next-tick queries from a tick bitmap and tick
// lookups from a map, the way the pool contract stores them.
type BitmapProvider struct {
	words       tickbitmap.Words
	ticks       map[int]Tick
	tickSpacing int
}

func NewBitmapProvider(tickSpacing int, ticks []Tick) (*BitmapProvider, error) {
	if err := ValidateList(tickSpacing, ticks); err != nil {
		return nil, err
	}
	b := &BitmapProvider{
		words:       tickbitmap.Words{},
		ticks:       make(map[int]Tick, len(ticks)),
		tickSpacing: tickSpacing,
	}
	for _, tick := range ticks {
		if err := b.words.FlipTick(tick.Index, tickSpacing); err != nil {
			return nil, err
		}
		b.ticks[tick.Index] = tick
	}
	return b, nil
}

func (b *BitmapProvider) TickSpacing() int {
	return b.tickSpacing
}

// Words exposes the underlying bitmap.
func (b *BitmapProvider) Words() tickbitmap.Bitmap {
	return b.words
}

func (b *BitmapProvider) GetTick(index int) (Tick, error) {
	tick, ok := b.ticks[index]
	if !ok {
		return Tick{}, ErrTickNotFound
	}
	return tick, nil
}

func (b *BitmapProvider) NextInitializedTickWithinOneWord(tick int, lte bool, tickSpacing int) (int, bool, error) {
	if tickSpacing != b.tickSpacing {
		return 0, false, ErrSpacingMismatch
	}
	return tickbitmap.NextInitializedTickWithinOneWord(b.words, tick, tickSpacing, lte)
}

// UpdateTick changes a tick like TickData.UpdateTick and flips its bitmap bit
// when it becomes initialized or uninitialized.
func (b *BitmapProvider) UpdateTick(index int, liquidityDelta *ui.Int, upper bool) error {
	current, found := b.ticks[index]
	if !found {
		current = Tick{Index: index}
	}
	next, err := updateTick(current, found, liquidityDelta, upper, b.tickSpacing)
	if err != nil {
		return err
	}
	initialized := !next.LiquidityGross.IsZero()
	if initialized != found {
		if err := b.words.FlipTick(index, b.tickSpacing); err != nil {
			return err
		}
	}
	if initialized {
		b.ticks[index] = next
	} else {
		delete(b.ticks, index)
	}
	return nil
}

func (b *BitmapProvider) Clone() Store {
	return &BitmapProvider{
		words:       b.words.Clone(),
		ticks:       maps.Clone(b.ticks),
		tickSpacing: b.tickSpacing,
	}
}
