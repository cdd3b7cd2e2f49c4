// Package tickbitmap stores which ticks are initialized as a sparse set of
// 256-bit words and searches it for the next initialized tick.
//
// A tick is compressed by its spacing (floor(tick/spacing)) and the compressed
// index is split into a word position (the high bits) and a bit position
// inside the word (the low 8 bits). A word that was never written reads as
// zero.
package tickbitmap

import (
	"github.com/ftchann/uniswap-quoter/lib/bitmath"
	"github.com/ftchann/uniswap-quoter/lib/invariant"

	ui "github.com/holiman/uint256"
)

var (
	ErrTickMisaligned     = invariant.New(invariant.ErrDomain, "tickbitmap: tick is not a multiple of the tick spacing")
	ErrInvalidTickSpacing = invariant.New(invariant.ErrDomain, "tickbitmap: tick spacing must be positive")
)

// Bitmap is read-only access to the words of a tick bitmap. Word may return
// nil for an empty word.
type Bitmap interface {
	Word(wordPos int) *ui.Int
}

// Words is an in-memory Bitmap keyed by word position.
type Words map[int]*ui.Int

func (w Words) Word(wordPos int) *ui.Int {
	return w[wordPos]
}

// FlipTick toggles the initialized bit of tick.
func (w Words) FlipTick(tick, tickSpacing int) error {
	if tickSpacing <= 0 {
		return ErrInvalidTickSpacing
	}
	if tick%tickSpacing != 0 {
		return ErrTickMisaligned
	}
	wordPos, bitPos := Position(tick / tickSpacing)
	word, ok := w[wordPos]
	if !ok {
		word = new(ui.Int)
		w[wordPos] = word
	}
	word.Xor(word, new(ui.Int).Lsh(ui.NewInt(1), bitPos))
	if word.IsZero() {
		delete(w, wordPos)
	}
	return nil
}

// IsInitialized reports whether the bit of tick is set. Misaligned ticks are
// never initialized.
func (w Words) IsInitialized(tick, tickSpacing int) bool {
	if tickSpacing <= 0 || tick%tickSpacing != 0 {
		return false
	}
	wordPos, bitPos := Position(tick / tickSpacing)
	word := w[wordPos]
	if word == nil {
		return false
	}
	return word[bitPos/64]&(1<<(bitPos%64)) != 0
}

// Clone returns a deep copy.
func (w Words) Clone() Words {
	clone := make(Words, len(w))
	for pos, word := range w {
		clone[pos] = new(ui.Int).Set(word)
	}
	return clone
}

// Position splits a compressed tick into its word and bit position.
func Position(compressed int) (wordPos int, bitPos uint) {
	return compressed >> 8, uint(compressed & 0xff)
}

// Compress divides tick by tickSpacing rounding towards negative infinity.
func Compress(tick, tickSpacing int) int {
	compressed := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		compressed--
	}
	return compressed
}

// NextInitializedTickWithinOneWord returns the next initialized tick contained
// in the same word as tick, searching at or below tick when lte is set and
// strictly above it otherwise. When the word holds no such tick the word
// boundary is returned with initialized set to false. The returned tick may
// lie outside the tick range; callers clamp it.
func NextInitializedTickWithinOneWord(bm Bitmap, tick, tickSpacing int, lte bool) (next int, initialized bool, err error) {
	if tickSpacing <= 0 {
		return 0, false, ErrInvalidTickSpacing
	}
	compressed := Compress(tick, tickSpacing)

	if lte {
		wordPos, bitPos := Position(compressed)
		// all the 1s at or to the right of the current bitPos
		mask := new(ui.Int).Lsh(ui.NewInt(1), bitPos)
		mask.Add(mask, new(ui.Int).Sub(mask, ui.NewInt(1)))
		masked := maskWord(bm.Word(wordPos), mask)

		if masked.IsZero() {
			return (compressed - int(bitPos)) * tickSpacing, false, nil
		}
		msb, err := bitmath.MostSignificantBit(masked)
		if err != nil {
			return 0, false, err
		}
		return (compressed - int(bitPos-msb)) * tickSpacing, true, nil
	}

	// start from the word of the next tick, since the current tick state doesn't matter
	wordPos, bitPos := Position(compressed + 1)
	// all the 1s at or to the left of the bitPos
	mask := new(ui.Int).Lsh(ui.NewInt(1), bitPos)
	mask.Sub(mask, ui.NewInt(1)).Not(mask)
	masked := maskWord(bm.Word(wordPos), mask)

	if masked.IsZero() {
		return (compressed + 1 + int(255-bitPos)) * tickSpacing, false, nil
	}
	lsb, err := bitmath.LeastSignificantBit(masked)
	if err != nil {
		return 0, false, err
	}
	return (compressed + 1 + int(lsb-bitPos)) * tickSpacing, true, nil
}

func maskWord(word, mask *ui.Int) *ui.Int {
	if word == nil {
		return new(ui.Int)
	}
	return new(ui.Int).And(word, mask)
}
