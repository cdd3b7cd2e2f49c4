package tickbitmap

import (
	"fmt"
	"testing"

	"github.com/ftchann/uniswap-quoter/lib/invariant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWords(t *testing.T, tickSpacing int, ticks ...int) Words {
	t.Helper()
	w := Words{}
	for _, tick := range ticks {
		require.NoError(t, w.FlipTick(tick, tickSpacing))
	}
	return w
}

func TestFlipTick(t *testing.T) {
	w := Words{}
	assert.False(t, w.IsInitialized(1, 1))

	require.NoError(t, w.FlipTick(1, 1))
	assert.True(t, w.IsInitialized(1, 1))
	assert.False(t, w.IsInitialized(2, 1))
	assert.False(t, w.IsInitialized(-257, 1))

	require.NoError(t, w.FlipTick(1, 1))
	assert.False(t, w.IsInitialized(1, 1))
	assert.Empty(t, w)

	require.NoError(t, w.FlipTick(-230, 1))
	require.NoError(t, w.FlipTick(-259, 1))
	require.NoError(t, w.FlipTick(-230, 1))
	assert.True(t, w.IsInitialized(-259, 1))
	assert.False(t, w.IsInitialized(-230, 1))

	err := w.FlipTick(61, 60)
	assert.ErrorIs(t, err, ErrTickMisaligned)
	assert.ErrorIs(t, err, invariant.ErrDomain)
	assert.ErrorIs(t, w.FlipTick(60, 0), ErrInvalidTickSpacing)
}

func TestPosition(t *testing.T) {
	tests := []struct {
		compressed int
		wordPos    int
		bitPos     uint
	}{
		{0, 0, 0},
		{255, 0, 255},
		{256, 1, 0},
		{-1, -1, 255},
		{-256, -1, 0},
		{-257, -2, 255},
		{-3466, -14, 118},
	}
	for _, tt := range tests {
		wordPos, bitPos := Position(tt.compressed)
		assert.Equal(t, tt.wordPos, wordPos, "word of %d", tt.compressed)
		assert.Equal(t, tt.bitPos, bitPos, "bit of %d", tt.compressed)
	}
	assert.Equal(t, -1, Compress(-1, 60))
	assert.Equal(t, -1, Compress(-60, 60))
	assert.Equal(t, -2, Compress(-61, 60))
	assert.Equal(t, 0, Compress(59, 60))
}

func TestNextInitializedTickWithinOneWord(t *testing.T) {
	initialized := []int{-200, -55, -4, 70, 78, 84, 139, 240, 535}

	tests := []struct {
		tick  int
		lte   bool
		want  int
		found bool
	}{
		// searching right
		{78, false, 84, true},
		{-55, false, -4, true},
		{77, false, 78, true},
		{-56, false, -55, true},
		{255, false, 511, false},
		{-257, false, -200, true},
		{340, false, 511, false},
		{508, false, 511, false},
		{511, false, 535, true},
		{383, false, 511, false},
		// searching left
		{78, true, 78, true},
		{79, true, 78, true},
		{258, true, 256, false},
		{256, true, 256, false},
		{72, true, 70, true},
		{-257, true, -512, false},
		{1023, true, 768, false},
		{900, true, 768, false},
	}
	w := newWords(t, 1, initialized...)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/lte=%v", tt.tick, tt.lte), func(t *testing.T) {
			next, found, err := NextInitializedTickWithinOneWord(w, tt.tick, 1, tt.lte)
			require.NoError(t, err)
			if next != tt.want || found != tt.found {
				t.Fatalf("want=%v,%v result=%v,%v", tt.want, tt.found, next, found)
			}
		})
	}

	t.Run("finds a tick flipped later", func(t *testing.T) {
		w := newWords(t, 1, initialized...)
		require.NoError(t, w.FlipTick(329, 1))
		next, found, err := NextInitializedTickWithinOneWord(w, 456, 1, true)
		require.NoError(t, err)
		assert.Equal(t, 329, next)
		assert.True(t, found)
	})
}

func TestNextInitializedTickWithSpacing(t *testing.T) {
	w := newWords(t, 60, -120, 60)

	next, found, err := NextInitializedTickWithinOneWord(w, -1, 60, true)
	require.NoError(t, err)
	assert.Equal(t, -120, next)
	assert.True(t, found)

	next, found, err = NextInitializedTickWithinOneWord(w, -1, 60, false)
	require.NoError(t, err)
	assert.Equal(t, 60, next)
	assert.True(t, found)

	next, found, err = NextInitializedTickWithinOneWord(w, 60, 60, false)
	require.NoError(t, err)
	assert.Equal(t, 255*60, next)
	assert.False(t, found)

	next, found, err = NextInitializedTickWithinOneWord(w, -121, 60, true)
	require.NoError(t, err)
	assert.Equal(t, -256*60, next)
	assert.False(t, found)

	_, _, err = NextInitializedTickWithinOneWord(w, 0, -60, true)
	assert.ErrorIs(t, err, ErrInvalidTickSpacing)
}

func TestEmptyBitmap(t *testing.T) {
	next, found, err := NextInitializedTickWithinOneWord(Words{}, 0, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 0, next)
	assert.False(t, found)

	next, found, err = NextInitializedTickWithinOneWord(Words{}, 0, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 255, next)
	assert.False(t, found)
}

func TestClone(t *testing.T) {
	w := newWords(t, 1, 5)
	clone := w.Clone()
	require.NoError(t, clone.FlipTick(6, 1))
	assert.False(t, w.IsInitialized(6, 1))
	assert.True(t, clone.IsInitialized(6, 1))
}
