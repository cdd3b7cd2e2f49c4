package tickdata

import (
	"testing"

	"github.com/ftchann/uniswap-quoter/lib/invariant"
	"github.com/ftchann/uniswap-quoter/lib/tickmath"

	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(x int64) *ui.Int {
	if x < 0 {
		return new(ui.Int).Neg(ui.NewInt(uint64(-x)))
	}
	return ui.NewInt(uint64(x))
}

func tick(index int, gross uint64, net int64) Tick {
	return Tick{Index: index, LiquidityGross: ui.NewInt(gross), LiquidityNet: signed(net)}
}

func sampleTicks() []Tick {
	return []Tick{
		tick(-887220, 10, 10),
		tick(-120, 3, 3),
		tick(0, 5, 5),
		tick(60, 2, -2),
		tick(15600, 6, -6),
		tick(887220, 10, -10),
	}
}

func TestValidateList(t *testing.T) {
	tests := []struct {
		name  string
		ticks []Tick
		err   error
	}{
		{"valid", sampleTicks(), nil},
		{"empty", nil, nil},
		{"misaligned", []Tick{tick(-61, 1, 1), tick(60, 1, -1)}, ErrTickMisaligned},
		{"unsorted", []Tick{tick(60, 1, -1), tick(-60, 1, 1)}, ErrTicksUnsorted},
		{"duplicate", []Tick{tick(60, 1, 1), tick(60, 1, -1)}, ErrTicksUnsorted},
		{"net not zero", []Tick{tick(-60, 1, 1), tick(60, 1, -2)}, ErrNetNotZero},
		{"out of range", []Tick{tick(-887280, 1, 1), tick(60, 1, -1)}, ErrTickOutOfRange},
		{"missing liquidity", []Tick{{Index: 0}}, ErrMissingLiquidity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateList(60, tt.ticks)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.ErrorIs(t, ValidateList(0, nil), ErrInvalidTickSpacing)
	assert.ErrorIs(t, ValidateList(60, []Tick{tick(-60, 1, 1)}), invariant.ErrViolation)
}

func TestGetTick(t *testing.T) {
	list, err := NewTickData(60, sampleTicks())
	require.NoError(t, err)
	bitmap, err := NewBitmapProvider(60, sampleTicks())
	require.NoError(t, err)

	for _, provider := range []Provider{list, bitmap} {
		got, err := provider.GetTick(60)
		require.NoError(t, err)
		assert.Equal(t, 60, got.Index)
		assert.Equal(t, -1, got.LiquidityNet.Sign())

		_, err = provider.GetTick(120)
		assert.ErrorIs(t, err, ErrTickNotFound)
	}
}

func TestNextInitializedTickWithinOneWord(t *testing.T) {
	list, err := NewTickData(60, sampleTicks())
	require.NoError(t, err)

	tests := []struct {
		tick  int
		lte   bool
		want  int
		found bool
	}{
		{0, true, 0, true},
		{59, true, 0, true},
		{-1, true, -120, true},
		{-121, true, -256 * 60, false},
		{0, false, 60, true},
		{-120, false, -60, false},
		{-60, false, 0, true},
		{60, false, 15300, false},
		{15300, false, 15600, true},
		{887220, false, 890820, false},
		{-887220, true, -887220, true},
		{-887221, true, -890880, false},
	}
	for _, tt := range tests {
		next, found, err := list.NextInitializedTickWithinOneWord(tt.tick, tt.lte, 60)
		require.NoError(t, err)
		assert.Equal(t, tt.want, next, "tick %d lte %v", tt.tick, tt.lte)
		assert.Equal(t, tt.found, found, "tick %d lte %v", tt.tick, tt.lte)
	}
}

// The list and the bitmap must agree on every query.
func TestProvidersAgree(t *testing.T) {
	list, err := NewTickData(60, sampleTicks())
	require.NoError(t, err)
	bitmap, err := NewBitmapProvider(60, sampleTicks())
	require.NoError(t, err)

	for tick := -20000; tick <= 20000; tick += 37 {
		for _, lte := range []bool{true, false} {
			nextList, foundList, err := list.NextInitializedTickWithinOneWord(tick, lte, 60)
			require.NoError(t, err)
			nextBitmap, foundBitmap, err := bitmap.NextInitializedTickWithinOneWord(tick, lte, 60)
			require.NoError(t, err)
			require.Equal(t, nextBitmap, nextList, "tick %d lte %v", tick, lte)
			require.Equal(t, foundBitmap, foundList, "tick %d lte %v", tick, lte)
		}
	}

	empty, err := NewTickData(60, nil)
	require.NoError(t, err)
	emptyBitmap, err := NewBitmapProvider(60, nil)
	require.NoError(t, err)
	for _, lte := range []bool{true, false} {
		a, fa, err := empty.NextInitializedTickWithinOneWord(-61, lte, 60)
		require.NoError(t, err)
		b, fb, err := emptyBitmap.NextInitializedTickWithinOneWord(-61, lte, 60)
		require.NoError(t, err)
		assert.Equal(t, b, a)
		assert.False(t, fa)
		assert.False(t, fb)
	}
}

func TestSpacingMismatch(t *testing.T) {
	list, err := NewTickData(60, sampleTicks())
	require.NoError(t, err)
	_, _, err = list.NextInitializedTickWithinOneWord(0, true, 10)
	assert.ErrorIs(t, err, ErrSpacingMismatch)

	bitmap, err := NewBitmapProvider(60, sampleTicks())
	require.NoError(t, err)
	_, _, err = bitmap.NextInitializedTickWithinOneWord(0, true, 10)
	assert.ErrorIs(t, err, ErrSpacingMismatch)
}

func TestUpdateTick(t *testing.T) {
	data, err := NewTickData(60, nil)
	require.NoError(t, err)

	// position [-120, 60) with 100, then [0, 60) with 50
	require.NoError(t, data.UpdateTick(-120, ui.NewInt(100), false))
	require.NoError(t, data.UpdateTick(60, ui.NewInt(100), true))
	require.NoError(t, data.UpdateTick(0, ui.NewInt(50), false))
	require.NoError(t, data.UpdateTick(60, ui.NewInt(50), true))
	require.NoError(t, ValidateList(60, data.Ticks()))

	indexes := []int{}
	for _, tick := range data.Ticks() {
		indexes = append(indexes, tick.Index)
	}
	assert.Equal(t, []int{-120, 0, 60}, indexes)

	upper, err := data.GetTick(60)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), upper.LiquidityGross.Uint64())
	assert.Equal(t, uint64(150), new(ui.Int).Neg(upper.LiquidityNet).Uint64())

	// removing the second position drops tick 0
	require.NoError(t, data.UpdateTick(0, signed(-50), false))
	require.NoError(t, data.UpdateTick(60, signed(-50), true))
	_, err = data.GetTick(0)
	assert.ErrorIs(t, err, ErrTickNotFound)
	require.NoError(t, ValidateList(60, data.Ticks()))

	assert.ErrorIs(t, data.UpdateTick(30, ui.NewInt(1), false), ErrTickMisaligned)
	assert.ErrorIs(t, data.UpdateTick(120, signed(-1), false), ErrTickNotFound)
}

func TestUpdateTickLimits(t *testing.T) {
	for _, store := range []Store{mustList(t), mustBitmap(t)} {
		// tick 0 holds gross 5
		err := store.UpdateTick(0, signed(-6), false)
		assert.ErrorIs(t, err, ErrGrossUnderflow)
		assert.ErrorIs(t, err, invariant.ErrViolation)
		got, err := store.GetTick(0)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), got.LiquidityGross.Uint64(), "failed update must leave the tick alone")

		maxLiquidity, err := tickmath.TickSpacingToMaxLiquidityPerTick(60)
		require.NoError(t, err)
		err = store.UpdateTick(120, maxLiquidity, false)
		require.NoError(t, err)
		err = store.UpdateTick(120, ui.NewInt(1), false)
		assert.ErrorIs(t, err, ErrGrossOverflow)
		assert.ErrorIs(t, err, invariant.ErrOverflow)
	}
}

func mustList(t *testing.T) Store {
	t.Helper()
	list, err := NewTickData(60, sampleTicks())
	require.NoError(t, err)
	return list
}

func mustBitmap(t *testing.T) Store {
	t.Helper()
	bitmap, err := NewBitmapProvider(60, sampleTicks())
	require.NoError(t, err)
	return bitmap
}

func TestStoresAgreeAfterUpdates(t *testing.T) {
	list, bitmap := mustList(t), mustBitmap(t)
	updates := []struct {
		index int
		delta int64
		upper bool
	}{
		{-600, 40, false},
		{600, 40, true},
		{0, -5, false}, // drops tick 0
		{60, -2, true}, // drops tick 60
		{-120, 7, false},
		{-600, -40, false},
		{600, -40, true},
	}
	for _, u := range updates {
		require.NoError(t, list.UpdateTick(u.index, signed(u.delta), u.upper))
		require.NoError(t, bitmap.UpdateTick(u.index, signed(u.delta), u.upper))
	}

	for _, index := range []int{-600, 0, 60, 600} {
		_, err := list.GetTick(index)
		assert.ErrorIs(t, err, ErrTickNotFound, "list tick %d", index)
		_, err = bitmap.GetTick(index)
		assert.ErrorIs(t, err, ErrTickNotFound, "bitmap tick %d", index)
	}
	for tick := -20000; tick <= 20000; tick += 37 {
		for _, lte := range []bool{true, false} {
			nextList, foundList, err := list.NextInitializedTickWithinOneWord(tick, lte, 60)
			require.NoError(t, err)
			nextBitmap, foundBitmap, err := bitmap.NextInitializedTickWithinOneWord(tick, lte, 60)
			require.NoError(t, err)
			require.Equal(t, nextBitmap, nextList, "tick %d lte %v", tick, lte)
			require.Equal(t, foundBitmap, foundList, "tick %d lte %v", tick, lte)
		}
	}
	got, err := bitmap.GetTick(-120)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.LiquidityGross.Uint64())
	assert.Equal(t, int64(10), int64(got.LiquidityNet.Uint64()))
}

func TestStoreClone(t *testing.T) {
	for _, store := range []Store{mustList(t), mustBitmap(t)} {
		clone := store.Clone()
		require.NoError(t, clone.UpdateTick(-120, signed(-3), false))
		require.NoError(t, clone.UpdateTick(240, ui.NewInt(9), false))

		_, err := clone.GetTick(-120)
		assert.ErrorIs(t, err, ErrTickNotFound)
		got, err := store.GetTick(-120)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), got.LiquidityGross.Uint64())
		_, err = store.GetTick(240)
		assert.ErrorIs(t, err, ErrTickNotFound)

		next, _, err := store.NextInitializedTickWithinOneWord(180, false, 60)
		require.NoError(t, err)
		assert.NotEqual(t, 240, next)
	}
}
