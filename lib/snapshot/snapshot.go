// Package snapshot reads pool snapshots and quote requests from JSON.
//
// All 256-bit numbers are strings, decimal or 0x-prefixed hex. Signed
// values (liquidityNet) may carry a leading minus sign.
package snapshot

import (
	"fmt"
	"os"
	"strings"

	cons "github.com/ftchann/uniswap-quoter/lib/constants"
	"github.com/ftchann/uniswap-quoter/lib/invariant"
	la "github.com/ftchann/uniswap-quoter/lib/liquidity_amounts"
	ppool "github.com/ftchann/uniswap-quoter/lib/pool"
	td "github.com/ftchann/uniswap-quoter/lib/tickdata"
	"github.com/ftchann/uniswap-quoter/lib/tickmath"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

const (
	ProviderList   = "list"
	ProviderBitmap = "bitmap"
)

var (
	ErrInvalidNumber   = invariant.New(invariant.ErrDomain, "snapshot: invalid number")
	ErrInvalidAddress  = invariant.New(invariant.ErrDomain, "snapshot: invalid token address")
	ErrUnknownProvider = invariant.New(invariant.ErrDomain, "snapshot: unknown tick provider")
	ErrMissingField    = invariant.New(invariant.ErrDomain, "snapshot: missing field")
	ErrInvalidPosition = invariant.New(invariant.ErrDomain, "snapshot: position needs tickLower < tickUpper and a liquidity or token amounts")
)

type Tick struct {
	Index          int    `json:"index"`
	LiquidityGross string `json:"liquidityGross"`
	LiquidityNet   string `json:"liquidityNet"`
}

// Position is a liquidity range that is folded into the tick list. Either
// Liquidity or the token amounts are given; amounts are converted at the
// snapshot price.
type Position struct {
	TickLower int    `json:"tickLower"`
	TickUpper int    `json:"tickUpper"`
	Liquidity string `json:"liquidity,omitempty"`
	Amount0   string `json:"amount0,omitempty"`
	Amount1   string `json:"amount1,omitempty"`
}

// Snapshot is the JSON form of a pool. A missing liquidity is derived from
// the positions that contain the current tick.
type Snapshot struct {
	Token0       string     `json:"token0"`
	Token1       string     `json:"token1"`
	Decimals0    int32      `json:"decimals0"`
	Decimals1    int32      `json:"decimals1"`
	Fee          int        `json:"fee"`
	TickSpacing  int        `json:"tickSpacing,omitempty"`
	SqrtPriceX96 string     `json:"sqrtPriceX96"`
	Liquidity    string     `json:"liquidity,omitempty"`
	Tick         *int       `json:"tick,omitempty"`
	Provider     string     `json:"provider,omitempty"`
	Ticks        []Tick     `json:"ticks,omitempty"`
	Positions    []Position `json:"positions,omitempty"`
}

func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Decode(data)
}

// Pool builds and validates the pool described by the snapshot.
func (s *Snapshot) Pool() (*ppool.Pool, error) {
	token0, err := ParseAddress(s.Token0)
	if err != nil {
		return nil, fmt.Errorf("token0: %w", err)
	}
	token1, err := ParseAddress(s.Token1)
	if err != nil {
		return nil, fmt.Errorf("token1: %w", err)
	}
	if s.SqrtPriceX96 == "" {
		return nil, fmt.Errorf("%w: sqrtPriceX96", ErrMissingField)
	}
	sqrtPriceX96, err := ParseUnsigned(s.SqrtPriceX96)
	if err != nil {
		return nil, fmt.Errorf("sqrtPriceX96: %w", err)
	}

	tickSpacing := s.TickSpacing
	if tickSpacing == 0 {
		spacing, ok := cons.FeeAmount(s.Fee).TickSpacing()
		if !ok {
			return nil, ppool.ErrUnknownFee
		}
		tickSpacing = spacing
	}

	tickCurrent, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return nil, err
	}
	if s.Tick != nil {
		tickCurrent = *s.Tick
	}

	ticks, err := s.tickList(tickSpacing)
	if err != nil {
		return nil, err
	}
	derived, err := s.addPositions(ticks, sqrtPriceX96, tickCurrent)
	if err != nil {
		return nil, err
	}

	var liquidity *ui.Int
	switch {
	case s.Liquidity != "":
		if liquidity, err = ParseUnsigned(s.Liquidity); err != nil {
			return nil, fmt.Errorf("liquidity: %w", err)
		}
	case len(s.Positions) > 0:
		liquidity = derived
	default:
		return nil, fmt.Errorf("%w: liquidity", ErrMissingField)
	}

	var provider td.Provider
	switch s.Provider {
	case "", ProviderList:
		provider = ticks
	case ProviderBitmap:
		if provider, err = td.NewBitmapProvider(tickSpacing, ticks.Ticks()); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, s.Provider)
	}

	p, err := ppool.NewPool(token0, token1, s.Fee, tickSpacing, sqrtPriceX96, liquidity, provider)
	if err != nil {
		return nil, err
	}
	if p.TickCurrent != tickCurrent {
		p.TickCurrent = tickCurrent
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *Snapshot) tickList(tickSpacing int) (*td.TickData, error) {
	ticks := make([]td.Tick, 0, len(s.Ticks))
	for _, t := range s.Ticks {
		gross, err := ParseUnsigned(t.LiquidityGross)
		if err != nil {
			return nil, fmt.Errorf("tick %d liquidityGross: %w", t.Index, err)
		}
		net, err := ParseSigned(t.LiquidityNet)
		if err != nil {
			return nil, fmt.Errorf("tick %d liquidityNet: %w", t.Index, err)
		}
		ticks = append(ticks, td.Tick{Index: t.Index, LiquidityGross: gross, LiquidityNet: net})
	}
	return td.NewTickData(tickSpacing, ticks)
}

// addPositions folds the positions into ticks and returns the liquidity of
// the positions that are active at tickCurrent.
func (s *Snapshot) addPositions(ticks *td.TickData, sqrtPriceX96 *ui.Int, tickCurrent int) (*ui.Int, error) {
	active := new(ui.Int)
	for i, pos := range s.Positions {
		liquidity, err := pos.liquidity(sqrtPriceX96)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		if err := ticks.UpdateTick(pos.TickLower, liquidity, false); err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		if err := ticks.UpdateTick(pos.TickUpper, liquidity, true); err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		if pos.TickLower <= tickCurrent && tickCurrent < pos.TickUpper {
			active.Add(active, liquidity)
		}
	}
	return active, nil
}

func (p Position) liquidity(sqrtPriceX96 *ui.Int) (*ui.Int, error) {
	if p.TickLower >= p.TickUpper {
		return nil, ErrInvalidPosition
	}
	if p.Liquidity != "" {
		return ParseUnsigned(p.Liquidity)
	}
	if p.Amount0 == "" && p.Amount1 == "" {
		return nil, ErrInvalidPosition
	}
	amount0, amount1 := new(ui.Int), new(ui.Int)
	var err error
	if p.Amount0 != "" {
		if amount0, err = ParseUnsigned(p.Amount0); err != nil {
			return nil, err
		}
	}
	if p.Amount1 != "" {
		if amount1, err = ParseUnsigned(p.Amount1); err != nil {
			return nil, err
		}
	}
	sqrtRatioAX96, err := tickmath.GetSqrtRatioAtTick(p.TickLower)
	if err != nil {
		return nil, err
	}
	sqrtRatioBX96, err := tickmath.GetSqrtRatioAtTick(p.TickUpper)
	if err != nil {
		return nil, err
	}
	return la.GetLiquidityForAmounts(sqrtPriceX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1)
}

// ParseUnsigned parses a decimal or 0x-prefixed hex number.
func ParseUnsigned(s string) (*ui.Int, error) {
	s = strings.TrimSpace(s)
	var (
		x   *ui.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		x, err = ui.FromHex(s)
	} else {
		x, err = ui.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return x, nil
}

// ParseSigned parses a number with an optional sign into two's complement.
// The magnitude must fit int256.
func ParseSigned(s string) (*ui.Int, error) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	x, err := ParseUnsigned(strings.TrimPrefix(strings.TrimPrefix(s, "-"), "+"))
	if err != nil {
		return nil, err
	}
	if x.Gt(cons.MaxInt256) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	if negative {
		x.Neg(x)
	}
	return x, nil
}

// FormatSigned prints a two's complement value with a sign.
func FormatSigned(x *ui.Int) string {
	if x.Sign() < 0 {
		return "-" + new(ui.Int).Neg(x).Dec()
	}
	return x.Dec()
}

func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}
