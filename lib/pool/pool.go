package pool

import (
	"fmt"

	cons "github.com/ftchann/uniswap-quoter/lib/constants"
	"github.com/ftchann/uniswap-quoter/lib/fullmath"
	"github.com/ftchann/uniswap-quoter/lib/invariant"
	"github.com/ftchann/uniswap-quoter/lib/liquidity_math"
	sqm "github.com/ftchann/uniswap-quoter/lib/sqrtprice_math"
	"github.com/ftchann/uniswap-quoter/lib/swapmath"
	td "github.com/ftchann/uniswap-quoter/lib/tickdata"
	"github.com/ftchann/uniswap-quoter/lib/tickmath"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

var (
	ErrZeroAmount      = invariant.New(invariant.ErrDomain, "pool: amount specified is zero")
	ErrPriceLimit      = invariant.New(invariant.ErrDomain, "pool: sqrt price limit on the wrong side of the price or out of range")
	ErrInvalidToken    = invariant.New(invariant.ErrDomain, "pool: token is not part of the pool")
	ErrUnknownFee      = invariant.New(invariant.ErrDomain, "pool: fee has no default tick spacing")
	ErrInvalidFee      = invariant.New(invariant.ErrDomain, "pool: fee must be below 1e6 pips")
	ErrNoTicks         = invariant.New(invariant.ErrDomain, "pool: missing tick provider")
	ErrInvalidSpacing  = invariant.New(invariant.ErrDomain, "pool: tick spacing must be positive")
	ErrInvalidRange    = invariant.New(invariant.ErrDomain, "pool: position needs MinTick <= tickLower < tickUpper <= MaxTick")
	ErrReadOnlyTicks   = invariant.New(invariant.ErrDomain, "pool: tick provider cannot be updated")
	ErrTickMismatch    = invariant.New(invariant.ErrViolation, "pool: current tick does not match the sqrt price")
	ErrLiquidityTooBig = invariant.New(invariant.ErrOverflow, "pool: liquidity exceeds uint128")
)

// StepComputations records one iteration of the swap loop.
type StepComputations struct {
	SqrtPriceStartX96 *ui.Int
	TickNext          int
	Initialized       bool
	SqrtPriceNextX96  *ui.Int
	AmountIn          *ui.Int
	AmountOut         *ui.Int
	FeeAmount         *ui.Int
}

type stateStruct struct {
	amountSpecifiedRemainingI *ui.Int
	amountCalculatedI         *ui.Int
	sqrtPriceX96              *ui.Int
	tick                      int
	feeGrowthGlobalX128       *ui.Int
	liquidity                 *ui.Int
}

// SwapResult is what a swap would do to the pool. Amount0 and Amount1 are
// signed from the pool's point of view: positive is paid in, negative is paid
// out. AmountIn excludes the fee.
type SwapResult struct {
	ZeroForOne          bool
	ExactInput          bool
	Amount0             *ui.Int
	Amount1             *ui.Int
	AmountIn            *ui.Int
	AmountOut           *ui.Int
	FeeAmount           *ui.Int
	SqrtRatioX96        *ui.Int
	Tick                int
	Liquidity           *ui.Int
	FeeGrowthGlobalX128 *ui.Int
	Steps               []StepComputations
	TicksCrossed        int
}

// Pool is the state of a pool needed to quote swaps. Swaps only read Ticks;
// Mint and Burn need a td.Store.
type Pool struct {
	Token0               common.Address
	Token1               common.Address
	Fee                  int
	TickSpacing          int
	SqrtRatioX96         *ui.Int
	Liquidity            *ui.Int
	TickCurrent          int
	FeeGrowthGlobal0X128 *ui.Int
	FeeGrowthGlobal1X128 *ui.Int
	Ticks                td.Provider
}

// NewPool builds a pool at sqrtRatioX96 with the current tick derived from
// the price. A zero tickSpacing picks the default spacing of the fee tier.
func NewPool(token0, token1 common.Address, fee, tickSpacing int, sqrtRatioX96, liquidity *ui.Int, ticks td.Provider) (*Pool, error) {
	if tickSpacing == 0 {
		spacing, ok := cons.FeeAmount(fee).TickSpacing()
		if !ok {
			return nil, ErrUnknownFee
		}
		tickSpacing = spacing
	}
	tickCurrent, err := tickmath.GetTickAtSqrtRatio(sqrtRatioX96)
	if err != nil {
		return nil, err
	}
	p := &Pool{
		Token0:               token0,
		Token1:               token1,
		Fee:                  fee,
		TickSpacing:          tickSpacing,
		SqrtRatioX96:         new(ui.Int).Set(sqrtRatioX96),
		Liquidity:            new(ui.Int).Set(liquidity),
		TickCurrent:          tickCurrent,
		FeeGrowthGlobal0X128: new(ui.Int),
		FeeGrowthGlobal1X128: new(ui.Int),
		Ticks:                ticks,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the static configuration and slot0 of the pool.
func (p *Pool) Validate() error {
	if p.Fee < 0 || p.Fee >= cons.MaxFee {
		return ErrInvalidFee
	}
	if p.TickSpacing <= 0 {
		return ErrInvalidSpacing
	}
	if p.Ticks == nil {
		return ErrNoTicks
	}
	if p.Liquidity.Gt(cons.MaxUint128) {
		return ErrLiquidityTooBig
	}
	tick, err := tickmath.GetTickAtSqrtRatio(p.SqrtRatioX96)
	if err != nil {
		return err
	}
	// after crossing a tick downwards the price sits exactly on the tick
	// boundary while the current tick is the one below it
	if tick != p.TickCurrent && tick != p.TickCurrent+1 {
		return fmt.Errorf("%w: tick %d, price implies %d", ErrTickMismatch, p.TickCurrent, tick)
	}
	if tick == p.TickCurrent+1 {
		boundary, err := tickmath.GetSqrtRatioAtTick(tick)
		if err != nil {
			return err
		}
		if !boundary.Eq(p.SqrtRatioX96) {
			return fmt.Errorf("%w: tick %d, price implies %d", ErrTickMismatch, p.TickCurrent, tick)
		}
	}
	return nil
}

// Clone copies slot0 and, when it can be updated, the tick store. A read-only
// provider is shared.
func (p *Pool) Clone() *Pool {
	ticks := p.Ticks
	if store, ok := ticks.(td.Store); ok {
		ticks = store.Clone()
	}
	return &Pool{
		Token0:               p.Token0,
		Token1:               p.Token1,
		Fee:                  p.Fee,
		TickSpacing:          p.TickSpacing,
		SqrtRatioX96:         p.SqrtRatioX96.Clone(),
		Liquidity:            p.Liquidity.Clone(),
		TickCurrent:          p.TickCurrent,
		FeeGrowthGlobal0X128: p.FeeGrowthGlobal0X128.Clone(),
		FeeGrowthGlobal1X128: p.FeeGrowthGlobal1X128.Clone(),
		Ticks:                ticks,
	}
}

// Involves reports whether token is token0 or token1.
func (p *Pool) Involves(token common.Address) bool {
	return token == p.Token0 || token == p.Token1
}

// GetOutputAmount quotes an exact input of tokenIn.
func (p *Pool) GetOutputAmount(inputAmount *ui.Int, tokenIn common.Address, sqrtPriceLimitX96 *ui.Int) (*SwapResult, error) {
	if !p.Involves(tokenIn) {
		return nil, ErrInvalidToken
	}
	zeroForOne := tokenIn == p.Token0
	return p.Swap(zeroForOne, inputAmount, sqrtPriceLimitX96)
}

// GetInputAmount quotes an exact output of tokenOut.
func (p *Pool) GetInputAmount(outputAmount *ui.Int, tokenOut common.Address, sqrtPriceLimitX96 *ui.Int) (*SwapResult, error) {
	if !p.Involves(tokenOut) {
		return nil, ErrInvalidToken
	}
	zeroForOne := tokenOut == p.Token1
	return p.Swap(zeroForOne, new(ui.Int).Neg(outputAmount), sqrtPriceLimitX96)
}

// Apply moves slot0 to the state after result, so quotes can be chained.
func (p *Pool) Apply(result *SwapResult) {
	p.SqrtRatioX96 = result.SqrtRatioX96.Clone()
	p.TickCurrent = result.Tick
	p.Liquidity = result.Liquidity.Clone()
	if result.ZeroForOne {
		p.FeeGrowthGlobal0X128 = result.FeeGrowthGlobalX128.Clone()
	} else {
		p.FeeGrowthGlobal1X128 = result.FeeGrowthGlobalX128.Clone()
	}
}

// Mint adds liquidity to [tickLower, tickUpper). The amounts are what the
// pool receives, rounded up.
func (p *Pool) Mint(tickLower, tickUpper int, liquidity *ui.Int) (amount0, amount1 *ui.Int, err error) {
	if liquidity.IsZero() {
		return nil, nil, ErrZeroAmount
	}
	if liquidity.Gt(cons.MaxUint128) {
		return nil, nil, ErrLiquidityTooBig
	}
	return p.modifyPosition(tickLower, tickUpper, liquidity)
}

// Burn removes liquidity from [tickLower, tickUpper). The amounts are signed
// from the pool's side, so they are negative: what the position is owed,
// rounded down.
func (p *Pool) Burn(tickLower, tickUpper int, liquidity *ui.Int) (amount0, amount1 *ui.Int, err error) {
	if liquidity.IsZero() {
		return nil, nil, ErrZeroAmount
	}
	if liquidity.Gt(cons.MaxUint128) {
		return nil, nil, ErrLiquidityTooBig
	}
	return p.modifyPosition(tickLower, tickUpper, new(ui.Int).Neg(liquidity))
}

// modifyPosition updates both ends of the position and the active liquidity.
// The pool is unchanged on error.
func (p *Pool) modifyPosition(tickLower, tickUpper int, liquidityDelta *ui.Int) (amount0, amount1 *ui.Int, err error) {
	if tickLower >= tickUpper || tickLower < tickmath.MinTick || tickUpper > tickmath.MaxTick {
		return nil, nil, ErrInvalidRange
	}
	store, ok := p.Ticks.(td.Store)
	if !ok {
		return nil, nil, ErrReadOnlyTicks
	}
	sqrtLower, err := tickmath.GetSqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := tickmath.GetSqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, err
	}

	amount0, amount1 = new(ui.Int), new(ui.Int)
	liquidity := p.Liquidity
	switch {
	case p.TickCurrent < tickLower:
		// only token0 when the range is above the price
		if amount0, err = sqm.GetAmount0DeltaSigned(sqrtLower, sqrtUpper, liquidityDelta); err != nil {
			return nil, nil, err
		}
	case p.TickCurrent < tickUpper:
		if amount0, err = sqm.GetAmount0DeltaSigned(p.SqrtRatioX96, sqrtUpper, liquidityDelta); err != nil {
			return nil, nil, err
		}
		if amount1, err = sqm.GetAmount1DeltaSigned(sqrtLower, p.SqrtRatioX96, liquidityDelta); err != nil {
			return nil, nil, err
		}
		if liquidity, err = liquidity_math.AddDelta(p.Liquidity, liquidityDelta); err != nil {
			return nil, nil, err
		}
	default:
		if amount1, err = sqm.GetAmount1DeltaSigned(sqrtLower, sqrtUpper, liquidityDelta); err != nil {
			return nil, nil, err
		}
	}

	if err := store.UpdateTick(tickLower, liquidityDelta, false); err != nil {
		return nil, nil, fmt.Errorf("tick %d: %w", tickLower, err)
	}
	if err := store.UpdateTick(tickUpper, liquidityDelta, true); err != nil {
		if undoErr := store.UpdateTick(tickLower, new(ui.Int).Neg(liquidityDelta), false); undoErr != nil {
			return nil, nil, fmt.Errorf("tick %d: %w (undo tick %d: %v)", tickUpper, err, tickLower, undoErr)
		}
		return nil, nil, fmt.Errorf("tick %d: %w", tickUpper, err)
	}
	p.Liquidity = liquidity
	return amount0, amount1, nil
}

// Swap simulates a swap without changing the pool.
// amountSpecified is signed: positive for exact input, negative for exact output.
// A nil sqrtPriceLimitX96 swaps as far as the price range allows.
// On error the result holds what was accumulated before the failing step.
func (p *Pool) Swap(zeroForOne bool, amountSpecified *ui.Int, sqrtPriceLimitX96In *ui.Int) (*SwapResult, error) {
	if amountSpecified.IsZero() {
		return nil, ErrZeroAmount
	}

	var sqrtPriceLimitX96 *ui.Int
	switch {
	case sqrtPriceLimitX96In != nil:
		sqrtPriceLimitX96 = sqrtPriceLimitX96In.Clone()
	case zeroForOne:
		sqrtPriceLimitX96 = new(ui.Int).Add(tickmath.MinSqrtRatio, cons.One)
	default:
		sqrtPriceLimitX96 = new(ui.Int).Sub(tickmath.MaxSqrtRatio, cons.One)
	}
	if zeroForOne {
		if !sqrtPriceLimitX96.Lt(p.SqrtRatioX96) || !sqrtPriceLimitX96.Gt(tickmath.MinSqrtRatio) {
			return nil, ErrPriceLimit
		}
	} else {
		if !sqrtPriceLimitX96.Gt(p.SqrtRatioX96) || !sqrtPriceLimitX96.Lt(tickmath.MaxSqrtRatio) {
			return nil, ErrPriceLimit
		}
	}

	exactInput := amountSpecified.Sign() >= 0

	var feeGrowthGlobalX128 *ui.Int
	if zeroForOne {
		feeGrowthGlobalX128 = p.FeeGrowthGlobal0X128.Clone()
	} else {
		feeGrowthGlobalX128 = p.FeeGrowthGlobal1X128.Clone()
	}
	state := stateStruct{
		amountSpecifiedRemainingI: amountSpecified.Clone(),
		amountCalculatedI:         ui.NewInt(0),
		sqrtPriceX96:              p.SqrtRatioX96.Clone(),
		tick:                      p.TickCurrent,
		feeGrowthGlobalX128:       feeGrowthGlobalX128,
		liquidity:                 p.Liquidity.Clone(),
	}
	result := &SwapResult{
		ZeroForOne: zeroForOne,
		ExactInput: exactInput,
		AmountIn:   new(ui.Int),
		AmountOut:  new(ui.Int),
		FeeAmount:  new(ui.Int),
	}

	err := p.swapLoop(&state, result, zeroForOne, exactInput, sqrtPriceLimitX96)

	result.SqrtRatioX96 = state.sqrtPriceX96
	result.Tick = state.tick
	result.Liquidity = state.liquidity
	result.FeeGrowthGlobalX128 = state.feeGrowthGlobalX128
	result.Amount0, result.Amount1 = new(ui.Int), new(ui.Int)
	if zeroForOne == exactInput {
		result.Amount0.Sub(amountSpecified, state.amountSpecifiedRemainingI)
		result.Amount1.Set(state.amountCalculatedI)
	} else {
		result.Amount0.Set(state.amountCalculatedI)
		result.Amount1.Sub(amountSpecified, state.amountSpecifiedRemainingI)
	}
	return result, err
}

// swapLoop continues swapping as long as we haven't used the entire input/output
// and haven't reached the price limit.
func (p *Pool) swapLoop(state *stateStruct, result *SwapResult, zeroForOne, exactInput bool, sqrtPriceLimitX96 *ui.Int) error {
	for !state.amountSpecifiedRemainingI.IsZero() && !state.sqrtPriceX96.Eq(sqrtPriceLimitX96) {
		var (
			step StepComputations
			err  error
		)
		step.SqrtPriceStartX96 = state.sqrtPriceX96.Clone()
		step.TickNext, step.Initialized, err = p.Ticks.NextInitializedTickWithinOneWord(state.tick, zeroForOne, p.TickSpacing)
		if err != nil {
			return fmt.Errorf("next tick from %d: %w", state.tick, err)
		}

		// the bitmap search is not aware of the tick bounds
		if step.TickNext < tickmath.MinTick {
			step.TickNext = tickmath.MinTick
		} else if step.TickNext > tickmath.MaxTick {
			step.TickNext = tickmath.MaxTick
		}

		if step.SqrtPriceNextX96, err = tickmath.GetSqrtRatioAtTick(step.TickNext); err != nil {
			return err
		}
		var targetValue *ui.Int
		if zeroForOne {
			if step.SqrtPriceNextX96.Lt(sqrtPriceLimitX96) {
				targetValue = sqrtPriceLimitX96
			} else {
				targetValue = step.SqrtPriceNextX96
			}
		} else {
			if step.SqrtPriceNextX96.Gt(sqrtPriceLimitX96) {
				targetValue = sqrtPriceLimitX96
			} else {
				targetValue = step.SqrtPriceNextX96
			}
		}

		sqrtPriceX96, amountIn, amountOut, feeAmount, err := swapmath.ComputeSwapStep(state.sqrtPriceX96,
			targetValue, state.liquidity, state.amountSpecifiedRemainingI, p.Fee)
		if err != nil {
			return fmt.Errorf("swap step towards tick %d: %w", step.TickNext, err)
		}
		state.sqrtPriceX96 = sqrtPriceX96
		step.AmountIn, step.AmountOut, step.FeeAmount = amountIn, amountOut, feeAmount

		if exactInput {
			state.amountSpecifiedRemainingI.Sub(state.amountSpecifiedRemainingI, new(ui.Int).Add(step.AmountIn, step.FeeAmount))
			state.amountCalculatedI.Sub(state.amountCalculatedI, step.AmountOut)
		} else {
			state.amountSpecifiedRemainingI.Add(state.amountSpecifiedRemainingI, step.AmountOut)
			state.amountCalculatedI.Add(state.amountCalculatedI, new(ui.Int).Add(step.AmountIn, step.FeeAmount))
		}
		result.AmountIn.Add(result.AmountIn, step.AmountIn)
		result.AmountOut.Add(result.AmountOut, step.AmountOut)
		result.FeeAmount.Add(result.FeeAmount, step.FeeAmount)
		result.Steps = append(result.Steps, step)

		if state.liquidity.Sign() > 0 {
			fee, err := fullmath.MulDiv(step.FeeAmount, cons.Q128, state.liquidity)
			if err != nil {
				return err
			}
			state.feeGrowthGlobalX128.Add(state.feeGrowthGlobalX128, fee)
		}

		// shift tick if we reached the next price
		if state.sqrtPriceX96.Eq(step.SqrtPriceNextX96) {
			if step.Initialized {
				tick, err := p.Ticks.GetTick(step.TickNext)
				if err != nil {
					return fmt.Errorf("cross tick %d: %w", step.TickNext, err)
				}
				liquidityNet := tick.LiquidityNet
				// moving leftward interprets liquidityNet as the opposite sign
				if zeroForOne {
					liquidityNet = new(ui.Int).Neg(liquidityNet)
				}
				liquidity, err := liquidity_math.AddDelta(state.liquidity, liquidityNet)
				if err != nil {
					return fmt.Errorf("cross tick %d: %w", step.TickNext, err)
				}
				state.liquidity = liquidity
				result.TicksCrossed++
			}
			if zeroForOne {
				state.tick = step.TickNext - 1
			} else {
				state.tick = step.TickNext
			}
		} else if !state.sqrtPriceX96.Eq(step.SqrtPriceStartX96) {
			// recompute unless we're on a lower tick boundary (i.e. already transitioned ticks), and haven't moved
			tick, err := tickmath.GetTickAtSqrtRatio(state.sqrtPriceX96)
			if err != nil {
				return err
			}
			state.tick = tick
		}
	}
	return nil
}
