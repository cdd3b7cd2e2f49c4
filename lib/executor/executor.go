// Package executor runs quote requests against a pool, one at a time.
package executor

import (
	"context"
	"time"

	"github.com/ftchann/uniswap-quoter/lib/metrics"
	ppool "github.com/ftchann/uniswap-quoter/lib/pool"
	"github.com/ftchann/uniswap-quoter/lib/result"
	"github.com/ftchann/uniswap-quoter/lib/snapshot"

	ui "github.com/holiman/uint256"
	"go.uber.org/zap"
)

type Option func(*Execution)

// WithApply makes Run move the pool to the state after every successful
// request, so later quotes see the price impact of earlier swaps and the
// liquidity of earlier mints and burns.
func WithApply(apply bool) Option {
	return func(e *Execution) { e.apply = apply }
}

// WithSteps includes the per-step records in every quote.
func WithSteps(steps bool) Option {
	return func(e *Execution) { e.steps = steps }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Execution) { e.metrics = m }
}

// Execution owns a copy of the pool. It is not safe for concurrent use.
type Execution struct {
	pool    *ppool.Pool
	tokens  result.Tokens
	logger  *zap.Logger
	metrics *metrics.Metrics
	apply   bool
	steps   bool
}

func CreateExecution(pool *ppool.Pool, tokens result.Tokens, logger *zap.Logger, opts ...Option) *Execution {
	e := &Execution{
		pool:   pool.Clone(),
		tokens: tokens,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pool returns the current pool state.
func (e *Execution) Pool() *ppool.Pool {
	return e.pool
}

// Quote prices one request against the current state without applying it.
// Mints and burns run on a copy of the pool.
func (e *Execution) Quote(req snapshot.QuoteRequest) result.Quote {
	return e.execute(req, false)
}

// execute runs one request and, when apply is set, leaves the pool in the
// state after it.
func (e *Execution) execute(req snapshot.QuoteRequest, apply bool) result.Quote {
	kind, err := req.Kind()
	if err != nil {
		e.logger.Warn("invalid request", zap.String("id", req.ID), zap.Error(err))
		return result.FromSwap(req.ID, e.pool.SqrtRatioX96, nil, err, e.tokens, false)
	}
	if kind != snapshot.RequestSwap {
		return e.modifyPosition(req, kind, apply)
	}

	q, res := e.quote(req)
	q.Type = kind
	if apply && res != nil {
		e.pool.Apply(res)
		if e.metrics != nil {
			e.metrics.ReplayQuotes.Inc()
		}
	}
	return q
}

func (e *Execution) modifyPosition(req snapshot.QuoteRequest, kind string, apply bool) result.Quote {
	target := e.pool
	if !apply {
		target = e.pool.Clone()
	}
	sqrtPriceBefore := target.SqrtRatioX96.Clone()

	var amount0, amount1 *ui.Int
	args, err := req.PositionArgs()
	if err == nil {
		if kind == snapshot.RequestMint {
			amount0, amount1, err = target.Mint(args.TickLower, args.TickUpper, args.Liquidity)
		} else {
			amount0, amount1, err = target.Burn(args.TickLower, args.TickUpper, args.Liquidity)
		}
	}
	q := result.FromPosition(req.ID, kind, sqrtPriceBefore, target, amount0, amount1, err, e.tokens)
	if e.metrics != nil {
		e.metrics.ObservePosition(q)
		if apply && err == nil {
			e.metrics.ReplayQuotes.Inc()
		}
	}
	if err != nil {
		e.logger.Warn("position update failed",
			zap.String("id", req.ID),
			zap.String("type", kind),
			zap.String("kind", q.ErrorKind),
			zap.Error(err),
		)
		return q
	}
	e.logger.Debug("position update",
		zap.String("id", req.ID),
		zap.String("type", kind),
		zap.Int("tick_lower", args.TickLower),
		zap.Int("tick_upper", args.TickUpper),
		zap.String("amount0", q.Amount0),
		zap.String("amount1", q.Amount1),
		zap.Bool("applied", apply),
	)
	return q
}

func (e *Execution) quote(req snapshot.QuoteRequest) (result.Quote, *ppool.SwapResult) {
	withSteps := e.steps || req.IncludeSteps
	args, err := req.Args(e.pool)
	if err != nil {
		e.logger.Warn("invalid quote request", zap.String("id", req.ID), zap.Error(err))
		q := result.FromSwap(req.ID, e.pool.SqrtRatioX96, nil, err, e.tokens, withSteps)
		if e.metrics != nil {
			e.metrics.ObserveQuote(q, !req.ExactOutput, 0, 0)
		}
		return q, nil
	}

	start := time.Now()
	res, err := e.pool.Swap(args.ZeroForOne, args.AmountSpecified, args.SqrtPriceLimitX96)
	elapsed := time.Since(start)

	q := result.FromSwap(req.ID, e.pool.SqrtRatioX96, res, err, e.tokens, withSteps)
	stepCount := 0
	if res != nil {
		stepCount = len(res.Steps)
	}
	if e.metrics != nil {
		e.metrics.ObserveQuote(q, !req.ExactOutput, stepCount, elapsed)
	}
	if err != nil {
		e.logger.Warn("quote failed",
			zap.String("id", req.ID),
			zap.Bool("zero_for_one", args.ZeroForOne),
			zap.String("kind", q.ErrorKind),
			zap.Error(err),
		)
		return q, nil
	}
	e.logger.Debug("quote",
		zap.String("id", req.ID),
		zap.Bool("zero_for_one", args.ZeroForOne),
		zap.String("amount_in", q.AmountIn),
		zap.String("amount_out", q.AmountOut),
		zap.Int("tick_after", q.TickAfter),
		zap.Int("ticks_crossed", q.TicksCrossed),
		zap.Duration("elapsed", elapsed),
	)
	return q, res
}

// Run quotes every request in order. A failed quote is recorded and the
// replay continues; only cancellation of ctx stops it early.
func (e *Execution) Run(ctx context.Context, requests []snapshot.QuoteRequest) (result.Summary, error) {
	summary := result.Summary{
		Applied:           e.apply,
		SqrtPriceX96Start: e.pool.SqrtRatioX96.Dec(),
		Results:           make([]result.Quote, 0, len(requests)),
	}
	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			e.finish(&summary)
			return summary, err
		}
		q := e.execute(req, e.apply)
		summary.Quotes++
		if q.Error != "" {
			summary.Failed++
		}
		summary.TicksCrossed += q.TicksCrossed
		summary.Results = append(summary.Results, q)
	}
	e.finish(&summary)
	e.logger.Info("replay done",
		zap.Int("quotes", summary.Quotes),
		zap.Int("failed", summary.Failed),
		zap.Int("ticks_crossed", summary.TicksCrossed),
		zap.Int("tick_end", summary.TickEnd),
	)
	return summary, nil
}

func (e *Execution) finish(summary *result.Summary) {
	summary.SqrtPriceX96End = e.pool.SqrtRatioX96.Dec()
	summary.TickEnd = e.pool.TickCurrent
	summary.LiquidityEnd = e.pool.Liquidity.Dec()
}
