// Package result holds the JSON records written for quotes and replays.
package result

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ftchann/uniswap-quoter/lib/invariant"
	ppool "github.com/ftchann/uniswap-quoter/lib/pool"
	"github.com/ftchann/uniswap-quoter/lib/prices"
	"github.com/ftchann/uniswap-quoter/lib/snapshot"

	"github.com/bytedance/sonic"
	ui "github.com/holiman/uint256"
)

type Step struct {
	SqrtPriceStartX96 string `json:"sqrtPriceStartX96"`
	TickNext          int    `json:"tickNext"`
	Initialized       bool   `json:"initialized"`
	SqrtPriceNextX96  string `json:"sqrtPriceNextX96"`
	AmountIn          string `json:"amountIn"`
	AmountOut         string `json:"amountOut"`
	FeeAmount         string `json:"feeAmount"`
}

// Quote is one swap quote, or the outcome of a mint or burn. Amount0 and
// Amount1 are signed from the pool's side. Prices are token1 per token0 in
// whole tokens.
type Quote struct {
	ID                string `json:"id,omitempty"`
	Type              string `json:"type,omitempty"`
	ZeroForOne        bool   `json:"zeroForOne"`
	ExactInput        bool   `json:"exactInput"`
	Amount0           string `json:"amount0"`
	Amount1           string `json:"amount1"`
	AmountIn          string `json:"amountIn"`
	AmountOut         string `json:"amountOut"`
	FeeAmount         string `json:"feeAmount"`
	SqrtPriceX96After string `json:"sqrtPriceX96After"`
	TickAfter         int    `json:"tickAfter"`
	LiquidityAfter    string `json:"liquidityAfter"`
	PriceBefore       string `json:"priceBefore"`
	PriceAfter        string `json:"priceAfter"`
	TicksCrossed      int    `json:"ticksCrossed"`
	Steps             []Step `json:"steps,omitempty"`
	Error             string `json:"error,omitempty"`
	ErrorKind         string `json:"errorKind,omitempty"`
}

// Tokens carries the token decimals used for human prices.
type Tokens struct {
	Decimals0 int32
	Decimals1 int32
}

// FromSwap builds a quote from a swap of a pool whose price was
// sqrtPriceBefore. res may be partial when err is set, or nil.
func FromSwap(id string, sqrtPriceBefore *ui.Int, res *ppool.SwapResult, err error, tokens Tokens, withSteps bool) Quote {
	q := Quote{
		ID:          id,
		PriceBefore: prices.SqrtPriceToPrice(sqrtPriceBefore, tokens.Decimals0, tokens.Decimals1).String(),
	}
	if err != nil {
		q.Error = err.Error()
		q.ErrorKind = ErrorKind(err)
	}
	if res == nil {
		return q
	}

	q.ZeroForOne = res.ZeroForOne
	q.ExactInput = res.ExactInput
	q.Amount0 = snapshot.FormatSigned(res.Amount0)
	q.Amount1 = snapshot.FormatSigned(res.Amount1)
	q.AmountIn = res.AmountIn.Dec()
	q.AmountOut = res.AmountOut.Dec()
	q.FeeAmount = res.FeeAmount.Dec()
	q.SqrtPriceX96After = res.SqrtRatioX96.Dec()
	q.TickAfter = res.Tick
	q.LiquidityAfter = res.Liquidity.Dec()
	q.PriceAfter = prices.SqrtPriceToPrice(res.SqrtRatioX96, tokens.Decimals0, tokens.Decimals1).String()
	q.TicksCrossed = res.TicksCrossed
	if withSteps {
		q.Steps = make([]Step, 0, len(res.Steps))
		for _, s := range res.Steps {
			q.Steps = append(q.Steps, Step{
				SqrtPriceStartX96: s.SqrtPriceStartX96.Dec(),
				TickNext:          s.TickNext,
				Initialized:       s.Initialized,
				SqrtPriceNextX96:  s.SqrtPriceNextX96.Dec(),
				AmountIn:          s.AmountIn.Dec(),
				AmountOut:         s.AmountOut.Dec(),
				FeeAmount:         s.FeeAmount.Dec(),
			})
		}
	}
	return q
}

// FromPosition builds the record of a mint or burn on p, whose price was
// sqrtPriceBefore. The amounts are nil when err is set.
func FromPosition(id, kind string, sqrtPriceBefore *ui.Int, p *ppool.Pool, amount0, amount1 *ui.Int, err error, tokens Tokens) Quote {
	q := Quote{
		ID:          id,
		Type:        kind,
		PriceBefore: prices.SqrtPriceToPrice(sqrtPriceBefore, tokens.Decimals0, tokens.Decimals1).String(),
	}
	if err != nil {
		q.Error = err.Error()
		q.ErrorKind = ErrorKind(err)
		return q
	}
	q.Amount0 = snapshot.FormatSigned(amount0)
	q.Amount1 = snapshot.FormatSigned(amount1)
	q.SqrtPriceX96After = p.SqrtRatioX96.Dec()
	q.TickAfter = p.TickCurrent
	q.LiquidityAfter = p.Liquidity.Dec()
	q.PriceAfter = prices.SqrtPriceToPrice(p.SqrtRatioX96, tokens.Decimals0, tokens.Decimals1).String()
	return q
}

// ErrorKind names the category of err: "domain", "overflow", "violation",
// or "" for errors outside the taxonomy.
func ErrorKind(err error) string {
	switch invariant.Category(err) {
	case invariant.ErrDomain:
		return "domain"
	case invariant.ErrOverflow:
		return "overflow"
	case invariant.ErrViolation:
		return "violation"
	}
	return ""
}

// Summary is the outcome of a replay.
type Summary struct {
	Quotes            int     `json:"quotes"`
	Failed            int     `json:"failed"`
	TicksCrossed      int     `json:"ticksCrossed"`
	Applied           bool    `json:"applied"`
	SqrtPriceX96Start string  `json:"sqrtPriceX96Start"`
	SqrtPriceX96End   string  `json:"sqrtPriceX96End"`
	TickEnd           int     `json:"tickEnd"`
	LiquidityEnd      string  `json:"liquidityEnd"`
	Results           []Quote `json:"results,omitempty"`
}

// WriteLines writes one JSON record per line.
func WriteLines(w io.Writer, quotes []Quote) error {
	bw := bufio.NewWriter(w)
	for _, q := range quotes {
		data, err := sonic.Marshal(q)
		if err != nil {
			return fmt.Errorf("encode quote %q: %w", q.ID, err)
		}
		if _, err := bw.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// Write writes v as indented JSON.
func Write(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
