package snapshot

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/ftchann/uniswap-quoter/lib/invariant"
	ppool "github.com/ftchann/uniswap-quoter/lib/pool"

	"github.com/bytedance/sonic"
	ui "github.com/holiman/uint256"
)

const maxLineSize = 1 << 20

// Request types. An empty type is a swap.
const (
	RequestSwap = "swap"
	RequestMint = "mint"
	RequestBurn = "burn"
)

var (
	ErrNoDirection       = invariant.New(invariant.ErrDomain, "snapshot: request needs zeroForOne or tokenIn")
	ErrDirectionMismatch = invariant.New(invariant.ErrDomain, "snapshot: zeroForOne disagrees with tokenIn")
	ErrNegativeAmount    = invariant.New(invariant.ErrDomain, "snapshot: amount must be unsigned, use exactOutput for outputs")
	ErrUnknownType       = invariant.New(invariant.ErrDomain, "snapshot: request type must be swap, mint or burn")
)

// QuoteRequest asks for one swap quote. The direction comes from ZeroForOne
// or TokenIn. Amount is the input amount, or the output amount when
// ExactOutput is set.
//
// Mint and burn requests change the liquidity of [TickLower, TickUpper) by
// Amount instead.
type QuoteRequest struct {
	ID                string `json:"id,omitempty"`
	Type              string `json:"type,omitempty"`
	TickLower         int    `json:"tickLower,omitempty"`
	TickUpper         int    `json:"tickUpper,omitempty"`
	ZeroForOne        *bool  `json:"zeroForOne,omitempty"`
	TokenIn           string `json:"tokenIn,omitempty"`
	Amount            string `json:"amount"`
	ExactOutput       bool   `json:"exactOutput,omitempty"`
	SqrtPriceLimitX96 string `json:"sqrtPriceLimitX96,omitempty"`
	IncludeSteps      bool   `json:"includeSteps,omitempty"`
}

// SwapArgs are the parsed arguments of Pool.Swap.
type SwapArgs struct {
	ZeroForOne        bool
	AmountSpecified   *ui.Int
	SqrtPriceLimitX96 *ui.Int
}

// PositionArgs are the parsed arguments of Pool.Mint and Pool.Burn.
type PositionArgs struct {
	TickLower int
	TickUpper int
	Liquidity *ui.Int
}

// Kind returns the request type, RequestSwap when it is empty.
func (r QuoteRequest) Kind() (string, error) {
	switch r.Type {
	case "", RequestSwap:
		return RequestSwap, nil
	case RequestMint, RequestBurn:
		return r.Type, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
}

// PositionArgs parses a mint or burn request.
func (r QuoteRequest) PositionArgs() (PositionArgs, error) {
	args := PositionArgs{TickLower: r.TickLower, TickUpper: r.TickUpper}
	if len(r.Amount) > 0 && r.Amount[0] == '-' {
		return args, ErrNegativeAmount
	}
	liquidity, err := ParseUnsigned(r.Amount)
	if err != nil {
		return args, fmt.Errorf("amount: %w", err)
	}
	args.Liquidity = liquidity
	return args, nil
}

// Args resolves the request against p.
func (r QuoteRequest) Args(p *ppool.Pool) (SwapArgs, error) {
	var args SwapArgs
	switch {
	case r.TokenIn != "":
		token, err := ParseAddress(r.TokenIn)
		if err != nil {
			return args, err
		}
		if !p.Involves(token) {
			return args, ppool.ErrInvalidToken
		}
		args.ZeroForOne = token == p.Token0
		if r.ZeroForOne != nil && *r.ZeroForOne != args.ZeroForOne {
			return args, ErrDirectionMismatch
		}
	case r.ZeroForOne != nil:
		args.ZeroForOne = *r.ZeroForOne
	default:
		return args, ErrNoDirection
	}

	if len(r.Amount) > 0 && r.Amount[0] == '-' {
		return args, ErrNegativeAmount
	}
	amount, err := ParseUnsigned(r.Amount)
	if err != nil {
		return args, fmt.Errorf("amount: %w", err)
	}
	amount, err = ParseSigned(amount.Dec())
	if err != nil {
		return args, fmt.Errorf("amount: %w", err)
	}
	if r.ExactOutput {
		amount.Neg(amount)
	}
	args.AmountSpecified = amount

	if r.SqrtPriceLimitX96 != "" {
		limit, err := ParseUnsigned(r.SqrtPriceLimitX96)
		if err != nil {
			return args, fmt.Errorf("sqrtPriceLimitX96: %w", err)
		}
		args.SqrtPriceLimitX96 = limit
	}
	return args, nil
}

func DecodeRequest(data []byte) (QuoteRequest, error) {
	var r QuoteRequest
	if err := sonic.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("decode request: %w", err)
	}
	return r, nil
}

// DecodeRequests reads one request per line. Blank lines are skipped.
func DecodeRequests(r io.Reader) ([]QuoteRequest, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var (
		requests []QuoteRequest
		line     int
	)
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		req, err := DecodeRequest(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		requests = append(requests, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}
	return requests, nil
}
