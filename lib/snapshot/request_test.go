package snapshot

import (
	"strings"
	"testing"

	ppool "github.com/ftchann/uniswap-quoter/lib/pool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestQuoteRequestArgs(t *testing.T) {
	p := decodePositions(t, ProviderList)

	args, err := QuoteRequest{TokenIn: usdc, Amount: "1000"}.Args(p)
	require.NoError(t, err)
	assert.True(t, args.ZeroForOne)
	assert.Equal(t, "1000", FormatSigned(args.AmountSpecified))
	assert.Nil(t, args.SqrtPriceLimitX96)

	args, err = QuoteRequest{ZeroForOne: boolPtr(false), Amount: "0x3e8", ExactOutput: true, SqrtPriceLimitX96: "79228162514264337593543950337"}.Args(p)
	require.NoError(t, err)
	assert.False(t, args.ZeroForOne)
	assert.Equal(t, "-1000", FormatSigned(args.AmountSpecified))
	assert.Equal(t, "79228162514264337593543950337", args.SqrtPriceLimitX96.Dec())

	tests := []struct {
		name string
		req  QuoteRequest
		err  error
	}{
		{"no direction", QuoteRequest{Amount: "1"}, ErrNoDirection},
		{"direction mismatch", QuoteRequest{TokenIn: weth, ZeroForOne: boolPtr(true), Amount: "1"}, ErrDirectionMismatch},
		{"foreign token", QuoteRequest{TokenIn: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Amount: "1"}, ppool.ErrInvalidToken},
		{"bad token", QuoteRequest{TokenIn: "dai", Amount: "1"}, ErrInvalidAddress},
		{"negative amount", QuoteRequest{TokenIn: usdc, Amount: "-1"}, ErrNegativeAmount},
		{"bad amount", QuoteRequest{TokenIn: usdc, Amount: "1e18"}, ErrInvalidNumber},
		{"bad limit", QuoteRequest{TokenIn: usdc, Amount: "1", SqrtPriceLimitX96: "x"}, ErrInvalidNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Args(p)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDecodeRequests(t *testing.T) {
	input := `{"id": "a", "zeroForOne": true, "amount": "1000"}

{"id": "b", "tokenIn": "` + weth + `", "amount": "5", "exactOutput": true, "includeSteps": true}
`
	requests, err := DecodeRequests(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "a", requests[0].ID)
	require.NotNil(t, requests[0].ZeroForOne)
	assert.True(t, *requests[0].ZeroForOne)
	assert.Equal(t, weth, requests[1].TokenIn)
	assert.True(t, requests[1].ExactOutput)
	assert.True(t, requests[1].IncludeSteps)

	_, err = DecodeRequests(strings.NewReader("{\"amount\": \"1\"}\n{oops\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestPositionRequests(t *testing.T) {
	requests, err := DecodeRequests(strings.NewReader(`{"id": "m", "type": "mint", "tickLower": -600, "tickUpper": 600, "amount": "1000000"}
{"id": "b", "type": "burn", "tickLower": -60, "tickUpper": 60, "amount": "0x10"}
{"id": "s", "zeroForOne": true, "amount": "1"}
{"id": "x", "type": "collect", "amount": "1"}
`))
	require.NoError(t, err)
	require.Len(t, requests, 4)

	kind, err := requests[0].Kind()
	require.NoError(t, err)
	assert.Equal(t, RequestMint, kind)
	args, err := requests[0].PositionArgs()
	require.NoError(t, err)
	assert.Equal(t, -600, args.TickLower)
	assert.Equal(t, 600, args.TickUpper)
	assert.Equal(t, "1000000", args.Liquidity.Dec())

	kind, err = requests[1].Kind()
	require.NoError(t, err)
	assert.Equal(t, RequestBurn, kind)
	args, err = requests[1].PositionArgs()
	require.NoError(t, err)
	assert.Equal(t, "16", args.Liquidity.Dec())

	kind, err = requests[2].Kind()
	require.NoError(t, err)
	assert.Equal(t, RequestSwap, kind)

	_, err = requests[3].Kind()
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = QuoteRequest{Type: RequestMint, Amount: "-5"}.PositionArgs()
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = QuoteRequest{Type: RequestMint, Amount: "lots"}.PositionArgs()
	assert.ErrorIs(t, err, ErrInvalidNumber)
}
