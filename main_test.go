package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ftchann/uniswap-quoter/lib/pool"
	"github.com/ftchann/uniswap-quoter/lib/result"
	"github.com/ftchann/uniswap-quoter/lib/tickmath"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotJSON = `{
	"token0": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	"token1": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	"decimals0": 6,
	"decimals1": 18,
	"fee": 500,
	"sqrtPriceX96": "79228162514264337593543950336",
	"positions": [
		{"tickLower": -1000, "tickUpper": 1000, "liquidity": "1000000000000000000"},
		{"tickLower": -100, "tickUpper": 100, "liquidity": "2000000000000000000"}
	]
}`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pool.json")
	require.NoError(t, os.WriteFile(path, []byte(snapshotJSON), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin), &out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestQuoteCommand(t *testing.T) {
	path := writeSnapshot(t)

	out, err := run(t, "", "quote", "--snapshot", path, "--zero-for-one", "--amount", "1000000", "--provider", "bitmap")
	require.NoError(t, err)
	var q result.Quote
	require.NoError(t, sonic.UnmarshalString(out, &q))
	assert.True(t, q.ZeroForOne)
	assert.Equal(t, "1000000", q.Amount0)
	assert.Empty(t, q.Error)

	out, err = run(t, "", "quote", "--snapshot", path, "--token-in", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "--amount", "1000", "--exact-output", "--steps")
	require.NoError(t, err)
	require.NoError(t, sonic.UnmarshalString(out, &q))
	assert.False(t, q.ZeroForOne)
	assert.Equal(t, "-1000", q.Amount0)
	assert.NotEmpty(t, q.Steps)
}

func TestQuoteCommandErrors(t *testing.T) {
	path := writeSnapshot(t)

	_, err := run(t, "", "quote", "--snapshot", path, "--zero-for-one", "--amount", "0")
	require.Error(t, err)
	assert.Equal(t, exitDomain, exitCode(err))

	_, err = run(t, "", "quote", "--zero-for-one", "--amount", "1")
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))

	_, err = run(t, "", "quote", "--snapshot", path, "--provider", "tree", "--zero-for-one", "--amount", "1")
	require.Error(t, err)
	assert.Equal(t, exitDomain, exitCode(err))
}

func TestReplayCommand(t *testing.T) {
	path := writeSnapshot(t)
	requests := `{"id": "1", "zeroForOne": true, "amount": "100000000000000000"}
{"id": "2", "zeroForOne": true, "amount": "100000000000000000"}
{"id": "3", "amount": "1"}
`
	out, err := run(t, requests, "replay", "--snapshot", path, "--apply")
	require.NoError(t, err)
	var summary result.Summary
	require.NoError(t, sonic.UnmarshalString(out, &summary))
	assert.Equal(t, 3, summary.Quotes)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.Applied)
	assert.NotEqual(t, summary.SqrtPriceX96Start, summary.SqrtPriceX96End)

	reqFile := filepath.Join(t.TempDir(), "requests.jsonl")
	require.NoError(t, os.WriteFile(reqFile, []byte(requests), 0o644))
	outFile := filepath.Join(t.TempDir(), "quotes.jsonl")
	_, err = run(t, "", "replay", "--snapshot", path, "--requests", reqFile, "--out", outFile, "--lines")
	require.NoError(t, err)
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	var first, second result.Quote
	require.NoError(t, sonic.UnmarshalString(lines[0], &first))
	require.NoError(t, sonic.UnmarshalString(lines[1], &second))
	assert.Equal(t, first.AmountOut, second.AmountOut, "without --apply every quote starts from the snapshot")
}

func TestReplayCancelledWritesSummary(t *testing.T) {
	path := writeSnapshot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	root := newRootCmd(strings.NewReader(`{"id": "1", "zeroForOne": true, "amount": "1000"}`), &out)
	root.SetArgs([]string{"replay", "--snapshot", path, "--log-level", "error"})
	err := root.ExecuteContext(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, exitFailure, exitCode(err))

	var summary result.Summary
	require.NoError(t, sonic.UnmarshalString(out.String(), &summary))
	assert.Equal(t, 0, summary.Quotes)
	assert.Equal(t, summary.SqrtPriceX96Start, summary.SqrtPriceX96End)
}

func TestReplayPositions(t *testing.T) {
	path := writeSnapshot(t)
	requests := `{"id": "m", "type": "mint", "tickLower": -100, "tickUpper": 100, "amount": "1000000000000000000"}
{"id": "b", "type": "burn", "tickLower": -1000, "tickUpper": 1000, "amount": "1000000000000000000"}
`
	out, err := run(t, requests, "replay", "--snapshot", path, "--apply")
	require.NoError(t, err)
	var summary result.Summary
	require.NoError(t, sonic.UnmarshalString(out, &summary))
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, "mint", summary.Results[0].Type)
	assert.Equal(t, "4000000000000000000", summary.Results[0].LiquidityAfter)
	assert.Equal(t, "3000000000000000000", summary.LiquidityEnd)
}

func TestTickCommand(t *testing.T) {
	out, err := run(t, "", "tick", "0", "--decimals0", "6", "--decimals1", "18")
	require.NoError(t, err)
	assert.Contains(t, out, `"sqrtPriceX96": "79228162514264337593543950336"`)
	assert.Contains(t, out, `"price": "0.000000000001"`)

	out, err = run(t, "", "tick", "--sqrt-price", tickmath.MaxSqrtRatio.Dec())
	require.NoError(t, err)
	assert.Contains(t, out, `"tick": 887272`)

	_, err = run(t, "", "tick", "887273")
	require.Error(t, err)
	assert.Equal(t, exitDomain, exitCode(err))

	_, err = run(t, "", "tick")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitDomain, exitCode(pool.ErrZeroAmount))
	assert.Equal(t, exitOverflow, exitCode(pool.ErrLiquidityTooBig))
	assert.Equal(t, exitDomain, exitCode(pool.ErrTickMismatch))
	assert.Equal(t, exitOverflow, exitCode(&exitError{code: exitOverflow, msg: "x"}))
	assert.Equal(t, exitFailure, exitCode(os.ErrNotExist))
}
