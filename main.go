package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ftchann/uniswap-quoter/lib/config"
	"github.com/ftchann/uniswap-quoter/lib/executor"
	"github.com/ftchann/uniswap-quoter/lib/metrics"
	"github.com/ftchann/uniswap-quoter/lib/prices"
	"github.com/ftchann/uniswap-quoter/lib/result"
	"github.com/ftchann/uniswap-quoter/lib/server"
	"github.com/ftchann/uniswap-quoter/lib/snapshot"
	"github.com/ftchann/uniswap-quoter/lib/tickmath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	exitFailure  = 1
	exitDomain   = 2
	exitOverflow = 3
)

// exitError carries the process exit code of a failed quote.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

func main() {
	root := newRootCmd(os.Stdin, os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return codeForKind(result.ErrorKind(err))
}

func codeForKind(kind string) int {
	switch kind {
	case "overflow":
		return exitOverflow
	case "domain", "violation":
		return exitDomain
	}
	return exitFailure
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "quoter",
		Short:        "Concentrated-liquidity swap quoter",
		SilenceUsage: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("env-file", ".env", "optional env file")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a single swap against a pool snapshot",
		RunE:  runQuote,
	}
	quoteCmd.Flags().String("snapshot", "", "pool snapshot JSON file")
	quoteCmd.Flags().String("provider", "", "tick provider override (list, bitmap)")
	quoteCmd.Flags().Bool("zero-for-one", false, "swap token0 for token1")
	quoteCmd.Flags().String("token-in", "", "input token address, instead of --zero-for-one")
	quoteCmd.Flags().String("amount", "", "input amount, or output amount with --exact-output")
	quoteCmd.Flags().Bool("exact-output", false, "treat --amount as the exact output")
	quoteCmd.Flags().String("limit", "", "sqrt price limit (Q64.96)")
	quoteCmd.Flags().Bool("steps", false, "include the per-step records")
	root.AddCommand(quoteCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Quote a JSON Lines file of requests in order",
		RunE:  runReplay,
	}
	replayCmd.Flags().String("snapshot", "", "pool snapshot JSON file")
	replayCmd.Flags().String("provider", "", "tick provider override (list, bitmap)")
	replayCmd.Flags().String("requests", "-", "requests JSONL file, - for stdin")
	replayCmd.Flags().String("out", "-", "output file, - for stdout")
	replayCmd.Flags().Bool("apply", false, "apply each quote to the pool before the next one")
	replayCmd.Flags().Bool("steps", false, "include the per-step records")
	replayCmd.Flags().Bool("lines", false, "write one quote per line instead of a summary")
	root.AddCommand(replayCmd)

	tickCmd := &cobra.Command{
		Use:   "tick [tick]",
		Short: "Convert between ticks, sqrt prices and prices",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTick,
	}
	tickCmd.Flags().String("sqrt-price", "", "sqrt price (Q64.96) to convert to a tick")
	tickCmd.Flags().Int32("decimals0", 0, "token0 decimals")
	tickCmd.Flags().Int32("decimals1", 0, "token1 decimals")
	root.AddCommand(tickCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve quotes over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().String("snapshot", "", "default pool snapshot JSON file")
	serveCmd.Flags().String("provider", "", "tick provider override (list, bitmap)")
	serveCmd.Flags().String("listen", ":8080", "listen address")
	serveCmd.Flags().StringSlice("cors-origins", []string{"*"}, "allowed CORS origins")
	serveCmd.Flags().Bool("metrics", true, "serve prometheus metrics on /metrics")
	root.AddCommand(serveCmd)

	return root
}

func setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return cfg, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func loadSnapshot(cfg config.Config) (*snapshot.Snapshot, error) {
	if cfg.Snapshot == "" {
		return nil, fmt.Errorf("snapshot file is required")
	}
	snap, err := snapshot.Load(cfg.Snapshot)
	if err != nil {
		return nil, err
	}
	if cfg.Provider != "" {
		snap.Provider = cfg.Provider
	}
	return snap, nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	snap, err := loadSnapshot(cfg)
	if err != nil {
		return err
	}
	pool, err := snap.Pool()
	if err != nil {
		return err
	}

	req := snapshot.QuoteRequest{IncludeSteps: cfg.Steps}
	req.TokenIn, _ = cmd.Flags().GetString("token-in")
	req.Amount, _ = cmd.Flags().GetString("amount")
	req.ExactOutput, _ = cmd.Flags().GetBool("exact-output")
	req.SqrtPriceLimitX96, _ = cmd.Flags().GetString("limit")
	if cmd.Flags().Changed("zero-for-one") || req.TokenIn == "" {
		zeroForOne, _ := cmd.Flags().GetBool("zero-for-one")
		req.ZeroForOne = &zeroForOne
	}

	tokens := result.Tokens{Decimals0: snap.Decimals0, Decimals1: snap.Decimals1}
	q := executor.CreateExecution(pool, tokens, logger).Quote(req)
	if err := result.Write(cmd.OutOrStdout(), q); err != nil {
		return err
	}
	if q.Error != "" {
		return &exitError{code: codeForKind(q.ErrorKind), msg: q.Error}
	}
	return nil
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	snap, err := loadSnapshot(cfg)
	if err != nil {
		return err
	}
	pool, err := snap.Pool()
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if cfg.Requests != "-" {
		f, err := os.Open(cfg.Requests)
		if err != nil {
			return fmt.Errorf("open requests: %w", err)
		}
		defer f.Close()
		in = f
	}
	requests, err := snapshot.DecodeRequests(in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.Out != "-" {
		f, err := os.Create(cfg.Out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("replay start",
		zap.String("snapshot", cfg.Snapshot),
		zap.Int("requests", len(requests)),
		zap.Bool("apply", cfg.Apply),
		zap.String("provider", snap.Provider),
	)
	tokens := result.Tokens{Decimals0: snap.Decimals0, Decimals1: snap.Decimals1}
	exec := executor.CreateExecution(pool, tokens, logger, executor.WithApply(cfg.Apply), executor.WithSteps(cfg.Steps))
	summary, runErr := exec.Run(ctx, requests)

	// a cancelled replay still writes what it quoted
	if lines, _ := cmd.Flags().GetBool("lines"); lines {
		err = result.WriteLines(out, summary.Results)
	} else {
		err = result.Write(out, summary)
	}
	if runErr != nil {
		return fmt.Errorf("replay stopped after %d of %d requests: %w", summary.Quotes, len(requests), runErr)
	}
	return err
}

func runTick(cmd *cobra.Command, args []string) error {
	d0, _ := cmd.Flags().GetInt32("decimals0")
	d1, _ := cmd.Flags().GetInt32("decimals1")
	sqrtPrice, _ := cmd.Flags().GetString("sqrt-price")

	var info server.TickInfo
	switch {
	case sqrtPrice != "":
		sqrtPriceX96, err := snapshot.ParseUnsigned(sqrtPrice)
		if err != nil {
			return err
		}
		tick, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
		if err != nil {
			return err
		}
		info = server.TickInfo{
			Tick:         tick,
			SqrtPriceX96: sqrtPriceX96.Dec(),
			Price:        prices.SqrtPriceToPrice(sqrtPriceX96, d0, d1).String(),
		}
	case len(args) == 1:
		tick, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid tick %q", args[0])
		}
		sqrtPriceX96, err := tickmath.GetSqrtRatioAtTick(tick)
		if err != nil {
			return err
		}
		info = server.TickInfo{
			Tick:         tick,
			SqrtPriceX96: sqrtPriceX96.Dec(),
			Price:        prices.SqrtPriceToPrice(sqrtPriceX96, d0, d1).String(),
		}
	default:
		return fmt.Errorf("a tick argument or --sqrt-price is required")
	}
	return result.Write(cmd.OutOrStdout(), info)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var opts []server.Option
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, server.WithMetrics(metrics.New(reg), reg))
	}
	srv := server.New(server.Options{
		Listen:          cfg.Listen,
		CORSOrigins:     cfg.CORSOrigins,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger, opts...)

	if cfg.Snapshot != "" {
		snap, err := loadSnapshot(cfg)
		if err != nil {
			return err
		}
		if err := srv.LoadSnapshot(snap); err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		logger.Info("default snapshot loaded", zap.String("snapshot", cfg.Snapshot))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
