// Package server exposes the quoter over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/ftchann/uniswap-quoter/lib/metrics"
	ppool "github.com/ftchann/uniswap-quoter/lib/pool"
	"github.com/ftchann/uniswap-quoter/lib/result"
	"github.com/ftchann/uniswap-quoter/lib/snapshot"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Options struct {
	Listen          string
	CORSOrigins     []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	opts     Options
	logger   *zap.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	pool     *ppool.Pool
	tokens   result.Tokens
	engine   *gin.Engine
}

type Option func(*Server)

// WithMetrics records request metrics in m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

func New(opts Options, logger *zap.Logger, options ...Option) *Server {
	s := &Server{opts: opts, logger: logger}
	for _, o := range options {
		o(s)
	}
	return s
}

// LoadSnapshot builds the pool quoted when a request carries none.
func (s *Server) LoadSnapshot(snap *snapshot.Snapshot) error {
	p, err := snap.Pool()
	if err != nil {
		return err
	}
	s.tokens = result.Tokens{Decimals0: snap.Decimals0, Decimals1: snap.Decimals1}
	s.pool = p
	return nil
}

// Handler builds the gin engine on first use.
func (s *Server) Handler() http.Handler {
	if s.engine != nil {
		return s.engine
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(s.logger))
	r.Use(cors.New(s.corsConfig()))
	if s.metrics != nil {
		r.Use(MetricsMiddleware(s.metrics))
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	s.setRoutes(r)
	s.engine = r
	return r
}

func (s *Server) corsConfig() cors.Config {
	conf := cors.DefaultConfig()
	if len(s.opts.CORSOrigins) == 0 || slices.Contains(s.opts.CORSOrigins, "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = s.opts.CORSOrigins
	}
	return conf
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("listen", s.opts.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to stop http server", zap.Error(err))
		return err
	}
	s.logger.Info("http server stopped gracefully")
	return nil
}
