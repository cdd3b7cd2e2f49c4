package metrics

import (
	"time"

	"github.com/ftchann/uniswap-quoter/lib/result"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

type Metrics struct {
	// Quote metrics
	QuoteRequests *prometheus.CounterVec
	QuoteErrors   *prometheus.CounterVec
	QuoteDuration *prometheus.HistogramVec
	TicksCrossed  prometheus.Histogram
	SwapSteps     prometheus.Histogram

	// Replay metrics
	ReplayQuotes    prometheus.Counter
	PositionUpdates *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers the quoter metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QuoteRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quoter_quote_requests_total",
				Help: "Total number of swap quotes",
			},
			[]string{"swap_mode", "status"},
		),
		QuoteErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quoter_quote_errors_total",
				Help: "Total number of failed swap quotes by error kind",
			},
			[]string{"kind"},
		),
		QuoteDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quoter_quote_duration_seconds",
				Help:    "Swap quote duration in seconds",
				Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
			},
			[]string{"swap_mode"},
		),
		TicksCrossed: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "quoter_ticks_crossed",
			Help:    "Number of initialized ticks crossed per quote",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50, 100},
		}),
		SwapSteps: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "quoter_swap_steps",
			Help:    "Number of swap loop iterations per quote",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100, 500},
		}),
		ReplayQuotes: f.NewCounter(prometheus.CounterOpts{
			Name: "quoter_replay_quotes_total",
			Help: "Total number of quotes applied during replays",
		}),
		PositionUpdates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quoter_position_updates_total",
				Help: "Total number of mint and burn requests",
			},
			[]string{"type", "status"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quoter_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quoter_http_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func swapMode(exactInput bool) string {
	if exactInput {
		return "ExactIn"
	}
	return "ExactOut"
}

// ObserveQuote records one quote and how long it took.
func (m *Metrics) ObserveQuote(q result.Quote, exactInput bool, stepCount int, d time.Duration) {
	mode := swapMode(exactInput)
	m.QuoteDuration.WithLabelValues(mode).Observe(d.Seconds())
	if q.Error != "" {
		m.QuoteRequests.WithLabelValues(mode, StatusError).Inc()
		kind := q.ErrorKind
		if kind == "" {
			kind = "other"
		}
		m.QuoteErrors.WithLabelValues(kind).Inc()
		return
	}
	m.QuoteRequests.WithLabelValues(mode, StatusOK).Inc()
	m.TicksCrossed.Observe(float64(q.TicksCrossed))
	m.SwapSteps.Observe(float64(stepCount))
}

// ObservePosition records one mint or burn request.
func (m *Metrics) ObservePosition(q result.Quote) {
	status := StatusOK
	if q.Error != "" {
		status = StatusError
	}
	m.PositionUpdates.WithLabelValues(q.Type, status).Inc()
}
