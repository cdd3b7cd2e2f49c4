package metrics

import (
	"testing"
	"time"

	"github.com/ftchann/uniswap-quoter/lib/result"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveQuote(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveQuote(result.Quote{TicksCrossed: 2}, true, 3, time.Microsecond)
	m.ObserveQuote(result.Quote{TicksCrossed: 0}, false, 1, time.Microsecond)
	m.ObserveQuote(result.Quote{Error: "boom", ErrorKind: "overflow"}, true, 0, time.Microsecond)
	m.ObserveQuote(result.Quote{Error: "io"}, true, 0, time.Microsecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteRequests.WithLabelValues("ExactIn", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteRequests.WithLabelValues("ExactOut", StatusOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuoteRequests.WithLabelValues("ExactIn", StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteErrors.WithLabelValues("overflow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteErrors.WithLabelValues("other")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.QuoteDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TicksCrossed))
}

func TestObservePosition(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObservePosition(result.Quote{Type: "mint"})
	m.ObservePosition(result.Quote{Type: "mint"})
	m.ObservePosition(result.Quote{Type: "burn", Error: "tickdata: tick is not initialized"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PositionUpdates.WithLabelValues("mint", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PositionUpdates.WithLabelValues("burn", StatusError)))
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
