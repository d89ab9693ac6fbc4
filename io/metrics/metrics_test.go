package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveSession("SUCCEEDED", 10*time.Millisecond)
	m.ObserveSession("FAILED", time.Millisecond)
	m.ObserveSession("FAILED", time.Millisecond)
	m.ObserveReply("BID")
	m.ObserveQuote("DECLINE")
	m.ObserveSale(20)
	m.ObserveSale(12)

	require.Equal(t, float64(1), testutil.ToFloat64(m.Sessions.WithLabelValues("SUCCEEDED")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.Sessions.WithLabelValues("FAILED")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Replies.WithLabelValues("BID")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Quotes.WithLabelValues("DECLINE")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.Sales))
	require.Equal(t, float64(32), testutil.ToFloat64(m.Revenue))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveSession("FAILED", time.Second)
		m.ObserveReply("BID")
		m.ObserveQuote("BID")
		m.ObserveSale(1)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveSale(5)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "booktrade_seller_sales_total 1"))
}
