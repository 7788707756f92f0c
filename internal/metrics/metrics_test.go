package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveTrade(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveTrade("buy", "ok")
	m.ObserveTrade("buy", "ok")
	m.ObserveTrade("sell", "insufficient_shares")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.trades.WithLabelValues("buy", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trades.WithLabelValues("sell", "insufficient_shares")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveLookup("ok", 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/portfolio", http.StatusOK)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(body, "stocksim_quote_lookup_duration_seconds_count{outcome=\"ok\"} 1"))
	assert.True(t, strings.Contains(body, "stocksim_http_requests_total{method=\"GET\",route=\"/portfolio\",status=\"200\"} 1"))
}
