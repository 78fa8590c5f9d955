package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := New("caller")

	m.ObserveOperation("call", ResultOK)
	m.ObserveOperation("call", ResultNotFound)
	m.ObserveOperation("call", ResultNotFound)
	m.ObserveEvent("called")
	m.ObserveHTTP(http.MethodPost, "/llamar", http.StatusNotFound, 3*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueOperations.WithLabelValues("call", ResultOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueueOperations.WithLabelValues("call", ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("called")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodPost, "/llamar", "404")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "caller_queue_operations_total")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("add", ResultOK)
		m.ObserveEvent("added")
		m.ObserveHTTP(http.MethodGet, "/pacientes", http.StatusOK, time.Millisecond)
	})
	assert.Nil(t, m.Registry())
}
