package mw

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"patient-caller-backend/internal/events"
	"patient-caller-backend/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestCache_ServesRepeatedGets(t *testing.T) {
	rc := NewResponseCache(time.Minute, time.Minute)
	hits := 0

	r := gin.New()
	r.Use(rc.Middleware())
	r.GET("/llamado", func(c *gin.Context) {
		hits++
		c.JSON(http.StatusOK, gin.H{"n": hits})
	})

	first := get(r, "/llamado")
	second := get(r, "/llamado")

	assert.Equal(t, 1, hits)
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
}

func TestCache_KeysIncludeQuery(t *testing.T) {
	rc := NewResponseCache(time.Minute, time.Minute)
	hits := 0

	r := gin.New()
	r.Use(rc.Middleware())
	r.GET("/atendidos", func(c *gin.Context) {
		hits++
		c.String(http.StatusOK, c.Query("inicio"))
	})

	get(r, "/atendidos?inicio=2025-01-01")
	get(r, "/atendidos?inicio=2025-01-02")
	assert.Equal(t, 2, hits)
}

func TestCache_SkipsErrorsAndMutations(t *testing.T) {
	rc := NewResponseCache(time.Minute, time.Minute)
	r := gin.New()
	r.Use(rc.Middleware())
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.POST("/pacientes", func(c *gin.Context) { c.Status(http.StatusOK) })

	get(r, "/fail")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/pacientes", bytes.NewBufferString("{}")))

	assert.Equal(t, 0, rc.Len())
}

func TestResponseCache_PublishInvalidates(t *testing.T) {
	rc := NewResponseCache(time.Minute, time.Minute)
	r := gin.New()
	r.Use(rc.Middleware())
	r.GET("/pacientes", func(c *gin.Context) { c.String(http.StatusOK, "[]") })

	get(r, "/pacientes")
	require.Equal(t, 1, rc.Len())

	rc.Publish(context.Background(), events.Event{Type: events.TypeAdded})
	assert.Equal(t, 0, rc.Len())
	assert.Equal(t, "MISS", get(r, "/pacientes").Header().Get(CacheHeader))
}

func TestResponseCache_DiscardsResponseRenderedBeforeInvalidation(t *testing.T) {
	rc := NewResponseCache(time.Minute, time.Minute)

	var mu sync.Mutex
	current := "before"
	read := make(chan struct{})
	release := make(chan struct{})
	blocking := true

	r := gin.New()
	r.Use(rc.Middleware())
	r.GET("/pacientes", func(c *gin.Context) {
		mu.Lock()
		body, wait := current, blocking
		blocking = false
		mu.Unlock()
		if wait {
			close(read)
			<-release
		}
		c.String(http.StatusOK, body)
	})

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- get(r, "/pacientes") }()

	<-read
	mu.Lock()
	current = "after"
	mu.Unlock()
	rc.Publish(context.Background(), events.Event{Type: events.TypeAdded})
	close(release)

	stale := <-done
	assert.Equal(t, "before", stale.Body.String())
	assert.Equal(t, 0, rc.Len())

	w := get(r, "/pacientes")
	assert.Equal(t, "MISS", w.Header().Get(CacheHeader))
	assert.Equal(t, "after", w.Body.String())
}

func TestRateLimiter_RejectsBurstOverflow(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/").Code)
	assert.Equal(t, http.StatusOK, get(r, "/").Code)

	w := get(r, "/")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
}

func TestIPRateLimiter_EvictsIdleClients(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.GetLimiter("10.0.0.1")
	l.GetLimiter("10.0.0.2")
	require.Equal(t, 2, l.Len())

	now = now.Add(visitorIdleTTL + time.Minute)
	l.GetLimiter("10.0.0.2")
	assert.Equal(t, 1, l.Len())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := get(r, "/")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestLogger_WritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestID(), Logger(zerolog.New(&buf)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	get(r, "/missing")

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"path":"/missing"`)
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"request_id":"`)
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	m := metrics.New("test")
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/pacientes", func(c *gin.Context) { c.Status(http.StatusOK) })

	get(r, "/pacientes")
	get(r, "/nope")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/pacientes", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}
