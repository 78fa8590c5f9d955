package mw

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"patient-caller-backend/internal/events"
)

// CacheHeader reports whether a GET response came from the cache.
const CacheHeader = "X-Cache"

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache holds GET responses until the queue changes. Every
// invalidation starts a new generation; a response rendered during an older
// generation is never stored.
type ResponseCache struct {
	mu    sync.Mutex
	items *cache.Cache
	gen   uint64
	ttl   time.Duration
}

// NewResponseCache creates a cache keeping responses for ttl.
func NewResponseCache(ttl, cleanupInterval time.Duration) *ResponseCache {
	return &ResponseCache{
		items: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
}

// Len reports the number of cached responses.
func (rc *ResponseCache) Len() int {
	return rc.items.ItemCount()
}

func (rc *ResponseCache) generation() uint64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.gen
}

// store saves resp unless the cache was invalidated after gen was read.
func (rc *ResponseCache) store(key string, gen uint64, resp cachedResponse) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if gen != rc.gen {
		return false
	}
	rc.items.Set(key, resp, rc.ttl)
	return true
}

// Invalidate drops every cached response.
func (rc *ResponseCache) Invalidate() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.gen++
	rc.items.Flush()
}

// Publish implements events.Publisher; any queue change invalidates.
func (rc *ResponseCache) Publish(context.Context, events.Event) {
	rc.Invalidate()
}

// Middleware serves repeated GET requests from the cache. Entries are keyed
// by the full request URI so each history range is cached separately.
func (rc *ResponseCache) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if resp, found := rc.items.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set(CacheHeader, "HIT")
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		gen := rc.generation()
		c.Writer.Header().Set(CacheHeader, "MISS")
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if blw.Status() >= 200 && blw.Status() < 300 {
			headers := blw.Header().Clone()
			headers.Del(CacheHeader)
			headers.Del(RequestIDHeader)
			rc.store(key, gen, cachedResponse{
				status:  blw.Status(),
				headers: headers,
				body:    blw.body.Bytes(),
			})
		}
	}
}
