package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

// ResponseCache keeps successful GET responses for a short time. Any content
// mutation purges it.
type ResponseCache struct {
	lru *expirable.LRU[string, cachedResponse]
}

func NewResponseCache(size int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{lru: expirable.NewLRU[string, cachedResponse](size, nil, ttl)}
}

func (c *ResponseCache) Purge() {
	if c != nil {
		c.lru.Purge()
	}
}

func (c *ResponseCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.status == 0 {
		cw.status = http.StatusOK
	}
	cw.buf.Write(b)
	return cw.ResponseWriter.Write(b)
}

// Handler serves cached GET responses and stores 200 responses on a miss.
func (c *ResponseCache) Handler(next http.Handler) http.Handler {
	if c == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		key := r.URL.RequestURI()
		if hit, ok := c.lru.Get(key); ok {
			if hit.contentType != "" {
				w.Header().Set("Content-Type", hit.contentType)
			}
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(hit.status)
			_, _ = w.Write(hit.body)
			return
		}

		w.Header().Set("X-Cache", "MISS")
		cw := &captureWriter{ResponseWriter: w}
		next.ServeHTTP(cw, r)

		if cw.status == http.StatusOK {
			c.lru.Add(key, cachedResponse{
				status:      cw.status,
				contentType: w.Header().Get("Content-Type"),
				body:        bytes.Clone(cw.buf.Bytes()),
			})
		}
	})
}
