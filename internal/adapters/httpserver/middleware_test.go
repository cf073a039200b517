package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestAccessLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	h, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "rid-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "rid-42", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), `"req_id":"rid-42"`)
}

func TestClientIPIgnoresForwardedForByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "198.51.100.7", clientIP(req, false))
	assert.Equal(t, "203.0.113.9", clientIP(req, true))
}

func TestRateLimitNotBypassedBySpoofedHeader(t *testing.T) {
	h := RateLimit(2, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	codes := make([]int, 0, 3)
	for _, xf := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", xf)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)
}

func TestPublicRateLimitPerPath(t *testing.T) {
	h := PublicRateLimit(map[string]int{"/tight": 1}, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	do := func(path string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do("/tight"))
	assert.Equal(t, http.StatusTooManyRequests, do("/tight"))
	assert.Equal(t, http.StatusOK, do("/open"))
	assert.Equal(t, http.StatusOK, do("/open"))
}
