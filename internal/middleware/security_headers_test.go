package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeadersMiddleware(t *testing.T) {
	serve := func(isProduction bool) *httptest.ResponseRecorder {
		m := NewSecurityHeadersMiddleware(isProduction)
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("sets baseline headers", func(t *testing.T) {
		rec := serve(false)

		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	})

	t.Run("policy admits websockets and hls blobs", func(t *testing.T) {
		rec := serve(false)

		csp := rec.Header().Get("Content-Security-Policy")
		assert.Contains(t, csp, "connect-src 'self' ws: wss:")
		assert.Contains(t, csp, "media-src 'self' blob:")
		assert.Contains(t, csp, "frame-ancestors 'none'")
	})

	t.Run("hsts only in production", func(t *testing.T) {
		assert.Empty(t, serve(false).Header().Get("Strict-Transport-Security"))
		assert.Contains(t, serve(true).Header().Get("Strict-Transport-Security"), "max-age=")
	})
}
