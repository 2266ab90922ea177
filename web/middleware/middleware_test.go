package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(mw...)
	engine.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	return engine
}

func serve(engine *gin.Engine, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, r)
	return w
}

func TestRequestIDMiddleware(t *testing.T) {
	engine := newEngine(RequestIDMiddleware())

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, w.Body.String())
	assert.Equal(t, w.Body.String(), w.Header().Get("X-Request-Id"))

	r := httptest.NewRequest(http.MethodGet, "/ok", nil)
	r.Header.Set("X-Request-Id", "abc")
	w = serve(engine, r)
	assert.Equal(t, "abc", w.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	engine := newEngine(RequestIDMiddleware(), AccessLogMiddleware(), RecoveryMiddleware())

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Something broke!"}`, w.Body.String())
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	w := serve(newEngine(SecurityHeadersMiddleware(true)), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))

	w = serve(newEngine(SecurityHeadersMiddleware(false)), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestDomainValidatorMiddleware(t *testing.T) {
	engine := newEngine(DomainValidatorMiddleware("learn.example.com"))

	tests := []struct {
		host string
		want int
	}{
		{"learn.example.com", http.StatusOK},
		{"learn.example.com:3000", http.StatusOK},
		{"evil.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ok", nil)
		r.Host = tt.host
		assert.Equal(t, tt.want, serve(engine, r).Code, tt.host)
	}
}
