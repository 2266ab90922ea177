package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/learnboard/learnboard/web/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// flakyBackend fails every Save once failSave is set.
type flakyBackend struct {
	*cache.MemoryBackend
	failSave atomic.Bool
}

func (b *flakyBackend) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if b.failSave.Load() {
		return errors.New("backend unavailable")
	}
	return b.MemoryBackend.Save(ctx, key, data, ttl)
}

func newEngine() *gin.Engine {
	return newEngineWith(cache.NewMemoryBackend())
}

func newEngineWith(backend cache.Backend) *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := cache.NewServerStore(backend, []byte("0123456789abcdef0123456789abcdef"))
	store.Options(Options(3600, false))

	engine := gin.New()
	engine.Use(sessions.Sessions(CookieName, store))
	engine.GET("/login", func(c *gin.Context) {
		_ = SetToken(c, c.Query("token"))
		_ = AddFlash(c, "success", "hello")
		c.Status(http.StatusOK)
	})
	engine.GET("/whoami", func(c *gin.Context) {
		flashes := Flashes(c)
		c.JSON(http.StatusOK, gin.H{"token": GetToken(c), "login": IsLogin(c), "flashes": len(flashes)})
	})
	engine.GET("/logout", func(c *gin.Context) {
		_ = ClearSession(c)
		c.Status(http.StatusOK)
	})
	return engine
}

func do(engine *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	engine.ServeHTTP(w, r)
	return w
}

func TestSessionLifecycle(t *testing.T) {
	engine := newEngine()

	w := do(engine, "/whoami", nil)
	assert.JSONEq(t, `{"token":"","login":false,"flashes":0}`, w.Body.String())

	w = do(engine, "/login?token=tok-1", nil)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	w = do(engine, "/whoami", cookies)
	assert.JSONEq(t, `{"token":"tok-1","login":true,"flashes":1}`, w.Body.String())

	// flashes are consumed once
	w = do(engine, "/whoami", cookies)
	assert.JSONEq(t, `{"token":"tok-1","login":true,"flashes":0}`, w.Body.String())

	do(engine, "/logout", cookies)
	w = do(engine, "/whoami", cookies)
	assert.JSONEq(t, `{"token":"","login":false,"flashes":0}`, w.Body.String())
}

func TestFlashesSurviveFailedSave(t *testing.T) {
	backend := &flakyBackend{MemoryBackend: cache.NewMemoryBackend()}
	engine := newEngineWith(backend)

	w := do(engine, "/login?token=tok-1", nil)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	backend.failSave.Store(true)
	w = do(engine, "/whoami", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"tok-1","login":true,"flashes":1}`, w.Body.String())
}
