// Package session reads and writes the proxy's per-client session record.
package session

import (
	"encoding/gob"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/learnboard/learnboard/logger"
)

const (
	// CookieName names the session cookie.
	CookieName = "learnboard"

	tokenKey = "TOKEN"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(Flash{})
}

// Options builds the cookie options for a session lasting maxAge seconds.
func Options(maxAge int, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetToken stores the upstream bearer token and saves the session.
func SetToken(c *gin.Context, token string) error {
	s := sessions.Default(c)
	s.Set(tokenKey, token)
	return s.Save()
}

func GetToken(c *gin.Context) string {
	s := sessions.Default(c)
	if obj := s.Get(tokenKey); obj != nil {
		if token, ok := obj.(string); ok {
			return token
		}
	}
	return ""
}

func IsLogin(c *gin.Context) bool {
	return GetToken(c) != ""
}

// SetMaxAge changes the lifetime of the current session from its next save.
func SetMaxAge(c *gin.Context, maxAge int, secure bool) {
	s := sessions.Default(c)
	s.Options(Options(maxAge, secure))
}

// ClearSession drops every value and deletes the server-side record.
func ClearSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	return s.Save()
}

// AddFlash queues a notice for the next page.
func AddFlash(c *gin.Context, kind, message string) error {
	s := sessions.Default(c)
	s.AddFlash(Flash{Kind: kind, Message: message})
	return s.Save()
}

// Flashes returns and removes the queued notices.
func Flashes(c *gin.Context) []Flash {
	s := sessions.Default(c)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			out = append(out, f)
		}
	}
	if err := s.Save(); err != nil {
		logger.Warning("unable to save session after reading flashes:", err)
	}
	return out
}
