// Package cache provides the server-side session store used by gin sessions.
// Only a random session id travels in the signed cookie; values live in a
// Backend (in-process memory or Redis).
package cache

import (
	"bytes"
	"context"
	"encoding/base32"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gorilla/securecookie"
	gorillasessions "github.com/gorilla/sessions"
)

const (
	defaultMaxAge = 86400 // 24 hours
	keyPrefix     = "session:"
)

// ErrNotFound is returned by a Backend for an unknown or expired id.
var ErrNotFound = errors.New("session not found")

// Backend stores encoded session values by id.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Cleanup drops expired entries and returns how many remain.
	Cleanup() int
	Close() error
}

// ServerStore implements sessions.Store on top of a Backend.
type ServerStore struct {
	backend Backend
	Codecs  []securecookie.Codec
	options *sessions.Options
}

// NewServerStore creates a store; keyPairs sign (and optionally encrypt) the
// session id cookie, as in securecookie.CodecsFromPairs.
func NewServerStore(backend Backend, keyPairs ...[]byte) *ServerStore {
	s := &ServerStore{
		backend: backend,
		Codecs:  securecookie.CodecsFromPairs(keyPairs...),
	}
	s.Options(sessions.Options{
		Path:     "/",
		MaxAge:   defaultMaxAge,
		HttpOnly: true,
	})
	return s
}

// Options sets the options for new sessions. A positive MaxAge also bounds
// how old a signed session id cookie may be.
func (s *ServerStore) Options(opts sessions.Options) {
	s.options = &opts
	if opts.MaxAge <= 0 {
		return
	}
	for _, codec := range s.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}
}

// Get returns the session cached for the request, loading it once.
func (s *ServerStore) Get(r *http.Request, name string) (*gorillasessions.Session, error) {
	return gorillasessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. A missing, forged or
// expired cookie yields a fresh session, never an error.
func (s *ServerStore) New(r *http.Request, name string) (*gorillasessions.Session, error) {
	session := gorillasessions.NewSession(s, name)
	session.Options = &gorillasessions.Options{
		Path:     s.options.Path,
		Domain:   s.options.Domain,
		MaxAge:   s.options.MaxAge,
		Secure:   s.options.Secure,
		HttpOnly: s.options.HttpOnly,
		SameSite: s.options.SameSite,
	}
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.Codecs...); err != nil {
		session.ID = ""
		return session, nil
	}
	if err := s.load(r.Context(), session); err != nil {
		// stale id: start over with a new one
		session.ID = ""
		return session, nil
	}
	session.IsNew = false
	return session, nil
}

// Save persists the session, or deletes it when MaxAge < 0.
func (s *ServerStore) Save(r *http.Request, w http.ResponseWriter, session *gorillasessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.backend.Delete(r.Context(), keyPrefix+session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, s.newCookie(session, ""))
		return nil
	}

	if session.ID == "" {
		session.ID = strings.TrimRight(
			base32.StdEncoding.EncodeToString(
				securecookie.GenerateRandomKey(32),
			), "=")
	}

	if err := s.save(r.Context(), session); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}

	http.SetCookie(w, s.newCookie(session, encoded))
	return nil
}

func (s *ServerStore) newCookie(session *gorillasessions.Session, value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     session.Name(),
		Value:    value,
		Path:     session.Options.Path,
		Domain:   session.Options.Domain,
		MaxAge:   session.Options.MaxAge,
		Secure:   session.Options.Secure,
		HttpOnly: session.Options.HttpOnly,
		SameSite: session.Options.SameSite,
	}
	if session.Options.MaxAge > 0 {
		cookie.Expires = time.Now().Add(time.Duration(session.Options.MaxAge) * time.Second)
	}
	return cookie
}

func (s *ServerStore) save(ctx context.Context, session *gorillasessions.Session) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(session.Values); err != nil {
		return fmt.Errorf("failed to encode session values: %w", err)
	}

	maxAge := session.Options.MaxAge
	if maxAge == 0 {
		maxAge = s.options.MaxAge
	}
	return s.backend.Save(ctx, keyPrefix+session.ID, buf.Bytes(), time.Duration(maxAge)*time.Second)
}

func (s *ServerStore) load(ctx context.Context, session *gorillasessions.Session) error {
	data, err := s.backend.Load(ctx, keyPrefix+session.ID)
	if err != nil {
		return err
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&session.Values); err != nil {
		return fmt.Errorf("failed to decode session data: %w", err)
	}
	return nil
}
