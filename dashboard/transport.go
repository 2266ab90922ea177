package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/learnboard/learnboard/upstream"
)

var (
	// ErrLoginInFlight is returned when a login is submitted while another one
	// is still outstanding. Nothing is sent.
	ErrLoginInFlight = errors.New("login already in progress")

	// ErrFetchInFlight is returned when a refresh starts while another one is
	// still outstanding.
	ErrFetchInFlight = errors.New("profile fetch already in progress")
)

type Credentials struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// Querier posts a GraphQL body and returns the raw status and body.
type Querier interface {
	Query(ctx context.Context, body []byte) (int, []byte, error)
}

// Transport carries the dashboard's calls. It owns whatever credential the
// login produced (a bearer token or a proxy session cookie), so no token
// lives outside it.
type Transport interface {
	// Query fails with upstream.ErrUnauthorized before a Login.
	Querier
	// Login authenticates; rejections are *upstream.AuthError.
	Login(ctx context.Context, creds Credentials) error
	// Logout drops the credential. Logging out twice is not an error.
	Logout(ctx context.Context) error
}

// DirectTransport talks to the platform itself and keeps the bearer token in
// memory.
type DirectTransport struct {
	client *upstream.Client

	mu    sync.RWMutex
	token string
}

func NewDirectTransport(client *upstream.Client) *DirectTransport {
	return &DirectTransport{client: client}
}

func (t *DirectTransport) Login(ctx context.Context, creds Credentials) error {
	token, err := t.client.SignIn(ctx, creds.User, creds.Pass)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
	return nil
}

func (t *DirectTransport) Query(ctx context.Context, body []byte) (int, []byte, error) {
	return t.client.Query(ctx, t.Token(), body)
}

func (t *DirectTransport) Logout(context.Context) error {
	t.mu.Lock()
	t.token = ""
	t.mu.Unlock()
	return nil
}

// Token returns the held token, empty when logged out.
func (t *DirectTransport) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}
