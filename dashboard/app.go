package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/learnboard/learnboard/logger"
	"github.com/learnboard/learnboard/upstream"
	"go.uber.org/atomic"
)

// Notice messages shown by App.
const (
	MsgLoginSuccess   = "Login Successful"
	MsgLoginFailed    = "Login Failed"
	MsgUnexpected     = "An unexpected error occurred"
	MsgFetchFailed    = "Failed to fetch data"
	MsgLoggedOut      = "Logged Out Successfully"
	MsgSessionExpired = "Session expired, please log in again"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient, user-visible message.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

type Notifier interface {
	Notify(n Notice)
}

// Renderer draws a View. Clear removes whatever was drawn.
type Renderer interface {
	Render(v View)
	Clear()
}

// App is one dashboard client session: the login prompt state, the
// transport holding the credential, and the rendering boundary. Build one
// per user with NewApp and pass it to whatever handles user actions.
type App struct {
	transport Transport
	notifier  Notifier
	renderer  Renderer
	location  *time.Location

	loggingIn atomic.Bool
	fetchMu   sync.Mutex

	mu         sync.Mutex
	promptOpen bool
}

type Option func(*App)

// WithLocation sets the zone audit dates are shown in.
func WithLocation(loc *time.Location) Option {
	return func(a *App) {
		a.location = loc
	}
}

// NewApp returns an App with the login prompt open and nothing rendered.
func NewApp(transport Transport, notifier Notifier, renderer Renderer, opts ...Option) *App {
	a := &App{
		transport:  transport,
		notifier:   notifier,
		renderer:   renderer,
		location:   time.Local,
		promptOpen: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PromptOpen reports whether the login prompt is showing.
func (a *App) PromptOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.promptOpen
}

func (a *App) setPrompt(open bool) {
	a.mu.Lock()
	a.promptOpen = open
	a.mu.Unlock()
}

// SubmitLogin authenticates with creds, loads the dashboard and closes the
// prompt. Only one login runs at a time; a concurrent call returns
// ErrLoginInFlight without touching the transport. A refresh already running
// is waited for, then the profile is fetched again with the new credential.
// Every failure produces exactly one notice and leaves the prompt open.
func (a *App) SubmitLogin(ctx context.Context, creds Credentials) error {
	if !a.loggingIn.CompareAndSwap(false, true) {
		return ErrLoginInFlight
	}
	defer a.loggingIn.Store(false)

	if err := a.transport.Login(ctx, creds); err != nil {
		var authErr *upstream.AuthError
		if errors.As(err, &authErr) {
			msg := authErr.Message
			if msg == "" {
				msg = MsgLoginFailed
			}
			a.notify(NoticeError, msg)
		} else {
			logger.Warning("login failed:", err)
			a.notify(NoticeError, MsgUnexpected)
		}
		return err
	}

	// Fetch failures are reported by Refresh; the login itself stands unless
	// the fresh token was refused.
	a.fetchMu.Lock()
	err := a.refresh(ctx)
	a.fetchMu.Unlock()
	if errors.Is(err, upstream.ErrTokenExpired) {
		return err
	}

	a.setPrompt(false)
	a.notify(NoticeSuccess, MsgLoginSuccess)
	return nil
}

// Refresh fetches the profile and renders it. On failure the current view is
// kept, except for a refused token, which clears it and reopens the prompt.
// A call made while another fetch runs returns ErrFetchInFlight.
func (a *App) Refresh(ctx context.Context) error {
	if !a.fetchMu.TryLock() {
		return ErrFetchInFlight
	}
	defer a.fetchMu.Unlock()
	return a.refresh(ctx)
}

func (a *App) refresh(ctx context.Context) error {
	profile, err := a.FetchProfile(ctx)
	if err != nil {
		a.reportFetchError(err)
		return err
	}
	a.renderer.Render(BuildView(profile, a.location))
	return nil
}

// FetchProfile runs ProfileQuery through the transport.
func (a *App) FetchProfile(ctx context.Context) (*UserProfile, error) {
	return FetchProfile(ctx, a.transport)
}

// FetchProfile runs ProfileQuery through q. Errors are upstream.ErrTransport,
// upstream.GraphQLErrors, upstream.ErrTokenExpired or upstream.ErrUnauthorized.
func FetchProfile(ctx context.Context, q Querier) (*UserProfile, error) {
	body, err := upstream.NewQueryBody(ProfileQuery)
	if err != nil {
		return nil, err
	}
	status, respBody, err := q.Query(ctx, body)
	if err != nil {
		return nil, err
	}

	var data ProfileData
	if err := upstream.DecodeResponse(status, respBody, &data); err != nil {
		return nil, err
	}
	if len(data.User) == 0 {
		return nil, fmt.Errorf("%w: response holds no user", upstream.ErrTransport)
	}
	return &data.User[0], nil
}

func (a *App) reportFetchError(err error) {
	var gqlErrs upstream.GraphQLErrors
	switch {
	case errors.Is(err, upstream.ErrTokenExpired), errors.Is(err, upstream.ErrUnauthorized):
		_ = a.transport.Logout(context.Background())
		a.renderer.Clear()
		a.setPrompt(true)
		a.notify(NoticeError, MsgSessionExpired)
	case errors.As(err, &gqlErrs):
		for _, msg := range gqlErrs.Messages() {
			a.notify(NoticeError, msg)
		}
	default:
		logger.Warning("fetch profile failed:", err)
		a.notify(NoticeError, MsgFetchFailed)
	}
}

// LogOut drops the credential, clears the view and reopens the prompt. A
// failing transport logout is logged and does not stop the local reset.
func (a *App) LogOut(ctx context.Context) {
	if err := a.transport.Logout(ctx); err != nil {
		logger.Warning("logout failed:", err)
	}
	a.renderer.Clear()
	a.setPrompt(true)
	a.notify(NoticeSuccess, MsgLoggedOut)
}

func (a *App) notify(kind NoticeKind, msg string) {
	a.notifier.Notify(Notice{Kind: kind, Message: msg})
}
