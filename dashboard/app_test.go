package dashboard

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/learnboard/learnboard/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type recorder struct {
	mu       sync.Mutex
	notices  []Notice
	rendered []View
	clears   int
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Render(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, v)
}

func (r *recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Message)
	}
	return out
}

type fakeTransport struct {
	LoginErr  error
	LoginGate chan struct{}

	QueryStatus int
	QueryBody   string
	QueryErr    error
	QueryGate   chan struct{}

	LogoutErr error

	mu          sync.Mutex
	loginCalls  int
	logoutCalls int
	queryCalls  int
	lastQuery   []byte
}

func (f *fakeTransport) Login(ctx context.Context, creds Credentials) error {
	f.mu.Lock()
	f.loginCalls++
	f.mu.Unlock()
	if f.LoginGate != nil {
		<-f.LoginGate
	}
	return f.LoginErr
}

func (f *fakeTransport) Query(ctx context.Context, body []byte) (int, []byte, error) {
	f.mu.Lock()
	f.lastQuery = body
	f.queryCalls++
	f.mu.Unlock()
	if f.QueryGate != nil {
		<-f.QueryGate
	}
	if f.QueryErr != nil {
		return 0, nil, f.QueryErr
	}
	status := f.QueryStatus
	if status == 0 {
		status = http.StatusOK
	}
	return status, []byte(f.QueryBody), nil
}

func (f *fakeTransport) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.logoutCalls++
	f.mu.Unlock()
	return f.LogoutErr
}

const profileBody = `{"data":{"user":[{"id":1,"login":"alice","email":"a@example.com","firstName":"Alice","lastName":"L","auditRatio":1.1,
"progresses":[],"progressesByPath":[],"transactions":[{"type":"skill_go","amount":10}],
"xps":[{"amount":1000,"path":"piscine-go/ex1","event":{"createdAt":"2024-01-01T00:00:00+00:00"}},{"amount":2000,"path":"proj/a"}],
"audits":[]}]}}`

func newTestApp(tr Transport) (*App, *recorder) {
	rec := &recorder{}
	return NewApp(tr, rec, rec, WithLocation(time.UTC)), rec
}

// ---- tests ----

func TestSubmitLoginSuccess(t *testing.T) {
	tr := &fakeTransport{QueryBody: profileBody}
	app, rec := newTestApp(tr)
	require.True(t, app.PromptOpen())

	err := app.SubmitLogin(context.Background(), Credentials{User: "alice", Pass: "secret"})
	require.NoError(t, err)

	assert.False(t, app.PromptOpen())
	assert.Equal(t, []string{MsgLoginSuccess}, rec.messages())
	require.Len(t, rec.rendered, 1)
	assert.Equal(t, "3.00 KB", rec.rendered[0].Cards[1].Items[0].Value)
	assert.Contains(t, string(tr.lastQuery), "progressesByPath")
}

func TestSubmitLoginRejectedScenario(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "wrong", pass)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"invalid credentials"}`)
	}))
	defer stub.Close()

	tr := NewDirectTransport(upstream.NewClient(stub.URL+"/signin", stub.URL+"/graphql", time.Second))
	app, rec := newTestApp(tr)

	err := app.SubmitLogin(context.Background(), Credentials{User: "alice", Pass: "wrong"})

	var authErr *upstream.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, []string{"invalid credentials"}, rec.messages())
	assert.Equal(t, NoticeError, rec.notices[0].Kind)
	assert.True(t, app.PromptOpen())
	assert.Empty(t, rec.rendered)
	assert.Empty(t, tr.Token())
}

func TestSubmitLoginEmptyRejectionUsesGenericMessage(t *testing.T) {
	app, rec := newTestApp(&fakeTransport{LoginErr: &upstream.AuthError{}})

	_ = app.SubmitLogin(context.Background(), Credentials{User: "a", Pass: "b"})
	assert.Equal(t, []string{MsgLoginFailed}, rec.messages())
}

func TestSubmitLoginTransportFailure(t *testing.T) {
	app, rec := newTestApp(&fakeTransport{LoginErr: upstream.ErrTransport})

	err := app.SubmitLogin(context.Background(), Credentials{User: "a", Pass: "b"})
	assert.ErrorIs(t, err, upstream.ErrTransport)
	assert.Equal(t, []string{MsgUnexpected}, rec.messages())
	assert.True(t, app.PromptOpen())
}

func TestSubmitLoginSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	tr := &fakeTransport{LoginGate: gate, QueryBody: profileBody}
	app, _ := newTestApp(tr)

	done := make(chan error, 1)
	go func() {
		done <- app.SubmitLogin(context.Background(), Credentials{User: "a", Pass: "b"})
	}()

	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return tr.loginCalls == 1
	}, time.Second, 5*time.Millisecond)

	err := app.SubmitLogin(context.Background(), Credentials{User: "a", Pass: "b"})
	assert.ErrorIs(t, err, ErrLoginInFlight)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, tr.loginCalls)

	// the guard is released once the first login returns
	tr.LoginGate = nil
	assert.NoError(t, app.SubmitLogin(context.Background(), Credentials{User: "a", Pass: "b"}))
}

func TestRefreshGraphQLErrorsSkipRender(t *testing.T) {
	tr := &fakeTransport{QueryBody: `{"errors":[{"message":"field x not found"},{"message":"bad where"}]}`}
	app, rec := newTestApp(tr)

	err := app.Refresh(context.Background())
	var gqlErrs upstream.GraphQLErrors
	require.ErrorAs(t, err, &gqlErrs)

	assert.Empty(t, rec.rendered)
	assert.Equal(t, []string{"field x not found", "bad where"}, rec.messages())
}

func TestRefreshTransportFailureKeepsView(t *testing.T) {
	tr := &fakeTransport{QueryBody: profileBody}
	app, rec := newTestApp(tr)
	require.NoError(t, app.Refresh(context.Background()))

	tr.QueryErr = upstream.ErrTransport
	err := app.Refresh(context.Background())
	assert.ErrorIs(t, err, upstream.ErrTransport)

	assert.Len(t, rec.rendered, 1)
	assert.Zero(t, rec.clears)
	assert.Equal(t, []string{MsgFetchFailed}, rec.messages())
}

func TestRefreshMalformedBody(t *testing.T) {
	app, rec := newTestApp(&fakeTransport{QueryBody: `<html>`})

	err := app.Refresh(context.Background())
	assert.ErrorIs(t, err, upstream.ErrTransport)
	assert.Equal(t, []string{MsgFetchFailed}, rec.messages())
}

func TestRefreshExpiredTokenReopensPrompt(t *testing.T) {
	tr := &fakeTransport{QueryBody: profileBody}
	app, rec := newTestApp(tr)
	require.NoError(t, app.SubmitLogin(context.Background(), Credentials{User: "a", Pass: "b"}))
	require.False(t, app.PromptOpen())

	tr.QueryBody = `{"errors":[{"extensions":{"code":"invalid-jwt"},"message":"Could not verify JWT: JWTExpired"}]}`
	err := app.Refresh(context.Background())

	assert.ErrorIs(t, err, upstream.ErrTokenExpired)
	assert.True(t, app.PromptOpen())
	assert.Equal(t, 1, rec.clears)
	assert.Equal(t, 1, tr.logoutCalls)
	assert.Equal(t, MsgSessionExpired, rec.messages()[len(rec.notices)-1])
}

func TestLogOut(t *testing.T) {
	tr := &fakeTransport{QueryBody: profileBody, LogoutErr: upstream.ErrTransport}
	app, rec := newTestApp(tr)
	require.NoError(t, app.SubmitLogin(context.Background(), Credentials{User: "a", Pass: "b"}))

	app.LogOut(context.Background())

	assert.True(t, app.PromptOpen())
	assert.Equal(t, 1, rec.clears)
	assert.Equal(t, 1, tr.logoutCalls)
	assert.Equal(t, []string{MsgLoginSuccess, MsgLoggedOut}, rec.messages())
}

func TestDirectTransportAttachesToken(t *testing.T) {
	var gotAuth string
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/signin":
			_, _ = io.WriteString(w, `"tok-123"`)
		case "/graphql":
			gotAuth = r.Header.Get("Authorization")
			_, _ = io.WriteString(w, profileBody)
		}
	}))
	defer stub.Close()

	tr := NewDirectTransport(upstream.NewClient(stub.URL+"/signin", stub.URL+"/graphql", time.Second))
	app, rec := newTestApp(tr)

	_, _, err := tr.Query(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, upstream.ErrUnauthorized)

	require.NoError(t, app.SubmitLogin(context.Background(), Credentials{User: "alice", Pass: "pw"}))
	assert.Equal(t, "tok-123", tr.Token())
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Len(t, rec.rendered, 1)

	app.LogOut(context.Background())
	assert.Empty(t, tr.Token())
}

func TestSubmitLoginWaitsForRunningRefresh(t *testing.T) {
	gate := make(chan struct{})
	tr := &fakeTransport{QueryGate: gate, QueryBody: profileBody}
	app, rec := newTestApp(tr)
	ctx := context.Background()

	refreshed := make(chan error, 1)
	go func() { refreshed <- app.Refresh(ctx) }()
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return tr.queryCalls == 1
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, app.Refresh(ctx), ErrFetchInFlight)

	loggedIn := make(chan error, 1)
	go func() { loggedIn <- app.SubmitLogin(ctx, Credentials{User: "alice", Pass: "secret"}) }()

	select {
	case err := <-loggedIn:
		t.Fatalf("login finished before the running refresh: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.True(t, app.PromptOpen())

	close(gate)
	require.NoError(t, <-refreshed)
	require.NoError(t, <-loggedIn)

	assert.False(t, app.PromptOpen())
	assert.Equal(t, []string{MsgLoginSuccess}, rec.messages())
	tr.mu.Lock()
	assert.Equal(t, 2, tr.queryCalls)
	tr.mu.Unlock()
	rec.mu.Lock()
	assert.Len(t, rec.rendered, 2)
	rec.mu.Unlock()
}
