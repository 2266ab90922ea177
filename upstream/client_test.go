package upstream

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/auth/signin", srv.URL+"/api/graphql-engine/v1/graphql", 5*time.Second)
}

func TestSignInReturnsToken(t *testing.T) {
	var gotAuth string
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/signin", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `"jwt-token"`)
	})

	token, err := c.SignIn(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("alice:secret")), gotAuth)
}

func TestSignInErrorPayload(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"invalid credentials"}`)
	})

	token, err := c.SignIn(context.Background(), "alice", "wrong")
	assert.Empty(t, token)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid credentials", authErr.Message)
}

func TestSignInMalformedCredentials(t *testing.T) {
	called := false
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	for _, creds := range [][2]string{{"", "pass"}, {"alice", ""}, {"al:ice", "pass"}} {
		_, err := c.SignIn(context.Background(), creds[0], creds[1])
		var authErr *AuthError
		assert.ErrorAs(t, err, &authErr)
	}
	assert.False(t, called)
}

func TestSignInUnexpectedBody(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `<html>bad gateway</html>`)
	})

	_, err := c.SignIn(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSignInTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url+"/signin", url+"/graphql", time.Second)
	_, err := c.SignIn(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestQueryAttachesBearerAndPassesBodyThrough(t *testing.T) {
	const reply = `{"data":{"user":[]},"errors":[{"message":"boom"}]}`
	var gotAuth, gotBody string
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, reply)
	})

	status, body, err := c.Query(context.Background(), "tok", []byte(`{"query":"{ user { id } }"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, reply, string(body))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, `{"query":"{ user { id } }"}`, gotBody)
}

func TestQueryWithoutToken(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/signin", "http://127.0.0.1:1/graphql", time.Second)
	_, _, err := c.Query(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestQueryHonoursCancelledContext(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.Query(ctx, "tok", []byte(`{}`))
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDecodeResponse(t *testing.T) {
	type data struct {
		User []struct {
			Login string `json:"login"`
		} `json:"user"`
	}

	t.Run("data", func(t *testing.T) {
		var out data
		err := DecodeResponse(http.StatusOK, []byte(`{"data":{"user":[{"login":"alice"}]}}`), &out)
		require.NoError(t, err)
		require.Len(t, out.User, 1)
		assert.Equal(t, "alice", out.User[0].Login)
	})

	t.Run("graphql errors", func(t *testing.T) {
		var out data
		err := DecodeResponse(http.StatusOK, []byte(`{"errors":[{"message":"a"},{"message":"b"}]}`), &out)
		var gqlErrs GraphQLErrors
		require.ErrorAs(t, err, &gqlErrs)
		assert.Equal(t, []string{"a", "b"}, gqlErrs.Messages())
		assert.NotErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("expired jwt", func(t *testing.T) {
		body := `{"errors":[{"extensions":{"path":"$","code":"invalid-jwt"},"message":"Could not verify JWT: JWTExpired"}]}`
		err := DecodeResponse(http.StatusOK, []byte(body), &data{})
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("unauthorized status", func(t *testing.T) {
		err := DecodeResponse(http.StatusUnauthorized, []byte(`{}`), &data{})
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("malformed body", func(t *testing.T) {
		err := DecodeResponse(http.StatusOK, []byte(`not json`), &data{})
		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("missing data", func(t *testing.T) {
		err := DecodeResponse(http.StatusOK, []byte(`{"data":null}`), &data{})
		assert.ErrorIs(t, err, ErrTransport)
	})
}
