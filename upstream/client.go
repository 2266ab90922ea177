// Package upstream is the client of the third-party learning platform: its
// sign-in endpoint and its GraphQL engine.
package upstream

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/learnboard/learnboard/logger"
	"github.com/learnboard/learnboard/util/metrics"
	"github.com/valyala/fasthttp"
)

const (
	DefaultTimeout = 30 * time.Second

	endpointSignIn  = "signin"
	endpointGraphQL = "graphql"
)

// Client talks to the platform. It is safe for concurrent use and holds no
// credentials; tokens are passed per call.
type Client struct {
	signInURL  string
	graphqlURL string
	timeout    time.Duration
	http       *fasthttp.Client
}

// NewClient returns a client for the given endpoints. A non-positive timeout
// falls back to DefaultTimeout.
func NewClient(signInURL, graphqlURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		signInURL:  signInURL,
		graphqlURL: graphqlURL,
		timeout:    timeout,
		http:       &fasthttp.Client{Name: "learnboard"},
	}
}

// SignIn exchanges credentials for a bearer token. Rejections, including
// credentials that cannot be sent, are reported as *AuthError.
func (c *Client) SignIn(ctx context.Context, user, pass string) (string, error) {
	if user == "" || pass == "" || strings.Contains(user, ":") {
		return "", &AuthError{Message: "malformed credentials"}
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.signInURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(user+":"+pass)))
	req.Header.Set("Accept", "application/json")
	req.Header.SetContentType("application/json")

	start := time.Now()
	err := c.do(ctx, req, resp)
	metrics.ObserveUpstream(endpointSignIn, start)
	if err != nil {
		return "", fmt.Errorf("%w: sign-in request: %w", ErrTransport, err)
	}

	return parseSignIn(resp.StatusCode(), resp.Body())
}

// parseSignIn accepts either a JSON string (the token) or {"error": "..."}.
func parseSignIn(status int, body []byte) (string, error) {
	var token string
	if err := json.Unmarshal(body, &token); err == nil {
		if token == "" {
			return "", &AuthError{}
		}
		return token, nil
	}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return "", &AuthError{Message: payload.Error}
	}

	logger.Debugf("unexpected sign-in response, status %d: %.200s", status, body)
	return "", fmt.Errorf("%w: unexpected sign-in response (status %d)", ErrTransport, status)
}

// Query posts body to the GraphQL endpoint with token as bearer credential
// and returns the upstream status and body unmodified. Only transport
// failures are errors; GraphQL-level errors are left in the body.
func (c *Client) Query(ctx context.Context, token string, body []byte) (int, []byte, error) {
	if token == "" {
		return 0, nil, ErrUnauthorized
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.graphqlURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	start := time.Now()
	err := c.do(ctx, req, resp)
	metrics.ObserveUpstream(endpointGraphQL, start)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: graphql request: %w", ErrTransport, err)
	}

	// resp is recycled on return; the body must be copied out.
	out := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), out, nil
}

// do bounds the call by the context deadline or the client timeout,
// whichever comes first.
func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return c.http.DoDeadline(req, resp, deadline)
}
