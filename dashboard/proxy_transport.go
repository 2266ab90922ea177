package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/learnboard/learnboard/upstream"
	"github.com/valyala/fasthttp"
)

// ProxyTransport talks to a learnboard proxy. The token stays in the
// proxy's session store; this side only keeps the session cookie.
type ProxyTransport struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client

	mu      sync.Mutex
	cookies map[string]string
}

// NewProxyTransport returns a transport for the proxy at baseURL, e.g.
// "http://localhost:3000".
func NewProxyTransport(baseURL string, timeout time.Duration) *ProxyTransport {
	if timeout <= 0 {
		timeout = upstream.DefaultTimeout
	}
	return &ProxyTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &fasthttp.Client{Name: "learnboard"},
		cookies: make(map[string]string),
	}
}

func (t *ProxyTransport) Login(ctx context.Context, creds Credentials) error {
	body, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	status, respBody, err := t.post(ctx, "/api/login", body)
	if err != nil {
		return err
	}

	var reply struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return fmt.Errorf("%w: decode login reply (status %d): %w", upstream.ErrTransport, status, err)
	}
	switch {
	case status == http.StatusOK && reply.Success:
		return nil
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return &upstream.AuthError{Message: reply.Error}
	default:
		return fmt.Errorf("%w: login answered status %d: %s", upstream.ErrTransport, status, reply.Error)
	}
}

func (t *ProxyTransport) Query(ctx context.Context, body []byte) (int, []byte, error) {
	if !t.hasSession() {
		return 0, nil, upstream.ErrUnauthorized
	}
	return t.post(ctx, "/api/graphql", body)
}

func (t *ProxyTransport) Logout(ctx context.Context) error {
	defer t.clearCookies()
	if !t.hasSession() {
		return nil
	}
	status, _, err := t.post(ctx, "/api/logout", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: logout answered status %d", upstream.ErrTransport, status)
	}
	return nil
}

func (t *ProxyTransport) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", upstream.ErrTransport, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(t.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.Set("Accept", "application/json")
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	t.mu.Lock()
	for name, value := range t.cookies {
		req.Header.SetCookie(name, value)
	}
	t.mu.Unlock()

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.http.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, fmt.Errorf("%w: %s: %w", upstream.ErrTransport, path, err)
	}

	t.storeCookies(resp)
	return resp.StatusCode(), append([]byte(nil), resp.Body()...), nil
}

// storeCookies applies the Set-Cookie headers of resp; an empty value or a
// negative max age removes the cookie.
func (t *ProxyTransport) storeCookies(resp *fasthttp.Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	resp.Header.VisitAllCookie(func(_, value []byte) {
		c := fasthttp.AcquireCookie()
		defer fasthttp.ReleaseCookie(c)
		if err := c.ParseBytes(value); err != nil {
			return
		}
		name := string(c.Key())
		if len(c.Value()) == 0 || c.MaxAge() < 0 {
			delete(t.cookies, name)
			return
		}
		t.cookies[name] = string(c.Value())
	})
}

func (t *ProxyTransport) hasSession() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cookies) > 0
}

func (t *ProxyTransport) clearCookies() {
	t.mu.Lock()
	t.cookies = make(map[string]string)
	t.mu.Unlock()
}
