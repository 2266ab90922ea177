// Package network holds listener wrappers for the web server.
package network

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
	"sync"
)

// peekSize bounds how much of the first packet is inspected for a plain
// HTTP request line.
const peekSize = 2048

// HTTPSRedirectListener answers plain HTTP requests arriving on a TLS port
// with a 307 to the https:// URL. Other connections pass through untouched.
type HTTPSRedirectListener struct {
	net.Listener
}

func NewHTTPSRedirectListener(listener net.Listener) net.Listener {
	return &HTTPSRedirectListener{Listener: listener}
}

func (l *HTTPSRedirectListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &redirectConn{Conn: conn}, nil
}

// redirectConn replays the bytes it peeked at unless they were an HTTP
// request, which it answers and closes.
type redirectConn struct {
	net.Conn

	once    sync.Once
	pending []byte
}

func (c *redirectConn) peek() {
	buf := make([]byte, peekSize)
	n, err := c.Conn.Read(buf)
	c.pending = buf[:n]
	if err != nil || n == 0 {
		return
	}

	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(c.pending)))
	if err != nil {
		return
	}
	resp := http.Response{
		StatusCode: http.StatusTemporaryRedirect,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
	}
	resp.Header.Set("Location", "https://"+req.Host+req.RequestURI)
	resp.Header.Set("Connection", "close")
	_ = resp.Write(c.Conn)
	_ = c.Conn.Close()
	c.pending = nil
}

func (c *redirectConn) Read(buf []byte) (int, error) {
	c.once.Do(c.peek)

	if len(c.pending) > 0 {
		n := copy(buf, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}
	return c.Conn.Read(buf)
}
