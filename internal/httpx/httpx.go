// Package httpx provides the bounded outbound HTTP client underlying a
// Publer API session: connect timeouts, capped response reads, and a
// redirect policy that never leaks credentials to a different host.
package httpx

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrResponseTooLarge = errors.New("response body too large")
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Config bounds the behavior of the outbound client.
// Zero values are replaced with defaults by New.
type Config struct {
	// Timeout is the overall per-request deadline, covering connection,
	// request write, and response read.
	Timeout time.Duration

	// ConnectTimeout bounds connection establishment only.
	ConnectTimeout time.Duration

	// MaxResponseBytes caps how much of a response body ReadBody will
	// accept before failing with ErrResponseTooLarge.
	MaxResponseBytes int64

	// MaxRedirects caps automatic redirect following.
	MaxRedirects int

	// MaxIdleConns tunes keep-alive connection reuse.
	MaxIdleConns int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = 8 << 20
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 3
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 10
	}
	return c
}

// Client is a bounded HTTP client. It is safe for concurrent use and
// reuses keep-alive connections across requests.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a bounded outbound client.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DialContext:       dialer.DialContext,
		MaxIdleConns:      cfg.MaxIdleConns,
		IdleConnTimeout:   90 * time.Second,
		ForceAttemptHTTP2: true,
	}

	c := &Client{cfg: cfg}
	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > cfg.MaxRedirects {
				return fmt.Errorf("%w: exceeded limit of %d", ErrTooManyRedirects, cfg.MaxRedirects)
			}
			// Credentials must not travel to a different host.
			if !isSameHost(via[0].URL, req.URL) {
				req.Header.Del("Authorization")
			}
			return nil
		},
	}
	return c
}

// Do performs the request. The request context governs cancellation in
// addition to the configured overall timeout.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// ReadBody drains and closes the response body, enforcing the configured
// size cap.
func (c *Client) ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.cfg.MaxResponseBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.cfg.MaxResponseBytes {
		return nil, ErrResponseTooLarge
	}
	return body, nil
}

// CloseIdleConnections releases pooled keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// isSameHost checks if two URLs have the same host (hostname + effective port).
// Uses url.URL.Hostname() and url.URL.Port() for IPv6-safe comparisons.
func isSameHost(a, b *url.URL) bool {
	if !strings.EqualFold(a.Hostname(), b.Hostname()) {
		return false
	}
	return effectivePort(a) == effectivePort(b)
}

// effectivePort returns the effective port for a URL.
// Missing port = scheme default. Explicit default port = same as missing.
func effectivePort(u *url.URL) string {
	port := u.Port()
	if port == "" || port == defaultPort(u.Scheme) {
		return defaultPort(u.Scheme)
	}
	return port
}

func defaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}
