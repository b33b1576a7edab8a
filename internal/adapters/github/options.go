package github

import (
	"net/http"
	"strings"
	"time"

	"github.com/archestra-ai/reputation-bot/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. GitHub Enterprise or a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithToken authenticates with a personal access or installation token.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.auth = staticToken(token)
		}
	}
}

// WithAppAuth authenticates as a GitHub App installation on the client's repository.
func WithAppAuth(appID int64, privateKeyPEM []byte) Option {
	return func(c *Client) {
		if appID != 0 && len(privateKeyPEM) > 0 {
			c.appID = appID
			c.appKey = privateKeyPEM
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
