// Package github is a small REST client for the GitHub endpoints the bot uses.
// Calls are never retried here; callers surface failures so GitHub redelivers.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/archestra-ai/reputation-bot/pkg/logger"
	"github.com/archestra-ai/reputation-bot/pkg/metrics"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 10 * time.Second
	maxPerPage     = 100
	maxErrorBody   = 4 << 10
)

// authenticator supplies the Authorization header value.
type authenticator interface {
	Authorization(ctx context.Context) (string, error)
}

type staticToken string

func (t staticToken) Authorization(context.Context) (string, error) {
	return "token " + string(t), nil
}

// Client talks to one repository.
type Client struct {
	baseURL string
	owner   string
	repo    string
	http    *http.Client
	auth    authenticator
	appID   int64
	appKey  []byte
	logger  logger.Logger
}

// New creates a client for repository ("owner/name").
func New(repository string, opts ...Option) (*Client, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("github: repository %q must be owner/name", repository)
	}

	c := &Client{
		baseURL: defaultBaseURL,
		owner:   owner,
		repo:    repo,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.Get().Named("github"),
	}
	for _, opt := range opts {
		opt(c)
	}

	// A token wins over App credentials.
	if c.auth == nil && c.appID != 0 {
		app, err := newAppAuth(c, c.appID, c.appKey)
		if err != nil {
			return nil, err
		}
		c.auth = app
	}
	if c.auth == nil {
		c.logger.Warn(context.Background(), "no GitHub credentials configured, using unauthenticated requests")
	}
	return c, nil
}

// Repository returns owner/name.
func (c *Client) Repository() string { return c.owner + "/" + c.repo }

func (c *Client) repoPath(format string, args ...any) string {
	return "/repos/" + url.PathEscape(c.owner) + "/" + url.PathEscape(c.repo) + fmt.Sprintf(format, args...)
}

// do sends one request and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	auth := ""
	if c.auth != nil {
		a, err := c.auth.Authorization(ctx)
		if err != nil {
			return fmt.Errorf("github %s: %w", op, err)
		}
		auth = a
	}
	return c.send(ctx, op, method, path, query, auth, in, out)
}

func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, auth string, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("github %s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("github %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "reputation-bot")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordGitHubRequest(op, "error", elapsed)
		metrics.RecordErrorByComponent("github", "transport")
		return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
	}
	defer drainAndCloseBody(ctx, c.logger, resp.Body)

	metrics.RecordGitHubRequest(op, strconv.Itoa(resp.StatusCode), elapsed)
	c.logger.Debug(ctx, "github request",
		logger.String("op", op),
		logger.String("method", method),
		logger.Int("status", resp.StatusCode),
		logger.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Operation:   op,
			StatusCode:  resp.StatusCode,
			Message:     readMessage(resp.Body),
			RateLimited: resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0",
		}
		metrics.RecordErrorByComponent("github", strconv.Itoa(resp.StatusCode))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", ErrUpstream, op, err)
	}
	return nil
}

// readMessage extracts GitHub's error message, or the raw body.
func readMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return err.Error()
	}
	var msg struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
		return msg.Message
	}
	return strings.TrimSpace(string(raw))
}

// drainAndCloseBody drains and closes an HTTP response body so the connection is reused.
func drainAndCloseBody(ctx context.Context, l logger.Logger, body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		l.Warn(ctx, "failed to drain response body", logger.Error(err))
	}
	if err := body.Close(); err != nil {
		l.Warn(ctx, "failed to close response body", logger.Error(err))
	}
}

func perPage(limit int) int {
	if limit <= 0 || limit > maxPerPage {
		return maxPerPage
	}
	return limit
}
