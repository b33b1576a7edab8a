package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"

	"github.com/archestra-ai/reputation-bot/internal/domain/events"
	"github.com/archestra-ai/reputation-bot/internal/domain/types"
	"github.com/archestra-ai/reputation-bot/pkg/logger"
)

// Result is the bot's answer to one delivery.
type Result struct {
	DeliveryID string
	StatusCode int
	Response   types.WebhookResponse
	Raw        string
}

// Client posts signed deliveries to a bot.
type Client struct {
	cfg    Config
	http   *http.Client
	newID  func() string
	logger logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithDeliveryIDs replaces the X-GitHub-Delivery generator.
func WithDeliveryIDs(next func() string) Option {
	return func(c *Client) {
		if next != nil {
			c.newID = next
		}
	}
}

// NewClient creates a sender client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		newID:  uuid.NewString,
		logger: logger.Get().Named("sender"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WaitHealthy polls /healthz with exponential backoff until it answers 200.
func (c *Client) WaitHealthy(ctx context.Context) error {
	attempts := c.cfg.HealthAttempts
	if attempts == 0 {
		attempts = DefaultHealthAttempts
	}
	err := retry.Do(
		func() error { return c.checkHealth(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(c.cfg.HealthDelay),
		retry.MaxDelay(maxHealthDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug(ctx, "bot not ready", logger.Int("attempt", int(n)+1), logger.Error(err))
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

func (c *Client) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthz returned %d", resp.StatusCode)
	}
	return nil
}

// Send posts d to /webhook, signed when a secret is configured.
// A non-2xx answer is returned together with ErrRejected.
func (c *Client) Send(ctx context.Context, d Delivery) (Result, error) {
	res := Result{DeliveryID: c.newID()}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/webhook", bytes.NewReader(d.Body))
	if err != nil {
		return res, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "GitHub-Hookshot/reputation-bot-sender")
	req.Header.Set("X-GitHub-Event", d.Event)
	req.Header.Set("X-GitHub-Delivery", res.DeliveryID)
	if c.cfg.Secret != "" {
		req.Header.Set("X-Hub-Signature-256", events.Sign(c.cfg.Secret, d.Body))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return res, fmt.Errorf("post %s delivery: %w", d.Event, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return res, fmt.Errorf("read response: %w", err)
	}
	res.StatusCode = resp.StatusCode
	res.Raw = strings.TrimSpace(string(raw))
	_ = json.Unmarshal(raw, &res.Response)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, fmt.Errorf("%w: %s answered %d: %s", ErrRejected, d.Event, resp.StatusCode, res.Raw)
	}
	return res, nil
}
