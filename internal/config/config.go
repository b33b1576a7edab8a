// Package config defines the bot configuration and its defaults.
//
// Conventions:
// - Defaults live in New; Load layers file and environment on top.
// - Components receive plain values from Config, never the environment.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Repository is the single owner/name the bot serves.
	Repository string `koanf:"repository"`

	// GitHub API access. A token wins over App credentials when both are set.
	GitHubAPIURL     string        `koanf:"github_api_url"`
	GitHubToken      string        `koanf:"github_token"`
	GitHubAppID      int64         `koanf:"github_app_id"`
	GitHubAppKey     string        `koanf:"github_app_key"`
	GitHubAppKeyPath string        `koanf:"github_app_key_path"`
	GitHubTimeout    time.Duration `koanf:"github_timeout"`

	// WebhookSecret is the shared HMAC secret. Empty disables verification.
	WebhookSecret string `koanf:"webhook_secret"`

	// CoreTeam lists the logins whose reactions carry points.
	CoreTeam []string `koanf:"core_team"`

	// BotLogin is the bot's own login. Discovered from the token when empty.
	BotLogin string `koanf:"bot_login"`

	// IgnoredLogins are never listed as participants.
	IgnoredLogins []string `koanf:"ignored_logins"`

	// DedupeSize sets how many delivery IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// QueueSize bounds pending score jobs; WorkerCount sets the pool size.
	QueueSize   int `koanf:"queue_size"`
	WorkerCount int `koanf:"worker_count"`

	// SearchLimit caps PRs and issues fetched per user.
	SearchLimit int `koanf:"search_limit"`

	// CommenterLimit caps the displayed comment count per user.
	CommenterLimit int `koanf:"commenter_limit"`

	// ReactionScanLimit caps how many of a user's PRs and issues are scanned for reactions.
	ReactionScanLimit int `koanf:"reaction_scan_limit"`

	// MaxComments caps comments scanned for participants; MaxParticipants caps the table.
	MaxComments     int `koanf:"max_comments"`
	MaxParticipants int `koanf:"max_participants"`

	// Metrics served on /healthz.
	MetricsEnabled         bool          `koanf:"metrics_enabled"`
	MetricsNamespace       string        `koanf:"metrics_namespace"`
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8080",
		Repository:        "archestra-ai/archestra",
		GitHubAPIURL:      "https://api.github.com",
		GitHubTimeout:     10 * time.Second,
		BotLogin:          "",
		IgnoredLogins:     []string{"London-Cat"},
		DedupeSize:        10_000,
		QueueSize:         256,
		WorkerCount:       runtime.NumCPU() * 2,
		SearchLimit:       100,
		CommenterLimit:    50,
		ReactionScanLimit: 30,
		MaxComments:       30,
		MaxParticipants:   10,

		MetricsEnabled:         true,
		MetricsNamespace:       "repbot",
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Owner returns the owner half of Repository.
func (c *Config) Owner() string {
	owner, _, _ := strings.Cut(c.Repository, "/")
	return owner
}

// Name returns the name half of Repository.
func (c *Config) Name() string {
	_, name, _ := strings.Cut(c.Repository, "/")
	return name
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	owner, name, ok := strings.Cut(c.Repository, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: repository %q must be owner/name", ErrInvalidConfig, c.Repository)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.GitHubAPIURL == "" {
		return fmt.Errorf("%w: github_api_url must not be empty", ErrInvalidConfig)
	}
	if c.GitHubTimeout <= 0 {
		return fmt.Errorf("%w: github_timeout must be positive", ErrInvalidConfig)
	}
	if c.MetricsEnabled && c.MetricsNamespace == "" {
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	}
	if c.MetricsRefreshInterval <= 0 {
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}
	if c.GitHubToken == "" && c.GitHubAppID != 0 && c.GitHubAppKey == "" && c.GitHubAppKeyPath == "" {
		return fmt.Errorf("%w: github_app_id needs github_app_key or github_app_key_path", ErrInvalidConfig)
	}

	positive := map[string]int{
		"dedupe_size":         c.DedupeSize,
		"queue_size":          c.QueueSize,
		"worker_count":        c.WorkerCount,
		"search_limit":        c.SearchLimit,
		"commenter_limit":     c.CommenterLimit,
		"reaction_scan_limit": c.ReactionScanLimit,
		"max_comments":        c.MaxComments,
		"max_participants":    c.MaxParticipants,
	}
	for key, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, key, v)
		}
	}
	return nil
}
