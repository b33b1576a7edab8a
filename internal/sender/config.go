// Package sender builds signed GitHub webhook deliveries and posts them to a
// running bot, for local testing.
package sender

import "time"

// Default configuration constants.
const (
	DefaultBaseURL        = "http://localhost:8080"
	DefaultRepository     = "archestra-ai/archestra"
	DefaultTimeout        = 60 * time.Second
	DefaultHealthAttempts = 10
	DefaultHealthDelay    = 500 * time.Millisecond
	maxHealthDelay        = 5 * time.Second
)

// Config holds configuration for the sender.
type Config struct {
	BaseURL        string        // bot base URL, without /webhook
	Secret         string        // webhook secret; empty sends unsigned deliveries
	Repository     string        // owner/name put into payloads
	Timeout        time.Duration // per-request timeout
	HealthAttempts uint          // health checks before giving up
	HealthDelay    time.Duration // initial backoff between health checks
}

// DefaultConfig returns a Config pointing at a local bot.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Repository:     DefaultRepository,
		Timeout:        DefaultTimeout,
		HealthAttempts: DefaultHealthAttempts,
		HealthDelay:    DefaultHealthDelay,
	}
}
