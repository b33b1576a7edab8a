// Package types contains the JSON shapes returned by the HTTP API.
package types

// Webhook delivery statuses.
const (
	StatusPong      = "pong"
	StatusIgnored   = "ignored"
	StatusDuplicate = "duplicate"
	StatusProcessed = "processed"
)

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Status       string   `json:"status"`
	Reason       string   `json:"reason,omitempty"`
	Delivery     string   `json:"delivery,omitempty"`
	Thread       int      `json:"thread,omitempty"`
	CommentID    int64    `json:"comment_id,omitempty"`
	Outcome      string   `json:"outcome,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// Ignored builds a 2xx no-op acknowledgement.
func Ignored(reason string) WebhookResponse {
	return WebhookResponse{Status: StatusIgnored, Reason: reason}
}

// Stats is the body of GET /stats.
type Stats struct {
	Started        bool   `json:"started"`
	Repository     string `json:"repository"`
	BotLogin       string `json:"bot_login,omitempty"`
	CoreTeamSize   int    `json:"core_team_size"`
	Workers        int    `json:"workers"`
	QueueLength    int    `json:"queue_length"`
	QueueCapacity  int    `json:"queue_capacity"`
	DedupeEntries  int64  `json:"dedupe_entries"`
	IndexedThreads int    `json:"indexed_threads"`
	Scored         int64  `json:"scored"`
	ScoreFailures  int64  `json:"score_failures"`
	Processed      int64  `json:"processed"`
	Ignored        int64  `json:"ignored"`
	Failed         int64  `json:"failed"`
}
