package events

import "time"

// Wire shapes of the webhook payload fields the bot reads.

type user struct {
	Login string `json:"login"`
}

type repository struct {
	FullName string `json:"full_name"`
}

type pullRequest struct {
	Number    int        `json:"number"`
	User      *user      `json:"user"`
	State     string     `json:"state"`
	Merged    bool       `json:"merged"`
	MergedAt  *time.Time `json:"merged_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type issue struct {
	Number      int        `json:"number"`
	User        *user      `json:"user"`
	PullRequest *struct{}  `json:"pull_request"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type issueComment struct {
	ID        int64      `json:"id"`
	User      *user      `json:"user"`
	Body      string     `json:"body"`
	CreatedAt *time.Time `json:"created_at"`
}

type payload struct {
	Action      string        `json:"action"`
	Number      int           `json:"number"`
	PullRequest *pullRequest  `json:"pull_request"`
	Issue       *issue        `json:"issue"`
	Comment     *issueComment `json:"comment"`
	Repository  *repository   `json:"repository"`
	Sender      *user         `json:"sender"`
}

func (u *user) login() string {
	if u == nil {
		return ""
	}
	return u.Login
}
