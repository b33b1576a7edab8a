// Package model contains domain models passed between layers.
package model

import "time"

// EventKind is the value of the X-GitHub-Event header.
type EventKind string

// Event kinds the bot understands.
const (
	KindPing         EventKind = "ping"
	KindPullRequest  EventKind = "pull_request"
	KindIssues       EventKind = "issues"
	KindIssueComment EventKind = "issue_comment"
)

// Actions that trigger a summary.
const (
	ActionOpened   = "opened"
	ActionReopened = "reopened"
	ActionClosed   = "closed"
	ActionCreated  = "created"
)

// Target is the issue or pull request an event happened on.
type Target struct {
	Number        int
	Author        string
	IsPullRequest bool

	// Set for pull_request events only.
	State  PRState
	Merged bool
}

// PullRequest returns the target as the calculator sees it. ok is false
// unless the event carried the pull request's own state.
func (t Target) PullRequest() (pr PullRequest, ok bool) {
	if !t.IsPullRequest || t.State == "" {
		return PullRequest{}, false
	}
	return PullRequest{Number: t.Number, Author: t.Author, State: t.State, Merged: t.Merged}, true
}

// Event is a normalized webhook delivery.
type Event struct {
	Kind       EventKind
	Action     string
	Actor      string // sender login
	Target     Target
	Repository string // owner/name
	DeliveryID string
	Timestamp  time.Time

	// Set for issue_comment only.
	CommentID     int64
	CommentAuthor string
	CommentBody   string
}

// Thread returns the number comments are posted to.
func (e *Event) Thread() int { return e.Target.Number }
