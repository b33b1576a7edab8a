package model

import (
	"context"
)

// ScoreKind classifies a scorable event.
type ScoreKind string

// Scorable event kinds.
const (
	ScorePRMerged     ScoreKind = "pr_merged"
	ScorePROpen       ScoreKind = "pr_open"
	ScorePRClosed     ScoreKind = "pr_closed"
	ScoreIssueOpened  ScoreKind = "issue_opened"
	ScoreCoreUpvote   ScoreKind = "core_upvote"
	ScoreCoreDownvote ScoreKind = "core_downvote"
)

// ScorableEvent is one contribution that changes a user's reputation.
type ScorableEvent struct {
	Kind   ScoreKind
	Login  string
	Points int
	Label  string
	Ref    int // issue or pull request number, 0 when unknown
}

// Breakdown is a user's itemized reputation.
type Breakdown struct {
	Login    string
	Entries  []ScorableEvent // discovery order
	Comments int             // display only, never scored
}

// Total returns the sum of all entry points.
func (b Breakdown) Total() int {
	total := 0
	for _, e := range b.Entries {
		total += e.Points
	}
	return total
}

// Count returns how many entries have the given kind.
func (b Breakdown) Count(kind ScoreKind) int {
	n := 0
	for _, e := range b.Entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// ScoreJob asks a worker to score one login.
type ScoreJob struct {
	Ctx   context.Context //nolint:containedctx // request scope travels with the job
	Login string
	Known []PullRequest // fresher than the search index, override it
	Reply chan<- ScoreResult
}

// ScoreResult is a worker's answer to a ScoreJob.
type ScoreResult struct {
	Login     string
	Breakdown Breakdown
	Err       error
}
