package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/archestra-ai/reputation-bot/internal/adapters/github"
	"github.com/archestra-ai/reputation-bot/internal/domain/model"
	"github.com/archestra-ai/reputation-bot/internal/domain/reactions"
	"github.com/archestra-ai/reputation-bot/internal/domain/scoring"
	"github.com/archestra-ai/reputation-bot/pkg/logger"
	"github.com/archestra-ai/reputation-bot/pkg/metrics"
)

// Collector fetches one user's activity and scores it. It implements
// worker.Scorer so the pool can run it.
type Collector struct {
	gh         GitHub
	repository string
	tracker    *reactions.Tracker
	calculator *scoring.Calculator

	searchLimit       int
	commenterLimit    int
	reactionScanLimit int

	logger logger.Logger
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithSearchLimit caps how many PRs and issues are fetched per user.
func WithSearchLimit(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// WithCommenterLimit caps the displayed comment count.
func WithCommenterLimit(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.commenterLimit = n
		}
	}
}

// WithReactionScanLimit caps how many of the user's items are scanned for
// core-team reactions.
func WithReactionScanLimit(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.reactionScanLimit = n
		}
	}
}

// NewCollector builds a Collector for repository ("owner/name").
func NewCollector(gh GitHub, repository string, tracker *reactions.Tracker, opts ...CollectorOption) *Collector {
	c := &Collector{
		gh:                gh,
		repository:        repository,
		tracker:           tracker,
		calculator:        scoring.NewCalculator(),
		searchLimit:       100,
		commenterLimit:    50,
		reactionScanLimit: 30,
		logger:            logger.Get().Named("collector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracker == nil {
		c.tracker = reactions.NewTracker(nil)
	}
	return c
}

// Score collects login's activity and returns the itemized breakdown.
// Pull requests in known replace search results with the same number, or
// are added when search has not indexed them yet. Any fetch error fails the
// whole computation.
func (c *Collector) Score(ctx context.Context, login string, known ...model.PullRequest) (model.Breakdown, error) {
	start := time.Now()

	activity, err := c.collect(ctx, login, known)
	if err != nil {
		metrics.RecordScoreError()
		return model.Breakdown{}, fmt.Errorf("collect activity for %s: %w", login, err)
	}

	b := c.calculator.Calculate(login, activity)
	metrics.RecordScoreComputed(b.Total(), float64(time.Since(start).Milliseconds()))
	c.logger.Debug(ctx, "user scored",
		logger.String("login", login),
		logger.Int("total", b.Total()),
		logger.Int("entries", len(b.Entries)),
	)
	return b, nil
}

func (c *Collector) collect(ctx context.Context, login string, known []model.PullRequest) (scoring.Activity, error) {
	var a scoring.Activity

	prs, err := c.gh.SearchIssues(ctx, c.query(login, "author", "is:pr"), c.searchLimit)
	if err != nil {
		return a, fmt.Errorf("search pull requests: %w", err)
	}
	issues, err := c.gh.SearchIssues(ctx, c.query(login, "author", "is:issue"), c.searchLimit)
	if err != nil {
		return a, fmt.Errorf("search issues: %w", err)
	}
	commented, err := c.gh.SearchIssues(ctx, c.query(login, "commenter", ""), 1)
	if err != nil {
		return a, fmt.Errorf("search comments: %w", err)
	}

	subjects := make([]model.Subject, 0, len(prs.Items)+len(issues.Items))
	for _, it := range prs.Items {
		if !it.IsPullRequest {
			continue
		}
		a.PullRequests = append(a.PullRequests, pullRequest(it))
	}
	a.PullRequests = overlay(a.PullRequests, known, login)
	for _, pr := range a.PullRequests {
		subjects = append(subjects, model.Subject{Number: pr.Number, Author: pr.Author, IsPullRequest: true})
	}
	for _, it := range issues.Items {
		if it.IsPullRequest {
			continue
		}
		a.Issues = append(a.Issues, model.Issue{Number: it.Number, Author: it.Author})
		subjects = append(subjects, model.Subject{Number: it.Number, Author: it.Author})
	}
	a.Comments = min(commented.Total, c.commenterLimit)

	if c.tracker.Size() == 0 {
		return a, nil
	}
	if len(subjects) > c.reactionScanLimit {
		subjects = subjects[:c.reactionScanLimit]
	}
	for _, s := range subjects {
		rs, err := c.gh.ListReactions(ctx, s.Number)
		if err != nil {
			return a, fmt.Errorf("list reactions on #%d: %w", s.Number, err)
		}
		a.Reactions = append(a.Reactions, c.tracker.Track(s, rs)...)
	}
	return a, nil
}

func (c *Collector) query(login, qualifier, extra string) string {
	parts := []string{"repo:" + c.repository, qualifier + ":" + login}
	if extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, " ")
}

func overlay(prs, known []model.PullRequest, login string) []model.PullRequest {
next:
	for _, k := range known {
		if !strings.EqualFold(k.Author, login) {
			continue
		}
		for i := range prs {
			if prs[i].Number == k.Number {
				prs[i] = k
				continue next
			}
		}
		prs = append(prs, k)
	}
	return prs
}

func pullRequest(it github.SearchItem) model.PullRequest {
	state := model.PRStateOpen
	if strings.EqualFold(it.State, string(model.PRStateClosed)) {
		state = model.PRStateClosed
	}
	return model.PullRequest{
		Number: it.Number,
		Author: it.Author,
		State:  state,
		Merged: it.Merged,
	}
}
