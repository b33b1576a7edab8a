package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/archestra-ai/reputation-bot/internal/adapters/repository"
	"github.com/archestra-ai/reputation-bot/internal/domain/comment"
	"github.com/archestra-ai/reputation-bot/pkg/logger"
	"github.com/archestra-ai/reputation-bot/pkg/metrics"
)

const defaultMarkerScanLimit = 300

// Outcome says how Upsert placed the summary.
type Outcome string

// Upsert outcomes.
const (
	OutcomeUpdated  Outcome = "updated"
	OutcomeCreated  Outcome = "created"
	OutcomeFallback Outcome = "fallback" // created after a find or edit step failed
)

// Publisher keeps exactly one bot summary comment per thread.
type Publisher struct {
	gh        GitHub
	index     repository.Store
	botLogin  func() string
	scanLimit int
	logger    logger.Logger
}

// NewPublisher returns a Publisher. botLogin may return "" when the bot's
// own login is unknown, in which case any comment carrying the marker matches.
func NewPublisher(gh GitHub, index repository.Store, botLogin func() string) *Publisher {
	if index == nil {
		index = repository.NewCommentIndex()
	}
	if botLogin == nil {
		botLogin = func() string { return "" }
	}
	return &Publisher{
		gh:        gh,
		index:     index,
		botLogin:  botLogin,
		scanLimit: defaultMarkerScanLimit,
		logger:    logger.Get().Named("publisher"),
	}
}

// Upsert edits the thread's summary comment or creates one. Writers on the
// same thread are serialized. Only a failed create is returned as an error.
func (p *Publisher) Upsert(ctx context.Context, thread int, body string) (int64, Outcome, error) {
	unlock, err := p.index.Lock(ctx, thread)
	if err != nil {
		return 0, "", fmt.Errorf("lock thread %d: %w", thread, err)
	}
	defer unlock()

	log := p.logger.With(logger.Int("thread", thread))
	degraded := false

	if id, err := p.index.Get(ctx, thread); err == nil {
		_, editErr := p.gh.UpdateComment(ctx, id, body)
		if editErr == nil {
			return p.done(ctx, thread, id, OutcomeUpdated)
		}
		log.Warn(ctx, "indexed comment edit failed", logger.Int64("comment_id", id), logger.Error(editErr))
		p.index.Forget(ctx, thread)
		degraded = true
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Warn(ctx, "comment index lookup failed", logger.Error(err))
	}

	id, found, err := p.find(ctx, thread)
	switch {
	case err != nil:
		log.Warn(ctx, "summary comment lookup failed", logger.Error(err))
		degraded = true
	case found:
		_, editErr := p.gh.UpdateComment(ctx, id, body)
		if editErr == nil {
			return p.done(ctx, thread, id, OutcomeUpdated)
		}
		log.Warn(ctx, "summary comment edit failed", logger.Int64("comment_id", id), logger.Error(editErr))
		degraded = true
	}

	created, err := p.gh.CreateComment(ctx, thread, body)
	if err != nil {
		metrics.RecordCommentUpsert("failed")
		return 0, "", fmt.Errorf("create summary comment on #%d: %w", thread, err)
	}
	outcome := OutcomeCreated
	if degraded {
		outcome = OutcomeFallback
	}
	return p.done(ctx, thread, created.ID, outcome)
}

func (p *Publisher) done(ctx context.Context, thread int, id int64, outcome Outcome) (int64, Outcome, error) {
	if err := p.index.Put(ctx, thread, id); err != nil {
		p.logger.Warn(ctx, "failed to index summary comment", logger.Int("thread", thread), logger.Error(err))
	}
	metrics.RecordCommentUpsert(string(outcome))
	p.logger.Debug(ctx, "summary comment published",
		logger.Int("thread", thread),
		logger.Int64("comment_id", id),
		logger.String("outcome", string(outcome)),
	)
	return id, outcome, nil
}

// find scans the thread for a bot summary. When the bot login is known only
// its own comments match, so a human quoting the footer is never edited.
func (p *Publisher) find(ctx context.Context, thread int) (int64, bool, error) {
	comments, err := p.gh.ListComments(ctx, thread, p.scanLimit)
	if err != nil {
		return 0, false, err
	}
	self := p.botLogin()
	for _, c := range comments {
		if !comment.IsBotComment(c.Body) {
			continue
		}
		if self != "" && !strings.EqualFold(c.Author, self) {
			continue
		}
		return c.ID, true, nil
	}
	return 0, false, nil
}
