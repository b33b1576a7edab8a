// Package events turns raw GitHub webhook deliveries into model.Event values.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/archestra-ai/reputation-bot/internal/domain/model"
)

// triggers lists the actions that produce a summary, per event kind.
var triggers = map[model.EventKind]map[string]bool{ //nolint:gochecknoglobals // static lookup table
	model.KindPullRequest:  {model.ActionOpened: true, model.ActionReopened: true, model.ActionClosed: true},
	model.KindIssues:       {model.ActionOpened: true, model.ActionReopened: true},
	model.KindIssueComment: {model.ActionCreated: true},
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// Normalizer decodes webhook bodies. It is stateless apart from its clock.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize decodes body for the given X-GitHub-Event and content type.
// ping is returned without looking at the body. Events or actions the bot
// does not act on return ErrUnsupported; undecodable or incomplete bodies
// return ErrMalformed.
func (n *Normalizer) Normalize(eventType, contentType string, body []byte) (model.Event, error) {
	kind := model.EventKind(strings.TrimSpace(eventType))
	if kind == model.KindPing {
		return model.Event{Kind: model.KindPing, Timestamp: n.now()}, nil
	}
	actions, known := triggers[kind]
	if !known {
		return model.Event{}, fmt.Errorf("%w: %q", ErrUnsupported, eventType)
	}

	p, err := decode(contentType, body)
	if err != nil {
		return model.Event{}, err
	}
	if !actions[p.Action] {
		return model.Event{}, fmt.Errorf("%w: %s.%s", ErrUnsupported, kind, p.Action)
	}
	if p.Repository == nil || p.Repository.FullName == "" {
		return model.Event{}, fmt.Errorf("%w: missing repository", ErrMalformed)
	}

	ev := model.Event{
		Kind:       kind,
		Action:     p.Action,
		Actor:      p.Sender.login(),
		Repository: p.Repository.FullName,
	}

	var ts *time.Time
	switch kind {
	case model.KindPullRequest:
		if p.PullRequest == nil {
			return model.Event{}, fmt.Errorf("%w: missing pull_request", ErrMalformed)
		}
		number := p.PullRequest.Number
		if number == 0 {
			number = p.Number
		}
		merged := p.PullRequest.Merged || p.PullRequest.MergedAt != nil
		state := model.PRStateOpen
		if merged || strings.EqualFold(p.PullRequest.State, string(model.PRStateClosed)) {
			state = model.PRStateClosed
		}
		ev.Target = model.Target{
			Number:        number,
			Author:        p.PullRequest.User.login(),
			IsPullRequest: true,
			State:         state,
			Merged:        merged,
		}
		ts = p.PullRequest.UpdatedAt
	case model.KindIssues, model.KindIssueComment:
		if p.Issue == nil {
			return model.Event{}, fmt.Errorf("%w: missing issue", ErrMalformed)
		}
		ev.Target = model.Target{
			Number:        p.Issue.Number,
			Author:        p.Issue.User.login(),
			IsPullRequest: p.Issue.PullRequest != nil,
		}
		ts = p.Issue.UpdatedAt
		if kind == model.KindIssueComment {
			if p.Comment == nil {
				return model.Event{}, fmt.Errorf("%w: missing comment", ErrMalformed)
			}
			ev.CommentID = p.Comment.ID
			ev.CommentAuthor = p.Comment.User.login()
			ev.CommentBody = p.Comment.Body
			ts = p.Comment.CreatedAt
		}
	}

	if ev.Target.Number <= 0 {
		return model.Event{}, fmt.Errorf("%w: missing number", ErrMalformed)
	}
	if ev.Target.Author == "" {
		return model.Event{}, fmt.Errorf("%w: missing author", ErrMalformed)
	}

	ev.Timestamp = n.now()
	if ts != nil {
		ev.Timestamp = *ts
	}
	return ev, nil
}

// decode reads a JSON body, or a form body whose payload field holds the JSON.
// A JSON decode failure falls back to form parsing whatever the content type.
func decode(contentType string, body []byte) (payload, error) {
	var p payload
	if len(bytes.TrimSpace(body)) == 0 {
		return p, fmt.Errorf("%w: empty body", ErrMalformed)
	}

	isForm := strings.Contains(strings.ToLower(contentType), "application/x-www-form-urlencoded")
	if !isForm {
		if err := json.Unmarshal(body, &p); err == nil {
			return p, nil
		}
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return p, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	raw := form.Get("payload")
	if raw == "" {
		return p, fmt.Errorf("%w: no payload field", ErrMalformed)
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return p, nil
}
