// Package reactions filters raw GitHub reactions down to the core-team votes
// that affect reputation.
package reactions

import (
	"strings"

	"github.com/archestra-ai/reputation-bot/internal/domain/model"
)

// Polarity is the direction of a core-team vote.
type Polarity int

// Vote directions.
const (
	Upvote   Polarity = 1
	Downvote Polarity = -1
)

// CoreReaction is a +1 or -1 left by a core-team member on an issue or pull
// request body. Only Track produces these.
type CoreReaction struct {
	Polarity Polarity
	Member   string // the core-team login that reacted
	Affected string // the body author
	Subject  model.Subject
}

// Tracker recognizes core-team reactions.
type Tracker struct {
	members map[string]struct{}
}

// NewTracker builds a tracker over a case-insensitive set of core-team logins.
func NewTracker(coreTeam []string) *Tracker {
	t := &Tracker{members: make(map[string]struct{}, len(coreTeam))}
	for _, login := range coreTeam {
		login = strings.TrimSpace(login)
		if login == "" {
			continue
		}
		t.members[strings.ToLower(login)] = struct{}{}
	}
	return t
}

// IsCoreMember reports whether login belongs to the core team.
func (t *Tracker) IsCoreMember(login string) bool {
	_, ok := t.members[strings.ToLower(login)]
	return ok
}

// Size returns the number of core-team members.
func (t *Tracker) Size() int { return len(t.members) }

// Track keeps the body reactions on subject that are core-team +1 or -1 votes.
// Comment reactions, other emoji and non-members are dropped.
func (t *Tracker) Track(subject model.Subject, rs []model.Reaction) []CoreReaction {
	var out []CoreReaction
	for _, r := range rs {
		if r.Source != model.SourceBody || !t.IsCoreMember(r.User) {
			continue
		}
		var p Polarity
		switch r.Content {
		case model.ReactionPlusOne:
			p = Upvote
		case model.ReactionMinusOne:
			p = Downvote
		default:
			continue
		}
		out = append(out, CoreReaction{
			Polarity: p,
			Member:   r.User,
			Affected: subject.Author,
			Subject:  subject,
		})
	}
	return out
}
