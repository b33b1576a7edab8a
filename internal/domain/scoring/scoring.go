// Package scoring turns a user's GitHub activity into an itemized reputation.
package scoring

import (
	"fmt"
	"strings"

	"github.com/archestra-ai/reputation-bot/internal/domain/model"
	"github.com/archestra-ai/reputation-bot/internal/domain/reactions"
)

// Point values. Not configurable at runtime.
const (
	PointsPRMerged     = 20
	PointsPROpen       = 3
	PointsPRClosed     = -10
	PointsIssueOpened  = 5
	PointsCoreUpvote   = 15
	PointsCoreDownvote = -50
)

// Activity is everything known about one user.
type Activity struct {
	PullRequests []model.PullRequest
	Issues       []model.Issue
	Reactions    []reactions.CoreReaction
	Comments     int
}

// Calculator applies the point table. It holds no state.
type Calculator struct{}

// NewCalculator returns a Calculator.
func NewCalculator() *Calculator { return &Calculator{} }

// Calculate builds login's breakdown. Rules are independent: each PR, issue
// and core reaction yields at most one entry. Items authored by someone else
// are skipped.
func (c *Calculator) Calculate(login string, a Activity) model.Breakdown {
	b := model.Breakdown{Login: login, Comments: a.Comments}

	for _, pr := range a.PullRequests {
		if !sameLogin(pr.Author, login) {
			continue
		}
		b.Entries = append(b.Entries, classifyPR(login, pr))
	}

	for _, is := range a.Issues {
		if !sameLogin(is.Author, login) {
			continue
		}
		b.Entries = append(b.Entries, model.ScorableEvent{
			Kind:   model.ScoreIssueOpened,
			Login:  login,
			Points: PointsIssueOpened,
			Label:  fmt.Sprintf("Issue #%d opened", is.Number),
			Ref:    is.Number,
		})
	}

	for _, r := range a.Reactions {
		if !sameLogin(r.Affected, login) {
			continue
		}
		e := model.ScorableEvent{Login: login, Ref: r.Subject.Number}
		switch r.Polarity {
		case reactions.Upvote:
			e.Kind, e.Points = model.ScoreCoreUpvote, PointsCoreUpvote
			e.Label = fmt.Sprintf("👍 from core member @%s on #%d", r.Member, r.Subject.Number)
		case reactions.Downvote:
			e.Kind, e.Points = model.ScoreCoreDownvote, PointsCoreDownvote
			e.Label = fmt.Sprintf("👎 from core member @%s on #%d", r.Member, r.Subject.Number)
		default:
			continue
		}
		b.Entries = append(b.Entries, e)
	}

	return b
}

// classifyPR maps a pull request onto exactly one kind; merged wins over closed.
func classifyPR(login string, pr model.PullRequest) model.ScorableEvent {
	e := model.ScorableEvent{Login: login, Ref: pr.Number}
	switch {
	case pr.Merged:
		e.Kind, e.Points = model.ScorePRMerged, PointsPRMerged
		e.Label = fmt.Sprintf("PR #%d merged", pr.Number)
	case pr.State == model.PRStateClosed:
		e.Kind, e.Points = model.ScorePRClosed, PointsPRClosed
		e.Label = fmt.Sprintf("PR #%d closed without merge", pr.Number)
	default:
		e.Kind, e.Points = model.ScorePROpen, PointsPROpen
		e.Label = fmt.Sprintf("PR #%d open", pr.Number)
	}
	return e
}

func sameLogin(a, b string) bool { return strings.EqualFold(a, b) }
