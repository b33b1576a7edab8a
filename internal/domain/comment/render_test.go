package comment_test

import (
	"strings"
	"testing"

	"github.com/archestra-ai/reputation-bot/internal/domain/comment"
	"github.com/archestra-ai/reputation-bot/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sample() model.Breakdown {
	return model.Breakdown{
		Login: "alice",
		Entries: []model.ScorableEvent{
			{Kind: model.ScorePRMerged, Points: 20, Label: "PR #1 merged"},
			{Kind: model.ScorePROpen, Points: 3, Label: "PR #2 open"},
			{Kind: model.ScorePRClosed, Points: -10, Label: "PR #3 closed without merge"},
			{Kind: model.ScoreIssueOpened, Points: 5, Label: "Issue #4 opened"},
			{Kind: model.ScoreIssueOpened, Points: 5, Label: "Issue #5 opened"},
			{Kind: model.ScoreCoreUpvote, Points: 15, Label: "👍 from core member @bob on #4"},
		},
		Comments: 4,
	}
}

func TestRenderLine(t *testing.T) {
	Convey("Given a breakdown", t, func() {
		Convey("When rendering the one-line form", func() {
			line := comment.RenderLine(sample())

			Convey("Then it should carry every count", func() {
				So(line, ShouldEqual, "⚡ Rep: 38 | PRs: 1✅/1🔄/1❌ | Activity: 2 issues, 4 comments | Core: +1👍")
			})
		})

		Convey("When there are no core reactions", func() {
			line := comment.RenderLine(model.Breakdown{Login: "bob"})

			Convey("Then it should say so", func() {
				So(line, ShouldEndWith, "Core: No reactions")
			})
		})

		Convey("When there are both up and down votes", func() {
			b := model.Breakdown{Entries: []model.ScorableEvent{
				{Kind: model.ScoreCoreUpvote, Points: 15},
				{Kind: model.ScoreCoreDownvote, Points: -50},
				{Kind: model.ScoreCoreDownvote, Points: -50},
			}}

			So(comment.RenderLine(b), ShouldEndWith, "Core: +1👍 -2👎")
		})
	})
}

func TestRenderSummary(t *testing.T) {
	Convey("Given several participants", t, func() {
		low := model.Breakdown{Login: "zed", Entries: []model.ScorableEvent{{Kind: model.ScoreIssueOpened, Points: 5, Label: "Issue #9 opened"}}}
		tieA := model.Breakdown{Login: "amy"}
		tieB := model.Breakdown{Login: "Bea"}

		Convey("When rendering the summary", func() {
			body := comment.RenderSummary([]model.Breakdown{tieB, low, sample(), tieA})

			Convey("Then it should be marked and footed", func() {
				So(comment.IsBotComment(body), ShouldBeTrue)
				So(body, ShouldStartWith, comment.Marker)
				So(body, ShouldEndWith, comment.Footer)
			})

			Convey("Then rows should be sorted by total then login", func() {
				alice := strings.Index(body, "| **@alice**")
				zed := strings.Index(body, "| **@zed**")
				amy := strings.Index(body, "| **@amy**")
				bea := strings.Index(body, "| **@Bea**")
				So(alice, ShouldBeGreaterThan, 0)
				So(alice, ShouldBeLessThan, zed)
				So(zed, ShouldBeLessThan, amy)
				So(amy, ShouldBeLessThan, bea)
			})

			Convey("Then rows should carry counts", func() {
				So(body, ShouldContainSubstring, "| **@alice** | ⚡ 38 | 1✅ 1🔄 1❌ | 2 issues, 4 comments | +1👍 |")
				So(body, ShouldContainSubstring, "| **@amy** | ⚡ 0 | 0✅ 0🔄 0❌ | 0 issues, 0 comments | - |")
			})

			Convey("Then itemized details should be listed for users with entries", func() {
				So(body, ShouldContainSubstring, "<summary>@alice: 38 points</summary>")
				So(body, ShouldContainSubstring, "- PR #3 closed without merge: -10")
				So(body, ShouldNotContainSubstring, "<summary>@amy")
			})
		})

		Convey("When the input order changes", func() {
			a := comment.RenderSummary([]model.Breakdown{low, tieA, tieB})
			b := comment.RenderSummary([]model.Breakdown{tieB, tieA, low})

			Convey("Then the output should not", func() {
				So(a, ShouldEqual, b)
			})
		})
	})
}

func TestRenderBreakdown(t *testing.T) {
	Convey("Given one user's breakdown", t, func() {
		body := comment.RenderBreakdown(sample())

		Convey("Then it should hold the line and every entry", func() {
			So(body, ShouldContainSubstring, "Reputation for @alice")
			So(body, ShouldContainSubstring, comment.RenderLine(sample()))
			So(body, ShouldContainSubstring, "- PR #1 merged: +20")
			So(comment.IsBotComment(body), ShouldBeTrue)
		})

		Convey("Then an empty breakdown should say nothing is scored", func() {
			So(comment.RenderBreakdown(model.Breakdown{Login: "new"}), ShouldContainSubstring, "No scored activity yet")
		})
	})
}

func TestIsBotComment(t *testing.T) {
	Convey("Given comment bodies", t, func() {
		So(comment.IsBotComment("hello "+comment.Marker), ShouldBeTrue)
		So(comment.IsBotComment("⚡ Rep: 5\n\n_Generated by Reputation Bot_"), ShouldBeTrue)
		So(comment.IsBotComment("_Generated by [Reputation Bot](https://x)_"), ShouldBeTrue)
		So(comment.IsBotComment("## 📊 Reputation Summary\n\n| User | Rep |"), ShouldBeTrue)
		So(comment.IsBotComment("Could the Reputation Summary skip bots?"), ShouldBeFalse)
		So(comment.IsBotComment("> ## 📊 Reputation Summary\nwhy am I missing?"), ShouldBeFalse)
		So(comment.IsBotComment("LGTM, thanks!"), ShouldBeFalse)
		So(comment.IsBotComment(""), ShouldBeFalse)
	})
}
