package reactions_test

import (
	"testing"

	"github.com/archestra-ai/reputation-bot/internal/domain/model"
	"github.com/archestra-ai/reputation-bot/internal/domain/reactions"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTracker(t *testing.T) {
	Convey("Given a tracker for alice and bob", t, func() {
		tr := reactions.NewTracker([]string{"Alice", " bob ", ""})
		subject := model.Subject{Number: 7, Author: "carol"}

		Convey("Then membership should be case-insensitive", func() {
			So(tr.Size(), ShouldEqual, 2)
			So(tr.IsCoreMember("alice"), ShouldBeTrue)
			So(tr.IsCoreMember("BOB"), ShouldBeTrue)
			So(tr.IsCoreMember("carol"), ShouldBeFalse)
		})

		Convey("When a core member upvotes the body", func() {
			got := tr.Track(subject, []model.Reaction{
				{ID: 1, User: "alice", Content: model.ReactionPlusOne, Source: model.SourceBody},
			})

			Convey("Then one upvote should affect the body author", func() {
				So(got, ShouldHaveLength, 1)
				So(got[0].Polarity, ShouldEqual, reactions.Upvote)
				So(got[0].Member, ShouldEqual, "alice")
				So(got[0].Affected, ShouldEqual, "carol")
				So(got[0].Subject.Number, ShouldEqual, 7)
			})
		})

		Convey("When the same upvote is on a comment", func() {
			got := tr.Track(subject, []model.Reaction{
				{ID: 1, User: "alice", Content: model.ReactionPlusOne, Source: model.SourceComment},
			})

			Convey("Then it should be ignored", func() {
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When a mix of reactions is tracked", func() {
			got := tr.Track(subject, []model.Reaction{
				{User: "dave", Content: model.ReactionPlusOne, Source: model.SourceBody},
				{User: "bob", Content: "heart", Source: model.SourceBody},
				{User: "bob", Content: model.ReactionMinusOne, Source: model.SourceBody},
				{User: "ALICE", Content: "laugh", Source: model.SourceBody},
			})

			Convey("Then only the core -1 should remain", func() {
				So(got, ShouldHaveLength, 1)
				So(got[0].Polarity, ShouldEqual, reactions.Downvote)
				So(got[0].Member, ShouldEqual, "bob")
			})
		})

		Convey("When a core member reacts to their own issue", func() {
			own := model.Subject{Number: 9, Author: "alice"}
			got := tr.Track(own, []model.Reaction{
				{User: "alice", Content: model.ReactionPlusOne, Source: model.SourceBody},
			})

			Convey("Then the self-reaction should count", func() {
				So(got, ShouldHaveLength, 1)
				So(got[0].Affected, ShouldEqual, "alice")
			})
		})
	})

	Convey("Given an empty core team", t, func() {
		tr := reactions.NewTracker(nil)

		So(tr.Track(model.Subject{Author: "x"}, []model.Reaction{
			{User: "x", Content: model.ReactionPlusOne, Source: model.SourceBody},
		}), ShouldBeEmpty)
	})
}
