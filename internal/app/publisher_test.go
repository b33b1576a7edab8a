package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/archestra-ai/reputation-bot/internal/adapters/github"
	"github.com/archestra-ai/reputation-bot/internal/adapters/repository"
	service "github.com/archestra-ai/reputation-bot/internal/app"
	"github.com/archestra-ai/reputation-bot/internal/domain/comment"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPublisher_Upsert(t *testing.T) {
	Convey("Given a publisher with an empty comment index", t, func() {
		ctx := context.Background()
		gh := newFakeGitHub()
		index := repository.NewCommentIndex()
		p := service.NewPublisher(gh, index, func() string { return gh.login })
		body := comment.Marker + "\nfirst"

		Convey("When the thread has no summary yet", func() {
			id, outcome, err := p.Upsert(ctx, 7, body)

			Convey("Then a comment is created and indexed", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, service.OutcomeCreated)
				indexed, err := index.Get(ctx, 7)
				So(err, ShouldBeNil)
				So(indexed, ShouldEqual, id)
			})

			Convey("And a second upsert edits the same comment", func() {
				id2, outcome2, err := p.Upsert(ctx, 7, comment.Marker+"\nsecond")
				So(err, ShouldBeNil)
				So(outcome2, ShouldEqual, service.OutcomeUpdated)
				So(id2, ShouldEqual, id)

				cs := gh.threadComments(7)
				So(cs, ShouldHaveLength, 1)
				So(cs[0].Body, ShouldContainSubstring, "second")
				So(gh.creates, ShouldEqual, 1)
				So(gh.updates, ShouldEqual, 1)
			})
		})

		Convey("When the bot already commented before a restart", func() {
			gh.addComment(7, "alice", "looks good")
			existing := gh.addComment(7, gh.login, comment.Marker+"\nold")
			id, outcome, err := p.Upsert(ctx, 7, body)

			Convey("Then the existing comment is found by its marker and edited", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, service.OutcomeUpdated)
				So(id, ShouldEqual, existing)
				So(gh.creates, ShouldEqual, 0)
			})
		})

		Convey("When a legacy summary was written by the bot", func() {
			existing := gh.addComment(7, gh.login, "## 📊 Reputation Summary\n...")
			id, _, err := p.Upsert(ctx, 7, body)

			Convey("Then it is edited rather than duplicated", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, existing)
			})
		})

		Convey("When a human quotes the footer", func() {
			gh.addComment(7, "alice", "> Generated by Reputation Bot")
			_, outcome, err := p.Upsert(ctx, 7, body)

			Convey("Then the human comment is left alone", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, service.OutcomeCreated)
				So(gh.threadComments(7)[0].Body, ShouldEqual, "> Generated by Reputation Bot")
			})
		})

		Convey("When the indexed comment was deleted", func() {
			So(index.Put(ctx, 7, 424242), ShouldBeNil)
			id, outcome, err := p.Upsert(ctx, 7, body)

			Convey("Then a new comment is created and re-indexed", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, service.OutcomeFallback)
				indexed, err := index.Get(ctx, 7)
				So(err, ShouldBeNil)
				So(indexed, ShouldEqual, id)
			})
		})

		Convey("When listing comments fails", func() {
			gh.listErr = &github.APIError{StatusCode: http.StatusBadGateway}
			_, outcome, err := p.Upsert(ctx, 7, body)

			Convey("Then it falls back to creating a comment", func() {
				So(err, ShouldBeNil)
				So(outcome, ShouldEqual, service.OutcomeFallback)
			})
		})

		Convey("When creating the comment fails", func() {
			gh.createErr = &github.APIError{StatusCode: http.StatusInternalServerError}
			_, _, err := p.Upsert(ctx, 7, body)

			Convey("Then the error is returned", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, github.ErrUpstream), ShouldBeTrue)
				_, getErr := index.Get(ctx, 7)
				So(errors.Is(getErr, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
