package service_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/archestra-ai/reputation-bot/internal/adapters/github"
	service "github.com/archestra-ai/reputation-bot/internal/app"
	"github.com/archestra-ai/reputation-bot/internal/domain/comment"
	"github.com/archestra-ai/reputation-bot/internal/domain/model"
	"github.com/archestra-ai/reputation-bot/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func startService(gh *fakeGitHub, opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithRepository(repo),
		service.WithWorkerCount(2),
		service.WithQueueSize(16),
	}, opts...)
	svc := service.New(gh, opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	Reset(func() {
		_ = svc.Stop(context.Background())
	})
	return svc
}

func prEvent(number int, author, action string) model.Event {
	return model.Event{
		Kind:       model.KindPullRequest,
		Action:     action,
		Actor:      author,
		Repository: repo,
		DeliveryID: "d-pr",
		Target:     model.Target{Number: number, Author: author, IsPullRequest: true},
	}
}

func issueEvent(number int, author string) model.Event {
	return model.Event{
		Kind:       model.KindIssues,
		Action:     model.ActionOpened,
		Actor:      author,
		Repository: repo,
		DeliveryID: "d-issue",
		Target:     model.Target{Number: number, Author: author},
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New(newFakeGitHub())

		Convey("Then Handle refuses work", func() {
			_, err := svc.Handle(context.Background(), issueEvent(1, "alice"))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("And stats report it as stopped", func() {
			st := svc.GetStats()
			So(st.Started, ShouldBeFalse)
			So(st.Repository, ShouldEqual, "archestra-ai/archestra")
		})

		Convey("And Start without a client fails", func() {
			So(errors.Is(service.New(nil).Start(context.Background()), service.ErrNoGitHub), ShouldBeTrue)
		})
	})
}

func TestService_PullRequest(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		gh := newFakeGitHub()
		gh.prs["alice"] = []github.SearchItem{pr(12, "alice", "open", false), pr(3, "alice", "closed", true)}
		svc := startService(gh)

		Convey("Then the bot login is discovered", func() {
			So(svc.BotLogin(), ShouldEqual, "repbot[bot]")
		})

		Convey("When a pull request is opened", func() {
			resp, err := svc.Handle(ctx, prEvent(12, "alice", model.ActionOpened))

			Convey("Then a single-user breakdown is posted on the PR", func() {
				So(err, ShouldBeNil)
				So(resp.Status, ShouldEqual, types.StatusProcessed)
				So(resp.Delivery, ShouldEqual, "d-pr")
				So(resp.Outcome, ShouldEqual, string(service.OutcomeCreated))
				So(resp.Participants, ShouldResemble, []string{"alice"})

				cs := gh.threadComments(12)
				So(cs, ShouldHaveLength, 1)
				So(cs[0].Body, ShouldContainSubstring, "Reputation for @alice")
				So(cs[0].Body, ShouldContainSubstring, "⚡ Rep: 23")
			})

			Convey("And processing the same event again edits that comment", func() {
				resp2, err := svc.Handle(ctx, prEvent(12, "alice", model.ActionOpened))
				So(err, ShouldBeNil)
				So(resp2.Outcome, ShouldEqual, string(service.OutcomeUpdated))
				So(resp2.CommentID, ShouldEqual, resp.CommentID)
				So(gh.threadComments(12), ShouldHaveLength, 1)
			})
		})

		Convey("When the PR author is a bot", func() {
			resp, err := svc.Handle(ctx, prEvent(13, "dependabot[bot]", model.ActionOpened))

			Convey("Then nothing is posted", func() {
				So(err, ShouldBeNil)
				So(resp.Status, ShouldEqual, types.StatusIgnored)
				So(gh.threadComments(13), ShouldBeEmpty)
			})
		})

		Convey("When the event belongs to another repository", func() {
			ev := prEvent(12, "alice", model.ActionOpened)
			ev.Repository = "someone/else"
			resp, err := svc.Handle(ctx, ev)

			Convey("Then it is ignored", func() {
				So(err, ShouldBeNil)
				So(resp.Status, ShouldEqual, types.StatusIgnored)
				So(svc.GetStats().Ignored, ShouldEqual, 1)
			})
		})

		Convey("When a merge arrives before search has caught up", func() {
			ev := prEvent(12, "alice", model.ActionClosed)
			ev.Target.State = model.PRStateClosed
			ev.Target.Merged = true
			_, err := svc.Handle(ctx, ev)

			Convey("Then the delivery's merge state wins", func() {
				So(err, ShouldBeNil)
				body := gh.threadComments(12)[0].Body
				So(body, ShouldContainSubstring, "PR #12 merged: +20")
				So(body, ShouldNotContainSubstring, "PR #12 open")
				So(body, ShouldContainSubstring, "⚡ Rep: 40")
			})
		})

		Convey("When a freshly opened PR is not indexed yet", func() {
			ev := prEvent(14, "alice", model.ActionOpened)
			ev.Target.State = model.PRStateOpen
			_, err := svc.Handle(ctx, ev)

			Convey("Then it is still counted", func() {
				So(err, ShouldBeNil)
				body := gh.threadComments(14)[0].Body
				So(body, ShouldContainSubstring, "PR #14 open: +3")
				So(body, ShouldContainSubstring, "⚡ Rep: 26")
			})
		})
	})
}

func TestService_Participants(t *testing.T) {
	Convey("Given an issue thread with several commenters", t, func() {
		ctx := context.Background()
		gh := newFakeGitHub()
		gh.issues["alice"] = []github.SearchItem{issue(40, "alice")}
		gh.prs["bob"] = []github.SearchItem{pr(2, "bob", "closed", true)}
		gh.addComment(40, "bob", "me too")
		gh.addComment(40, "dependabot[bot]", "bump")
		gh.addComment(40, "London-Cat", "meow")
		gh.addComment(40, "ALICE", "thanks")
		gh.addComment(40, "carol", "+1")
		svc := startService(gh, service.WithIgnoredLogins([]string{"london-cat"}))

		Convey("When the issue is opened", func() {
			resp, err := svc.Handle(ctx, issueEvent(40, "alice"))

			Convey("Then bots, ignored logins and duplicates are dropped", func() {
				So(err, ShouldBeNil)
				So(resp.Participants, ShouldResemble, []string{"alice", "bob", "carol"})
			})

			Convey("And a summary table sorted by score is posted", func() {
				var summary string
				for _, c := range gh.threadComments(40) {
					if comment.IsBotComment(c.Body) {
						summary = c.Body
					}
				}
				So(summary, ShouldContainSubstring, "Reputation Summary")
				So(summary, ShouldContainSubstring, "@bob")
				So(summary, ShouldNotContainSubstring, "dependabot")
				So(strings.Index(summary, "@bob"), ShouldBeLessThan, strings.Index(summary, "@alice"))
			})
		})

		Convey("When participants exceed the cap", func() {
			svc2 := startService(gh, service.WithParticipantLimits(30, 2))
			resp, err := svc2.Handle(ctx, issueEvent(40, "alice"))

			Convey("Then only the first ones are scored", func() {
				So(err, ShouldBeNil)
				So(resp.Participants, ShouldResemble, []string{"alice", "bob"})
			})
		})

		Convey("When the bot's own summary triggers issue_comment", func() {
			ev := issueEvent(40, "alice")
			ev.Kind = model.KindIssueComment
			ev.Action = model.ActionCreated
			ev.CommentAuthor = "repbot[bot]"
			ev.CommentBody = comment.Marker + "\n..."
			resp, err := svc.Handle(ctx, ev)

			Convey("Then it is ignored", func() {
				So(err, ShouldBeNil)
				So(resp.Status, ShouldEqual, types.StatusIgnored)
			})
		})

		Convey("When a person writes about the summary", func() {
			gh.addComment(40, "erin", "Should the Reputation Summary count reviews?")
			ev := issueEvent(40, "alice")
			ev.Kind = model.KindIssueComment
			ev.Action = model.ActionCreated
			ev.CommentAuthor = "erin"
			ev.CommentBody = "Should the Reputation Summary count reviews?"
			resp, err := svc.Handle(ctx, ev)

			Convey("Then the comment triggers a summary and its author takes part", func() {
				So(err, ShouldBeNil)
				So(resp.Status, ShouldEqual, types.StatusProcessed)
				So(resp.Participants, ShouldResemble, []string{"alice", "bob", "carol", "erin"})
			})
		})

		Convey("When a new commenter is not yet listed", func() {
			ev := issueEvent(40, "alice")
			ev.Kind = model.KindIssueComment
			ev.Action = model.ActionCreated
			ev.CommentAuthor = "dave"
			ev.CommentBody = "late to the party"
			resp, err := svc.Handle(ctx, ev)

			Convey("Then the comment author is still included", func() {
				So(err, ShouldBeNil)
				So(resp.Participants, ShouldContain, "dave")
			})
		})

		Convey("When GitHub fails while listing comments", func() {
			gh.listErr = &github.APIError{StatusCode: http.StatusBadGateway}
			_, err := svc.Handle(ctx, issueEvent(40, "alice"))

			Convey("Then the delivery fails with an upstream error", func() {
				So(errors.Is(err, github.ErrUpstream), ShouldBeTrue)
				So(svc.GetStats().Failed, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service with one worker and a queue of one", t, func() {
		gh := newFakeGitHub()
		gh.gate = make(chan struct{})
		gh.addComment(50, "bob", "hi")
		gh.addComment(50, "carol", "hi")
		svc := startService(gh, service.WithWorkerCount(1), service.WithQueueSize(1))
		Reset(func() { close(gh.gate) })

		Convey("When three participants need scoring at once", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := svc.Handle(ctx, issueEvent(50, "alice"))

			Convey("Then the delivery is rejected with backpressure", func() {
				So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
			})
		})
	})
}

func TestService_Dedupe(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startService(newFakeGitHub())

		Convey("When a delivery is recorded", func() {
			So(svc.SeenAndRecord(ctx, "d-1"), ShouldBeFalse)

			Convey("Then a redelivery is a duplicate", func() {
				So(svc.SeenAndRecord(ctx, "d-1"), ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 1)
			})

			Convey("And an unrecorded delivery is processed again", func() {
				svc.Unrecord(ctx, "d-1")
				So(svc.SeenAndRecord(ctx, "d-1"), ShouldBeFalse)
			})
		})

		Convey("Then stats expose the running configuration", func() {
			st := svc.GetStats()
			So(st.Started, ShouldBeTrue)
			So(st.Workers, ShouldEqual, 2)
			So(st.QueueCapacity, ShouldEqual, 16)
			So(st.BotLogin, ShouldEqual, "repbot[bot]")
		})
	})
}
