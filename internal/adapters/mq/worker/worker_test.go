package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	queue "github.com/archestra-ai/reputation-bot/internal/adapters/mq/queue"
	worker "github.com/archestra-ai/reputation-bot/internal/adapters/mq/worker"
	model "github.com/archestra-ai/reputation-bot/internal/domain/model"
	logging "github.com/archestra-ai/reputation-bot/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockScorer struct {
	mu     sync.RWMutex
	totals map[string]int
	errors map[string]error
	calls  atomic.Int32
	delay  time.Duration
}

func newMockScorer() *mockScorer {
	return &mockScorer{totals: map[string]int{}, errors: map[string]error{}}
}

func (ms *mockScorer) Score(ctx context.Context, login string, _ ...model.PullRequest) (model.Breakdown, error) {
	ms.calls.Add(1)
	if ms.delay > 0 {
		select {
		case <-time.After(ms.delay):
		case <-ctx.Done():
			return model.Breakdown{}, ctx.Err()
		}
	}
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if err, ok := ms.errors[login]; ok {
		return model.Breakdown{}, err
	}
	return model.Breakdown{
		Login:   login,
		Entries: []model.ScorableEvent{{Kind: model.ScoreIssueOpened, Points: ms.totals[login]}},
	}, nil
}

func (ms *mockScorer) setError(login string, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.errors[login] = err
}

func submit(ctx context.Context, q *queue.InMemoryQueue, login string) <-chan model.ScoreResult {
	reply := make(chan model.ScoreResult, 1)
	convey.So(q.Enqueue(ctx, model.ScoreJob{Ctx: ctx, Login: login, Reply: reply}), convey.ShouldBeTrue)
	return reply
}

func await(reply <-chan model.ScoreResult) model.ScoreResult {
	select {
	case r := <-reply:
		return r
	case <-time.After(2 * time.Second):
		return model.ScoreResult{Err: errors.New("timed out waiting for reply")}
	}
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a started pool of two workers", t, func() {
		_ = logging.Init()
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		scorer := newMockScorer()
		scorer.totals["alice"] = 23
		pool := worker.NewPool(2, q, scorer)
		pool.Start(ctx)

		convey.Convey("When a job is submitted", func() {
			res := await(submit(ctx, q, "alice"))

			convey.Convey("Then the breakdown should come back on the reply channel", func() {
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.Login, convey.ShouldEqual, "alice")
				convey.So(res.Breakdown.Total(), convey.ShouldEqual, 23)
			})
		})

		convey.Convey("When scoring fails", func() {
			boom := errors.New("github down")
			scorer.setError("bob", boom)
			res := await(submit(ctx, q, "bob"))

			convey.Convey("Then the error should be returned and counted", func() {
				convey.So(errors.Is(res.Err, boom), convey.ShouldBeTrue)
				convey.So(pool.Stats().Failed, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the job's context is already cancelled", func() {
			jobCtx, cancel := context.WithCancel(ctx)
			cancel()
			reply := make(chan model.ScoreResult, 1)
			convey.So(q.Enqueue(ctx, model.ScoreJob{Ctx: jobCtx, Login: "carol", Reply: reply}), convey.ShouldBeTrue)
			res := await(reply)

			convey.Convey("Then the scorer should not be called", func() {
				convey.So(errors.Is(res.Err, context.Canceled), convey.ShouldBeTrue)
				convey.So(scorer.calls.Load(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When many jobs are submitted", func() {
			replies := make([]<-chan model.ScoreResult, 10)
			for i := range replies {
				replies[i] = submit(ctx, q, fmt.Sprintf("user-%d", i))
			}
			for _, r := range replies {
				convey.So(await(r).Err, convey.ShouldBeNil)
			}

			convey.Convey("Then every job should be processed once", func() {
				convey.So(pool.Stats().Processed, convey.ShouldEqual, 10)
				convey.So(pool.Stats().Workers, convey.ShouldEqual, 2)
			})
		})

		convey.Reset(func() {
			_ = pool.Shutdown(ctx)
		})
	})

	convey.Convey("Given a pool with queued work at shutdown", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		scorer := newMockScorer()
		scorer.delay = 5 * time.Millisecond
		pool := worker.NewPool(1, q, scorer)
		pool.Start(ctx)

		replies := []<-chan model.ScoreResult{submit(ctx, q, "a"), submit(ctx, q, "b"), submit(ctx, q, "c")}
		err := pool.Shutdown(ctx)

		convey.Convey("Then shutdown should drain the queue before returning", func() {
			convey.So(err, convey.ShouldBeNil)
			for _, r := range replies {
				convey.So(await(r).Err, convey.ShouldBeNil)
			}
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
		})
	})
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a single worker", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		convey.Reset(cancel)
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		w := worker.NewInMemoryWorker(q, newMockScorer(), worker.WithName("solo"), worker.WithLogger(logging.Named("test")))
		go w.Run(ctx)

		convey.Convey("When a job without a listener is processed", func() {
			full := make(chan model.ScoreResult) // unbuffered, nobody reading
			convey.So(q.Enqueue(ctx, model.ScoreJob{Ctx: ctx, Login: "x", Reply: full}), convey.ShouldBeTrue)
			res := await(submit(ctx, q, "y"))

			convey.Convey("Then the worker should not block on the reply", func() {
				convey.So(res.Err, convey.ShouldBeNil)
				convey.So(res.Login, convey.ShouldEqual, "y")
			})
		})

		convey.Convey("When shut down", func() {
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}
