// Package worker runs the pool that scores users off the queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/archestra-ai/reputation-bot/internal/adapters/mq/queue"
	"github.com/archestra-ai/reputation-bot/internal/domain/model"
	"github.com/archestra-ai/reputation-bot/pkg/logger"
	"github.com/archestra-ai/reputation-bot/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Scorer collects a user's activity and scores it.
type Scorer interface {
	Score(ctx context.Context, login string, known ...model.PullRequest) (model.Breakdown, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs and replies to their senders.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	scorer Scorer
	name   string

	processed *atomic.Int64
	failed    *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer Scorer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		scorer:    scorer,
		name:      "worker",
		processed: new(atomic.Int64),
		failed:    new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(j)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process scores one login and replies. The reply channel must be buffered;
// a sender that stopped listening is not waited for.
func (w *InMemoryWorker) process(j Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	ctx := j.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	res := model.ScoreResult{Login: j.Login}
	if err := ctx.Err(); err != nil {
		res.Err = err
	} else {
		res.Breakdown, res.Err = w.scorer.Score(ctx, j.Login, j.Known...)
	}
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))

	if res.Err != nil {
		w.failed.Add(1)
		metrics.RecordErrorByComponent("worker", "score_failed")
		w.logger.Warn(ctx, "score failed", logger.String("login", j.Login), logger.Error(res.Err))
	} else {
		w.processed.Add(1)
	}

	select {
	case j.Reply <- res:
	default:
		w.logger.Warn(ctx, "score reply dropped", logger.String("login", j.Login))
	}
}

// Stats are cumulative pool counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	failed    atomic.Int64

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, scorer Scorer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(q, scorer, WithName("worker-"+strconv.Itoa(i)))
		w.processed = &pool.processed
		w.failed = &pool.failed
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// startMetricsUpdater samples the queue depth until the pool stops.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	lenner, ok := p.queue.(interface{ Len(context.Context) int })
	if !ok {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			metrics.UpdateQueueSize(lenner.Len(ctx))
		}
	}
}

// Stats returns cumulative counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}

	metrics.UpdateWorkerCount(0)
	return nil
}
