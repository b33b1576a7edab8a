// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/archestra-ai/reputation-bot/internal/adapters/mq/queue"
	workerpool "github.com/archestra-ai/reputation-bot/internal/adapters/mq/worker"
	repository "github.com/archestra-ai/reputation-bot/internal/adapters/repository"
	"github.com/archestra-ai/reputation-bot/internal/domain/comment"
	"github.com/archestra-ai/reputation-bot/internal/domain/dedupe"
	"github.com/archestra-ai/reputation-bot/internal/domain/model"
	"github.com/archestra-ai/reputation-bot/internal/domain/reactions"
	"github.com/archestra-ai/reputation-bot/internal/domain/types"
	"github.com/archestra-ai/reputation-bot/pkg/logger"
	"github.com/archestra-ai/reputation-bot/pkg/metrics"
)

// Service turns normalized webhook events into published reputation comments.
type Service struct {
	mu sync.RWMutex

	gh GitHub

	// Core components
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	pool      *workerpool.Pool
	index     repository.Store
	tracker   *reactions.Tracker
	collector *Collector
	publisher *Publisher

	// Configuration
	repository        string
	coreTeam          []string
	ignoredLogins     map[string]struct{}
	workerCount       int
	queueSize         int
	dedupeSize        int
	searchLimit       int
	commenterLimit    int
	reactionScanLimit int
	maxComments       int
	maxParticipants   int

	botLogin atomic.Value // string

	processed atomic.Int64
	ignored   atomic.Int64
	failed    atomic.Int64

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRepository sets the "owner/name" the bot serves.
func WithRepository(repo string) Option {
	return func(s *Service) {
		if repo = strings.TrimSpace(repo); repo != "" {
			s.repository = repo
		}
	}
}

// WithCoreTeam sets the logins whose reactions carry points.
func WithCoreTeam(logins []string) Option {
	return func(s *Service) {
		s.coreTeam = logins
	}
}

// WithBotLogin sets the bot's own login. When empty it is discovered on Start.
func WithBotLogin(login string) Option {
	return func(s *Service) {
		s.botLogin.Store(strings.TrimSpace(login))
	}
}

// WithIgnoredLogins excludes logins from participant summaries.
func WithIgnoredLogins(logins []string) Option {
	return func(s *Service) {
		for _, l := range logins {
			if l = strings.TrimSpace(l); l != "" {
				s.ignoredLogins[strings.ToLower(l)] = struct{}{}
			}
		}
	}
}

// WithWorkerCount sets the number of scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the scoring queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many delivery IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithFetchLimits sets the per-user GitHub fetch caps.
func WithFetchLimits(search, commenter, reactionScan int) Option {
	return func(s *Service) {
		if search > 0 {
			s.searchLimit = search
		}
		if commenter > 0 {
			s.commenterLimit = commenter
		}
		if reactionScan > 0 {
			s.reactionScanLimit = reactionScan
		}
	}
}

// WithParticipantLimits sets how many thread comments are read and how many
// participants are scored.
func WithParticipantLimits(maxComments, maxParticipants int) Option {
	return func(s *Service) {
		if maxComments > 0 {
			s.maxComments = maxComments
		}
		if maxParticipants > 0 {
			s.maxParticipants = maxParticipants
		}
	}
}

// WithCommentIndex replaces the in-memory comment index.
func WithCommentIndex(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.index = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(gh GitHub, opts ...Option) *Service {
	s := &Service{
		gh:                gh,
		repository:        "archestra-ai/archestra",
		ignoredLogins:     make(map[string]struct{}),
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         256,
		dedupeSize:        10_000,
		searchLimit:       100,
		commenterLimit:    50,
		reactionScanLimit: 30,
		maxComments:       30,
		maxParticipants:   10,
	}
	s.botLogin.Store("")

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.gh == nil {
		return fmt.Errorf("start service: %w", ErrNoGitHub)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting reputation service...", logger.String("repository", s.repository))

	if s.index == nil {
		s.index = repository.NewCommentIndex()
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)
	s.tracker = reactions.NewTracker(s.coreTeam)
	s.collector = NewCollector(s.gh, s.repository, s.tracker,
		WithSearchLimit(s.searchLimit),
		WithCommenterLimit(s.commenterLimit),
		WithReactionScanLimit(s.reactionScanLimit),
	)
	s.publisher = NewPublisher(s.gh, s.index, s.BotLogin)

	if s.BotLogin() == "" {
		s.discoverBotLogin(ctx)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.collector)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "reputation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("coreTeam", s.tracker.Size()),
		logger.String("botLogin", s.BotLogin()),
	)

	return nil
}

// discoverBotLogin asks GitHub who the bot is. Failure only weakens
// self-detection to the comment marker, so it is logged and ignored.
func (s *Service) discoverBotLogin(ctx context.Context) {
	lookupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	login, err := s.gh.AuthenticatedLogin(lookupCtx)
	if err != nil {
		s.logger.Warn(ctx, "could not determine bot login", logger.Error(err))
		return
	}
	s.botLogin.Store(login)
}

// Stop drains the scoring queue and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping reputation service...")

	err := s.pool.Shutdown(ctx)
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "reputation service stopped")
	if err != nil {
		return fmt.Errorf("stop service: %w", err)
	}
	return nil
}

// BotLogin returns the bot's own login, or "" when unknown.
func (s *Service) BotLogin() string {
	v, _ := s.botLogin.Load().(string)
	return v
}

// SeenAndRecord atomically checks if a delivery id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	if s.deduper == nil {
		return false
	}
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordDuplicateDelivery()
	}
	return seen
}

// Unrecord forgets a delivery id so GitHub's redelivery is processed.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if s.deduper == nil {
		return
	}
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of remembered delivery ids.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Handle applies the event rules and publishes the resulting comment.
// No-op cases are returned as an ignored response with a nil error.
func (s *Service) Handle(ctx context.Context, ev model.Event) (types.WebhookResponse, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return types.WebhookResponse{}, ErrNotStarted
	}

	log := s.logger.With(
		logger.String("delivery", ev.DeliveryID),
		logger.String("event", string(ev.Kind)),
		logger.String("action", ev.Action),
		logger.Int("thread", ev.Thread()),
	)

	resp, err := s.handle(ctx, ev)
	switch {
	case err != nil:
		s.failed.Add(1)
		log.Error(ctx, "delivery failed", logger.Error(err))
	case resp.Status == types.StatusIgnored:
		s.ignored.Add(1)
		log.Debug(ctx, "delivery ignored", logger.String("reason", resp.Reason))
	default:
		s.processed.Add(1)
		log.Info(ctx, "summary published",
			logger.String("outcome", resp.Outcome),
			logger.Int64("comment_id", resp.CommentID),
			logger.Strings("participants", resp.Participants),
		)
	}
	resp.Delivery = ev.DeliveryID
	return resp, err
}

func (s *Service) handle(ctx context.Context, ev model.Event) (types.WebhookResponse, error) {
	if !strings.EqualFold(ev.Repository, s.repository) {
		return types.Ignored("repository not served"), nil
	}

	var (
		logins []string
		known  []model.PullRequest
		render func([]model.Breakdown) string
		err    error
	)
	switch ev.Kind {
	case model.KindPullRequest:
		if s.isIgnored(ev.Target.Author) {
			return types.Ignored("author is ignored"), nil
		}
		logins = []string{ev.Target.Author}
		if pr, ok := ev.Target.PullRequest(); ok {
			known = append(known, pr)
		}
		render = func(bs []model.Breakdown) string { return comment.RenderBreakdown(bs[0]) }
	case model.KindIssueComment:
		if comment.IsBotComment(ev.CommentBody) || s.isSelf(ev.CommentAuthor) {
			return types.Ignored("comment written by the bot"), nil
		}
		fallthrough
	case model.KindIssues:
		if logins, err = s.participants(ctx, ev); err != nil {
			return types.WebhookResponse{}, err
		}
		render = comment.RenderSummary
	default:
		return types.Ignored("unsupported event"), nil
	}
	if len(logins) == 0 {
		return types.Ignored("no participants"), nil
	}

	breakdowns, err := s.scoreAll(ctx, logins, known)
	if err != nil {
		return types.WebhookResponse{}, err
	}

	id, outcome, err := s.publisher.Upsert(ctx, ev.Thread(), render(breakdowns))
	if err != nil {
		return types.WebhookResponse{}, err
	}
	return types.WebhookResponse{
		Status:       types.StatusProcessed,
		Thread:       ev.Thread(),
		CommentID:    id,
		Outcome:      string(outcome),
		Participants: logins,
	}, nil
}

// participants returns the thread author followed by distinct comment
// authors, in thread order, capped at maxParticipants.
func (s *Service) participants(ctx context.Context, ev model.Event) ([]string, error) {
	seen := make(map[string]struct{})
	out := make([]string, 0, s.maxParticipants)
	add := func(login string) {
		if len(out) >= s.maxParticipants || login == "" || s.isIgnored(login) {
			return
		}
		key := strings.ToLower(login)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, login)
	}

	add(ev.Target.Author)

	comments, err := s.gh.ListComments(ctx, ev.Thread(), s.maxComments)
	if err != nil {
		return nil, fmt.Errorf("list comments on #%d: %w", ev.Thread(), err)
	}
	for _, c := range comments {
		if comment.IsBotComment(c.Body) {
			continue
		}
		add(c.Author)
	}
	// The listing can lag behind the webhook.
	add(ev.CommentAuthor)

	metrics.RecordParticipants(len(out))
	return out, nil
}

// scoreAll fans logins out to the worker pool and waits for every result.
// One failure fails the whole delivery.
func (s *Service) scoreAll(ctx context.Context, logins []string, known []model.PullRequest) ([]model.Breakdown, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	replies := make([]chan model.ScoreResult, len(logins))
	for i, login := range logins {
		reply := make(chan model.ScoreResult, 1)
		replies[i] = reply
		if !s.queue.Enqueue(jobCtx, model.ScoreJob{Ctx: jobCtx, Login: login, Known: known, Reply: reply}) {
			return nil, fmt.Errorf("score %s: %w", login, ErrBackpressure)
		}
	}

	out := make([]model.Breakdown, len(logins))
	for i, reply := range replies {
		select {
		case r := <-reply:
			if r.Err != nil {
				return nil, fmt.Errorf("score %s: %w", logins[i], r.Err)
			}
			out[i] = r.Breakdown
		case <-ctx.Done():
			return nil, fmt.Errorf("score %s: %w", logins[i], ctx.Err())
		}
	}
	return out, nil
}

func (s *Service) isSelf(login string) bool {
	self := s.BotLogin()
	return self != "" && strings.EqualFold(login, self)
}

func (s *Service) isIgnored(login string) bool {
	if strings.HasSuffix(strings.ToLower(login), "[bot]") || s.isSelf(login) {
		return true
	}
	_, ok := s.ignoredLogins[strings.ToLower(login)]
	return ok
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	st := types.Stats{
		Started:       s.started,
		Repository:    s.repository,
		BotLogin:      s.BotLogin(),
		Workers:       s.workerCount,
		QueueCapacity: s.queueSize,
		Processed:     s.processed.Load(),
		Ignored:       s.ignored.Load(),
		Failed:        s.failed.Load(),
	}
	if s.tracker != nil {
		st.CoreTeamSize = s.tracker.Size()
	}
	if s.deduper != nil {
		st.DedupeEntries = s.deduper.Size()
	}
	if s.index != nil {
		st.IndexedThreads = s.index.Count(ctx)
	}
	if s.started {
		st.QueueLength = s.queue.Len(ctx)
		ps := s.pool.Stats()
		st.Scored = ps.Processed
		st.ScoreFailures = ps.Failed
		metrics.UpdateQueueSize(st.QueueLength)
	}
	return st
}
