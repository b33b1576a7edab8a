package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/archestra-ai/reputation-bot/internal/adapters/github"
	service "github.com/archestra-ai/reputation-bot/internal/app"
	"github.com/archestra-ai/reputation-bot/internal/domain/events"
	"github.com/archestra-ai/reputation-bot/internal/domain/model"
	"github.com/archestra-ai/reputation-bot/internal/domain/types"
	"github.com/archestra-ai/reputation-bot/pkg/logger"
	"github.com/archestra-ai/reputation-bot/pkg/metrics"
)

// GitHub webhook headers.
const (
	HeaderEvent     = "X-GitHub-Event"
	HeaderDelivery  = "X-GitHub-Delivery"
	HeaderSignature = "X-Hub-Signature-256"
)

// GitHub caps webhook payloads at 25 MB.
const maxBodyBytes = 25 << 20

// WebhookOption configures a WebhookHandler.
type WebhookOption func(*WebhookHandler)

// WithSecret enables X-Hub-Signature-256 verification.
func WithSecret(secret string) WebhookOption {
	return func(h *WebhookHandler) {
		h.secret = secret
	}
}

// WithNormalizer replaces the default payload normalizer.
func WithNormalizer(n *events.Normalizer) WebhookOption {
	return func(h *WebhookHandler) {
		if n != nil {
			h.normalizer = n
		}
	}
}

// WithDeliveryIDs replaces the generator used when X-GitHub-Delivery is missing.
func WithDeliveryIDs(next func() string) WebhookOption {
	return func(h *WebhookHandler) {
		if next != nil {
			h.newID = next
		}
	}
}

// WebhookHandler handles GitHub webhook deliveries.
type WebhookHandler struct {
	deps       Dependencies
	secret     string
	normalizer *events.Normalizer
	newID      func() string
	logger     logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(deps Dependencies, opts ...WebhookOption) *WebhookHandler {
	h := &WebhookHandler{
		deps:       deps,
		normalizer: events.NewNormalizer(),
		newID:      uuid.NewString,
		logger:     logger.Get().Named("webhook"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.secret == "" {
		h.logger.Warn(context.Background(), "webhook secret not configured, signatures are not verified")
	}
	return h
}

// HandleWebhook handles POST /webhook requests.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const op = "api.webhook"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	start := time.Now()
	eventType := r.Header.Get(HeaderEvent)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	if h.secret != "" {
		if err := events.Verify(h.secret, body, r.Header.Get(HeaderSignature)); err != nil {
			metrics.RecordSignatureFailure()
			h.logger.Warn(ctx, "rejected delivery", logger.String("event", eventType), logger.Error(err))
			writeError(w, WrapKind(op, ErrUnauthorized, err))
			return
		}
	}

	deliveryID := r.Header.Get(HeaderDelivery)
	if deliveryID == "" {
		deliveryID = h.newID()
		h.logger.Debug(ctx, "delivery id missing, generated one", logger.String("delivery", deliveryID))
	}

	ev, err := h.normalizer.Normalize(eventType, r.Header.Get("Content-Type"), body)
	if err != nil {
		h.respond(w, eventType, start, types.Ignored(err.Error()))
		return
	}
	if ev.Kind == model.KindPing {
		h.respond(w, eventType, start, types.WebhookResponse{Status: types.StatusPong, Delivery: deliveryID})
		return
	}
	ev.DeliveryID = deliveryID

	if h.deps.SeenAndRecord(ctx, deliveryID) {
		h.respond(w, eventType, start, types.WebhookResponse{Status: types.StatusDuplicate, Delivery: deliveryID})
		return
	}

	resp, err := h.deps.Handle(ctx, ev)
	if err != nil {
		h.deps.Unrecord(ctx, deliveryID)
		metrics.RecordWebhookDelivery(eventType, "failed")
		metrics.RecordDeliveryLatency(eventType, float64(time.Since(start).Milliseconds()))
		writeError(w, classifyHandleError(op, err))
		return
	}
	h.respond(w, eventType, start, resp)
}

func (h *WebhookHandler) respond(w http.ResponseWriter, eventType string, start time.Time, resp types.WebhookResponse) {
	metrics.RecordWebhookDelivery(eventType, resp.Status)
	metrics.RecordDeliveryLatency(eventType, float64(time.Since(start).Milliseconds()))
	writeJSON(w, http.StatusOK, resp)
}

// classifyHandleError maps processing failures onto API kinds.
func classifyHandleError(op string, err error) error {
	switch {
	case errors.Is(err, service.ErrBackpressure):
		return WrapKind(op, ErrBackpressure, err)
	case errors.Is(err, github.ErrUpstream),
		errors.Is(err, github.ErrRateLimited),
		errors.Is(err, github.ErrNotFound),
		errors.Is(err, github.ErrAuth):
		return WrapKind(op, ErrUpstream, err)
	default:
		return WrapKind(op, ErrInternal, err)
	}
}
