package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/formbot/internal/dialogue"
	"github.com/capitalize-ai/formbot/internal/middleware"
	"github.com/capitalize-ai/formbot/internal/model"
	"github.com/capitalize-ai/formbot/internal/service"
	"github.com/capitalize-ai/formbot/pkg/logger"
	"github.com/capitalize-ai/formbot/pkg/metrics"
)

// MaxWebhookBody is the largest webhook body accepted.
const MaxWebhookBody = 1 << 20

// EventHandler processes a parsed webhook event.
type EventHandler interface {
	HandleEvent(ctx context.Context, correlationID string, ev *model.InboundEvent) service.Outcome
}

// WebhookHandler receives Chatwoot webhook deliveries.
type WebhookHandler struct {
	events EventHandler
	logger *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(events EventHandler, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		events: events,
		logger: log,
	}
}

type webhookResponse struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversation_id,omitempty"`
	Intent         string `json:"intent,omitempty"`
	Stage          string `json:"stage,omitempty"`
	Sent           int    `json:"sent"`
	Failed         int    `json:"failed"`
}

// Receive handles POST /webhooks/chatwoot
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := middleware.ValidatePayload(body); err != nil {
		metrics.RecordWebhook("", "malformed")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := dialogue.ParseEvent(body)
	if err != nil {
		metrics.RecordWebhook("", "malformed")
		h.logger.Warn("malformed webhook payload",
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		writeError(w, http.StatusBadRequest, "malformed event payload")
		return
	}

	out := h.events.HandleEvent(ctx, correlationID, ev)
	if out.Dropped {
		writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored"})
		return
	}

	// Delivery failures are still acknowledged so Chatwoot does not retry.
	writeJSON(w, http.StatusOK, webhookResponse{
		Status:         "ok",
		ConversationID: out.ConversationID,
		Intent:         out.Intent,
		Stage:          string(out.Stage),
		Sent:           out.Sent,
		Failed:         out.Failed,
	})
}
