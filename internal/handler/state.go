package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/formbot/internal/middleware"
	"github.com/capitalize-ai/formbot/internal/model"
	"github.com/capitalize-ai/formbot/internal/state"
	"github.com/capitalize-ai/formbot/pkg/logger"
)

// StateService reads and resets stored conversation stages.
type StateService interface {
	ConversationState(ctx context.Context, conversationID string) (model.ConversationState, error)
	ResetConversation(ctx context.Context, conversationID string) error
	ForgetConversation(ctx context.Context, conversationID string) error
}

// StateHandler serves the admin conversation-state API.
type StateHandler struct {
	service StateService
	logger  *logger.Logger
}

// NewStateHandler creates a new state handler.
func NewStateHandler(svc StateService, log *logger.Logger) *StateHandler {
	return &StateHandler{
		service: svc,
		logger:  log,
	}
}

// Get handles GET /api/v1/conversations/{id}/state
func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.service.ConversationState(r.Context(), id)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation state not found")
			return
		}
		h.logger.Error("failed to get conversation state",
			zap.String("conversation_id", id),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to get conversation state")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// Reset handles DELETE /api/v1/conversations/{id}/state
func (h *StateHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.ResetConversation(r.Context(), id); err != nil {
		h.logger.Error("failed to reset conversation state",
			zap.String("conversation_id", id),
			zap.String("user_id", middleware.GetUserID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to reset conversation state")
		return
	}

	h.logger.Info("conversation state reset by admin",
		zap.String("conversation_id", id),
		zap.String("user_id", middleware.GetUserID(r.Context())),
	)
	w.WriteHeader(http.StatusNoContent)
}

// Forget handles DELETE /api/v1/conversations/{id}
func (h *StateHandler) Forget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.ForgetConversation(r.Context(), id); err != nil {
		h.logger.Error("failed to forget conversation",
			zap.String("conversation_id", id),
			zap.String("user_id", middleware.GetUserID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to forget conversation")
		return
	}

	h.logger.Info("conversation forgotten by admin",
		zap.String("conversation_id", id),
		zap.String("user_id", middleware.GetUserID(r.Context())),
	)
	w.WriteHeader(http.StatusNoContent)
}
