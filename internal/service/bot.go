// Package service provides the webhook processing pipeline of the form bot.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/formbot/internal/dialogue"
	"github.com/capitalize-ai/formbot/internal/model"
	"github.com/capitalize-ai/formbot/internal/state"
	"github.com/capitalize-ai/formbot/pkg/logger"
	"github.com/capitalize-ai/formbot/pkg/metrics"
	"github.com/capitalize-ai/formbot/pkg/tracing"
)

// Sender delivers one outbound message to the chat platform.
type Sender interface {
	Deliver(ctx context.Context, msg model.OutboundMessage) error
}

// Relay forwards submissions and dialogue events to downstream consumers.
type Relay interface {
	PublishSubmission(ctx context.Context, sub *model.FormSubmission) (uint64, error)
	PublishEvent(ctx context.Context, event *model.DialogueEvent) (uint64, error)
}

// NopRelay discards everything. Used when NATS is disabled.
type NopRelay struct{}

func (NopRelay) PublishSubmission(context.Context, *model.FormSubmission) (uint64, error) {
	return 0, nil
}

func (NopRelay) PublishEvent(context.Context, *model.DialogueEvent) (uint64, error) {
	return 0, nil
}

// Outcome summarises what happened to one webhook delivery.
type Outcome struct {
	Dropped        bool
	ConversationID string
	Intent         string
	Stage          model.Stage
	Sent           int
	Failed         int
}

// BotService runs classify, route, deliver, persist and relay for each event.
type BotService struct {
	router *dialogue.Router
	store  state.Store
	sender Sender
	relay  Relay
	logger *logger.Logger
	now    func() time.Time
}

// NewBotService creates a new bot service.
func NewBotService(
	router *dialogue.Router,
	store state.Store,
	sender Sender,
	relay Relay,
	log *logger.Logger,
) *BotService {
	if relay == nil {
		relay = NopRelay{}
	}
	return &BotService{
		router: router,
		store:  store,
		sender: sender,
		relay:  relay,
		logger: log,
		now:    time.Now,
	}
}

// HandleEvent processes one parsed webhook event. Delivery, store and relay
// failures are logged and reflected in the outcome; they never fail the
// webhook acknowledgment.
func (s *BotService) HandleEvent(ctx context.Context, correlationID string, ev *model.InboundEvent) Outcome {
	ctx, span := tracing.Tracer("formbot/service").Start(ctx, "BotService.HandleEvent")
	defer span.End()

	ce, ok := dialogue.Classify(ev)
	if !ok {
		var event string
		if ev != nil {
			event = ev.Event
		}
		metrics.RecordWebhook(eventLabel(ev), "dropped")
		s.logger.Info("event dropped: no conversation id",
			zap.String("correlation_id", correlationID),
			zap.String("event", event),
		)
		span.SetAttributes(attribute.Bool("formbot.dropped", true))
		return Outcome{Dropped: true}
	}

	log := s.logger.WithConversation(correlationID, ce.ConversationID)
	intent := ce.Intent.String()
	metrics.RecordWebhook(eventLabel(ev), string(ce.Intent.Kind))
	span.SetAttributes(
		attribute.String("formbot.conversation_id", ce.ConversationID),
		attribute.String("formbot.intent", intent),
	)

	turn := s.loadTurn(ctx, log, ce)
	decision := s.router.Route(ce, turn)

	out := Outcome{ConversationID: ce.ConversationID, Intent: intent, Stage: decision.Next}
	if len(decision.Messages) == 0 {
		log.Info("no reply",
			zap.String("event", ev.Event),
			zap.String("intent", intent),
			zap.String("reason", decision.Reason),
		)
		return out
	}

	log.Info("routing event",
		zap.String("event", ev.Event),
		zap.String("intent", intent),
		zap.String("from", string(turn.Stage)),
		zap.String("to", string(decision.Next)),
		zap.Int("messages", len(decision.Messages)),
	)

	// Messages of one decision go out in order; a failed message does not
	// stop the ones after it.
	for _, msg := range decision.Messages {
		if err := s.sender.Deliver(ctx, msg); err != nil {
			out.Failed++
			log.Error("failed to deliver message", zap.String("kind", string(msg.Kind)), zap.Error(err))
			span.RecordError(err)
			s.publishEvent(ctx, log, &model.DialogueEvent{
				ConversationID: ce.ConversationID,
				Type:           model.DialogueEventDeliveryFailed,
				To:             decision.Next,
				Reason:         err.Error(),
			})
			continue
		}
		out.Sent++
	}

	// A completed form is relayed even when its confirmation was not
	// delivered; the webhook is acknowledged either way.
	if decision.Submission != nil {
		s.relaySubmission(ctx, log, decision.Submission)
	}

	if out.Sent == 0 {
		span.SetStatus(codes.Error, "no message delivered")
		return out
	}

	s.saveStage(ctx, log, ce, turn, decision)
	return out
}

// eventLabel maps the payload event name onto the fixed category set used
// as a metric label.
func eventLabel(ev *model.InboundEvent) string {
	if ev == nil {
		return string(model.CategoryOther)
	}
	switch ev.Category {
	case model.CategoryConversationCreated, model.CategoryMessageCreated:
		return string(ev.Category)
	}
	return string(model.CategoryOther)
}

// loadTurn reads the stored stage; store errors degrade to history inference.
func (s *BotService) loadTurn(ctx context.Context, log *logger.Logger, ce model.ClassifiedEvent) dialogue.Turn {
	turn := dialogue.Turn{History: ce.History}
	st, err := s.store.Get(ctx, ce.ConversationID)
	switch {
	case err == nil && st.Stage.Valid():
		turn.Stage = st.Stage
		turn.Known = true
	case err == nil, errors.Is(err, state.ErrNotFound):
	default:
		log.Warn("state lookup failed, inferring stage from history", zap.Error(err))
	}
	return turn
}

func (s *BotService) saveStage(ctx context.Context, log *logger.Logger, ce model.ClassifiedEvent, turn dialogue.Turn, d dialogue.Decision) {
	from := turn.Stage
	if !turn.Known {
		from = model.StageWelcome
	}

	err := s.store.Put(ctx, model.ConversationState{
		ConversationID: ce.ConversationID,
		Stage:          d.Next,
		LastIntent:     ce.Intent.String(),
		UpdatedAt:      s.now().UTC(),
	})
	if err != nil {
		log.Error("failed to store conversation state", zap.Error(err))
	}

	if !d.Changed {
		return
	}
	metrics.RecordTransition(string(from), string(d.Next))
	s.publishEvent(ctx, log, &model.DialogueEvent{
		ConversationID: ce.ConversationID,
		Type:           model.DialogueEventStageChanged,
		From:           from,
		To:             d.Next,
	})
}

func (s *BotService) relaySubmission(ctx context.Context, log *logger.Logger, sub *model.FormSubmission) {
	stamped := *sub
	stamped.ID = uuid.Must(uuid.NewV7()).String()
	stamped.SubmittedAt = s.now().UTC()

	metrics.SubmissionsTotal.WithLabelValues(string(stamped.Form)).Inc()
	seq, err := s.relay.PublishSubmission(ctx, &stamped)
	if err != nil {
		metrics.RelayPublishTotal.WithLabelValues("submission", "failed").Inc()
		log.Error("failed to relay submission", zap.String("form", string(stamped.Form)), zap.Error(err))
		return
	}
	metrics.RelayPublishTotal.WithLabelValues("submission", "ok").Inc()
	log.Info("submission relayed",
		zap.String("submission_id", stamped.ID),
		zap.String("form", string(stamped.Form)),
		zap.Uint64("sequence", seq),
	)
}

func (s *BotService) publishEvent(ctx context.Context, log *logger.Logger, event *model.DialogueEvent) {
	event.ID = uuid.Must(uuid.NewV7()).String()
	event.CreatedAt = s.now().UTC()
	if _, err := s.relay.PublishEvent(ctx, event); err != nil {
		metrics.RelayPublishTotal.WithLabelValues("event", "failed").Inc()
		log.Warn("failed to relay dialogue event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	metrics.RelayPublishTotal.WithLabelValues("event", "ok").Inc()
}

// ConversationState returns the stored state of a conversation.
func (s *BotService) ConversationState(ctx context.Context, conversationID string) (model.ConversationState, error) {
	st, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return model.ConversationState{}, fmt.Errorf("get state %s: %w", conversationID, err)
	}
	return st, nil
}

// ResetConversation moves a conversation back to the welcome stage so the
// next free text message shows the menu again.
func (s *BotService) ResetConversation(ctx context.Context, conversationID string) error {
	err := s.store.Put(ctx, model.ConversationState{
		ConversationID: conversationID,
		Stage:          model.StageWelcome,
		UpdatedAt:      s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("reset state %s: %w", conversationID, err)
	}
	s.logger.Info("conversation state reset", zap.String("conversation_id", conversationID))
	return nil
}

// ForgetConversation drops everything stored for a conversation. The next
// event is routed from history alone.
func (s *BotService) ForgetConversation(ctx context.Context, conversationID string) error {
	if err := s.store.Delete(ctx, conversationID); err != nil {
		return fmt.Errorf("delete state %s: %w", conversationID, err)
	}
	s.logger.Info("conversation state forgotten", zap.String("conversation_id", conversationID))
	return nil
}
