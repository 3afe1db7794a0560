package dialogue

import (
	"github.com/capitalize-ai/formbot/internal/model"
)

// Turn is what the router knows about the conversation before acting.
type Turn struct {
	// Stage is the stored stage; meaningful only when Known is true.
	Stage model.Stage
	Known bool
	// History is the prior message list carried in the event, used to infer
	// the first turn when no stage is stored.
	History []model.PriorMessage
}

// Decision is the router's output for one event.
type Decision struct {
	Messages   []model.OutboundMessage
	Next       model.Stage
	Changed    bool
	Submission *model.FormSubmission
	// Reason explains empty decisions for logging.
	Reason string
}

// Options configures a Router.
type Options struct {
	// AgentNotes adds an internal note summarising each submission.
	AgentNotes bool
}

// Router maps (stage, intent) to the next stage and the messages to emit.
// It is stateless and safe for concurrent use.
type Router struct {
	opts Options
}

// NewRouter creates a new router.
func NewRouter(opts Options) *Router {
	return &Router{opts: opts}
}

// Route decides what to send for ev. It never fails; combinations it cannot
// route produce an empty decision.
func (r *Router) Route(ev model.ClassifiedEvent, turn Turn) Decision {
	current := turn.Stage
	if !turn.Known {
		current = model.StageWelcome
	}
	stay := Decision{Next: current}

	switch ev.Intent.Kind {
	case model.IntentStart:
		return advance(current, model.StageAwaitingChoice, WelcomeMenu(ev.ConversationID))

	case model.IntentAction:
		kind := formForAction(ev.Intent.Action)
		next := model.StageBidForm
		if kind == model.FormSales {
			next = model.StageSalesForm
		}
		return advance(current, next, IntakeForm(ev.ConversationID, kind))

	case model.IntentFormSubmitted:
		kind, ok := SubmittedForm(ev.Intent.Fields)
		if !ok {
			stay.Reason = "submission matches no known form"
			return stay
		}
		fields := append([]model.SubmittedField(nil), ev.Intent.Fields...)
		d := advance(current, model.StageConfirmed, Confirmation(ev.ConversationID, kind, fields))
		if r.opts.AgentNotes {
			d.Messages = append(d.Messages, AgentNote(ev.ConversationID, kind, fields))
		}
		d.Submission = &model.FormSubmission{
			ConversationID: ev.ConversationID,
			AccountID:      ev.AccountID,
			Form:           kind,
			Fields:         fields,
		}
		return d

	case model.IntentFreeText:
		if IsFirstTurn(turn) {
			return advance(current, model.StageAwaitingChoice, WelcomeMenu(ev.ConversationID))
		}
		stay.Reason = "free text outside first turn"
		return stay
	}

	stay.Reason = "unrecognized event"
	return stay
}

// IsFirstTurn reports whether the bot has not yet spoken in the
// conversation. A stored stage wins over history inference.
func IsFirstTurn(turn Turn) bool {
	if turn.Known {
		return turn.Stage == model.StageWelcome
	}
	for _, m := range turn.History {
		if m.Direction == model.DirectionOutgoing && !m.Private {
			return false
		}
	}
	return true
}

func advance(from, to model.Stage, msg model.OutboundMessage) Decision {
	return Decision{
		Messages: []model.OutboundMessage{msg},
		Next:     to,
		Changed:  from != to,
	}
}
