package model

import (
	"time"
)

// EventCategory is the coarse kind of webhook delivery.
type EventCategory string

const (
	CategoryConversationCreated EventCategory = "conversation_created"
	CategoryMessageCreated      EventCategory = "message_created"
	CategoryOther               EventCategory = "other"
)

// Direction is the direction of a chat message relative to the bot.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
	DirectionUnknown  Direction = ""
)

// SubmittedField is one value returned by the platform for a form or menu selection.
type SubmittedField struct {
	Name  string `json:"name,omitempty"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// PriorMessage summarises a message already in the conversation.
type PriorMessage struct {
	Direction   Direction `json:"direction"`
	ContentType string    `json:"content_type,omitempty"`
	Content     string    `json:"content,omitempty"`
	Private     bool      `json:"private,omitempty"`
}

// InboundEvent is the projection of a webhook payload the classifier works on.
type InboundEvent struct {
	Event          string           `json:"event"`
	Category       EventCategory    `json:"category"`
	ConversationID string           `json:"conversation_id,omitempty"`
	AccountID      string           `json:"account_id,omitempty"`
	Direction      Direction        `json:"direction,omitempty"`
	ContentType    string           `json:"content_type,omitempty"`
	Content        string           `json:"content,omitempty"`
	Submitted      []SubmittedField `json:"submitted,omitempty"`
	History        []PriorMessage   `json:"history,omitempty"`
}

// IntentKind enumerates classifier outcomes.
type IntentKind string

const (
	IntentStart         IntentKind = "start_conversation"
	IntentAction        IntentKind = "action_code"
	IntentFreeText      IntentKind = "free_text"
	IntentFormSubmitted IntentKind = "form_submitted"
	IntentUnrecognized  IntentKind = "unrecognized"
)

// ActionCode is a machine-readable menu selection.
type ActionCode string

const (
	ActionBid   ActionCode = "ACTION_BID"
	ActionSales ActionCode = "ACTION_SALES"
)

// Intent is the single signal derived from an inbound event. Only the
// field matching Kind is populated.
type Intent struct {
	Kind   IntentKind
	Action ActionCode
	Text   string
	Fields []SubmittedField
}

// String renders the intent for logs and metric labels.
func (i Intent) String() string {
	if i.Kind == IntentAction {
		return string(i.Kind) + ":" + string(i.Action)
	}
	return string(i.Kind)
}

// ClassifiedEvent is the normalized view of an inbound event.
type ClassifiedEvent struct {
	ConversationID string
	AccountID      string
	Category       EventCategory
	Intent         Intent
	History        []PriorMessage
}

// DialogueEventType represents the type of relayed dialogue event.
type DialogueEventType string

const (
	DialogueEventStageChanged   DialogueEventType = "stage_changed"
	DialogueEventDeliveryFailed DialogueEventType = "delivery_failed"
)

// DialogueEvent is a notable occurrence in a conversation, relayed for auditing.
type DialogueEvent struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Type           DialogueEventType `json:"type"`
	From           Stage             `json:"from,omitempty"`
	To             Stage             `json:"to,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
