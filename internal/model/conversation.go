// Package model defines data structures for the form bot.
package model

import (
	"time"
)

// Stage is the bot's position in the scripted dialogue.
type Stage string

const (
	StageWelcome        Stage = "welcome"
	StageAwaitingChoice Stage = "awaiting_choice"
	StageBidForm        Stage = "bid_form"
	StageSalesForm      Stage = "sales_form"
	StageConfirmed      Stage = "confirmed"
)

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageWelcome, StageAwaitingChoice, StageBidForm, StageSalesForm, StageConfirmed:
		return true
	}
	return false
}

// ConversationState is the stored dialogue position of one conversation.
type ConversationState struct {
	ConversationID string    `json:"conversation_id"`
	Stage          Stage     `json:"stage"`
	LastIntent     string    `json:"last_intent,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FormKind identifies which intake form a submission belongs to.
type FormKind string

const (
	FormBid   FormKind = "bid"
	FormSales FormKind = "sales"
)

// FormSubmission is a completed form relayed to downstream consumers.
type FormSubmission struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	AccountID      string           `json:"account_id,omitempty"`
	Form           FormKind         `json:"form"`
	Fields         []SubmittedField `json:"fields"`
	SubmittedAt    time.Time        `json:"submitted_at"`
}
