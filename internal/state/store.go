// Package state stores the dialogue stage of each conversation.
package state

import (
	"context"
	"errors"

	"github.com/capitalize-ai/formbot/internal/model"
)

// ErrNotFound is returned when no state is stored for a conversation.
var ErrNotFound = errors.New("conversation state not found")

// Store persists conversation states keyed by conversation id.
type Store interface {
	Get(ctx context.Context, conversationID string) (model.ConversationState, error)
	Put(ctx context.Context, st model.ConversationState) error
	Delete(ctx context.Context, conversationID string) error
	Ping(ctx context.Context) error
}
