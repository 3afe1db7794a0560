package middleware

import (
	"errors"
	"unicode/utf8"
)

const maxConversationIDLength = 64

// ValidateConversationID validates a conversation ID taken from a URL.
// Chatwoot ids are numeric, but any short token of letters, digits, '-'
// and '_' is accepted.
func ValidateConversationID(id string) error {
	if len(id) == 0 {
		return errors.New("conversation ID cannot be empty")
	}
	if len(id) > maxConversationIDLength {
		return errors.New("conversation ID exceeds maximum length")
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
		default:
			return errors.New("invalid conversation ID format")
		}
	}
	return nil
}

// ValidatePayload validates a raw webhook body before parsing.
func ValidatePayload(body []byte) error {
	if len(body) == 0 {
		return errors.New("payload cannot be empty")
	}
	if !utf8.Valid(body) {
		return errors.New("payload must be valid UTF-8")
	}
	return nil
}
