package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/formbot/internal/model"
)

const (
	// StreamName is the name of the relay stream.
	StreamName = "FORMBOT"

	// SubjectPrefix is the prefix for all relay subjects.
	SubjectPrefix = "formbot"
)

// Publisher is the subset of JetStream the relay needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamManager publishes relay messages to JetStream.
type StreamManager struct {
	js Publisher
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{js: client.JetStream()}
}

// NewStreamManagerWithPublisher creates a stream manager over any publisher.
func NewStreamManagerWithPublisher(p Publisher) *StreamManager {
	return &StreamManager{js: p}
}

// EnsureStream ensures the relay stream exists with proper configuration.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Form bot submissions and dialogue events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// token makes s safe for use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}

// SubmissionSubject returns the subject for a form submission.
func SubmissionSubject(form model.FormKind, conversationID string) string {
	return fmt.Sprintf("%s.submission.%s.%s", SubjectPrefix, token(string(form)), token(conversationID))
}

// EventSubject returns the subject for a dialogue event.
func EventSubject(conversationID string, eventType model.DialogueEventType) string {
	return fmt.Sprintf("%s.event.%s.%s", SubjectPrefix, token(conversationID), token(string(eventType)))
}

// PublishSubmission publishes a completed form, using the submission id as
// the JetStream message id.
func (m *StreamManager) PublishSubmission(ctx context.Context, sub *model.FormSubmission) (uint64, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal submission: %w", err)
	}

	ack, err := m.js.Publish(ctx, SubmissionSubject(sub.Form, sub.ConversationID), data, jetstream.WithMsgID(sub.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to publish submission: %w", err)
	}
	return ack.Sequence, nil
}

// PublishEvent publishes a dialogue event.
func (m *StreamManager) PublishEvent(ctx context.Context, event *model.DialogueEvent) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.js.Publish(ctx, EventSubject(event.ConversationID, event.Type), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}
	return ack.Sequence, nil
}
