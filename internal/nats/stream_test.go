package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/formbot/internal/model"
)

type published struct {
	subject string
	data    []byte
	msgID   string
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := published{subject: subject, data: data}
	if len(opts) > 0 {
		p.msgID = "set"
	}
	f.msgs = append(f.msgs, p)
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(f.msgs))}, nil
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "formbot.submission.bid.42", SubmissionSubject(model.FormBid, "42"))
	assert.Equal(t, "formbot.event.42.stage_changed", EventSubject("42", model.DialogueEventStageChanged))
	assert.Equal(t, "formbot.submission.sales.a_b_c", SubmissionSubject(model.FormSales, "a.b*c"))
	assert.Equal(t, "formbot.event._.delivery_failed", EventSubject("", model.DialogueEventDeliveryFailed))
}

func TestPublishSubmission(t *testing.T) {
	fp := &fakePublisher{}
	m := NewStreamManagerWithPublisher(fp)

	sub := &model.FormSubmission{
		ID:             "0190",
		ConversationID: "42",
		Form:           model.FormBid,
		Fields:         []model.SubmittedField{{Name: "bid_amount", Value: "500"}},
		SubmittedAt:    time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	}
	seq, err := m.PublishSubmission(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	require.Len(t, fp.msgs, 1)
	assert.Equal(t, "formbot.submission.bid.42", fp.msgs[0].subject)
	assert.Equal(t, "set", fp.msgs[0].msgID)

	var got model.FormSubmission
	require.NoError(t, json.Unmarshal(fp.msgs[0].data, &got))
	assert.Equal(t, sub.Fields, got.Fields)
}

func TestPublishEvent_Error(t *testing.T) {
	m := NewStreamManagerWithPublisher(&fakePublisher{err: errors.New("no responders")})
	_, err := m.PublishEvent(context.Background(), &model.DialogueEvent{ConversationID: "1", Type: model.DialogueEventStageChanged})
	assert.ErrorContains(t, err, "no responders")
}
