package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/formbot/internal/dialogue"
	"github.com/capitalize-ai/formbot/internal/model"
	"github.com/capitalize-ai/formbot/internal/state"
	"github.com/capitalize-ai/formbot/pkg/logger"
	"github.com/capitalize-ai/formbot/pkg/metrics"
)

type fakeSender struct {
	sent []model.OutboundMessage
	fail func(model.OutboundMessage) error
}

func (f *fakeSender) Deliver(ctx context.Context, msg model.OutboundMessage) error {
	if f.fail != nil {
		if err := f.fail(msg); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeRelay struct {
	submissions []model.FormSubmission
	events      []model.DialogueEvent
	err         error
}

func (f *fakeRelay) PublishSubmission(ctx context.Context, sub *model.FormSubmission) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.submissions = append(f.submissions, *sub)
	return uint64(len(f.submissions)), nil
}

func (f *fakeRelay) PublishEvent(ctx context.Context, event *model.DialogueEvent) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.events = append(f.events, *event)
	return uint64(len(f.events)), nil
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (model.ConversationState, error) {
	return model.ConversationState{}, errors.New("connection refused")
}
func (brokenStore) Put(context.Context, model.ConversationState) error { return errors.New("connection refused") }
func (brokenStore) Delete(context.Context, string) error                { return errors.New("connection refused") }
func (brokenStore) Ping(context.Context) error                          { return errors.New("connection refused") }

type fixture struct {
	svc    *BotService
	store  *state.MemoryStore
	sender *fakeSender
	relay  *fakeRelay
}

func newFixture(t *testing.T, opts dialogue.Options) *fixture {
	t.Helper()
	f := &fixture{
		store:  state.NewMemoryStore(time.Hour),
		sender: &fakeSender{},
		relay:  &fakeRelay{},
	}
	f.svc = NewBotService(dialogue.NewRouter(opts), f.store, f.sender, f.relay, logger.Nop())
	f.svc.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) handle(t *testing.T, body string) Outcome {
	t.Helper()
	ev, err := dialogue.ParseEvent([]byte(body))
	require.NoError(t, err)
	return f.svc.HandleEvent(context.Background(), "corr-1", ev)
}

func (f *fixture) stage(t *testing.T, id string) model.Stage {
	t.Helper()
	st, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return st.Stage
}

func TestHandleEvent_FullDialogue(t *testing.T) {
	f := newFixture(t, dialogue.Options{})

	out := f.handle(t, `{"event":"conversation_created","conversation":{"id":42}}`)
	assert.Equal(t, 1, out.Sent)
	assert.Equal(t, model.StageAwaitingChoice, f.stage(t, "42"))

	f.handle(t, `{"event":"message_created","message_type":"incoming","conversation":{"id":42},
		"content_attributes":{"submitted_values":[{"title":"Make a Bid","value":"ACTION_BID"}]}}`)
	assert.Equal(t, model.StageBidForm, f.stage(t, "42"))

	out = f.handle(t, `{"event":"message_created","message_type":"incoming","conversation":{"id":42},
		"content_attributes":{"submitted_values":[{"name":"full_name","value":"Jo"},{"name":"bid_amount","value":"500"}]}}`)
	assert.Equal(t, model.StageConfirmed, out.Stage)
	assert.Equal(t, model.StageConfirmed, f.stage(t, "42"))

	require.Len(t, f.sender.sent, 3)
	assert.Equal(t, model.KindChoiceMenu, f.sender.sent[0].Kind)
	assert.Equal(t, model.KindFieldForm, f.sender.sent[1].Kind)
	assert.Equal(t, model.KindConfirmation, f.sender.sent[2].Kind)

	require.Len(t, f.relay.submissions, 1)
	sub := f.relay.submissions[0]
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, model.FormBid, sub.Form)
	assert.Equal(t, "42", sub.ConversationID)
	assert.Equal(t, 2026, sub.SubmittedAt.Year())

	require.Len(t, f.relay.events, 3)
	for _, e := range f.relay.events {
		assert.Equal(t, model.DialogueEventStageChanged, e.Type)
	}
	assert.Equal(t, model.StageBidForm, f.relay.events[2].From)
	assert.Equal(t, model.StageConfirmed, f.relay.events[2].To)

	// Free text after confirmation is ignored.
	out = f.handle(t, `{"event":"message_created","message_type":"incoming","content":"thanks!","conversation":{"id":42}}`)
	assert.Equal(t, 0, out.Sent)
	assert.Len(t, f.sender.sent, 3)
}

func TestHandleEvent_DropsWithoutConversation(t *testing.T) {
	f := newFixture(t, dialogue.Options{})

	out := f.handle(t, `{"event":"message_created"}`)
	assert.True(t, out.Dropped)
	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.relay.events)

	out = f.svc.HandleEvent(context.Background(), "corr", nil)
	assert.True(t, out.Dropped)
}

func TestHandleEvent_FirstTurnFreeTextUsesHistory(t *testing.T) {
	f := newFixture(t, dialogue.Options{})

	out := f.handle(t, `{"event":"message_created","message_type":"incoming","content":"hello","conversation":{"id":1,
		"messages":[{"message_type":0,"content":"hello"}]}}`)
	assert.Equal(t, 1, out.Sent)
	assert.Equal(t, model.KindChoiceMenu, f.sender.sent[0].Kind)

	// Unknown conversation whose history shows the bot already replied.
	out = f.handle(t, `{"event":"message_created","message_type":"incoming","content":"hello","conversation":{"id":2,
		"messages":[{"message_type":1,"content":"Welcome!"},{"message_type":0,"content":"hello"}]}}`)
	assert.Equal(t, 0, out.Sent)
	_, err := f.store.Get(context.Background(), "2")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestHandleEvent_StoredStageWinsOverHistory(t *testing.T) {
	f := newFixture(t, dialogue.Options{})
	require.NoError(t, f.store.Put(context.Background(), model.ConversationState{ConversationID: "3", Stage: model.StageSalesForm}))

	out := f.handle(t, `{"event":"message_created","message_type":"incoming","content":"hello","conversation":{"id":3}}`)
	assert.Equal(t, 0, out.Sent)
	assert.Equal(t, model.StageSalesForm, out.Stage)
}

func TestHandleEvent_DeliveryFailureKeepsStage(t *testing.T) {
	f := newFixture(t, dialogue.Options{})
	f.sender.fail = func(model.OutboundMessage) error { return errors.New("chatwoot API 500") }

	out := f.handle(t, `{"event":"conversation_created","conversation":{"id":9}}`)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 0, out.Sent)

	_, err := f.store.Get(context.Background(), "9")
	assert.ErrorIs(t, err, state.ErrNotFound)
	require.Len(t, f.relay.events, 1)
	assert.Equal(t, model.DialogueEventDeliveryFailed, f.relay.events[0].Type)

	require.NoError(t, f.store.Put(context.Background(), model.ConversationState{
		ConversationID: "9",
		Stage:          model.StageBidForm,
	}))
	out = f.handle(t, `{"event":"message_created","message_type":"incoming","conversation":{"id":9},
		"content_attributes":{"submitted_values":[{"name":"bid_amount","value":"500"},{"name":"full_name","value":"Jo"}]}}`)
	assert.Equal(t, 0, out.Sent)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, model.StageBidForm, f.stage(t, "9"))

	require.Len(t, f.relay.submissions, 1)
	assert.Equal(t, model.FormBid, f.relay.submissions[0].Form)
	assert.Equal(t, "9", f.relay.submissions[0].ConversationID)
}

func TestHandleEvent_WebhookMetricUsesEventCategory(t *testing.T) {
	f := newFixture(t, dialogue.Options{})
	other := metrics.WebhooksTotal.WithLabelValues(string(model.CategoryOther), string(model.IntentUnrecognized))

	f.handle(t, `{"event":"x","conversation":{"id":1}}`)
	seriesBefore := testutil.CollectAndCount(metrics.WebhooksTotal)
	countBefore := testutil.ToFloat64(other)

	for _, name := range []string{"a1", "a2", "a3", "a4", "a5", `\ud800`} {
		f.handle(t, `{"event":"`+name+`","conversation":{"id":1}}`)
	}

	assert.Equal(t, seriesBefore, testutil.CollectAndCount(metrics.WebhooksTotal))
	assert.InDelta(t, countBefore+6, testutil.ToFloat64(other), 0.001)
}

func TestHandleEvent_AgentNotePartialFailure(t *testing.T) {
	f := newFixture(t, dialogue.Options{AgentNotes: true})
	f.sender.fail = func(m model.OutboundMessage) error {
		if m.Private() {
			return errors.New("note rejected")
		}
		return nil
	}

	out := f.handle(t, `{"event":"message_created","message_type":"incoming","conversation":{"id":5},
		"content_attributes":{"submitted_values":[{"name":"inquiry_details","value":"lamps"}]}}`)
	assert.Equal(t, 1, out.Sent)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, model.StageConfirmed, f.stage(t, "5"))
	require.Len(t, f.relay.submissions, 1)
	assert.Equal(t, model.FormSales, f.relay.submissions[0].Form)
}

func TestHandleEvent_BrokenStoreFallsBackToHistory(t *testing.T) {
	sender := &fakeSender{}
	svc := NewBotService(dialogue.NewRouter(dialogue.Options{}), brokenStore{}, sender, nil, logger.Nop())

	ev, err := dialogue.ParseEvent([]byte(`{"event":"message_created","message_type":"incoming","content":"hi","conversation":{"id":8}}`))
	require.NoError(t, err)

	out := svc.HandleEvent(context.Background(), "c", ev)
	assert.Equal(t, 1, out.Sent)
	assert.Equal(t, model.KindChoiceMenu, sender.sent[0].Kind)
}

func TestHandleEvent_RelayFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, dialogue.Options{})
	f.relay.err = errors.New("nats: no responders")

	out := f.handle(t, `{"event":"message_created","message_type":"incoming","conversation":{"id":6},
		"content_attributes":{"submitted_values":[{"name":"bid_amount","value":"1"}]}}`)
	assert.Equal(t, 1, out.Sent)
	assert.Equal(t, model.StageConfirmed, f.stage(t, "6"))
}

func TestResetConversation(t *testing.T) {
	f := newFixture(t, dialogue.Options{})
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, model.ConversationState{ConversationID: "4", Stage: model.StageConfirmed}))

	require.NoError(t, f.svc.ResetConversation(ctx, "4"))
	st, err := f.svc.ConversationState(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, model.StageWelcome, st.Stage)

	out := f.handle(t, `{"event":"message_created","message_type":"incoming","content":"hello again","conversation":{"id":4,
		"messages":[{"message_type":1,"content":"Thank you!"}]}}`)
	assert.Equal(t, 1, out.Sent)

	_, err = f.svc.ConversationState(ctx, "missing")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestForgetConversation(t *testing.T) {
	f := newFixture(t, dialogue.Options{})
	f.handle(t, `{"event":"conversation_created","conversation":{"id":5}}`)
	require.Equal(t, model.StageAwaitingChoice, f.stage(t, "5"))

	require.NoError(t, f.svc.ForgetConversation(context.Background(), "5"))

	_, err := f.svc.ConversationState(context.Background(), "5")
	assert.ErrorIs(t, err, state.ErrNotFound)

	svc := NewBotService(dialogue.NewRouter(dialogue.Options{}), brokenStore{}, f.sender, nil, logger.Nop())
	assert.Error(t, svc.ForgetConversation(context.Background(), "5"))
}
