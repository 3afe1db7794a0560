// Package dialogue implements the event classifier and the dialogue router
// that decide what the bot sends for each webhook delivery.
package dialogue

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/capitalize-ai/formbot/internal/model"
)

// ErrMalformedEvent is returned when a webhook body is not a JSON object.
var ErrMalformedEvent = errors.New("malformed event payload")

// conversationIDPaths lists where platforms nest the conversation id, in
// priority order.
var conversationIDPaths = []string{
	"conversation.id",
	"data.id",
	"message.conversation_id",
	"data.conversation_id",
}

// ParseEvent projects a raw webhook body onto an InboundEvent. A missing
// conversation id is not an error; the classifier drops such events.
func ParseEvent(raw []byte) (*model.InboundEvent, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrMalformedEvent
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, ErrMalformedEvent
	}

	ev := &model.InboundEvent{
		Event:          root.Get("event").String(),
		ConversationID: probeConversationID(root),
		AccountID:      nonZero(root.Get("account.id")),
	}
	ev.Category = categoryOf(ev.Event)

	ev.Direction = parseDirection(messageField(root, "message_type"))
	ev.ContentType = messageField(root, "content_type").String()
	ev.Content = messageField(root, "content").String()
	ev.Submitted = parseSubmitted(messageField(root, "content_attributes.submitted_values"))
	ev.History = parseHistory(root.Get("conversation.messages"))

	return ev, nil
}

func probeConversationID(root gjson.Result) string {
	for _, path := range conversationIDPaths {
		if id := nonZero(root.Get(path)); id != "" {
			return id
		}
	}
	return ""
}

// nonZero returns the string form of v unless it is absent, null, empty or 0.
func nonZero(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.Number:
		if v.Num == 0 {
			return ""
		}
		return v.Raw
	}
	return ""
}

// messageField looks a message attribute up at the top level first and
// then under "message", since deliveries disagree on nesting.
func messageField(root gjson.Result, path string) gjson.Result {
	if v := root.Get(path); v.Exists() && v.Type != gjson.Null {
		return v
	}
	return root.Get("message." + path)
}

func categoryOf(event string) model.EventCategory {
	switch event {
	case string(model.CategoryConversationCreated):
		return model.CategoryConversationCreated
	case string(model.CategoryMessageCreated):
		return model.CategoryMessageCreated
	}
	return model.CategoryOther
}

// parseDirection accepts both the string and the integer encoding of
// message_type (0 incoming, 1 outgoing, 3 template).
func parseDirection(v gjson.Result) model.Direction {
	switch v.Type {
	case gjson.String:
		switch strings.ToLower(v.Str) {
		case "incoming":
			return model.DirectionIncoming
		case "outgoing", "template":
			return model.DirectionOutgoing
		}
	case gjson.Number:
		switch v.Int() {
		case 0:
			return model.DirectionIncoming
		case 1, 3:
			return model.DirectionOutgoing
		}
	}
	return model.DirectionUnknown
}

func parseSubmitted(v gjson.Result) []model.SubmittedField {
	if !v.IsArray() {
		return nil
	}
	var fields []model.SubmittedField
	v.ForEach(func(_, item gjson.Result) bool {
		label := item.Get("label").String()
		if label == "" {
			label = item.Get("title").String()
		}
		fields = append(fields, model.SubmittedField{
			Name:  item.Get("name").String(),
			Label: label,
			Value: item.Get("value").String(),
		})
		return true
	})
	return fields
}

func parseHistory(v gjson.Result) []model.PriorMessage {
	if !v.IsArray() {
		return nil
	}
	var history []model.PriorMessage
	v.ForEach(func(_, item gjson.Result) bool {
		history = append(history, model.PriorMessage{
			Direction:   parseDirection(item.Get("message_type")),
			ContentType: item.Get("content_type").String(),
			Content:     item.Get("content").String(),
			Private:     item.Get("private").Bool(),
		})
		return true
	})
	return history
}
