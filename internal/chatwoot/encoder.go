// Package chatwoot renders outbound messages into Chatwoot's message schema
// and posts them to the Chatwoot application API.
package chatwoot

import (
	"errors"
	"fmt"

	"github.com/capitalize-ai/formbot/internal/model"
)

// Content types accepted by the Chatwoot message API.
const (
	ContentTypeText        = "text"
	ContentTypeInputSelect = "input_select"
	ContentTypeCards       = "cards"
	ContentTypeForm        = "form"
)

var (
	// ErrUnsupportedKind is returned for a message kind no encoder handles.
	ErrUnsupportedKind = errors.New("unsupported message kind")
	// ErrNoAlternative is returned when every encoding for a kind was tried.
	ErrNoAlternative = errors.New("no alternative encoding")
)

// Payload is the body of POST /conversations/{id}/messages.
type Payload struct {
	Content           string `json:"content,omitempty"`
	Private           bool   `json:"private"`
	ContentType       string `json:"content_type"`
	ContentAttributes any    `json:"content_attributes,omitempty"`
}

// Encoder serializes an OutboundMessage for one content type.
type Encoder interface {
	ContentType() string
	Encode(msg model.OutboundMessage) (Payload, error)
}

type selectItem struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

type itemsAttributes[T any] struct {
	Items []T `json:"items"`
}

type cardAction struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

type cardItem struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Actions     []cardAction `json:"actions"`
}

type formOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type formItem struct {
	Name        string       `json:"name"`
	Label       string       `json:"label,omitempty"`
	Type        string       `json:"type"`
	Placeholder string       `json:"placeholder,omitempty"`
	Required    bool         `json:"required,omitempty"`
	Text        string       `json:"text,omitempty"`
	Options     []formOption `json:"options,omitempty"`
}

// TextEncoder renders plain text and confirmations.
type TextEncoder struct{}

func (TextEncoder) ContentType() string { return ContentTypeText }

func (TextEncoder) Encode(msg model.OutboundMessage) (Payload, error) {
	content := msg.Text
	if content == "" {
		content = msg.Prompt
	}
	return Payload{
		Content:     content,
		Private:     msg.Private(),
		ContentType: ContentTypeText,
	}, nil
}

// InputSelectEncoder renders a choice menu as a select widget.
type InputSelectEncoder struct{}

func (InputSelectEncoder) ContentType() string { return ContentTypeInputSelect }

func (InputSelectEncoder) Encode(msg model.OutboundMessage) (Payload, error) {
	if msg.Kind != model.KindChoiceMenu {
		return Payload{}, fmt.Errorf("input_select: %w: %s", ErrUnsupportedKind, msg.Kind)
	}
	items := make([]selectItem, len(msg.Options))
	for i, o := range msg.Options {
		items[i] = selectItem{Title: o.Title, Value: string(o.Value)}
	}
	return Payload{
		Content:           joinNonEmpty(msg.Prompt, msg.Text),
		Private:           msg.Private(),
		ContentType:       ContentTypeInputSelect,
		ContentAttributes: itemsAttributes[selectItem]{Items: items},
	}, nil
}

// CardsEncoder renders a choice menu as a caption with postback buttons.
type CardsEncoder struct{}

func (CardsEncoder) ContentType() string { return ContentTypeCards }

func (CardsEncoder) Encode(msg model.OutboundMessage) (Payload, error) {
	if msg.Kind != model.KindChoiceMenu {
		return Payload{}, fmt.Errorf("cards: %w: %s", ErrUnsupportedKind, msg.Kind)
	}
	actions := make([]cardAction, len(msg.Options))
	for i, o := range msg.Options {
		actions[i] = cardAction{Type: "postback", Text: o.Title, Payload: string(o.Value)}
	}
	return Payload{
		Content:     msg.Prompt,
		Private:     msg.Private(),
		ContentType: ContentTypeCards,
		ContentAttributes: itemsAttributes[cardItem]{Items: []cardItem{
			{Title: msg.Text, Actions: actions},
		}},
	}, nil
}

// FormEncoder renders a field form. Field order is preserved.
type FormEncoder struct{}

func (FormEncoder) ContentType() string { return ContentTypeForm }

func (FormEncoder) Encode(msg model.OutboundMessage) (Payload, error) {
	if msg.Kind != model.KindFieldForm {
		return Payload{}, fmt.Errorf("form: %w: %s", ErrUnsupportedKind, msg.Kind)
	}
	items := make([]formItem, len(msg.Fields))
	for i, f := range msg.Fields {
		items[i] = encodeField(f)
	}
	return Payload{
		Content:           msg.Prompt,
		Private:           msg.Private(),
		ContentType:       ContentTypeForm,
		ContentAttributes: itemsAttributes[formItem]{Items: items},
	}, nil
}

func encodeField(f model.FormFieldSpec) formItem {
	if f.InputKind == model.InputSubmit {
		return formItem{Name: f.Name, Type: "submit", Text: f.Label}
	}
	item := formItem{
		Name:        f.Name,
		Label:       f.Label,
		Type:        string(f.InputKind),
		Placeholder: f.Placeholder,
		Required:    f.Required,
	}
	if f.InputKind == model.InputTextarea {
		item.Type = "text_area"
	}
	for _, o := range f.Options {
		item.Options = append(item.Options, formOption{Label: o.Title, Value: string(o.Value)})
	}
	return item
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p
	}
	return out
}
