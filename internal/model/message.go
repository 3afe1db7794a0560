package model

// MessageKind is the rendering category of an outbound message.
type MessageKind string

const (
	KindText         MessageKind = "text"
	KindChoiceMenu   MessageKind = "choice_menu"
	KindFieldForm    MessageKind = "field_form"
	KindConfirmation MessageKind = "confirmation"
)

// Visibility controls who sees an outbound message.
type Visibility string

const (
	VisibilityPublic       Visibility = "public"
	VisibilityInternalNote Visibility = "internal_note"
)

// InputKind is the control type of a form field.
type InputKind string

const (
	InputText     InputKind = "text"
	InputTextarea InputKind = "textarea"
	InputSelect   InputKind = "select"
	InputSubmit   InputKind = "submit"
)

// MenuOption is one selectable entry of a choice menu.
type MenuOption struct {
	Title string     `json:"title"`
	Value ActionCode `json:"value"`
}

// FormFieldSpec defines one form control. Required is metadata for the
// remote renderer and is not enforced locally.
type FormFieldSpec struct {
	Name        string       `json:"name"`
	Label       string       `json:"label,omitempty"`
	InputKind   InputKind    `json:"input_kind"`
	Placeholder string       `json:"placeholder,omitempty"`
	Required    bool         `json:"required,omitempty"`
	Options     []MenuOption `json:"options,omitempty"`
}

// OutboundMessage is a rendering directive. Values are built fresh per
// response and never mutated after construction.
type OutboundMessage struct {
	ConversationID string          `json:"conversation_id"`
	Kind           MessageKind     `json:"kind"`
	Visibility     Visibility      `json:"visibility"`
	Text           string          `json:"text,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	Options        []MenuOption    `json:"options,omitempty"`
	Fields         []FormFieldSpec `json:"fields,omitempty"`
}

// Private reports whether the message is an internal note.
func (m OutboundMessage) Private() bool {
	return m.Visibility == VisibilityInternalNote
}
