package dialogue

import (
	"strings"

	"github.com/capitalize-ai/formbot/internal/model"
)

const (
	welcomePrompt = "Welcome! How can we help you today?"
	welcomeText   = "Please select an option below:"
)

var welcomeOptions = []model.MenuOption{
	{Title: "Make a Bid", Value: model.ActionBid},
	{Title: "Check Sales", Value: model.ActionSales},
}

var (
	fullNameField = model.FormFieldSpec{
		Name:        "full_name",
		Label:       "Full Name",
		InputKind:   model.InputText,
		Placeholder: "Enter your full name",
		Required:    true,
	}
	emailField = model.FormFieldSpec{
		Name:        "email",
		Label:       "Email Address",
		InputKind:   model.InputText,
		Placeholder: "Enter your email",
		Required:    true,
	}
)

var bidFields = []model.FormFieldSpec{
	fullNameField,
	emailField,
	{
		Name:        "item_name",
		Label:       "Item Name/Number",
		InputKind:   model.InputText,
		Placeholder: "e.g., 'Vintage Watch #123'",
		Required:    true,
	},
	{
		Name:        "bid_amount",
		Label:       "Bid Amount ($)",
		InputKind:   model.InputText,
		Placeholder: "Enter your bid amount",
		Required:    true,
	},
	{Name: "submit", Label: "Submit Bid", InputKind: model.InputSubmit},
}

var salesFields = []model.FormFieldSpec{
	fullNameField,
	emailField,
	{
		Name:        "inquiry_details",
		Label:       "Your Question",
		InputKind:   model.InputTextarea,
		Placeholder: "What can we help you find?",
		Required:    true,
	},
	{Name: "submit", Label: "Send Inquiry", InputKind: model.InputSubmit},
}

var formPrompts = map[model.FormKind]string{
	model.FormBid:   "Please fill in the details of your bid.",
	model.FormSales: "Tell us what you are looking for and we will get back to you.",
}

var confirmationHeaders = map[model.FormKind]string{
	model.FormBid:   "Thank you! We have received your bid:",
	model.FormSales: "Thank you! We have received your inquiry:",
}

var noteHeaders = map[model.FormKind]string{
	model.FormBid:   "New bid submitted via form bot:",
	model.FormSales: "New sales inquiry submitted via form bot:",
}

// fieldLabels indexes catalog labels by field name for echoing submissions.
var fieldLabels = func() map[string]string {
	labels := make(map[string]string)
	for _, set := range [][]model.FormFieldSpec{bidFields, salesFields} {
		for _, f := range set {
			if f.InputKind != model.InputSubmit {
				labels[f.Name] = f.Label
			}
		}
	}
	return labels
}()

// WelcomeMenu builds the initial choice menu.
func WelcomeMenu(conversationID string) model.OutboundMessage {
	return model.OutboundMessage{
		ConversationID: conversationID,
		Kind:           model.KindChoiceMenu,
		Visibility:     model.VisibilityPublic,
		Prompt:         welcomePrompt,
		Text:           welcomeText,
		Options:        append([]model.MenuOption(nil), welcomeOptions...),
	}
}

// IntakeForm builds the form for kind.
func IntakeForm(conversationID string, kind model.FormKind) model.OutboundMessage {
	fields := bidFields
	if kind == model.FormSales {
		fields = salesFields
	}
	return model.OutboundMessage{
		ConversationID: conversationID,
		Kind:           model.KindFieldForm,
		Visibility:     model.VisibilityPublic,
		Prompt:         formPrompts[kind],
		Fields:         append([]model.FormFieldSpec(nil), fields...),
	}
}

// Confirmation echoes submitted values back to the customer.
func Confirmation(conversationID string, kind model.FormKind, fields []model.SubmittedField) model.OutboundMessage {
	return model.OutboundMessage{
		ConversationID: conversationID,
		Kind:           model.KindConfirmation,
		Visibility:     model.VisibilityPublic,
		Text:           summarize(confirmationHeaders[kind], fields),
	}
}

// AgentNote summarises a submission for agents as an internal note.
func AgentNote(conversationID string, kind model.FormKind, fields []model.SubmittedField) model.OutboundMessage {
	return model.OutboundMessage{
		ConversationID: conversationID,
		Kind:           model.KindText,
		Visibility:     model.VisibilityInternalNote,
		Text:           summarize(noteHeaders[kind], fields),
	}
}

// summarize is a pure function of its inputs; the same fields always
// produce the same text.
func summarize(header string, fields []model.SubmittedField) string {
	var b strings.Builder
	b.WriteString(header)
	for _, f := range fields {
		if f.Name == "submit" {
			continue
		}
		b.WriteString("\n- ")
		b.WriteString(labelFor(f))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(f.Value))
	}
	return b.String()
}

func labelFor(f model.SubmittedField) string {
	if f.Label != "" {
		return f.Label
	}
	if label, ok := fieldLabels[f.Name]; ok {
		return label
	}
	return f.Name
}

func formForAction(code model.ActionCode) model.FormKind {
	if code == model.ActionSales {
		return model.FormSales
	}
	return model.FormBid
}
