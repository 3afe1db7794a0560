package dialogue

import (
	"strings"
	"unicode"

	"github.com/capitalize-ai/formbot/internal/model"
)

// exactPhrases map whole-message text to action codes. Matching is
// case-insensitive after trimming.
var exactPhrases = map[string]model.ActionCode{
	"action_bid":   model.ActionBid,
	"action_sales": model.ActionSales,
	"make a bid":   model.ActionBid,
	"check sales":  model.ActionSales,
}

// keywordRules is the low-confidence fallback, checked in order.
var keywordRules = []struct {
	action   model.ActionCode
	keywords []string
}{
	{model.ActionBid, []string{"bid", "auction"}},
	{model.ActionSales, []string{"sales", "buy", "purchase"}},
}

// formMarkers identify a completed form by one of its field names.
var formMarkers = map[string]model.FormKind{
	"bid_amount":      model.FormBid,
	"inquiry_details": model.FormSales,
}

// Classify derives the intent of ev. The second result is false when the
// conversation cannot be identified and the event must be dropped.
func Classify(ev *model.InboundEvent) (model.ClassifiedEvent, bool) {
	if ev == nil || ev.ConversationID == "" {
		return model.ClassifiedEvent{}, false
	}
	return model.ClassifiedEvent{
		ConversationID: ev.ConversationID,
		AccountID:      ev.AccountID,
		Category:       ev.Category,
		Intent:         intentOf(ev),
		History:        ev.History,
	}, true
}

func intentOf(ev *model.InboundEvent) model.Intent {
	switch {
	case ev.Category == model.CategoryConversationCreated:
		return model.Intent{Kind: model.IntentStart}
	case ev.Category != model.CategoryMessageCreated || ev.Direction != model.DirectionIncoming:
		return model.Intent{Kind: model.IntentUnrecognized}
	}

	if len(ev.Submitted) > 0 {
		if code, ok := submittedAction(ev.Submitted); ok {
			return model.Intent{Kind: model.IntentAction, Action: code}
		}
		if _, ok := SubmittedForm(ev.Submitted); ok {
			return model.Intent{Kind: model.IntentFormSubmitted, Fields: ev.Submitted}
		}
	}

	if !isTextContent(ev.ContentType) {
		return model.Intent{Kind: model.IntentUnrecognized}
	}
	if code, ok := matchPhrase(ev.Content); ok {
		return model.Intent{Kind: model.IntentAction, Action: code}
	}
	if code, ok := matchKeyword(ev.Content); ok {
		return model.Intent{Kind: model.IntentAction, Action: code}
	}
	return model.Intent{Kind: model.IntentFreeText, Text: ev.Content}
}

func isTextContent(contentType string) bool {
	return contentType == "" || contentType == "text"
}

func submittedAction(fields []model.SubmittedField) (model.ActionCode, bool) {
	for _, f := range fields {
		switch model.ActionCode(strings.TrimSpace(f.Value)) {
		case model.ActionBid:
			return model.ActionBid, true
		case model.ActionSales:
			return model.ActionSales, true
		}
	}
	return "", false
}

// SubmittedForm reports which intake form a set of submitted fields completes.
func SubmittedForm(fields []model.SubmittedField) (model.FormKind, bool) {
	for _, f := range fields {
		if kind, ok := formMarkers[f.Name]; ok {
			return kind, true
		}
	}
	return "", false
}

func matchPhrase(text string) (model.ActionCode, bool) {
	code, ok := exactPhrases[strings.ToLower(strings.TrimSpace(text))]
	return code, ok
}

// matchKeyword matches whole words so that e.g. "forbidden" does not read as "bid".
func matchKeyword(text string) (model.ActionCode, bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			for _, w := range words {
				if w == kw {
					return rule.action, true
				}
			}
		}
	}
	return "", false
}
