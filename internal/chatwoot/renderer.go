package chatwoot

import (
	"fmt"

	"github.com/capitalize-ai/formbot/internal/model"
)

// Renderer selects the encoder for a message. Choice menus carry a primary
// and a fallback encoding; every other kind has exactly one.
type Renderer struct {
	encoders map[model.MessageKind][]Encoder
}

// NewRenderer creates a renderer. menuEncoding names the primary menu
// widget ("input_select" or "cards"); the other becomes the fallback.
func NewRenderer(menuEncoding string) *Renderer {
	menu := []Encoder{InputSelectEncoder{}, CardsEncoder{}}
	if menuEncoding == ContentTypeCards {
		menu = []Encoder{CardsEncoder{}, InputSelectEncoder{}}
	}
	return &Renderer{
		encoders: map[model.MessageKind][]Encoder{
			model.KindText:         {TextEncoder{}},
			model.KindConfirmation: {TextEncoder{}},
			model.KindChoiceMenu:   menu,
			model.KindFieldForm:    {FormEncoder{}},
		},
	}
}

// Attempts returns how many distinct encodings exist for kind.
func (r *Renderer) Attempts(kind model.MessageKind) int {
	return len(r.encoders[kind])
}

// Encode renders msg using the encoding for attempt (0 = primary). A
// non-zero attempt means the previous representation was rejected.
func (r *Renderer) Encode(msg model.OutboundMessage, attempt int) (Payload, error) {
	encs, ok := r.encoders[msg.Kind]
	if !ok {
		return Payload{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, msg.Kind)
	}
	if attempt < 0 || attempt >= len(encs) {
		return Payload{}, fmt.Errorf("%w for %s (attempt %d)", ErrNoAlternative, msg.Kind, attempt)
	}
	return encs[attempt].Encode(msg)
}
