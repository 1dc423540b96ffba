// Package translate renders designed circuit documents into another
// language through the same relay machinery as chat, streaming or buffered.
package translate

import (
	"context"
	"errors"
	"strings"

	"github.com/papercomputeco/circuitchat/pkg/prompt"
	"github.com/papercomputeco/circuitchat/pkg/relay"
	"github.com/papercomputeco/circuitchat/pkg/sections"
	"github.com/papercomputeco/circuitchat/pkg/sse"
)

// ErrMissingLanguage is returned for a request without a target language.
var ErrMissingLanguage = errors.New("translation requires a target language")

// Content holds the three document blocks to translate.
type Content struct {
	Schematic string `json:"schematic"`
	PCB       string `json:"pcb"`
	BOM       string `json:"bom"`
}

// Request is an inbound translation request.
type Request struct {
	Language string  `json:"language"`
	Content  Content `json:"content"`

	// Stream selects the event-stream response over a single JSON result.
	Stream bool `json:"stream,omitempty"`
}

// Validate checks the request.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Language) == "" {
		return ErrMissingLanguage
	}
	return nil
}

// FromSections builds the content from parsed sections. Missing blocks are
// left empty and a repeated block contributes its first occurrence.
func FromSections(secs []sections.Section) Content {
	body := func(label string) string {
		s, _ := sections.Find(secs, label)
		return s.Body
	}
	return Content{
		Schematic: body(sections.Schematic),
		PCB:       body(sections.PCB),
		BOM:       body(sections.BOM),
	}
}

// Document embeds the three bodies verbatim between their marker lines.
func (c Content) Document() string {
	var b strings.Builder
	for i, block := range []struct{ label, body string }{
		{sections.Schematic, c.Schematic},
		{sections.PCB, c.PCB},
		{sections.BOM, c.BOM},
	} {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("=== " + block.label + " ===\n")
		b.WriteString(block.body)
	}
	return b.String()
}

// Result is the buffered translation response.
type Result struct {
	Response string `json:"response"`
	Language string `json:"language"`
}

// Translator runs translation turns.
type Translator struct {
	relay   *relay.Relay
	presets *prompt.Registry
}

// New creates a Translator. The translate preset is looked up on every call
// so reloaded overrides take effect.
func New(r *relay.Relay, presets *prompt.Registry) *Translator {
	return &Translator{relay: r, presets: presets}
}

// Turn builds the single translation turn for req.
func (t *Translator) Turn(req *Request) (relay.Turn, error) {
	if err := req.Validate(); err != nil {
		return relay.Turn{}, err
	}

	inst, err := t.presets.Get(prompt.Translate)
	if err != nil {
		return relay.Turn{}, err
	}

	instruction := inst.Expand(map[string]string{"language": strings.TrimSpace(req.Language)})
	return relay.NewTurn(req.Content.Document(), instruction), nil
}

// Stream runs the translation as an event stream onto w, with the same
// framing as a chat relay.
func (t *Translator) Stream(ctx context.Context, req *Request, w *sse.Writer) (*relay.Result, error) {
	turn, err := t.Turn(req)
	if err != nil {
		return nil, err
	}
	return t.relay.Run(ctx, []relay.Turn{turn}, w)
}

// Complete runs the translation as one blocking call.
func (t *Translator) Complete(ctx context.Context, req *Request) (*Result, error) {
	turn, err := t.Turn(req)
	if err != nil {
		return nil, err
	}

	text, err := t.relay.Complete(ctx, turn)
	if err != nil {
		return nil, err
	}
	return &Result{Response: text, Language: req.Language}, nil
}
