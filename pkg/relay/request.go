// Package relay drives the sequential model turns of one chat request and
// forwards their sanitized frames onto a single outbound event stream.
package relay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/circuitchat/pkg/llm"
)

// ErrInvalidRole is returned for a history entry whose role is not one of
// system, user or assistant.
var ErrInvalidRole = errors.New("invalid history role")

// Message is one prior conversation entry as sent by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is an inbound chat request.
type Request struct {
	// History is copied verbatim, in order, into every turn.
	History []Message `json:"history"`

	// Images are data-URLs or http(s) URLs, one turn each.
	Images []string `json:"images"`

	// Text is the user instruction for this request.
	Text string `json:"text"`

	// Preset optionally selects a named system instruction.
	Preset string `json:"preset,omitempty"`
}

// Validate checks the history roles.
func (r *Request) Validate() error {
	for i, msg := range r.History {
		if !llm.ValidRole(msg.Role) {
			return fmt.Errorf("%w %q at history[%d]", ErrInvalidRole, msg.Role, i)
		}
	}
	return nil
}

// Mode is the shape of a relay, resolved once per request.
type Mode int

const (
	// ModeText is a single text-only turn.
	ModeText Mode = iota

	// ModeImages is one turn per image, each followed by a separator.
	ModeImages

	// ModeTranslate is a single translation turn.
	ModeTranslate
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeImages:
		return "images"
	case ModeTranslate:
		return "translate"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ResolveMode picks the mode of a chat request.
func ResolveMode(req *Request) Mode {
	if len(req.Images) > 0 {
		return ModeImages
	}
	return ModeText
}

// history converts the client history into provider messages.
func history(msgs []Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, llm.NewTextMessage(msg.Role, msg.Content))
	}
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
