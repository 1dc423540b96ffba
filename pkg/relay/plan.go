package relay

import "github.com/papercomputeco/circuitchat/pkg/llm"

// Turn is one upstream model call.
type Turn struct {
	// Index is the position of the turn within the relay.
	Index int

	// Messages are the history, the user message and the trailing system
	// instruction, in that order.
	Messages []llm.Message

	// Separator requests a newline frame once the turn completes.
	Separator bool
}

// Plan expands a request into its turns. Every image gets its own turn, in
// the order supplied, and blank text on an image turn falls back to
// defaultText. A single text-only turn is planned only when there are no
// images.
func Plan(req *Request, instruction, defaultText string) []Turn {
	system := llm.NewTextMessage(llm.RoleSystem, instruction)

	if ResolveMode(req) == ModeText {
		return []Turn{{
			Index:    0,
			Messages: turnMessages(req.History, llm.NewTextMessage(llm.RoleUser, req.Text), system),
		}}
	}

	text := req.Text
	if blank(text) {
		text = defaultText
	}

	turns := make([]Turn, 0, len(req.Images))
	for i, url := range req.Images {
		turns = append(turns, Turn{
			Index:     i,
			Messages:  turnMessages(req.History, llm.NewImageMessage(llm.RoleUser, url, text), system),
			Separator: true,
		})
	}
	return turns
}

// NewTurn builds a standalone turn without history or separator.
func NewTurn(user, instruction string) Turn {
	return Turn{
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, user),
			llm.NewTextMessage(llm.RoleSystem, instruction),
		},
	}
}

func turnMessages(prior []Message, user, system llm.Message) []llm.Message {
	msgs := history(prior)
	return append(msgs, user, system)
}
