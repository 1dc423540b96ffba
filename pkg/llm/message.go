// Package llm holds the provider-agnostic request and message types exchanged
// with inference providers.
package llm

import "strings"

// Roles accepted in a conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block types.
const (
	BlockText     = "text"
	BlockImageURL = "image_url"
)

// Message represents a single message in a conversation.
// Content is stored as an array of ContentBlocks so a user turn can carry an
// image reference alongside its text.
type Message struct {
	Role    string         `json:"role"`    // "system", "user", "assistant"
	Content []ContentBlock `json:"content"` // Array of content blocks
}

// ContentBlock represents a single piece of content within a message.
// The Type field determines which other fields are populated.
type ContentBlock struct {
	Type string `json:"type"` // "text", "image_url"

	// Text content (type="text")
	Text string `json:"text,omitempty"`

	// Image reference (type="image_url"), a data-URL or an http(s) URL
	ImageURL string `json:"image_url,omitempty"`
}

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{Type: BlockText, Text: text},
		},
	}
}

// NewImageMessage creates a message carrying one image reference followed by
// text, in that order.
func NewImageMessage(role, imageURL, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{Type: BlockImageURL, ImageURL: imageURL},
			{Type: BlockText, Text: text},
		},
	}
}

// GetText returns the concatenated text content from all text blocks in the message.
func (m *Message) GetText() string {
	var b strings.Builder
	for _, block := range m.Content {
		if block.Type == BlockText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// Images returns the image references of the message in order.
func (m *Message) Images() []string {
	var urls []string
	for _, block := range m.Content {
		if block.Type == BlockImageURL {
			urls = append(urls, block.ImageURL)
		}
	}
	return urls
}

// HasImages reports whether the message carries any image reference.
func (m *Message) HasImages() bool {
	for _, block := range m.Content {
		if block.Type == BlockImageURL {
			return true
		}
	}
	return false
}

// ValidRole reports whether role may appear in a conversation history.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
