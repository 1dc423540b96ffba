package llm

// ChatRequest is one inference call handed to a provider.
type ChatRequest struct {
	// Model name (e.g., "@cf/meta/llama-4-scout-17b-16e-instruct", "llava")
	Model string `json:"model"`

	// Conversation messages, in the order they are sent upstream
	Messages []Message `json:"messages"`

	// Whether the provider should stream its response
	Stream bool `json:"stream"`

	// Seed fixes the sampling seed where the upstream supports it so repeated
	// calls with the same messages are reproducible.
	Seed *int `json:"seed,omitempty"`

	// Generation parameters
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}
