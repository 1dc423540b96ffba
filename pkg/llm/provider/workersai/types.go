// Package workersai implements the Cloudflare Workers AI REST provider.
package workersai

// runRequest is the body of POST /accounts/{account}/ai/run/{model}.
type runRequest struct {
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream,omitempty"`
	Seed        *int      `json:"seed,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentPart for vision
}

// contentPart is one element of a multimodal message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// runResponse is the envelope returned for non-streaming calls.
type runResponse struct {
	Result struct {
		Response *string `json:"response"`
	} `json:"result"`
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
