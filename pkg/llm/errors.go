package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyCompletion is returned when a buffered call yields no text field.
var ErrEmptyCompletion = errors.New("upstream returned no completion text")

// UpstreamError reports a non-200 answer from an inference provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}
