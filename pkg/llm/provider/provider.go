// Package provider defines the inference capability the relay drives and
// constructs concrete providers by name.
package provider

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/circuitchat/pkg/llm"
)

// Provider runs inference against one upstream API.
//
// Stream returns the upstream response as canonical event-stream bytes
// ("data: {\"response\":...}\n\n" frames, ending with "data: [DONE]\n\n").
// The caller owns the returned body and must close it. Chunk boundaries of
// the body are whatever the transport delivers.
//
// Complete performs one blocking call and returns the full model text.
type Provider interface {
	// Name returns the canonical provider name (e.g., "workersai", "ollama", "openai")
	Name() string

	// Stream starts a streaming call. Cancelling ctx abandons the in-flight
	// upstream read.
	Stream(ctx context.Context, req *llm.ChatRequest) (io.ReadCloser, error)

	// Complete performs a non-streaming call.
	Complete(ctx context.Context, req *llm.ChatRequest) (string, error)
}

// Options configures a provider created with New.
type Options struct {
	// Upstream is the provider base URL. Empty selects the provider default.
	Upstream string

	// AccountID is the Workers AI account identifier.
	AccountID string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// defaultTimeout bounds a whole upstream call, streaming included. Model
// calls with images can be slow.
const defaultTimeout = 5 * time.Minute

func (o Options) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: defaultTimeout}
}
