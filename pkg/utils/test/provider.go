// Package testutils holds fakes shared by the package test suites.
package testutils

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/papercomputeco/circuitchat/pkg/llm"
)

// ErrScriptExhausted is returned when a MockProvider is called more times
// than it has scripted replies.
var ErrScriptExhausted = errors.New("mock provider has no scripted reply left")

// Reply is one scripted provider answer.
type Reply struct {
	// Body is the raw stream returned by Stream, or the text returned by
	// Complete.
	Body string

	// Err fails the call itself.
	Err error

	// ReadErr fails the stream after Body has been read.
	ReadErr error
}

// MockProvider answers calls from a script, one Reply per call, and records
// every request it receives.
type MockProvider struct {
	// ChunkSize splits streamed bodies into reads of at most this many bytes.
	// Zero returns the whole body in one read.
	ChunkSize int

	mu       sync.Mutex
	replies  []Reply
	requests []*llm.ChatRequest
}

// NewMockProvider creates a MockProvider answering with replies in order.
func NewMockProvider(replies ...Reply) *MockProvider {
	return &MockProvider{replies: replies}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Stream(ctx context.Context, req *llm.ChatRequest) (io.ReadCloser, error) {
	reply, err := m.next(ctx, req)
	if err != nil {
		return nil, err
	}

	var r io.Reader = NewChunkReader([]byte(reply.Body), m.ChunkSize)
	if reply.ReadErr != nil {
		r = io.MultiReader(r, &errReader{err: reply.ReadErr})
	}
	return io.NopCloser(r), nil
}

func (m *MockProvider) Complete(ctx context.Context, req *llm.ChatRequest) (string, error) {
	reply, err := m.next(ctx, req)
	if err != nil {
		return "", err
	}
	return reply.Body, nil
}

// Requests returns the requests received so far.
func (m *MockProvider) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.ChatRequest(nil), m.requests...)
}

func (m *MockProvider) next(ctx context.Context, req *llm.ChatRequest) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if len(m.replies) == 0 {
		return Reply{}, ErrScriptExhausted
	}

	reply := m.replies[0]
	m.replies = m.replies[1:]
	if reply.Err != nil {
		return Reply{}, reply.Err
	}
	return reply, nil
}

type errReader struct {
	err error
}

func (e *errReader) Read([]byte) (int, error) {
	return 0, e.err
}
