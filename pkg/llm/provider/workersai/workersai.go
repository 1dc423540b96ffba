package workersai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/circuitchat/pkg/llm"
)

const (
	name            = "workersai"
	defaultUpstream = "https://api.cloudflare.com/client/v4"
)

// Config configures the Workers AI provider.
type Config struct {
	Upstream   string
	AccountID  string
	APIToken   string
	HTTPClient *http.Client
}

// provider implements the Provider interface for the Workers AI REST API.
// Its streaming output already has the canonical frame shape, so the
// upstream body is handed to the relay untouched.
type provider struct {
	config Config
	client *http.Client
}

func New(c Config) *provider {
	if c.Upstream == "" {
		c.Upstream = defaultUpstream
	}
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &provider{config: c, client: client}
}

func (p *provider) Name() string {
	return name
}

func (p *provider) Stream(ctx context.Context, req *llm.ChatRequest) (io.ReadCloser, error) {
	body := p.runRequest(req)
	body.Stream = true

	resp, err := llm.PostJSON(ctx, p.client, name, p.url(req.Model), p.config.APIToken, body)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (p *provider) Complete(ctx context.Context, req *llm.ChatRequest) (string, error) {
	resp, err := llm.PostJSON(ctx, p.client, name, p.url(req.Model), p.config.APIToken, p.runRequest(req))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out runResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding %s response: %w", name, err)
	}

	if !out.Success && len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, fmt.Sprintf("%d: %s", e.Code, e.Message))
		}
		return "", errors.New(name + " call failed: " + strings.Join(msgs, "; "))
	}
	if out.Result.Response == nil {
		return "", llm.ErrEmptyCompletion
	}

	return *out.Result.Response, nil
}

func (p *provider) url(model string) string {
	return fmt.Sprintf("%s/accounts/%s/ai/run/%s",
		strings.TrimSuffix(p.config.Upstream, "/"),
		p.config.AccountID,
		strings.TrimPrefix(model, "/"),
	)
}

func (p *provider) runRequest(req *llm.ChatRequest) runRequest {
	messages := make([]message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, convertMessage(msg))
	}

	return runRequest{
		Messages:    messages,
		Seed:        req.Seed,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
}

// convertMessage sends text-only messages as a plain string and multimodal
// messages as an ordered array of parts.
func convertMessage(msg llm.Message) message {
	if !msg.HasImages() {
		return message{Role: msg.Role, Content: msg.GetText()}
	}

	parts := make([]contentPart, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case llm.BlockImageURL:
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: block.ImageURL}})
		case llm.BlockText:
			parts = append(parts, contentPart{Type: "text", Text: block.Text})
		}
	}
	return message{Role: msg.Role, Content: parts}
}
