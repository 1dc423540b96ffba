package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/circuitchat/pkg/llm"
	"github.com/papercomputeco/circuitchat/pkg/sse"
)

const (
	name            = "openai"
	defaultUpstream = "https://api.openai.com/v1"
)

// Config configures the OpenAI provider. Any Chat Completions compatible
// upstream works.
type Config struct {
	Upstream   string
	APIKey     string
	HTTPClient *http.Client
}

// provider implements the Provider interface for OpenAI's Chat Completions
// API. Streamed chat.completion.chunk events are re-framed so only the
// delta text reaches the relay.
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

func (o *provider) Name() string {
	return name
}

func (o *provider) Stream(ctx context.Context, req *llm.ChatRequest) (io.ReadCloser, error) {
	body := o.chatRequest(req)
	body.Stream = true

	resp, err := llm.PostJSON(ctx, o.client, name, o.url(), o.config.APIKey, body)
	if err != nil {
		return nil, err
	}

	return llm.NewFrameStream(resp.Body, reframeChunks), nil
}

func (o *provider) Complete(ctx context.Context, req *llm.ChatRequest) (string, error) {
	resp, err := llm.PostJSON(ctx, o.client, name, o.url(), o.config.APIKey, o.chatRequest(req))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding %s response: %w", name, err)
	}
	if len(out.Choices) == 0 {
		return "", llm.ErrEmptyCompletion
	}

	return out.Choices[0].Message.Content, nil
}

func (o *provider) url() string {
	return strings.TrimSuffix(o.config.Upstream, "/") + "/chat/completions"
}

func (o *provider) chatRequest(req *llm.ChatRequest) openaiRequest {
	messages := make([]openaiMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, convertMessage(msg))
	}

	return openaiRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Seed:        req.Seed,
	}
}

func convertMessage(msg llm.Message) openaiMessage {
	if !msg.HasImages() {
		return openaiMessage{Role: msg.Role, Content: msg.GetText()}
	}

	parts := make([]openaiContentPart, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case llm.BlockImageURL:
			parts = append(parts, openaiContentPart{Type: "image_url", ImageURL: &openaiImageURL{URL: block.ImageURL}})
		case llm.BlockText:
			parts = append(parts, openaiContentPart{Type: "text", Text: block.Text})
		}
	}
	return openaiMessage{Role: msg.Role, Content: parts}
}

// reframeChunks decodes the upstream event stream and emits the first
// choice's delta content of every chunk.
func reframeChunks(r io.Reader, emit llm.EmitFunc) error {
	dec := sse.NewDecoder(r)
	for {
		frame, err := dec.Next()
		if err != nil {
			return err
		}
		if frame == nil || frame.Kind == sse.KindDone {
			return nil
		}
		if frame.Kind != sse.KindData {
			continue
		}

		for _, payload := range frame.Payloads() {
			var chunk openaiChunk
			if err := json.Unmarshal(payload, &chunk); err != nil {
				return fmt.Errorf("decoding %s chunk: %w", name, err)
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if err := emit(chunk.Choices[0].Delta.Content); err != nil {
				return err
			}
		}
	}
}
