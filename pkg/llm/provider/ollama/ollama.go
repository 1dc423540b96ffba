package ollama

import (
	"bufio"
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
	name            = "ollama"
	defaultUpstream = "http://localhost:11434"
)

// ErrRemoteImage is returned for image references that are not base64
// data-URLs. Ollama only accepts inline image bytes.
var ErrRemoteImage = errors.New("ollama only accepts base64 data-URL images")

// Config configures the Ollama provider.
type Config struct {
	Upstream   string
	HTTPClient *http.Client
}

// provider implements the Provider interface for Ollama's chat API.
// Ollama streams newline-delimited JSON, which is re-framed into the
// canonical event-stream shape.
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
	body, err := o.chatRequest(req, true)
	if err != nil {
		return nil, err
	}

	resp, err := llm.PostJSON(ctx, o.client, name, o.url(), "", body)
	if err != nil {
		return nil, err
	}

	return llm.NewFrameStream(resp.Body, reframeNDJSON), nil
}

func (o *provider) Complete(ctx context.Context, req *llm.ChatRequest) (string, error) {
	body, err := o.chatRequest(req, false)
	if err != nil {
		return "", err
	}

	resp, err := llm.PostJSON(ctx, o.client, name, o.url(), "", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding %s response: %w", name, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("%s call failed: %s", name, out.Error)
	}

	return out.Message.Content, nil
}

func (o *provider) url() string {
	return strings.TrimSuffix(o.config.Upstream, "/") + "/api/chat"
}

func (o *provider) chatRequest(req *llm.ChatRequest, stream bool) (*ollamaRequest, error) {
	messages := make([]ollamaMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		converted := ollamaMessage{
			Role:    msg.Role,
			Content: msg.GetText(),
		}

		// Handle images
		for _, img := range msg.Images() {
			_, data, ok := llm.ParseDataURL(img)
			if !ok {
				return nil, ErrRemoteImage
			}
			converted.Images = append(converted.Images, data)
		}

		messages = append(messages, converted)
	}

	result := &ollamaRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
	}

	if req.Seed != nil || req.MaxTokens != nil || req.Temperature != nil {
		result.Options = &ollamaOptions{
			Seed:        req.Seed,
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		}
	}

	return result, nil
}

// reframeNDJSON emits the message content of every stream line until the
// line marked done.
func reframeNDJSON(r io.Reader, emit llm.EmitFunc) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large chunks
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk ollamaResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("decoding %s stream line: %w", name, err)
		}
		if chunk.Error != "" {
			return fmt.Errorf("%s stream failed: %s", name, chunk.Error)
		}

		if chunk.Message.Content != "" {
			if err := emit(chunk.Message.Content); err != nil {
				return err
			}
		}

		if chunk.Done {
			return nil
		}
	}

	return scanner.Err()
}
