// Package client talks to a running circuitchat server: it posts relay
// requests and reassembles the streamed answer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/circuitchat/pkg/llm"
	"github.com/papercomputeco/circuitchat/pkg/logger"
	"github.com/papercomputeco/circuitchat/pkg/relay"
	"github.com/papercomputeco/circuitchat/pkg/sse"
	"github.com/papercomputeco/circuitchat/pkg/translate"
)

// ErrIncomplete is returned when a stream ends without its terminal frame.
var ErrIncomplete = errors.New("stream ended before the terminal frame")

// StreamError is an error frame sent by the server mid-stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "server: " + e.Message
}

// StatusError is a non-200 answer from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// DeltaFunc receives every piece of streamed text as it arrives.
type DeltaFunc func(text string)

// Config configures a Client.
type Config struct {
	// Target is the server base URL (e.g., "http://localhost:8787").
	Target string

	// Tee receives the raw stream bytes as they are read.
	Tee io.Writer

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client is a circuitchat server client.
type Client struct {
	target string
	tee    io.Writer
	http   *http.Client
	logger *slog.Logger
}

// New creates a Client.
func New(c Config) *Client {
	httpClient := c.HTTPClient
	if httpClient == nil {
		// Relays with several images take a while.
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		target: strings.TrimRight(c.Target, "/"),
		tee:    c.Tee,
		http:   httpClient,
		logger: log,
	}
}

// Ping checks the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target+"/ping", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pinging server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// Chat sends one chat request and returns the accumulated response text.
func (c *Client) Chat(ctx context.Context, req *relay.Request, onDelta DeltaFunc) (string, error) {
	return c.stream(ctx, "/chat", req, onDelta)
}

// TranslateStream sends a streamed translation request and returns the
// accumulated translated text.
func (c *Client) TranslateStream(ctx context.Context, req *translate.Request, onDelta DeltaFunc) (string, error) {
	streamed := *req
	streamed.Stream = true
	return c.stream(ctx, "/translate", &streamed, onDelta)
}

// Translate sends a buffered translation request.
func (c *Client) Translate(ctx context.Context, req *translate.Request) (*translate.Result, error) {
	buffered := *req
	buffered.Stream = false

	resp, err := c.post(ctx, "/translate", &buffered, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	res := &translate.Result{}
	if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
		return nil, fmt.Errorf("decoding translation: %w", err)
	}
	return res, nil
}

// frame is the union of the payloads a server stream carries.
type frame struct {
	Response *string `json:"response"`
	Error    *string `json:"error"`
}

func (c *Client) stream(ctx context.Context, path string, body any, onDelta DeltaFunc) (string, error) {
	resp, err := c.post(ctx, path, body, "text/event-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var opts []sse.DecoderOption
	if c.tee != nil {
		opts = append(opts, sse.WithTee(c.tee))
	}
	dec := sse.NewDecoder(resp.Body, opts...)

	var text strings.Builder
	for {
		f, err := dec.Next()
		if err != nil {
			return text.String(), fmt.Errorf("reading stream: %w", err)
		}
		if f == nil {
			return text.String(), ErrIncomplete
		}

		switch f.Kind {
		case sse.KindDone:
			return text.String(), nil

		case sse.KindPassthrough:
			c.logger.Debug("ignoring unexpected stream line", "bytes", len(f.Raw))

		case sse.KindData:
			for _, raw := range f.Payloads() {
				var payload frame
				if err := json.Unmarshal(raw, &payload); err != nil {
					return text.String(), fmt.Errorf("decoding frame: %w", err)
				}
				if payload.Error != nil {
					return text.String(), &StreamError{Message: *payload.Error}
				}
				if payload.Response == nil {
					continue
				}
				text.WriteString(*payload.Response)
				if onDelta != nil {
					onDelta(*payload.Response)
				}
			}
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body any, accept string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	c.logger.Debug("sending request", "url", req.URL.String(), "bytes", len(payload))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to server: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

// statusError reads the error body of a failed response.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))

	msg := strings.TrimSpace(string(raw))
	var body llm.ErrorResponse
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
