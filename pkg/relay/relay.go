package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/circuitchat/pkg/llm"
	"github.com/papercomputeco/circuitchat/pkg/llm/provider"
	"github.com/papercomputeco/circuitchat/pkg/logger"
	"github.com/papercomputeco/circuitchat/pkg/sanitize"
	"github.com/papercomputeco/circuitchat/pkg/sse"
)

// separator is the synthetic frame written after every image turn so the
// client can tell the turns apart.
var separator = []byte("data: {\"response\":\"\\n\"}\n\n")

// DefaultSeed fixes sampling so identical requests give identical output.
const DefaultSeed = 42

// Config configures a Relay.
type Config struct {
	// Provider runs the upstream model calls.
	Provider provider.Provider

	// Model is the upstream model name.
	Model string

	// Seed is sent with every call. Nil selects DefaultSeed.
	Seed *int

	// MaxTokens optionally bounds each call.
	MaxTokens *int

	// Temperature optionally overrides the upstream default.
	Temperature *float64

	// MaxFrameSize bounds one upstream frame in bytes. Zero keeps the
	// decoder default.
	MaxFrameSize int

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// Relay runs turns against one provider. A Relay holds no per-request state
// and can serve concurrent requests.
type Relay struct {
	config Config
	logger *slog.Logger
}

// New creates a Relay.
func New(c Config) (*Relay, error) {
	if c.Provider == nil {
		return nil, errors.New("relay requires a provider")
	}
	if c.Model == "" {
		return nil, errors.New("relay requires a model name")
	}
	if c.Seed == nil {
		seed := DefaultSeed
		c.Seed = &seed
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Relay{config: c, logger: log}, nil
}

// TurnStats describes one completed or failed turn.
type TurnStats struct {
	Index       int
	Frames      int
	Passthrough int
	Discarded   int
	Duration    time.Duration
}

// Result summarizes one relay run.
type Result struct {
	// ID identifies the run in logs and published events.
	ID string

	// Text is the concatenation, in receipt order, of every sanitized text
	// field forwarded, separators included.
	Text string

	Turns       []TurnStats
	Frames      int
	Passthrough int

	// Aborted is true when the stream ended without the terminal frame.
	Aborted bool

	// Err is the failure that aborted the run, if any.
	Err error

	Duration time.Duration
}

// Run executes turns strictly in order and forwards their frames to w. After
// the last turn the terminal frame is written and w is closed.
//
// If ctx is cancelled no further turns start and w is aborted without the
// terminal frame. Any other failure writes an error frame first. The returned
// Result is never nil.
func (r *Relay) Run(ctx context.Context, turns []Turn, w *sse.Writer) (*Result, error) {
	started := time.Now()
	res := &Result{ID: uuid.NewString()}
	log := r.logger.With("relay_id", res.ID)

	log.Debug("relay started", "turns", len(turns), "model", r.config.Model)

	err := r.run(ctx, log, turns, w, res)
	res.Duration = time.Since(started)
	res.Frames = w.Frames()

	if err != nil {
		res.Aborted = true
		res.Err = err
		r.fail(ctx, log, w, err)
		return res, err
	}

	if err := w.Close(); err != nil {
		res.Aborted = true
		res.Err = err
		log.Warn("writing terminal frame", "error", err)
		return res, err
	}
	res.Frames = w.Frames()

	log.Info("relay completed",
		"turns", len(res.Turns),
		"frames", res.Frames,
		"passthrough", res.Passthrough,
		"duration", res.Duration,
	)
	return res, nil
}

func (r *Relay) run(ctx context.Context, log *slog.Logger, turns []Turn, w *sse.Writer, res *Result) error {
	var text []byte
	defer func() { res.Text = string(text) }()

	for _, turn := range turns {
		if err := ctx.Err(); err != nil {
			return err
		}

		stats, err := r.turn(ctx, log, turn, w, &text)
		res.Turns = append(res.Turns, stats)
		res.Passthrough += stats.Passthrough
		if err != nil {
			return fmt.Errorf("turn %d: %w", turn.Index, err)
		}

		if turn.Separator {
			if err := w.WriteFrame(separator); err != nil {
				return &writeError{err: err}
			}
			text = append(text, '\n')
		}
	}
	return nil
}

// turn streams one upstream call. Upstream done frames are swallowed: the
// relay writes a single terminal frame of its own once every turn is over.
func (r *Relay) turn(ctx context.Context, log *slog.Logger, turn Turn, w *sse.Writer, text *[]byte) (stats TurnStats, err error) {
	started := time.Now()
	stats.Index = turn.Index
	defer func() { stats.Duration = time.Since(started) }()

	body, err := r.config.Provider.Stream(ctx, r.chatRequest(turn))
	if err != nil {
		return stats, err
	}
	defer body.Close()

	dec := sse.NewDecoder(body, sse.WithMaxFrameSize(r.config.MaxFrameSize))
	for {
		frame, err := dec.Next()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return stats, ctxErr
			}
			return stats, err
		}
		if frame == nil {
			break
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		switch frame.Kind {
		case sse.KindDone:
			continue

		case sse.KindPassthrough:
			log.Debug("forwarding unrecognized upstream block", "turn", turn.Index, "bytes", len(frame.Raw))
			if err := w.WriteFrame(frame.Raw); err != nil {
				return stats, &writeError{err: err}
			}
			stats.Passthrough++

		case sse.KindData:
			cleaned, delta, err := clean(frame)
			if err != nil {
				return stats, err
			}
			if err := w.WriteFrame(cleaned.Raw); err != nil {
				return stats, &writeError{err: err}
			}
			*text = append(*text, delta...)
		}
		stats.Frames++
	}

	if n := dec.Discarded(); n > 0 {
		stats.Discarded = n
		log.Warn("discarded incomplete trailing upstream bytes", "turn", turn.Index, "bytes", n)
	}

	log.Debug("turn completed", "turn", turn.Index, "frames", stats.Frames)
	return stats, nil
}

// clean sanitizes a data frame and returns it with the text it carries.
func clean(frame *sse.Frame) (*sse.Frame, string, error) {
	cleaned, err := sanitize.Frame(frame)
	if err != nil {
		return nil, "", err
	}

	var text strings.Builder
	for _, payload := range cleaned.Payloads() {
		var delta llm.Delta
		// A missing or non-string text field contributes no text.
		_ = json.Unmarshal(payload, &delta)
		text.WriteString(delta.Response)
	}
	return cleaned, text.String(), nil
}

// Complete runs one turn as a single blocking call and returns its
// sanitized text.
func (r *Relay) Complete(ctx context.Context, turn Turn) (string, error) {
	req := r.chatRequest(turn)
	req.Stream = false

	text, err := r.config.Provider.Complete(ctx, req)
	if err != nil {
		r.logger.Error("buffered call failed", "error", err)
		return "", err
	}
	return sanitize.Text(text), nil
}

func (r *Relay) chatRequest(turn Turn) *llm.ChatRequest {
	return &llm.ChatRequest{
		Model:       r.config.Model,
		Messages:    turn.Messages,
		Stream:      true,
		Seed:        r.config.Seed,
		MaxTokens:   r.config.MaxTokens,
		Temperature: r.config.Temperature,
	}
}

// fail ends the stream without the terminal frame. The client is told why
// unless it is the one that went away.
func (r *Relay) fail(ctx context.Context, log *slog.Logger, w *sse.Writer, err error) {
	defer w.Abort()

	var werr *writeError
	switch {
	case ctx.Err() != nil:
		log.Info("relay cancelled", "error", err)
		return
	case errors.As(err, &werr):
		log.Warn("client write failed", "error", err)
		return
	}

	log.Error("relay failed", "error", err)
	if werr := w.WriteJSON(llm.StreamError{Error: err.Error()}); werr != nil {
		log.Warn("writing error frame", "error", werr)
	}
}

// writeError marks a failure writing to the client.
type writeError struct {
	err error
}

func (e *writeError) Error() string {
	return "writing to client: " + e.err.Error()
}

func (e *writeError) Unwrap() error {
	return e.err
}
