// Package server exposes the relay over HTTP: chat and translation requests
// are answered with a single event stream assembled from sequential model
// turns.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/circuitchat/pkg/eventstream"
	"github.com/papercomputeco/circuitchat/pkg/llm"
	"github.com/papercomputeco/circuitchat/pkg/prompt"
	"github.com/papercomputeco/circuitchat/pkg/relay"
	"github.com/papercomputeco/circuitchat/pkg/sse"
	"github.com/papercomputeco/circuitchat/pkg/translate"
	"github.com/papercomputeco/circuitchat/pkg/utils"
	"github.com/papercomputeco/circuitchat/server/header"
	"github.com/papercomputeco/circuitchat/server/worker"
)

const (
	chatPath      = "/chat"
	translatePath = "/translate"
	pingPath      = "/ping"

	// logPreviewLen bounds the relayed text included in debug logs.
	logPreviewLen = 120
)

// Server answers chat and translation requests with relayed event streams and
// enqueues a completion event for every finished relay.
type Server struct {
	config        Config
	relay         *relay.Relay
	translator    *translate.Translator
	presets       *prompt.Registry
	workerPool    *worker.Pool
	logger        *slog.Logger
	server        *fiber.App
	headerHandler *header.Handler
}

// New creates a new Server.
func New(config Config, r *relay.Relay, presets *prompt.Registry, publisher eventstream.Publisher, logger *slog.Logger) (*Server, error) {
	if r == nil {
		return nil, errors.New("relay is required")
	}
	if presets == nil {
		return nil, errors.New("prompt registry is required")
	}
	if config.BodyLimit == 0 {
		config.BodyLimit = defaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		BodyLimit:             config.BodyLimit,
	})

	hh := header.NewHandler()

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Accept, " + header.PresetHeader,
	}))

	// Compressing an event stream would hold frames back until the
	// compressor flushes, so only buffered responses are compressed.
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return streamsResponse(c, hh)
		},
	}))

	wp, err := worker.NewPool(&worker.Config{
		Publisher:  publisher,
		NumWorkers: config.NumWorkers,
		QueueSize:  config.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	s := &Server{
		config:        config,
		relay:         r,
		translator:    translate.New(r, presets),
		presets:       presets,
		workerPool:    wp,
		logger:        logger,
		server:        app,
		headerHandler: hh,
	}

	app.Get(pingPath, s.handlePing)
	app.All(chatPath, s.handleChat)
	app.All(translatePath, s.handleTranslate)

	return s, nil
}

// Run starts the server on the configured listening address
func (s *Server) Run() error {
	s.logger.Info("starting relay server",
		"listen", s.config.ListenAddr,
		"provider", s.config.ProviderName,
		"model", s.config.Model,
	)

	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"provider", s.config.ProviderName,
		"model", s.config.Model,
	)

	return s.server.Listener(listener)
}

// Close gracefully shuts down the server and waits for the worker pool to drain
func (s *Server) Close() error {
	err := s.server.Shutdown()
	s.workerPool.Close()
	return err
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// handleChat relays one chat request as an event stream.
func (s *Server) handleChat(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).SendString("Expected POST")
	}

	var req relay.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, fmt.Errorf("invalid chat request body: %w", err))
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err)
	}

	presetName := req.Preset
	if name := s.headerHandler.Preset(c); name != "" {
		presetName = name
	}
	inst, err := s.presets.Get(presetName)
	if err != nil {
		return badRequest(c, err)
	}

	defaultText := inst.DefaultText
	if defaultText == "" {
		defaultText = prompt.DefaultText
	}

	mode := relay.ResolveMode(&req)
	turns := relay.Plan(&req, inst.Render(), defaultText)

	s.logger.Debug("chat request",
		"mode", mode.String(),
		"preset", inst.Name,
		"history", len(req.History),
		"images", len(req.Images),
	)

	return s.stream(c, mode, inst.Name, func(ctx context.Context, w *sse.Writer) (*relay.Result, error) {
		return s.relay.Run(ctx, turns, w)
	})
}

// handleTranslate answers a translation request, streamed or buffered.
func (s *Server) handleTranslate(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).SendString("Expected POST")
	}

	var req translate.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, fmt.Errorf("invalid translation request body: %w", err))
	}
	if err := req.Validate(); err != nil {
		return badRequest(c, err)
	}

	if req.Stream {
		return s.stream(c, relay.ModeTranslate, prompt.Translate, func(ctx context.Context, w *sse.Writer) (*relay.Result, error) {
			return s.translator.Stream(ctx, &req, w)
		})
	}

	started := time.Now()
	res, err := s.translator.Complete(c.UserContext(), &req)

	event := s.newEvent("", relay.ModeTranslate, prompt.Translate)
	event.Turns = 1
	event.DurationMs = time.Since(started).Milliseconds()
	if err != nil {
		event.Aborted = true
		event.Error = err.Error()
		s.workerPool.Enqueue(worker.Job{Event: event})
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	event.Text = res.Response
	s.workerPool.Enqueue(worker.Job{Event: event})

	return c.JSON(res)
}

// runFunc writes one relay onto w.
type runFunc func(ctx context.Context, w *sse.Writer) (*relay.Result, error)

// stream answers with an event stream produced by run.
func (s *Server) stream(c *fiber.Ctx, mode relay.Mode, preset string, run runFunc) error {
	s.headerHandler.SetStreamHeaders(c)

	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns, but the relay runs
	// asynchronously in a separate goroutine for the life of the stream.
	ctx, cancel := context.WithCancel(context.Background())

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter.
	// SetBodyStreamWriter buffers through an internal channel and bufio
	// writers, so a flush in the callback does not reach the TCP socket.
	// With io.Pipe, pw.Write blocks until fasthttp's chunked body writer
	// consumes the frame and flushes it, which gives per-frame delivery and
	// direct backpressure. When the client goes away fasthttp closes the
	// reader, the next write fails and the relay context is cancelled.
	pr, pw := io.Pipe()
	go func() {
		defer cancel()
		defer pw.Close()

		res, err := run(ctx, sse.NewWriter(&cancelWriter{w: pw, cancel: cancel}))
		if err != nil {
			s.logger.Debug("relay ended early", "mode", mode.String(), "error", err)
		}
		if res != nil {
			s.enqueueResult(res, mode, preset)
		}
	}()

	// Set the pipe reader as the body stream with unknown size (-1),
	// which triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// enqueueResult hands a finished relay to the worker pool for publishing.
func (s *Server) enqueueResult(res *relay.Result, mode relay.Mode, preset string) {
	event := s.newEvent(res.ID, mode, preset)
	event.Turns = len(res.Turns)
	event.Frames = res.Frames
	event.Passthrough = res.Passthrough
	event.Aborted = res.Aborted
	event.DurationMs = res.Duration.Milliseconds()
	event.Text = res.Text
	if res.Err != nil {
		event.Error = res.Err.Error()
	}

	s.logger.Debug("relay completed",
		"relay_id", res.ID,
		"mode", mode.String(),
		"turns", event.Turns,
		"frames", res.Frames,
		"aborted", res.Aborted,
		"text", utils.Truncate(res.Text, logPreviewLen),
	)

	// Non-blocking enqueue for async publishing
	s.workerPool.Enqueue(worker.Job{Event: event})
}

func (s *Server) newEvent(relayID string, mode relay.Mode, preset string) *eventstream.RelayCompletedEvent {
	event := eventstream.NewRelayCompletedEvent(relayID, eventstream.EventSource{
		Provider: s.config.ProviderName,
		Model:    s.config.Model,
	})
	if relayID == "" {
		event.RelayID = event.EventID
	}
	event.Mode = mode.String()
	event.Preset = preset
	return event
}

// streamsResponse reports whether c will be answered with an event stream.
// Chat always streams and translation streams when the body or the Accept
// header asks for it.
func streamsResponse(c *fiber.Ctx, hh *header.Handler) bool {
	if c.Path() == chatPath || hh.WantsEventStream(c) {
		return true
	}
	if c.Path() != translatePath {
		return false
	}

	var body struct {
		Stream bool `json:"stream"`
	}
	return json.Unmarshal(c.Body(), &body) == nil && body.Stream
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
}

// cancelWriter cancels the relay once a write to the client fails.
type cancelWriter struct {
	w      io.Writer
	cancel context.CancelFunc
}

func (cw *cancelWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if err != nil {
		cw.cancel()
	}
	return n, err
}
