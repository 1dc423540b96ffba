// Package header sets the response headers of the circuitchat server and
// reads its optional request headers.
//
// A relay answers with one long-lived event stream:
//
//	Client <--> Server <--> Upstream model (N sequential calls)
//
// so responses need headers that keep intermediaries from buffering or
// caching the stream, and browser clients need permissive CORS.
package header

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PresetHeader optionally selects the prompt preset, taking precedence over
// the preset named in the request body.
const PresetHeader = "X-Circuitchat-Preset"

// eventStream is the media type of streamed responses.
const eventStream = "text/event-stream"

// streamHeaders are set on every event-stream response.
var streamHeaders = map[string]string{
	fiber.HeaderContentType: eventStream,

	// Every frame must reach the client as it is produced.
	fiber.HeaderCacheControl: "no-cache",
	"X-Accel-Buffering":      "no",

	// Browser clients load the page from another origin during development.
	fiber.HeaderAccessControlAllowOrigin: "*",
}

// Handler manages headers for server responses.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// SetStreamHeaders marks the response as an uncached event stream.
func (h *Handler) SetStreamHeaders(c *fiber.Ctx) {
	for k, v := range streamHeaders {
		c.Set(k, v)
	}
}

// Preset returns the preset requested through PresetHeader, if any.
func (h *Handler) Preset(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Get(PresetHeader))
}

// WantsEventStream reports whether the client asked for an event stream
// through its Accept header.
func (h *Handler) WantsEventStream(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), eventStream)
}
