// Package sse provides the event-stream framing used between circuitchat and
// both its upstream inference providers and its downstream clients.
//
// Upstream bytes are read with a Decoder, which reassembles arbitrarily sized
// transport chunks into complete frames. Downstream bytes are written with a
// Writer, the single controller of an outbound stream.
//
// Frames have the shape:
//
//	data: {"response":"..."}\n\n
//
// and a stream is terminated by:
//
//	data: [DONE]\n\n
//
// A frame may carry other field lines such as event: or id: next to its
// data line. The decoder accepts "\n" and "\r\n" line endings.
package sse

import "bytes"

const (
	// Marker prefixes every data frame.
	Marker = "data:"

	// Delimiter terminates every frame the Writer produces.
	Delimiter = "\n\n"

	// DoneSentinel is the payload of the terminal frame.
	DoneSentinel = "[DONE]"
)

// Kind classifies a decoded frame.
type Kind int

const (
	// KindData is a frame with at least one marker-prefixed line carrying a
	// JSON object payload.
	KindData Kind = iota + 1

	// KindDone is a frame whose data line carries the done-sentinel.
	KindDone

	// KindPassthrough is any frame without a marker + JSON line. It is
	// forwarded byte-for-byte.
	KindPassthrough
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindDone:
		return "done"
	case KindPassthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// Frame is one complete protocol event.
type Frame struct {
	Kind Kind

	// Payload is the JSON object of the first data line, without the marker
	// or surrounding whitespace. Empty for other kinds.
	Payload []byte

	// Raw is the exact wire representation of the frame, including its
	// trailing delimiter.
	Raw []byte
}

// Payloads returns the JSON object of every data line in the frame, in wire
// order.
func (f *Frame) Payloads() [][]byte {
	spans := payloadSpans(f.Raw)
	out := make([][]byte, 0, len(spans))
	for _, s := range spans {
		out = append(out, f.Raw[s.start:s.end])
	}
	return out
}

// Rewrite returns a frame whose data line payloads are replaced by fn's
// result. Every other byte of Raw, field lines and line endings included, is
// kept. f itself is returned when no payload changes.
func (f *Frame) Rewrite(fn func(payload []byte) ([]byte, error)) (*Frame, error) {
	if f.Kind != KindData {
		return f, nil
	}

	var (
		raw     []byte
		first   []byte
		last    int
		changed bool
	)
	for i, s := range payloadSpans(f.Raw) {
		payload := f.Raw[s.start:s.end]
		next, err := fn(payload)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = next
		}
		if bytes.Equal(next, payload) {
			continue
		}

		changed = true
		raw = append(raw, f.Raw[last:s.start]...)
		raw = append(raw, next...)
		last = s.end
	}
	if !changed {
		return f, nil
	}

	raw = append(raw, f.Raw[last:]...)
	return &Frame{Kind: KindData, Payload: bytes.Clone(first), Raw: raw}, nil
}

// span is a byte range inside a frame's Raw bytes.
type span struct {
	start, end int
}

// payloadSpans locates the JSON object of every data line in raw.
func payloadSpans(raw []byte) []span {
	var (
		spans []span
		off   int
	)
	for line := range bytes.Lines(raw) {
		if s, ok := objectSpan(line); ok {
			spans = append(spans, span{start: off + s.start, end: off + s.end})
		}
		off += len(line)
	}
	return spans
}

// objectSpan reports where the payload of a "data: {...}" line starts and
// ends, its line ending excluded.
func objectSpan(line []byte) (span, bool) {
	rest, ok := bytes.CutPrefix(line, []byte(Marker))
	if !ok {
		return span{}, false
	}

	value := bytes.TrimLeft(rest, " \t")
	if len(value) == 0 || value[0] != '{' {
		return span{}, false
	}

	start := len(line) - len(value)
	return span{start: start, end: start + len(bytes.TrimRight(value, " \t\r\n"))}, true
}
