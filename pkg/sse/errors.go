package sse

import (
	"errors"
	"fmt"
)

// ErrStreamClosed is returned by a Writer once the terminal frame has been
// written.
var ErrStreamClosed = errors.New("stream closed")

// ErrFrameTooLarge is returned when the carry-over buffer grows past the
// decoder's maximum frame size without a delimiter.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// TransportError wraps a failure reading the next chunk from upstream.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("reading upstream chunk: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedFrameError reports a frame whose marker-prefixed JSON object line
// does not parse.
type MalformedFrameError struct {
	Raw []byte
}

func (e *MalformedFrameError) Error() string {
	const preview = 64
	raw := e.Raw
	if len(raw) > preview {
		raw = raw[:preview]
	}
	return fmt.Sprintf("malformed frame payload: %q", raw)
}
