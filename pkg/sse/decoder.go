package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

const (
	defaultChunkSize = 4 * 1024
	defaultMaxFrame  = 1024 * 1024
)

// Decoder reassembles complete frames from an upstream byte stream whose
// chunk boundaries are arbitrary.
//
// ┌──────────────────┐
// │ upstream chunks  │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │   carry-over     │──▶│ optional tee io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │  Decoder.Next()  │──▶ *Frame
// └──────────────────┘
//
// Each chunk read from the source is appended to a carry-over buffer, which
// is then re-scanned for the frame delimiter. Bytes that never become a
// complete frame before end of stream are discarded and counted.
type Decoder struct {
	src  io.Reader
	tee  io.Writer
	buf  []byte
	max  int
	eof  bool
	done bool

	carry []byte

	// scanned is the carry-over offset already searched for a delimiter.
	scanned int

	discarded int
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithChunkSize sets the size of each read from the source.
func WithChunkSize(n int) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.buf = make([]byte, n)
		}
	}
}

// WithMaxFrameSize bounds the carry-over buffer.
func WithMaxFrameSize(n int) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.max = n
		}
	}
}

// WithTee copies every raw chunk to w as it is read, before it is decoded.
func WithTee(w io.Writer) DecoderOption {
	return func(d *Decoder) {
		d.tee = w
	}
}

// NewDecoder returns a Decoder reading chunks from src.
func NewDecoder(src io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		src: src,
		buf: make([]byte, defaultChunkSize),
		max: defaultMaxFrame,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next complete frame. It blocks only while waiting for the
// next chunk from the source. Next returns nil, nil once the source is
// exhausted.
//
// Read failures are returned as *TransportError and malformed JSON inside a
// data frame as *MalformedFrameError. Both are terminal for the decoder.
func (d *Decoder) Next() (*Frame, error) {
	if d.done {
		return nil, nil
	}

	for {
		frame, err := d.scan()
		if err != nil {
			return nil, err
		}
		if frame != nil {
			return frame, nil
		}

		if d.eof {
			d.done = true
			return d.finish(), nil
		}

		if err := d.fill(); err != nil {
			return nil, err
		}
	}
}

// Discarded returns how many trailing bytes were dropped at end of stream
// because they did not form a complete frame.
func (d *Decoder) Discarded() int {
	return d.discarded
}

// fill reads one chunk from the source into the carry-over buffer.
func (d *Decoder) fill() error {
	n, err := d.src.Read(d.buf)
	if n > 0 {
		chunk := d.buf[:n]
		if d.tee != nil {
			if _, werr := d.tee.Write(chunk); werr != nil {
				return werr
			}
		}
		d.carry = append(d.carry, chunk...)
	}

	switch {
	case errors.Is(err, io.EOF):
		d.eof = true
	case err != nil:
		return &TransportError{Err: err}
	}

	if len(d.carry) > d.max {
		return ErrFrameTooLarge
	}
	return nil
}

// scan extracts the next delimited block from the carry-over, skipping empty
// blocks. It returns nil when no complete block is buffered.
func (d *Decoder) scan() (*Frame, error) {
	for {
		// A delimiter is at most three bytes, so a partial one at the end of
		// the previous scan starts no earlier than two bytes back.
		from := max(d.scanned-2, 0)
		idx, n := delimiter(d.carry, from)
		if idx < 0 {
			d.scanned = len(d.carry)
			return nil, nil
		}

		block := d.carry[:idx]
		delim := d.carry[idx : idx+n]
		rest := d.carry[idx+n:]
		d.scanned = 0

		if len(bytes.Trim(block, "\r\n")) == 0 {
			// Keep-alive newlines between frames.
			d.carry = d.shift(rest)
			continue
		}

		frame, err := parseBlock(block, delim)
		d.carry = d.shift(rest)
		if err != nil {
			return nil, err
		}
		return frame, nil
	}
}

// delimiter finds the first blank line in b at or after from. It returns the
// index of the line ending that closes the block and the length of the
// delimiter, or -1 when b holds no complete delimiter. Lines end in "\n" or
// "\r\n".
func delimiter(b []byte, from int) (int, int) {
	for i := from; i < len(b); i++ {
		j := bytes.IndexByte(b[i:], '\n')
		if j < 0 {
			return -1, 0
		}
		i += j

		switch {
		case i+1 < len(b) && b[i+1] == '\n':
			return i, 2
		case i+2 < len(b) && b[i+1] == '\r' && b[i+2] == '\n':
			return i, 3
		}
	}
	return -1, 0
}

// shift moves rest to the front of the carry-over buffer. Frames own copies
// of their bytes so the backing array can be reused.
func (d *Decoder) shift(rest []byte) []byte {
	n := copy(d.carry, rest)
	return d.carry[:n]
}

// finish resolves whatever is left in the carry-over at end of stream. A data
// or done frame missing only its final delimiter is still complete and is
// returned; anything else is discarded.
func (d *Decoder) finish() *Frame {
	block := bytes.TrimRight(d.carry, "\r\n")
	defer func() { d.carry = nil }()

	if len(block) == 0 {
		return nil
	}

	frame, err := parseBlock(block, []byte(Delimiter))
	if err != nil || frame.Kind == KindPassthrough {
		d.discarded += len(d.carry)
		return nil
	}
	return frame
}

// parseBlock classifies a block of lines that was terminated by delim. The
// first data line carrying a JSON object makes it a data frame; every such
// line must hold valid JSON.
func parseBlock(block, delim []byte) (*Frame, error) {
	raw := make([]byte, 0, len(block)+len(delim))
	raw = append(raw, block...)
	raw = append(raw, delim...)

	frame := &Frame{Kind: KindPassthrough, Raw: raw}
	for _, s := range payloadSpans(raw) {
		payload := raw[s.start:s.end]
		if !json.Valid(payload) {
			return nil, &MalformedFrameError{Raw: raw}
		}
		if frame.Kind != KindData {
			frame.Kind = KindData
			frame.Payload = payload
		}
	}

	if frame.Kind == KindPassthrough && carriesDone(block) {
		frame.Kind = KindDone
	}
	return frame, nil
}

// carriesDone reports whether a data line of block holds the done-sentinel.
func carriesDone(block []byte) bool {
	for line := range bytes.Lines(block) {
		rest, ok := bytes.CutPrefix(line, []byte(Marker))
		if ok && string(bytes.TrimSpace(rest)) == DoneSentinel {
			return true
		}
	}
	return false
}
