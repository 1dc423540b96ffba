package sse

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// flusher is implemented by buffered writers such as *bufio.Writer.
type flusher interface {
	Flush() error
}

// Writer is the controller of one outbound event stream. It is not safe for
// concurrent use: exactly one producer owns it for the life of the stream.
// Every write is flushed so each frame reaches the client as soon as it is
// produced.
type Writer struct {
	dst    io.Writer
	closed bool
	frames int
}

// NewWriter returns a Writer framing events onto dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// WriteFrame writes a frame's raw wire bytes.
func (w *Writer) WriteFrame(raw []byte) error {
	if w.closed {
		return ErrStreamClosed
	}

	if _, err := w.dst.Write(raw); err != nil {
		return err
	}
	w.frames++

	return w.flush()
}

// WriteData writes payload as a data frame.
func (w *Writer) WriteData(payload []byte) error {
	return w.WriteFrame(EncodeData(payload))
}

// WriteJSON marshals v and writes it as a data frame.
func (w *Writer) WriteJSON(v any) error {
	payload, err := MarshalPayload(v)
	if err != nil {
		return err
	}
	return w.WriteData(payload)
}

// Close writes the terminal frame. No frame can be written afterwards.
func (w *Writer) Close() error {
	if w.closed {
		return ErrStreamClosed
	}

	err := w.WriteFrame(EncodeData([]byte(DoneSentinel)))
	w.closed = true
	return err
}

// Abort marks the stream closed without writing the terminal frame, which
// tells the client the stream is incomplete.
func (w *Writer) Abort() {
	w.closed = true
}

// Frames returns the number of frames written, including the terminal frame.
func (w *Writer) Frames() int {
	return w.frames
}

func (w *Writer) flush() error {
	switch f := w.dst.(type) {
	case flusher:
		return f.Flush()
	case http.Flusher:
		f.Flush()
	}
	return nil
}

// EncodeData frames payload as "data: <payload>\n\n".
func EncodeData(payload []byte) []byte {
	out := make([]byte, 0, len(Marker)+1+len(payload)+len(Delimiter))
	out = append(out, Marker...)
	out = append(out, ' ')
	out = append(out, payload...)
	out = append(out, Delimiter...)
	return out
}

// MarshalPayload encodes v as compact JSON without HTML escaping, so text such
// as "<" or "&" inside model output reaches the client unchanged.
func MarshalPayload(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
