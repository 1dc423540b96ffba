package llm

import (
	"io"

	"github.com/papercomputeco/circuitchat/pkg/sse"
)

// EmitFunc hands one increment of model text to a FrameStream.
type EmitFunc func(text string) error

// FrameStream adapts a provider specific streaming body (NDJSON,
// chat-completion chunks, ...) into the canonical event-stream shape:
//
//	data: {"response":"..."}\n\n
//	data: [DONE]\n\n
//
// so every provider looks the same to the relay decoder. The producer runs in
// its own goroutine and writes through an io.Pipe; each frame write blocks
// until the consumer reads it.
type FrameStream struct {
	pr   *io.PipeReader
	body io.Closer
}

// NewFrameStream starts produce over body. A producer error surfaces as the
// error of the consumer's next Read; a clean return ends the stream with the
// done-sentinel frame.
func NewFrameStream(body io.ReadCloser, produce func(r io.Reader, emit EmitFunc) error) *FrameStream {
	pr, pw := io.Pipe()

	go func() {
		defer body.Close()

		emit := func(text string) error {
			payload, err := sse.MarshalPayload(Delta{Response: text})
			if err != nil {
				return err
			}
			_, err = pw.Write(sse.EncodeData(payload))
			return err
		}

		err := produce(body, emit)
		if err == nil {
			_, err = pw.Write(sse.EncodeData([]byte(sse.DoneSentinel)))
		}
		pw.CloseWithError(err)
	}()

	return &FrameStream{pr: pr, body: body}
}

func (s *FrameStream) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

// Close stops the producer and releases the upstream body.
func (s *FrameStream) Close() error {
	_ = s.pr.Close()
	return s.body.Close()
}
