// Package sanitize removes fenced code blocks from the model text carried in
// event payloads. Only the text field is rewritten; every other byte of a
// payload is left exactly as the upstream sent it.
package sanitize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/papercomputeco/circuitchat/pkg/sse"
)

// Field is the payload member holding model text.
const Field = "response"

// fence matches a triple-backtick span, first opener to first closer.
var fence = regexp.MustCompile("```[\\s\\S]*?```")

// ErrNotObject is returned when a payload is not a JSON object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Text strips every fenced span from s. Removal is repeated until no fence
// pair remains, since deleting a span can join stray backticks on either side
// into a new one.
func Text(s string) string {
	for fence.MatchString(s) {
		s = fence.ReplaceAllLiteralString(s, "")
	}
	return s
}

// Payload sanitizes the top-level text field of a JSON object in place. A
// payload without a string text field is returned unchanged.
func Payload(raw []byte) ([]byte, error) {
	start, end, err := locate(raw, Field)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return raw, nil
	}

	var text string
	if err := json.Unmarshal(raw[start:end], &text); err != nil {
		// Present but not a string (for example null); nothing to clean.
		return raw, nil
	}

	clean := Text(text)
	if clean == text {
		return raw, nil
	}

	encoded, err := sse.MarshalPayload(clean)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(raw)-(end-start)+len(encoded))
	out = append(out, raw[:start]...)
	out = append(out, encoded...)
	out = append(out, raw[end:]...)
	return out, nil
}

// Frame returns f with the text field of every data line sanitized. The
// result keeps the wire shape f arrived in: field lines, spacing after the
// marker and line endings are unchanged. Other kinds are returned as is.
func Frame(f *sse.Frame) (*sse.Frame, error) {
	if f.Kind != sse.KindData {
		return f, nil
	}
	return f.Rewrite(Payload)
}

// locate returns the byte span of the value of the top-level member key, or
// -1, -1 when the member is absent. A duplicated member resolves to its last
// occurrence, the one JSON decoders keep.
func locate(raw []byte, key string) (int, int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return -1, -1, fmt.Errorf("reading payload: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return -1, -1, ErrNotObject
	}

	start, end := -1, -1
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return -1, -1, fmt.Errorf("reading payload key: %w", err)
		}
		name, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return -1, -1, fmt.Errorf("reading payload member %q: %w", name, err)
		}
		if name == key {
			end = int(dec.InputOffset())
			start = end - len(value)
		}
	}

	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return -1, -1, fmt.Errorf("reading payload: %w", err)
	}
	return start, end, nil
}
