package llm

// ErrorResponse is the JSON body returned for request failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StreamError is the frame written when a stream fails part way. It carries
// an empty text field so every frame on the wire has one.
type StreamError struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Delta is one increment of streamed model text as it appears on the wire.
type Delta struct {
	Response string `json:"response"`
}
