package provider

import (
	"errors"
	"fmt"
)

// Message is one chat message in a provider request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the provider-agnostic shape of one model call.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Stream is the canonical delta stream both providers are normalized to: an
// ordered sequence of opaque text deltas, closed when the upstream ends.
// Err is valid only after the Deltas channel closes.
type Stream struct {
	deltas chan string
	err    error
}

func newStream(buf int) *Stream {
	return &Stream{deltas: make(chan string, buf)}
}

func (s *Stream) Deltas() <-chan string { return s.deltas }

func (s *Stream) Err() error { return s.err }

// close finishes the stream, recording a terminal error if any.
func (s *Stream) closeWith(err error) {
	s.err = err
	close(s.deltas)
}

// StreamOf returns an already-complete stream carrying the given deltas.
// It wraps a full non-streamed response in stream framing so callers never
// know which provider served the request.
func StreamOf(deltas ...string) *Stream {
	s := newStream(len(deltas))
	for _, d := range deltas {
		s.deltas <- d
	}
	close(s.deltas)
	return s
}

// APIError is a non-success response from a provider.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Type, e.Message)
}

// Transient reports whether the error should trigger the secondary provider:
// rate limiting or payment required.
func (e *APIError) Transient() bool {
	return e.Status == 429 || e.Status == 402
}

// IsTransient reports whether err is a provider error worth one fallback
// attempt.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transient()
}
