package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	ErrMissingCredential = errors.New("GEMINI_API_KEY is not set")
	ErrStreamConsumed    = errors.New("stream already consumed")
)

// Generator turns a prompt into the complete model answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Streamer exposes the answer as fragments in arrival order.
// The returned sequence may be ranged over once.
type Streamer interface {
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Collect concatenates fragments and trims the result. Partial text is
// dropped when the sequence yields an error.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for fragment, err := range seq {
		if err != nil {
			return "", err
		}
		b.WriteString(fragment)
	}
	return strings.TrimSpace(b.String()), nil
}

// TransportError covers every failure after the request has been attempted:
// network errors, non-2xx statuses and error events inside the stream.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
