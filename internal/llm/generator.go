// Package llm talks to language model backends and builds the prompts the
// agent loop sends them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned when a backend answers with no content.
var ErrEmptyResponse = errors.New("no response from LLM")

// Generator produces a completion for a prompt. An error means the
// backend could not be reached or refused the request.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// StatusError is a non-200 answer from a backend.
type StatusError struct {
	Backend string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Backend, e.Code)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Backend, e.Code, e.Body)
}

// Temporary reports whether the same request may succeed later: timeouts,
// rate limits and server errors.
func (e *StatusError) Temporary() bool {
	switch {
	case e.Code == http.StatusRequestTimeout, e.Code == http.StatusTooManyRequests:
		return true
	case e.Code >= 500:
		return true
	}
	return false
}

// retryable is false only for backend answers that will not change on a
// retry, such as a bad API key or an unknown model.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
