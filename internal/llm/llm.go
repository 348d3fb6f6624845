// Package llm holds the generation backends the stage generator talks to.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Completer turns a single instruction into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// ErrNoContent is returned when a backend answers without any generated text.
var ErrNoContent = errors.New("no content in response")

// BackendError is a non-success response from a generation backend.
type BackendError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s api status %d: %s", e.Provider, e.StatusCode, truncate(e.Message, 200))
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	return f(ctx, prompt, maxTokens, temperature)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
