package llm

import (
	"context"

	"golang.org/x/time/rate"
)

type limited struct {
	next    Completer
	limiter *rate.Limiter
}

// Limited paces calls to next at rps requests per second. A non-positive
// rps returns next unchanged.
func Limited(next Completer, rps float64) Completer {
	if rps <= 0 {
		return next
	}
	return &limited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (l *limited) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Complete(ctx, prompt, maxTokens, temperature)
}
