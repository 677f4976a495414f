package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Retrying retries a Generator with exponential backoff. The agent loop
// treats any error as fatal to the turn, so transient failures are absorbed
// here. A StatusError that is not Temporary is returned at once.
type Retrying struct {
	next       Generator
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewRetrying(next Generator, maxRetries int, backoff time.Duration, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Retrying{next: next, maxRetries: maxRetries, backoff: backoff, logger: logger}
}

func (r *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	delay := r.backoff

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Warn("Retrying LLM call",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return "", fmt.Errorf("LLM call cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		out, err := r.next.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if !retryable(err) {
			return "", fmt.Errorf("LLM call failed: %w", err)
		}
	}

	return "", fmt.Errorf("LLM call failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

// Ping forwards to the wrapped generator when it supports it.
func (r *Retrying) Ping(ctx context.Context) error {
	if p, ok := r.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// ModelInfo forwards to the wrapped generator when it supports it.
func (r *Retrying) ModelInfo() string {
	if m, ok := r.next.(interface{ ModelInfo() string }); ok {
		return m.ModelInfo()
	}
	return ""
}
