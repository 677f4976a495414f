package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/config"
	"go.uber.org/zap"
)

// Pinger is implemented by generators that can check connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewFromConfig builds the configured client wrapped in Retrying.
func NewFromConfig(cfg config.LLMConfig, logger *zap.Logger) (*Retrying, error) {
	var gen Generator
	switch cfg.Provider {
	case "openai":
		gen = NewClient(ClientConfig{
			Endpoint:    cfg.Endpoint,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			Timeout:     cfg.Timeout(),
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
		})
	case "ollama", "":
		gen = NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.Endpoint,
			Model:       cfg.Model,
			Timeout:     cfg.Timeout(),
			Temperature: cfg.Temperature,
			NumPredict:  cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	return NewRetrying(gen, cfg.MaxRetries, time.Second, logger), nil
}
