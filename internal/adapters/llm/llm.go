package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/PabloGalante/taskpilot/internal/config"
	"github.com/PabloGalante/taskpilot/internal/domain"
)

// New builds the Completer selected by cfg.Provider, bounded by cfg.Timeout.
func New(ctx context.Context, cfg config.LLMConfig) (domain.Completer, error) {
	var (
		c   domain.Completer
		err error
	)

	switch cfg.Provider {
	case config.ProviderMock:
		return NewMockLLM(), nil
	case config.ProviderVertex:
		c, err = NewVertexClient(ctx, GenAIConfig{
			ProjectID: cfg.GCPProjectID,
			Location:  cfg.GCPLocation,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	case config.ProviderGemini:
		c, err = NewGeminiClient(ctx, GenAIConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	case config.ProviderAnthropic:
		c, err = NewAnthropicClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens)
	case config.ProviderOpenAI:
		c, err = NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		c = WithTimeout(c, cfg.Timeout)
	}
	return c, nil
}

type timeoutCompleter struct {
	next    domain.Completer
	timeout time.Duration
}

// WithTimeout bounds every completion call.
func WithTimeout(next domain.Completer, timeout time.Duration) domain.Completer {
	return &timeoutCompleter{next: next, timeout: timeout}
}

func (t *timeoutCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, systemPrompt, userPrompt)
}
