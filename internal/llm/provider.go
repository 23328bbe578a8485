// Package llm abstracts the planner's language model behind a small
// completion interface with Anthropic, OpenAI, and mock implementations.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/vigil/internal/config"
	"github.com/haasonsaas/vigil/internal/observability"
)

// Request is a single planning completion request.
type Request struct {
	// System is the system prompt (persona, rules, tool catalog).
	System string

	// Prompt is the user-turn content (observation plus context).
	Prompt string

	// MaxTokens caps the completion; zero uses the provider default.
	MaxTokens int
}

// Response is a completed request.
type Response struct {
	// Text is the raw completion text.
	Text string

	// PromptTokens and CompletionTokens report usage when the provider
	// supplies it; zero otherwise.
	PromptTokens     int
	CompletionTokens int
}

// Provider produces completions. Implementations must be safe for
// concurrent use.
type Provider interface {
	// Name identifies the provider for logging and metrics.
	Name() string

	// Complete runs one completion. Errors are transport or API failures;
	// the planner treats any error as "no plan" and falls back.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// NewProvider builds the configured provider.
//
// Example:
//
//	provider, err := llm.NewProvider(cfg.LLM, metrics)
func NewProvider(cfg config.LLMConfig, metrics *observability.Metrics) (Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg, metrics)
	case "openai":
		return NewOpenAIProvider(cfg, metrics)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}

// observe records request metrics when a metrics sink is present.
func observe(metrics *observability.Metrics, provider, model string, start time.Time, err error, resp *Response) {
	if metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	promptTokens, completionTokens := 0, 0
	if resp != nil {
		promptTokens = resp.PromptTokens
		completionTokens = resp.CompletionTokens
	}
	metrics.RecordLLMRequest(provider, model, status, time.Since(start).Seconds(), promptTokens, completionTokens)
}
