package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/vigil/internal/config"
	"github.com/haasonsaas/vigil/internal/observability"
)

// defaultAnthropicModel is used when the configuration names no model.
const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicProvider completes requests against the Anthropic Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
	metrics   *observability.Metrics
}

// NewAnthropicProvider creates an Anthropic-backed provider.
func NewAnthropicProvider(cfg config.LLMConfig, metrics *observability.Metrics) (*AnthropicProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &AnthropicProvider{
		client:    anthropic.NewClient(options...),
		model:     model,
		maxTokens: maxTokens,
		metrics:   metrics,
	}, nil
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		observe(p.metrics, p.Name(), p.model, start, err, nil)
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	resp := &Response{
		Text:             text.String(),
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}
	observe(p.metrics, p.Name(), p.model, start, nil, resp)
	return resp, nil
}
