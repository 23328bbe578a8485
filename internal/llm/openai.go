package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/vigil/internal/config"
	"github.com/haasonsaas/vigil/internal/observability"
)

// defaultOpenAIModel is used when the configuration names no model.
const defaultOpenAIModel = openai.GPT4oMini

// OpenAIProvider completes requests against the OpenAI chat API.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
	metrics   *observability.Metrics
}

// NewOpenAIProvider creates an OpenAI-backed provider.
func NewOpenAIProvider(cfg config.LLMConfig, metrics *observability.Metrics) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: maxTokens,
		metrics:   metrics,
	}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	completion, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages:  messages,
	})
	if err != nil {
		observe(p.metrics, p.Name(), p.model, start, err, nil)
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		err := fmt.Errorf("openai completion: no choices returned")
		observe(p.metrics, p.Name(), p.model, start, err, nil)
		return nil, err
	}

	resp := &Response{
		Text:             completion.Choices[0].Message.Content,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}
	observe(p.metrics, p.Name(), p.model, start, nil, resp)
	return resp, nil
}
