package generation

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"legalqa/internal/config"
	"legalqa/internal/constants"
	apperrors "legalqa/pkg/errors"
)

// Model turns a system instruction and a user prompt into one completion.
type Model interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewOpenAIModel(cfg config.GenerationConfig) *OpenAIModel {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = constants.DefaultChatModel
	}

	return &OpenAIModel{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (m *OpenAIModel) Generate(ctx context.Context, system, user string) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	})
	if err != nil {
		return "", apperrors.ErrGeneration.
			WithCause(fmt.Errorf("chat completion failed: %w", err)).
			WithDetail("model", m.model)
	}

	if len(resp.Choices) == 0 {
		return "", apperrors.ErrGeneration.
			WithCause(fmt.Errorf("no choices in response")).
			WithDetail("model", m.model)
	}

	return resp.Choices[0].Message.Content, nil
}

// Ping lists models to check the API key and base URL.
func (m *OpenAIModel) Ping(ctx context.Context) error {
	if _, err := m.client.ListModels(ctx); err != nil {
		return fmt.Errorf("generation service unreachable: %w", err)
	}
	return nil
}
