package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
)

const openAITimeout = 300 * time.Second

// OpenAIModel drives any OpenAI-compatible chat-completions endpoint. A
// custom BaseURL covers self-hosted or proxy deployments (OpenRouter, vLLM,
// LM Studio) with the same client.
type OpenAIModel struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewOpenAIModel creates the text client. baseURL may be empty for the
// default endpoint.
func NewOpenAIModel(apiKey, baseURL, model string) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: openAITimeout}
	return &OpenAIModel{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		apiKey: apiKey,
	}
}

func (m *OpenAIModel) Name() string { return "openai" }

func (m *OpenAIModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if m.apiKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY is empty", models.ErrAuthMissing)
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		MaxTokens:   4096,
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProvider, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIImageModel drives the images endpoint of the same deployment.
type OpenAIImageModel struct {
	client *openai.Client
	model  string
	apiKey string
}

func NewOpenAIImageModel(apiKey, baseURL, model string) *OpenAIImageModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: openAITimeout}
	return &OpenAIImageModel{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		apiKey: apiKey,
	}
}

func (m *OpenAIImageModel) Name() string { return "openai" }

func (m *OpenAIImageModel) Generate(ctx context.Context, prompt string) (string, error) {
	if m.apiKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY is empty", models.ErrAuthMissing)
	}

	resp, err := m.client.CreateImage(ctx, openai.ImageRequest{
		Model:          m.model,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProvider, err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("%w: no image returned", models.ErrProvider)
	}
	if resp.Data[0].B64JSON != "" {
		return "data:image/jpeg;base64," + resp.Data[0].B64JSON, nil
	}
	if resp.Data[0].URL != "" {
		return resp.Data[0].URL, nil
	}
	return "", fmt.Errorf("%w: image response carries neither data nor url", models.ErrMalformedPayload)
}
