package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
)

const ollamaTimeout = 300 * time.Second

// OllamaModel drives a local Ollama server. There is no credential to check:
// availability failures surface as provider errors.
type OllamaModel struct {
	client *api.Client
	model  string
}

// NewOllamaModel creates the client for the given host, e.g.
// "http://localhost:11434". api.NewClient wants the bare base URL, without a
// /v1 suffix.
func NewOllamaModel(host, model string) (*OllamaModel, error) {
	base := strings.TrimSuffix(strings.TrimSuffix(host, "/v1"), "/")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	client := api.NewClient(parsed, &http.Client{Timeout: ollamaTimeout})
	return &OllamaModel{client: client, model: model}, nil
}

func (m *OllamaModel) Name() string { return "ollama" }

func (m *OllamaModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: m.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": 0.8,
			"num_predict": 4096,
		},
	}

	var resp api.ChatResponse
	err := m.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProvider, err)
	}
	if resp.Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrProvider)
	}
	return resp.Message.Content, nil
}
