package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
)

const (
	siliconFlowBaseURL = "https://api.siliconflow.cn"
	siliconFlowTimeout = 300 * time.Second

	// Image downloads are bounded so a misbehaving CDN cannot exhaust memory.
	maxImageBytes = 20 << 20
)

type siliconFlowClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func newSiliconFlowClient(apiKey, baseURL string) *siliconFlowClient {
	if baseURL == "" {
		baseURL = siliconFlowBaseURL
	}
	return &siliconFlowClient{
		httpClient: &http.Client{Timeout: siliconFlowTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

func (c *siliconFlowClient) post(ctx context.Context, path string, body any, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: SILICONFLOW_API_KEY is empty", models.ErrAuthMissing)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrProvider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", models.ErrProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", models.ErrProvider, resp.StatusCode, truncate(string(data), 256))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	return nil
}

// SiliconFlowModel drives the SiliconFlow chat-completions API.
type SiliconFlowModel struct {
	client *siliconFlowClient
	model  string
}

func NewSiliconFlowModel(apiKey, baseURL, model string) *SiliconFlowModel {
	return &SiliconFlowModel{client: newSiliconFlowClient(apiKey, baseURL), model: model}
}

func (m *SiliconFlowModel) Name() string { return "siliconflow" }

type sfChatRequest struct {
	Model          string          `json:"model"`
	Messages       []sfChatMessage `json:"messages"`
	ResponseFormat sfFormat        `json:"response_format"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
}

type sfChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sfFormat struct {
	Type string `json:"type"`
}

type sfChatResponse struct {
	Choices []struct {
		Message sfChatMessage `json:"message"`
	} `json:"choices"`
}

func (m *SiliconFlowModel) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var resp sfChatResponse
	err := m.client.post(ctx, "/v1/chat/completions", sfChatRequest{
		Model: m.model,
		Messages: []sfChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: sfFormat{Type: "json_object"},
		MaxTokens:      4096,
		Temperature:    1.0,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// SiliconFlowImageModel drives the SiliconFlow image-generations API and
// inlines the result as a data URI so the stored gallery does not depend on
// an expiring CDN link.
type SiliconFlowImageModel struct {
	client *siliconFlowClient
	model  string
}

func NewSiliconFlowImageModel(apiKey, baseURL, model string) *SiliconFlowImageModel {
	return &SiliconFlowImageModel{client: newSiliconFlowClient(apiKey, baseURL), model: model}
}

func (m *SiliconFlowImageModel) Name() string { return "siliconflow" }

type sfImageRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	ImageSize string `json:"image_size"`
	Seed      int    `json:"seed"`
}

type sfImageResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

func (m *SiliconFlowImageModel) Generate(ctx context.Context, prompt string) (string, error) {
	var resp sfImageResponse
	err := m.client.post(ctx, "/v1/images/generations", sfImageRequest{
		Model:     m.model,
		Prompt:    prompt,
		ImageSize: "1024x1024",
		Seed:      rand.Intn(999999999),
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Images) == 0 || resp.Images[0].URL == "" {
		return "", fmt.Errorf("%w: no image URL returned", models.ErrMalformedPayload)
	}
	return m.fetchAsDataURI(ctx, resp.Images[0].URL)
}

func (m *SiliconFlowImageModel) fetchAsDataURI(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image fetch: %w", err)
	}
	resp, err := m.client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch image: %v", models.ErrProvider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: image fetch status %d", models.ErrProvider, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read image: %v", models.ErrProvider, err)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
