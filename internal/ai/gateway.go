package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
	"github.com/howtomakeaname/kizuna-engine/internal/prompts"
)

const tokenEncoding = "cl100k_base"

// Gateway implements the generation contract over one text model and one
// image model. It is safe for concurrent use.
type Gateway struct {
	text        TextModel
	image       ImageModel
	templates   *prompts.Service
	tokenBudget int
	encoder     *tiktoken.Tiktoken
	logger      zerolog.Logger
}

// NewGateway wires a gateway. image may be nil when no image backend is
// configured; GenerateImage then degrades to an empty result. tokenBudget <= 0
// disables the prompt budget warning.
func NewGateway(text TextModel, image ImageModel, templates *prompts.Service, tokenBudget int, logger zerolog.Logger) *Gateway {
	encoder, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		// Token accounting is advisory; generation still works without it.
		logger.Warn().Err(err).Msg("tiktoken encoding unavailable, prompt budget disabled")
		encoder = nil
	}
	return &Gateway{
		text:        text,
		image:       image,
		templates:   templates,
		tokenBudget: tokenBudget,
		encoder:     encoder,
		logger:      logger.With().Str("component", "ai_gateway").Logger(),
	}
}

// GenerateInitialScene asks the backend for the opening scene of a new game.
func (g *Gateway) GenerateInitialScene(ctx context.Context, theme, language, playerName string) (*models.SceneResult, error) {
	tpl := g.templates.Active(ctx, prompts.TypeInitial)
	prompt := prompts.Render(tpl, prompts.InitialParams{
		Theme:      theme,
		PlayerName: playerName,
		Language:   language,
	}.Vars())

	raw, err := g.complete(ctx, "initial_scene", prompt)
	if err != nil {
		return nil, err
	}
	return g.parseScene(raw)
}

// GenerateNextScene asks the backend for the scene following the given choice.
// An unknown choiceID is passed through as the action text; the model copes
// with it the same way the UI-side fallback always has.
func (g *Gateway) GenerateNextScene(ctx context.Context, state *models.GameState, choiceID string) (*models.SceneResult, error) {
	choiceText := choiceID
	for _, c := range state.Choices {
		if c.ID == choiceID {
			choiceText = c.Text
			break
		}
	}

	tpl := g.templates.Active(ctx, prompts.TypeNext)
	prompt := prompts.Render(tpl, prompts.NextParams{
		Theme:             state.Theme,
		PlayerName:        state.PlayerName,
		Language:          state.Language,
		Location:          state.Location,
		CurrentQuest:      state.CurrentQuest,
		HeroinesList:      prompts.FormatHeroines(state.Heroines),
		HistorySummary:    prompts.FormatHistory(state.History),
		CurrentBGM:        state.BGM,
		ChoiceText:        choiceText,
		ChoiceInstruction: prompts.ChoiceInstruction(state.TurnCount + 1),
	}.Vars())

	raw, err := g.complete(ctx, "next_scene", prompt)
	if err != nil {
		return nil, err
	}
	return g.parseScene(raw)
}

// GenerateSecretMemory asks the backend for a bonus-memory payload for the
// heroine.
func (g *Gateway) GenerateSecretMemory(ctx context.Context, heroine models.Heroine, theme, language string) (*models.SecretMemory, error) {
	tpl := g.templates.Active(ctx, prompts.TypeSecret)
	prompt := prompts.Render(tpl, prompts.SecretParams{
		HeroineName:      heroine.Name,
		HeroineArchetype: heroine.Archetype,
		Theme:            theme,
		Language:         language,
	}.Vars())

	raw, err := g.completeWith(ctx, "secret_memory", secretSchemaInstruction, prompt)
	if err != nil {
		return nil, err
	}

	var mem models.SecretMemory
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &mem); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	if mem.Title == "" || mem.ImagePrompt == "" {
		return nil, fmt.Errorf("%w: secret memory missing title or image prompt", models.ErrMalformedPayload)
	}
	if mem.ID == "" {
		mem.ID = "memory"
	}
	return &mem, nil
}

// GenerateImage renders the styled image prompt and drives the image backend.
func (g *Gateway) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if g.image == nil {
		return "", fmt.Errorf("%w: no image backend configured", models.ErrAuthMissing)
	}

	styleTpl := g.templates.Active(ctx, prompts.TypeImage)
	styled := prompts.Render(styleTpl, prompts.ImageParams{Prompt: prompt}.Vars())

	start := time.Now()
	img, err := g.image.Generate(ctx, styled)
	duration := time.Since(start)

	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"provider": g.image.Name(), "operation": "image", "status": "error"}).Inc()
		return "", fmt.Errorf("generate image: %w", err)
	}
	aiRequestsTotal.With(prometheus.Labels{"provider": g.image.Name(), "operation": "image", "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"provider": g.image.Name(), "operation": "image"}).Observe(duration.Seconds())
	g.logger.Debug().Dur("duration", duration).Int("prompt_len", len(styled)).Msg("image generated")
	return img, nil
}

func (g *Gateway) complete(ctx context.Context, operation, prompt string) (string, error) {
	return g.completeWith(ctx, operation, sceneSchemaInstruction, prompt)
}

func (g *Gateway) completeWith(ctx context.Context, operation, schemaInstruction, prompt string) (string, error) {
	system := systemInstruction + "\n\n" + schemaInstruction
	g.observeTokens(operation, system, prompt)

	start := time.Now()
	raw, err := g.text.Complete(ctx, system, prompt)
	duration := time.Since(start)

	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"provider": g.text.Name(), "operation": operation, "status": "error"}).Inc()
		return "", fmt.Errorf("%s: %w", operation, err)
	}

	aiRequestsTotal.With(prometheus.Labels{"provider": g.text.Name(), "operation": operation, "status": "success"}).Inc()
	aiRequestDuration.With(prometheus.Labels{"provider": g.text.Name(), "operation": operation}).Observe(duration.Seconds())
	g.logger.Debug().Str("operation", operation).Dur("duration", duration).Int("response_len", len(raw)).Msg("text generated")
	return raw, nil
}

func (g *Gateway) observeTokens(operation, system, user string) {
	if g.encoder == nil {
		return
	}
	count := len(g.encoder.Encode(system, nil, nil)) + len(g.encoder.Encode(user, nil, nil))
	aiPromptTokens.With(prometheus.Labels{"provider": g.text.Name(), "operation": operation}).Observe(float64(count))
	if g.tokenBudget > 0 && count > g.tokenBudget {
		g.logger.Warn().Str("operation", operation).Int("tokens", count).Int("budget", g.tokenBudget).
			Msg("composed prompt exceeds token budget")
	}
}

// sceneResultWire tolerates the looser JSON real models emit: null arrays,
// fractional affection values, null imagePrompt.
type sceneResultWire struct {
	Narrative string          `json:"narrative"`
	Choices   []models.Choice `json:"choices"`
	Heroines  []struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Archetype   string  `json:"archetype"`
		Affection   float64 `json:"affection"`
		Status      string  `json:"status"`
		Description string  `json:"description"`
	} `json:"heroines"`
	Inventory    []string         `json:"inventory"`
	CurrentQuest string           `json:"currentQuest"`
	Location     string           `json:"location"`
	ImagePrompt  *string          `json:"imagePrompt"`
	UnlockCG     *models.UnlockCG `json:"unlockCg"`
	BGM          string           `json:"bgm"`
	SoundEffect  string           `json:"soundEffect"`
}

func (g *Gateway) parseScene(raw string) (*models.SceneResult, error) {
	var wire sceneResultWire
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	if strings.TrimSpace(wire.Narrative) == "" {
		return nil, fmt.Errorf("%w: empty narrative", models.ErrMalformedPayload)
	}
	if len(wire.Choices) == 0 {
		return nil, fmt.Errorf("%w: scene has no choices", models.ErrMalformedPayload)
	}

	sc := &models.SceneResult{
		Narrative:    wire.Narrative,
		Choices:      wire.Choices,
		Inventory:    wire.Inventory,
		CurrentQuest: wire.CurrentQuest,
		Location:     wire.Location,
		UnlockCG:     wire.UnlockCG,
		BGM:          wire.BGM,
		SoundEffect:  wire.SoundEffect,
	}
	if wire.ImagePrompt != nil {
		sc.ImagePrompt = strings.TrimSpace(*wire.ImagePrompt)
		if strings.EqualFold(sc.ImagePrompt, "null") {
			sc.ImagePrompt = ""
		}
	}
	for _, h := range wire.Heroines {
		sc.Heroines = append(sc.Heroines, models.Heroine{
			ID:          h.ID,
			Name:        h.Name,
			Archetype:   h.Archetype,
			Affection:   clampAffection(int(h.Affection)),
			Status:      h.Status,
			Description: h.Description,
		})
	}
	return sc, nil
}

func clampAffection(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// stripCodeFences removes markdown code fences some models wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
