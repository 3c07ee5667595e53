// Package prompts manages the versioned prompt templates fed to the
// generation backend. Templates are append-only per type; the active template
// is the most recent stored version, falling back to a built-in default.
package prompts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
)

// Type identifies one of the template slots.
type Type string

const (
	TypeInitial Type = "initial"
	TypeNext    Type = "next"
	TypeSecret  Type = "secret"
	TypeImage   Type = "image"
)

// ParseType validates a raw template type string.
func ParseType(raw string) (Type, error) {
	switch t := Type(raw); t {
	case TypeInitial, TypeNext, TypeSecret, TypeImage:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown template type %q", models.ErrInvalidInput, raw)
	}
}

// Repository is the persistence contract for template versions.
type Repository interface {
	// Latest returns the content of the most recent version for the type,
	// or models.ErrNotFound when no version has been stored.
	Latest(ctx context.Context, t Type) (string, error)
	// Append stores a new version for the type.
	Append(ctx context.Context, t Type, content string) (*models.PromptTemplate, error)
	// Versions lists all stored versions for the type, newest first.
	Versions(ctx context.Context, t Type) ([]models.PromptTemplate, error)
}

// Render substitutes {{key}} placeholders in a template. Unknown placeholders
// are left untouched so a broken custom template fails visibly in the output
// rather than silently.
func Render(template string, vars map[string]string) string {
	out := template
	for key, value := range vars {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}

// InitialParams are the substitutions for the initial-scene template.
type InitialParams struct {
	Theme      string
	PlayerName string
	Language   string
}

func (p InitialParams) Vars() map[string]string {
	return map[string]string{
		"theme":      p.Theme,
		"playerName": p.PlayerName,
		"language":   p.Language,
	}
}

// NextParams are the substitutions for the next-scene template.
type NextParams struct {
	Theme             string
	PlayerName        string
	Language          string
	Location          string
	CurrentQuest      string
	HeroinesList      string
	HistorySummary    string
	CurrentBGM        string
	ChoiceText        string
	ChoiceInstruction string
}

func (p NextParams) Vars() map[string]string {
	return map[string]string{
		"theme":             p.Theme,
		"playerName":        p.PlayerName,
		"language":          p.Language,
		"location":          p.Location,
		"currentQuest":      p.CurrentQuest,
		"heroinesList":      p.HeroinesList,
		"historySummary":    p.HistorySummary,
		"currentBgm":        p.CurrentBGM,
		"choiceText":        p.ChoiceText,
		"choiceInstruction": p.ChoiceInstruction,
	}
}

// SecretParams are the substitutions for the secret-memory template.
type SecretParams struct {
	HeroineName      string
	HeroineArchetype string
	Theme            string
	Language         string
}

func (p SecretParams) Vars() map[string]string {
	return map[string]string{
		"heroineName":      p.HeroineName,
		"heroineArchetype": p.HeroineArchetype,
		"theme":            p.Theme,
		"language":         p.Language,
	}
}

// ImageParams are the substitutions for the image-style template.
type ImageParams struct {
	Prompt string
}

func (p ImageParams) Vars() map[string]string {
	return map[string]string{"prompt": p.Prompt}
}

// DecisionCadence controls story pacing: every Nth turn is a major decision
// point with branching choices, every other turn asks for a single linear
// "Next" choice.
const DecisionCadence = 4

// ChoiceInstruction returns the per-turn instruction block substituted into
// the next-scene template for the given upcoming turn number.
func ChoiceInstruction(nextTurn int) string {
	if nextTurn%DecisionCadence == 0 {
		return decisionInstruction
	}
	return linearInstruction
}

const (
	decisionInstruction = "This is a MAJOR DECISION point. Provide 3 distinct, diverging choices that affect the plot or relationships."
	linearInstruction   = "This is a CONVERSATION step. Provide exactly 1 linear choice: [{ 'id': 'continue', 'text': 'Next' }] to advance the dialogue naturally."
)

// Service resolves active templates, caching loaded versions. SaveVersion
// keeps the cache coherent, so a single-instance deployment never serves a
// stale template.
type Service struct {
	repo   Repository
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[Type]string
}

// NewService creates a template service over the repository.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "prompts").Logger(),
		cache:  make(map[Type]string),
	}
}

// Active returns the template content to use for the type: the latest stored
// version if any, else the built-in default. Repository failures degrade to
// the default so a storage outage never blocks generation.
func (s *Service) Active(ctx context.Context, t Type) string {
	s.mu.RLock()
	content, ok := s.cache[t]
	s.mu.RUnlock()
	if ok {
		return content
	}

	content, err := s.repo.Latest(ctx, t)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn().Err(err).Str("type", string(t)).Msg("failed to load custom template, using default")
		}
		return Defaults[t]
	}

	s.mu.Lock()
	s.cache[t] = content
	s.mu.Unlock()
	return content
}

// SaveVersion appends a new version for the type and makes it active.
func (s *Service) SaveVersion(ctx context.Context, t Type, content string) (*models.PromptTemplate, error) {
	tpl, err := s.repo.Append(ctx, t, content)
	if err != nil {
		return nil, fmt.Errorf("append template version: %w", err)
	}

	s.mu.Lock()
	s.cache[t] = content
	s.mu.Unlock()

	s.logger.Info().Str("type", string(t)).Int64("version_id", tpl.ID).Msg("prompt template version saved")
	return tpl, nil
}

// History lists all stored versions for the type, newest first.
func (s *Service) History(ctx context.Context, t Type) ([]models.PromptTemplate, error) {
	versions, err := s.repo.Versions(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("list template versions: %w", err)
	}
	return versions, nil
}

// FormatHeroines renders the roster as "Name (affection)" pairs for the
// next-scene context block.
func FormatHeroines(heroines []models.Heroine) string {
	parts := make([]string, 0, len(heroines))
	for _, h := range heroines {
		parts = append(parts, h.Name+" ("+strconv.Itoa(h.Affection)+")")
	}
	return strings.Join(parts, ", ")
}

// HistoryContextDepth is how many trailing history entries are handed to the
// backend as context. History itself grows unbounded; it is trimmed only when
// read.
const HistoryContextDepth = 3

// FormatHistory joins the last HistoryContextDepth entries for the next-scene
// context block.
func FormatHistory(history []string) string {
	if len(history) > HistoryContextDepth {
		history = history[len(history)-HistoryContextDepth:]
	}
	return strings.Join(history, " | ")
}
