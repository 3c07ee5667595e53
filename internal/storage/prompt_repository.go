package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
	"github.com/howtomakeaname/kizuna-engine/internal/prompts"
)

const (
	latestTemplateQuery = `
        SELECT content FROM prompt_template_versions
        WHERE template_type = $1 ORDER BY id DESC LIMIT 1
    `
	insertTemplateQuery = `
        INSERT INTO prompt_template_versions (template_type, content)
        VALUES ($1, $2)
        RETURNING id, created_at
    `
	listTemplateVersionsQuery = `
        SELECT id, template_type, content, created_at
        FROM prompt_template_versions
        WHERE template_type = $1 ORDER BY id DESC
    `
)

// PromptTemplateRepository stores prompt template versions append-only.
type PromptTemplateRepository struct {
	db     *pgxpool.Pool
	logger zerolog.Logger
}

var _ prompts.Repository = (*PromptTemplateRepository)(nil)

func NewPromptTemplateRepository(db *pgxpool.Pool, logger zerolog.Logger) *PromptTemplateRepository {
	return &PromptTemplateRepository{
		db:     db,
		logger: logger.With().Str("component", "prompt_repository").Logger(),
	}
}

func (r *PromptTemplateRepository) Latest(ctx context.Context, t prompts.Type) (string, error) {
	var content string
	err := r.db.QueryRow(ctx, latestTemplateQuery, string(t)).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: no stored template for type %s", models.ErrNotFound, t)
		}
		return "", fmt.Errorf("read latest template: %w", err)
	}
	return content, nil
}

func (r *PromptTemplateRepository) Append(ctx context.Context, t prompts.Type, content string) (*models.PromptTemplate, error) {
	tpl := &models.PromptTemplate{Type: string(t), Content: content}
	err := r.db.QueryRow(ctx, insertTemplateQuery, string(t), content).Scan(&tpl.ID, &tpl.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("type", string(t)).Msg("failed to store template version")
		return nil, fmt.Errorf("store template version: %w", err)
	}
	r.logger.Info().Str("type", string(t)).Int64("id", tpl.ID).Msg("template version stored")
	return tpl, nil
}

func (r *PromptTemplateRepository) Versions(ctx context.Context, t prompts.Type) ([]models.PromptTemplate, error) {
	var rows []struct {
		ID           int64     `db:"id"`
		TemplateType string    `db:"template_type"`
		Content      string    `db:"content"`
		CreatedAt    time.Time `db:"created_at"`
	}
	if err := pgxscan.Select(ctx, r.db, &rows, listTemplateVersionsQuery, string(t)); err != nil {
		return nil, fmt.Errorf("list template versions: %w", err)
	}
	versions := make([]models.PromptTemplate, 0, len(rows))
	for _, row := range rows {
		versions = append(versions, models.PromptTemplate{
			ID:        row.ID,
			Type:      row.TemplateType,
			Content:   row.Content,
			CreatedAt: row.CreatedAt,
		})
	}
	return versions, nil
}
