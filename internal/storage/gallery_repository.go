package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
)

const (
	insertGalleryEntryQuery = `
        INSERT INTO gallery_entries (id, title, description, image_data, kind, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING
    `
	listGalleryEntriesQuery = `
        SELECT id, title, description, image_data, kind, created_at
        FROM gallery_entries ORDER BY created_at DESC
    `
)

// GalleryRepository is the append-only media archive. Entry ids are
// time-derived, so a conflicting insert is a duplicate and gets dropped.
type GalleryRepository struct {
	db     *pgxpool.Pool
	logger zerolog.Logger
}

func NewGalleryRepository(db *pgxpool.Pool, logger zerolog.Logger) *GalleryRepository {
	return &GalleryRepository{
		db:     db,
		logger: logger.With().Str("component", "gallery_repository").Logger(),
	}
}

type galleryEntryRow struct {
	ID          string           `db:"id"`
	Title       string           `db:"title"`
	Description string           `db:"description"`
	ImageData   string           `db:"image_data"`
	Kind        models.MediaKind `db:"kind"`
	CreatedAt   time.Time        `db:"created_at"`
}

func (r *GalleryRepository) Append(ctx context.Context, media *models.SavedMedia) error {
	_, err := r.db.Exec(ctx, insertGalleryEntryQuery,
		media.ID, media.Title, media.Description, media.ImageData, media.Kind, media.Timestamp)
	if err != nil {
		r.logger.Error().Err(err).Str("media_id", media.ID).Msg("failed to append gallery entry")
		return fmt.Errorf("append gallery entry: %w", err)
	}
	return nil
}

// List returns all entries, newest first.
func (r *GalleryRepository) List(ctx context.Context) ([]models.SavedMedia, error) {
	var rows []galleryEntryRow
	if err := pgxscan.Select(ctx, r.db, &rows, listGalleryEntriesQuery); err != nil {
		return nil, fmt.Errorf("list gallery entries: %w", err)
	}
	entries := make([]models.SavedMedia, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.SavedMedia{
			ID:          row.ID,
			Title:       row.Title,
			Description: row.Description,
			ImageData:   row.ImageData,
			Kind:        row.Kind,
			Timestamp:   row.CreatedAt,
		})
	}
	return entries, nil
}
