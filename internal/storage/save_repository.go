package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
)

const (
	upsertSaveSlotQuery = `
        INSERT INTO save_slots (id, saved_at, location, turn_count, preview_image, game_state)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET
            saved_at      = EXCLUDED.saved_at,
            location      = EXCLUDED.location,
            turn_count    = EXCLUDED.turn_count,
            preview_image = EXCLUDED.preview_image,
            game_state    = EXCLUDED.game_state
    `
	getSaveSlotQuery = `
        SELECT id, saved_at, location, turn_count, preview_image, game_state
        FROM save_slots WHERE id = $1
    `
	listSaveSlotsQuery = `
        SELECT id, saved_at, location, turn_count, preview_image
        FROM save_slots ORDER BY saved_at DESC
    `
	deleteSaveSlotQuery = `DELETE FROM save_slots WHERE id = $1`
)

// SaveRepository persists save slots, one row per slot id.
type SaveRepository struct {
	db     *pgxpool.Pool
	logger zerolog.Logger
}

func NewSaveRepository(db *pgxpool.Pool, logger zerolog.Logger) *SaveRepository {
	return &SaveRepository{
		db:     db,
		logger: logger.With().Str("component", "save_repository").Logger(),
	}
}

type saveSlotRow struct {
	ID           string    `db:"id"`
	SavedAt      time.Time `db:"saved_at"`
	Location     string    `db:"location"`
	TurnCount    int       `db:"turn_count"`
	PreviewImage string    `db:"preview_image"`
	GameState    []byte    `db:"game_state"`
}

func (r saveSlotRow) toModel() (*models.SaveSlot, error) {
	slot := &models.SaveSlot{
		ID:           r.ID,
		Timestamp:    r.SavedAt,
		Location:     r.Location,
		TurnCount:    r.TurnCount,
		PreviewImage: r.PreviewImage,
	}
	if len(r.GameState) > 0 {
		var st models.GameState
		if err := json.Unmarshal(r.GameState, &st); err != nil {
			return nil, fmt.Errorf("decode game state for slot %s: %w", r.ID, err)
		}
		slot.GameState = &st
	}
	return slot, nil
}

// Put inserts or overwrites the slot.
func (r *SaveRepository) Put(ctx context.Context, slot *models.SaveSlot) error {
	stateJSON, err := json.Marshal(slot.GameState)
	if err != nil {
		return fmt.Errorf("encode game state: %w", err)
	}
	_, err = r.db.Exec(ctx, upsertSaveSlotQuery,
		slot.ID, slot.Timestamp, slot.Location, slot.TurnCount, slot.PreviewImage, stateJSON)
	if err != nil {
		r.logger.Error().Err(err).Str("slot", slot.ID).Msg("failed to write save slot")
		return fmt.Errorf("write save slot: %w", err)
	}
	return nil
}

// Get returns the slot including its full game state.
func (r *SaveRepository) Get(ctx context.Context, id string) (*models.SaveSlot, error) {
	var row saveSlotRow
	if err := pgxscan.Get(ctx, r.db, &row, getSaveSlotQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: save slot %q", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("read save slot: %w", err)
	}
	return row.toModel()
}

// List returns slot metadata newest first, without the game state payload.
func (r *SaveRepository) List(ctx context.Context) ([]models.SaveSlot, error) {
	var rows []saveSlotRow
	if err := pgxscan.Select(ctx, r.db, &rows, listSaveSlotsQuery); err != nil {
		return nil, fmt.Errorf("list save slots: %w", err)
	}
	slots := make([]models.SaveSlot, 0, len(rows))
	for _, row := range rows {
		slot, err := row.toModel()
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	return slots, nil
}

// Delete removes the slot, reporting ErrNotFound when it does not exist.
func (r *SaveRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, deleteSaveSlotQuery, id)
	if err != nil {
		return fmt.Errorf("delete save slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: save slot %q", models.ErrNotFound, id)
	}
	return nil
}
