package models

import "time"

// SaveSlot is a denormalized projection of a GameState for list display plus
// the full state for restore. The autosave slot uses a fixed well-known id.
type SaveSlot struct {
	ID           string     `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	Location     string     `json:"location"`
	TurnCount    int        `json:"turnCount"`
	PreviewImage string     `json:"previewImage"`
	GameState    *GameState `json:"gameState"`
}

// MediaKind distinguishes regular backgrounds from special-event images.
type MediaKind string

const (
	MediaKindScene MediaKind = "scene"
	MediaKindEvent MediaKind = "event"
)

// SavedMedia is one gallery entry. Entries are append-only and never mutated;
// scene ids are time-derived so uniqueness comes from id generation, not
// conflict resolution.
type SavedMedia struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageData   string    `json:"imageData"` // URL or data URI
	Timestamp   time.Time `json:"timestamp"`
	Kind        MediaKind `json:"kind"`
}

// PromptTemplate is one stored version of a prompt template. Versions are
// append-only per type; the active template is the most recent version.
type PromptTemplate struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
