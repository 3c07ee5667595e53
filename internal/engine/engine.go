// Package engine drives a single play-through: it owns the authoritative
// GameState, serializes turn advancement, prefetches linear turns, and runs
// the background tasks for image generation, autosaving and gallery
// archiving.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
	"github.com/howtomakeaname/kizuna-engine/internal/scene"
)

// AutosaveSlotID is the well-known save slot written after every turn.
const AutosaveSlotID = "autosave"

const imageTaskTimeout = 5 * time.Minute

// Generator is the generation backend contract, implemented by ai.Gateway.
type Generator interface {
	GenerateInitialScene(ctx context.Context, theme, language, playerName string) (*models.SceneResult, error)
	GenerateNextScene(ctx context.Context, state *models.GameState, choiceID string) (*models.SceneResult, error)
	GenerateSecretMemory(ctx context.Context, heroine models.Heroine, theme, language string) (*models.SecretMemory, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// SaveStore persists save slots. A nil store disables autosaving.
type SaveStore interface {
	Put(ctx context.Context, slot *models.SaveSlot) error
}

// GalleryStore archives generated media. A nil store disables archiving.
type GalleryStore interface {
	Append(ctx context.Context, media *models.SavedMedia) error
}

// Events receives out-of-band notifications for the client, typically fanned
// out over a websocket. A nil sink drops them.
type Events interface {
	BackgroundUpdated(image string, turnCount int)
	GalleryUpdated(media *models.SavedMedia)
}

// prefetchHandle is the single speculative next-scene request. Ownership
// transfers to the consuming turn: the engine nils its reference before
// awaiting, so a handle is consumed at most once.
type prefetchHandle struct {
	choiceID string
	done     chan struct{}
	scene    *models.SceneResult
	err      error
}

func (h *prefetchHandle) wait(ctx context.Context) (*models.SceneResult, error) {
	select {
	case <-h.done:
		return h.scene, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Engine is the turn controller for one session. All exported methods are
// safe for concurrent use; turn-advancing operations are serialized.
type Engine struct {
	gen     Generator
	saves   SaveStore
	gallery GalleryStore
	events  Events
	logger  zerolog.Logger

	// opMu serializes StartGame, AdvanceWithChoice and Restore so two racing
	// requests cannot interleave generation and state application.
	opMu sync.Mutex

	mu       sync.Mutex
	state    *models.GameState
	status   models.GameStatus
	prefetch *prefetchHandle
	// epoch increments whenever the play-through is replaced (start, restore,
	// end), so background tasks from a previous life never touch the new one.
	epoch uint64

	unlockMu  sync.Mutex
	unlocking map[string]struct{}

	tasks sync.WaitGroup
}

func New(gen Generator, saves SaveStore, gallery GalleryStore, events Events, logger zerolog.Logger) *Engine {
	return &Engine{
		gen:       gen,
		saves:     saves,
		gallery:   gallery,
		events:    events,
		logger:    logger.With().Str("component", "engine").Logger(),
		status:    models.StatusStartScreen,
		unlocking: make(map[string]struct{}),
	}
}

// State returns a copy of the current state and the lifecycle status.
func (e *Engine) State() (*models.GameState, models.GameStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), e.status
}

// StartGame begins a fresh play-through, discarding any previous state. The
// opening background image is generated synchronously so the first scene is
// never shown against an empty backdrop; a failed image is not fatal.
func (e *Engine) StartGame(ctx context.Context, playerName, theme, language string) (*models.GameState, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	sc, err := e.gen.GenerateInitialScene(ctx, theme, language, playerName)
	if err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}

	st := scene.ApplyNewTurn(nil, sc, true, playerName, theme, language)

	if sc.ImagePrompt != "" {
		img, imgErr := e.gen.GenerateImage(ctx, sc.ImagePrompt)
		if imgErr != nil {
			e.logger.Warn().Err(imgErr).Msg("opening image generation failed")
		} else {
			st.CurrentBgImage = img
		}
	}

	e.mu.Lock()
	e.state = st
	e.status = models.StatusPlaying
	e.prefetch = nil
	e.epoch++
	e.startPrefetchLocked()
	e.mu.Unlock()

	snapshot := st.Clone()
	if snapshot.CurrentBgImage != "" {
		e.archiveSceneImage(ctx, snapshot)
	}
	e.autosave(ctx, snapshot)

	e.logger.Info().Str("theme", theme).Str("language", language).Msg("game started")
	return snapshot, nil
}

// AdvanceWithChoice applies the player's choice and produces the next turn.
// A matching prefetched scene is consumed instead of issuing a new request;
// a failed or mismatched prefetch falls back to a fresh generation. On any
// error the current state is left untouched.
func (e *Engine) AdvanceWithChoice(ctx context.Context, choiceID string) (*models.GameState, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.state == nil || e.status != models.StatusPlaying {
		e.mu.Unlock()
		return nil, models.ErrNoActiveGame
	}
	// Clone so a still-running image task cannot swap the state out from
	// under the reads below; e.state is only ever replaced wholesale.
	prev := e.state.Clone()
	handle := e.prefetch
	e.prefetch = nil
	e.mu.Unlock()

	var sc *models.SceneResult
	var err error
	if handle != nil && handle.choiceID == choiceID {
		sc, err = handle.wait(ctx)
		if err != nil {
			e.logger.Warn().Err(err).Str("choice", choiceID).Msg("prefetch failed, regenerating")
			sc, err = e.gen.GenerateNextScene(ctx, prev, choiceID)
		}
	} else {
		sc, err = e.gen.GenerateNextScene(ctx, prev, choiceID)
	}
	if err != nil {
		return nil, fmt.Errorf("advance turn: %w", err)
	}

	st := scene.ApplyNewTurn(prev, sc, false, prev.PlayerName, prev.Theme, prev.Language)

	e.mu.Lock()
	e.state = st
	epoch := e.epoch
	e.startPrefetchLocked()
	e.mu.Unlock()

	snapshot := st.Clone()
	e.autosave(ctx, snapshot)
	e.scheduleImage(epoch, st.TurnCount, sc.ImagePrompt)

	return snapshot, nil
}

// UnlockBonus generates the secret-memory content and image for a heroine
// and archives it as an event gallery entry. Concurrent unlocks for the same
// heroine are rejected with ErrUnlockInProgress; different heroines proceed
// independently.
func (e *Engine) UnlockBonus(ctx context.Context, heroineID string) (*models.SavedMedia, error) {
	e.mu.Lock()
	if e.state == nil || e.status != models.StatusPlaying {
		e.mu.Unlock()
		return nil, models.ErrNoActiveGame
	}
	var heroine *models.Heroine
	for i := range e.state.Heroines {
		if e.state.Heroines[i].ID == heroineID {
			h := e.state.Heroines[i]
			heroine = &h
			break
		}
	}
	theme, language := e.state.Theme, e.state.Language
	e.mu.Unlock()

	if heroine == nil {
		return nil, fmt.Errorf("%w: heroine %q", models.ErrNotFound, heroineID)
	}

	e.unlockMu.Lock()
	if _, busy := e.unlocking[heroineID]; busy {
		e.unlockMu.Unlock()
		return nil, models.ErrUnlockInProgress
	}
	e.unlocking[heroineID] = struct{}{}
	e.unlockMu.Unlock()
	defer func() {
		e.unlockMu.Lock()
		delete(e.unlocking, heroineID)
		e.unlockMu.Unlock()
	}()

	mem, err := e.gen.GenerateSecretMemory(ctx, *heroine, theme, language)
	if err != nil {
		return nil, fmt.Errorf("unlock bonus: %w", err)
	}
	img, err := e.gen.GenerateImage(ctx, mem.ImagePrompt)
	if err != nil {
		return nil, fmt.Errorf("unlock bonus image: %w", err)
	}

	media := &models.SavedMedia{
		ID:          fmt.Sprintf("%s_%d", mem.ID, time.Now().UnixMilli()),
		Title:       mem.Title,
		Description: mem.Description,
		ImageData:   img,
		Timestamp:   time.Now(),
		Kind:        models.MediaKindEvent,
	}
	e.appendToGallery(ctx, media)

	e.logger.Info().Str("heroine", heroine.Name).Str("media_id", media.ID).Msg("bonus memory unlocked")
	return media, nil
}

// Restore replaces the current play-through with a saved state and resumes
// from it. Any pending prefetch is discarded.
func (e *Engine) Restore(st *models.GameState) *models.GameState {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	e.state = st.Clone()
	e.status = models.StatusPlaying
	e.prefetch = nil
	e.epoch++
	e.startPrefetchLocked()
	snapshot := e.state.Clone()
	e.mu.Unlock()

	e.logger.Info().Int("turn", snapshot.TurnCount).Msg("game restored")
	return snapshot
}

// End returns the session to the start screen.
func (e *Engine) End() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	e.state = nil
	e.status = models.StatusStartScreen
	e.prefetch = nil
	e.epoch++
	e.mu.Unlock()
}

// Close waits for in-flight background tasks (prefetch, image generation) to
// finish. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.tasks.Wait()
}

// startPrefetchLocked speculatively requests the next scene when the current
// turn is linear, since the only possible input is its single choice. Caller
// holds mu.
func (e *Engine) startPrefetchLocked() {
	if e.state == nil || !scene.IsLinearScene(e.state) {
		return
	}
	h := &prefetchHandle{
		choiceID: e.state.Choices[0].ID,
		done:     make(chan struct{}),
	}
	e.prefetch = h
	snapshot := e.state.Clone()

	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		defer close(h.done)
		h.scene, h.err = e.gen.GenerateNextScene(context.Background(), snapshot, h.choiceID)
	}()
}

// scheduleImage generates the turn's background asynchronously. The result
// is applied only if the play-through is still the same one (epoch) and on
// the same turn, so a slow image can never clobber a newer scene or a
// restored game. The state is replaced with a mutated clone, never written
// through; readers holding an older pointer stay consistent.
func (e *Engine) scheduleImage(epoch uint64, turnCount int, prompt string) {
	if prompt == "" {
		return
	}
	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		ctx, cancel := context.WithTimeout(context.Background(), imageTaskTimeout)
		defer cancel()

		img, err := e.gen.GenerateImage(ctx, prompt)
		if err != nil {
			e.logger.Warn().Err(err).Int("turn", turnCount).Msg("background image generation failed")
			return
		}

		e.mu.Lock()
		if e.state == nil || e.epoch != epoch || e.state.TurnCount != turnCount {
			e.mu.Unlock()
			e.logger.Debug().Int("turn", turnCount).Msg("discarding stale background image")
			return
		}
		next := e.state.Clone()
		next.CurrentBgImage = img
		e.state = next
		snapshot := next.Clone()
		e.mu.Unlock()

		e.archiveSceneImage(ctx, snapshot)
		if snapshot.UnlockCG != nil {
			e.appendToGallery(ctx, &models.SavedMedia{
				ID:          fmt.Sprintf("%s_%d", snapshot.UnlockCG.ID, time.Now().UnixMilli()),
				Title:       snapshot.UnlockCG.Title,
				Description: snapshot.UnlockCG.Description,
				ImageData:   img,
				Timestamp:   time.Now(),
				Kind:        models.MediaKindEvent,
			})
		}
		e.autosave(ctx, snapshot)
		if e.events != nil {
			e.events.BackgroundUpdated(img, turnCount)
		}
	}()
}

func (e *Engine) archiveSceneImage(ctx context.Context, st *models.GameState) {
	media := &models.SavedMedia{
		ID:          fmt.Sprintf("bg_%d", time.Now().UnixMilli()),
		Title:       st.Location,
		Description: fmt.Sprintf("Turn %d: %s", st.TurnCount, st.CurrentQuest),
		ImageData:   st.CurrentBgImage,
		Timestamp:   time.Now(),
		Kind:        models.MediaKindScene,
	}
	e.appendToGallery(ctx, media)
}

func (e *Engine) appendToGallery(ctx context.Context, media *models.SavedMedia) {
	if e.gallery == nil {
		return
	}
	if err := e.gallery.Append(ctx, media); err != nil {
		e.logger.Error().Err(err).Str("media_id", media.ID).Msg("gallery append failed")
		return
	}
	if e.events != nil {
		e.events.GalleryUpdated(media)
	}
}

// autosave persists the snapshot into the fixed autosave slot. Failures are
// logged, never surfaced; losing an autosave must not fail a turn.
func (e *Engine) autosave(ctx context.Context, st *models.GameState) {
	if e.saves == nil {
		return
	}
	slot := &models.SaveSlot{
		ID:           AutosaveSlotID,
		Timestamp:    time.Now(),
		Location:     st.Location,
		TurnCount:    st.TurnCount,
		PreviewImage: st.CurrentBgImage,
		GameState:    st,
	}
	if err := e.saves.Put(ctx, slot); err != nil {
		e.logger.Error().Err(err).Msg("autosave failed")
	}
}
