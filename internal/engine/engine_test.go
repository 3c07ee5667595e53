package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/howtomakeaname/kizuna-engine/internal/models"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateInitialScene(ctx context.Context, theme, language, playerName string) (*models.SceneResult, error) {
	args := m.Called(ctx, theme, language, playerName)
	if sc, ok := args.Get(0).(*models.SceneResult); ok {
		return sc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGenerator) GenerateNextScene(ctx context.Context, state *models.GameState, choiceID string) (*models.SceneResult, error) {
	args := m.Called(ctx, state, choiceID)
	if sc, ok := args.Get(0).(*models.SceneResult); ok {
		return sc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGenerator) GenerateSecretMemory(ctx context.Context, heroine models.Heroine, theme, language string) (*models.SecretMemory, error) {
	args := m.Called(ctx, heroine, theme, language)
	if mem, ok := args.Get(0).(*models.SecretMemory); ok {
		return mem, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type memSaveStore struct {
	mu    sync.Mutex
	slots map[string]*models.SaveSlot
	puts  int
}

func newMemSaveStore() *memSaveStore {
	return &memSaveStore{slots: make(map[string]*models.SaveSlot)}
}

func (s *memSaveStore) Put(_ context.Context, slot *models.SaveSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot.ID] = slot
	s.puts++
	return nil
}

func (s *memSaveStore) get(id string) *models.SaveSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[id]
}

type memGalleryStore struct {
	mu      sync.Mutex
	entries []*models.SavedMedia
}

func (g *memGalleryStore) Append(_ context.Context, media *models.SavedMedia) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = append(g.entries, media)
	return nil
}

func (g *memGalleryStore) byKind(kind models.MediaKind) []*models.SavedMedia {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*models.SavedMedia
	for _, m := range g.entries {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type memEvents struct {
	mu      sync.Mutex
	bgImage string
	bgTurns []int
	applied chan struct{}
}

func newMemEvents() *memEvents {
	return &memEvents{applied: make(chan struct{}, 8)}
}

func (ev *memEvents) BackgroundUpdated(image string, turnCount int) {
	ev.mu.Lock()
	ev.bgImage = image
	ev.bgTurns = append(ev.bgTurns, turnCount)
	ev.mu.Unlock()
	ev.applied <- struct{}{}
}

func (ev *memEvents) GalleryUpdated(*models.SavedMedia) {}

func (ev *memEvents) updates() (string, []int) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.bgImage, append([]int(nil), ev.bgTurns...)
}

func branchingScene(narrative string) *models.SceneResult {
	return &models.SceneResult{
		Narrative: narrative,
		Choices: []models.Choice{
			{ID: "a", Text: "A"},
			{ID: "b", Text: "B"},
			{ID: "c", Text: "C"},
		},
		Location:     "Classroom",
		CurrentQuest: "Survive the semester",
	}
}

func linearScene(narrative string) *models.SceneResult {
	return &models.SceneResult{
		Narrative:    narrative,
		Choices:      []models.Choice{{ID: "continue", Text: "Next"}},
		Location:     "Classroom",
		CurrentQuest: "Survive the semester",
	}
}

func newTestEngine(gen Generator, saves SaveStore, gallery GalleryStore) *Engine {
	return New(gen, saves, gallery, nil, zerolog.Nop())
}

func TestStartGame(t *testing.T) {
	gen := new(mockGenerator)
	initial := branchingScene("opening")
	initial.ImagePrompt = "school gate"
	gen.On("GenerateInitialScene", mock.Anything, "High School", "English", "Aki").Return(initial, nil)
	gen.On("GenerateImage", mock.Anything, "school gate").Return("data:image/jpeg;base64,xx", nil)

	saves := newMemSaveStore()
	gallery := &memGalleryStore{}
	e := newTestEngine(gen, saves, gallery)

	st, err := e.StartGame(context.Background(), "Aki", "High School", "English")
	require.NoError(t, err)
	e.Close()

	assert.Equal(t, 1, st.TurnCount)
	assert.Equal(t, []string{"opening"}, st.History)
	assert.Equal(t, "data:image/jpeg;base64,xx", st.CurrentBgImage)

	_, status := e.State()
	assert.Equal(t, models.StatusPlaying, status)

	auto := saves.get(AutosaveSlotID)
	require.NotNil(t, auto)
	assert.Equal(t, 1, auto.TurnCount)
	assert.Equal(t, "Classroom", auto.Location)

	scenes := gallery.byKind(models.MediaKindScene)
	require.Len(t, scenes, 1)
	assert.Equal(t, "Classroom", scenes[0].Title)
	assert.Equal(t, "Turn 1: Survive the semester", scenes[0].Description)
	gen.AssertExpectations(t)
}

func TestStartGameImageFailureIsNotFatal(t *testing.T) {
	gen := new(mockGenerator)
	initial := branchingScene("opening")
	initial.ImagePrompt = "school gate"
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(initial, nil)
	gen.On("GenerateImage", mock.Anything, mock.Anything).Return("", errors.New("image backend down"))

	e := newTestEngine(gen, nil, nil)
	st, err := e.StartGame(context.Background(), "Aki", "t", "English")
	require.NoError(t, err)
	e.Close()

	assert.Empty(t, st.CurrentBgImage)
	assert.Equal(t, 1, st.TurnCount)
}

func TestStartGameResetIsIdempotent(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(branchingScene("fresh opening"), nil)
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, mock.Anything).
		Return(branchingScene("turn two"), nil)

	e := newTestEngine(gen, nil, nil)
	ctx := context.Background()

	_, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)
	_, err = e.AdvanceWithChoice(ctx, "a")
	require.NoError(t, err)

	st, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)
	e.Close()

	assert.Equal(t, 1, st.TurnCount)
	assert.Equal(t, []string{"fresh opening"}, st.History)
	assert.Empty(t, st.CurrentBgImage)
}

func TestAdvanceWithChoice(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(branchingScene("opening"), nil)
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "b").
		Return(branchingScene("you picked b"), nil)

	e := newTestEngine(gen, nil, nil)
	ctx := context.Background()

	_, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)

	st, err := e.AdvanceWithChoice(ctx, "b")
	require.NoError(t, err)
	e.Close()

	assert.Equal(t, 2, st.TurnCount)
	assert.Equal(t, []string{"opening", "you picked b"}, st.History)
}

func TestAdvanceWithoutActiveGame(t *testing.T) {
	e := newTestEngine(new(mockGenerator), nil, nil)
	_, err := e.AdvanceWithChoice(context.Background(), "a")
	assert.ErrorIs(t, err, models.ErrNoActiveGame)
}

func TestAdvanceFailureLeavesStateIntact(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(branchingScene("opening"), nil)
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, models.ErrProvider)

	e := newTestEngine(gen, nil, nil)
	ctx := context.Background()

	before, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)

	_, err = e.AdvanceWithChoice(ctx, "a")
	assert.ErrorIs(t, err, models.ErrProvider)
	e.Close()

	after, status := e.State()
	assert.Equal(t, models.StatusPlaying, status)
	assert.Equal(t, before.TurnCount, after.TurnCount)
	assert.Equal(t, before.History, after.History)
}

func TestBackgroundImageAppliedAsync(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(branchingScene("opening"), nil)
	next := branchingScene("turn two")
	next.ImagePrompt = "sunset rooftop"
	next.UnlockCG = &models.UnlockCG{ID: "cg1", Title: "Rooftop", Description: "a confession"}
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "a").Return(next, nil)
	gen.On("GenerateImage", mock.Anything, "sunset rooftop").
		Return("data:image/jpeg;base64,bg2", nil)

	saves := newMemSaveStore()
	gallery := &memGalleryStore{}
	events := newMemEvents()
	e := New(gen, saves, gallery, events, zerolog.Nop())
	ctx := context.Background()

	_, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)

	st, err := e.AdvanceWithChoice(ctx, "a")
	require.NoError(t, err)
	// The turn response never waits for the image.
	assert.Empty(t, st.CurrentBgImage)
	e.Close()

	cur, _ := e.State()
	assert.Equal(t, "data:image/jpeg;base64,bg2", cur.CurrentBgImage)

	img, turns := events.updates()
	assert.Equal(t, "data:image/jpeg;base64,bg2", img)
	assert.Equal(t, []int{2}, turns)

	auto := saves.get(AutosaveSlotID)
	require.NotNil(t, auto)
	assert.Equal(t, 2, auto.TurnCount)
	assert.Equal(t, "data:image/jpeg;base64,bg2", auto.PreviewImage)

	scenes := gallery.byKind(models.MediaKindScene)
	require.Len(t, scenes, 1)
	assert.Equal(t, "Turn 2: Survive the semester", scenes[0].Description)
	assert.Equal(t, "data:image/jpeg;base64,bg2", scenes[0].ImageData)

	cgs := gallery.byKind(models.MediaKindEvent)
	require.Len(t, cgs, 1)
	assert.Contains(t, cgs[0].ID, "cg1_")
	assert.Equal(t, "Rooftop", cgs[0].Title)
	assert.Equal(t, "data:image/jpeg;base64,bg2", cgs[0].ImageData)
}

func TestStaleBackgroundImageDiscarded(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(branchingScene("opening"), nil)
	withImage := branchingScene("turn two")
	withImage.ImagePrompt = "rainy street"
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "a").Return(withImage, nil)
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "b").
		Return(branchingScene("turn three"), nil)

	imgStarted := make(chan struct{})
	imgRelease := make(chan struct{})
	gen.On("GenerateImage", mock.Anything, "rainy street").
		Run(func(mock.Arguments) {
			close(imgStarted)
			<-imgRelease
		}).
		Return("data:image/jpeg;base64,slow", nil)

	gallery := &memGalleryStore{}
	events := newMemEvents()
	e := New(gen, nil, gallery, events, zerolog.Nop())
	ctx := context.Background()

	_, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)
	_, err = e.AdvanceWithChoice(ctx, "a")
	require.NoError(t, err)
	<-imgStarted

	// The play-through moves on while the turn-2 image is still rendering.
	st, err := e.AdvanceWithChoice(ctx, "b")
	require.NoError(t, err)
	close(imgRelease)
	e.Close()

	assert.Equal(t, 3, st.TurnCount)
	cur, _ := e.State()
	assert.Equal(t, 3, cur.TurnCount)
	assert.Empty(t, cur.CurrentBgImage)

	_, turns := events.updates()
	assert.Empty(t, turns)
	assert.Empty(t, gallery.byKind(models.MediaKindScene))
}

func TestImageLandingDuringNextTurnGeneration(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(branchingScene("opening"), nil)
	withImage := branchingScene("turn two")
	withImage.ImagePrompt = "festival night"
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "a").Return(withImage, nil)

	imgRelease := make(chan struct{})
	gen.On("GenerateImage", mock.Anything, "festival night").
		Run(func(mock.Arguments) { <-imgRelease }).
		Return("data:image/jpeg;base64,late", nil)

	events := newMemEvents()
	e := New(gen, nil, nil, events, zerolog.Nop())

	// The turn-2 image resolves while turn 3 is still being generated; it must
	// land on turn 2 and never surface in the turn-3 state.
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "b").
		Run(func(mock.Arguments) {
			close(imgRelease)
			<-events.applied
		}).
		Return(branchingScene("turn three"), nil)

	ctx := context.Background()
	_, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)
	_, err = e.AdvanceWithChoice(ctx, "a")
	require.NoError(t, err)

	st, err := e.AdvanceWithChoice(ctx, "b")
	require.NoError(t, err)
	e.Close()

	img, turns := events.updates()
	assert.Equal(t, []int{2}, turns)
	assert.Equal(t, "data:image/jpeg;base64,late", img)
	assert.Equal(t, 3, st.TurnCount)
	assert.Empty(t, st.CurrentBgImage)
}

func TestImageFromBeforeRestoreIsDiscarded(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(branchingScene("opening"), nil)
	withImage := branchingScene("turn two")
	withImage.ImagePrompt = "beach"
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "a").Return(withImage, nil)

	imgStarted := make(chan struct{})
	imgRelease := make(chan struct{})
	gen.On("GenerateImage", mock.Anything, "beach").
		Run(func(mock.Arguments) {
			close(imgStarted)
			<-imgRelease
		}).
		Return("data:image/jpeg;base64,stale", nil)

	events := newMemEvents()
	e := New(gen, nil, nil, events, zerolog.Nop())
	ctx := context.Background()

	_, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)
	_, err = e.AdvanceWithChoice(ctx, "a")
	require.NoError(t, err)
	<-imgStarted

	// The saved game sits on the same turn number as the in-flight image.
	saved := &models.GameState{
		PlayerName:     "Aki",
		Narrative:      "elsewhere",
		Choices:        []models.Choice{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
		TurnCount:      2,
		History:        []string{"one", "elsewhere"},
		CurrentBgImage: "data:image/jpeg;base64,saved",
		Theme:          "t",
		Language:       "English",
	}
	e.Restore(saved)
	close(imgRelease)
	e.Close()

	cur, _ := e.State()
	assert.Equal(t, "data:image/jpeg;base64,saved", cur.CurrentBgImage)
	_, turns := events.updates()
	assert.Empty(t, turns)
}

func TestPrefetchConsumedOnce(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(linearScene("opening"), nil)
	// The only next-scene call should be the prefetch issued after the
	// linear opening turn.
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "continue").
		Return(branchingScene("prefetched"), nil).Once()

	e := newTestEngine(gen, nil, nil)
	ctx := context.Background()

	_, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)

	st, err := e.AdvanceWithChoice(ctx, "continue")
	require.NoError(t, err)
	e.Close()

	assert.Equal(t, "prefetched", st.Narrative)
	assert.Equal(t, 2, st.TurnCount)
	gen.AssertNumberOfCalls(t, "GenerateNextScene", 1)
}

func TestPrefetchFailureFallsBackToFreshGeneration(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(linearScene("opening"), nil)
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "continue").
		Return(nil, models.ErrProvider).Once()
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "continue").
		Return(branchingScene("regenerated"), nil).Once()

	e := newTestEngine(gen, nil, nil)
	ctx := context.Background()

	_, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)

	st, err := e.AdvanceWithChoice(ctx, "continue")
	require.NoError(t, err)
	e.Close()

	assert.Equal(t, "regenerated", st.Narrative)
	gen.AssertNumberOfCalls(t, "GenerateNextScene", 2)
}

func TestPrefetchMismatchIsDiscarded(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(linearScene("opening"), nil)
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "continue").
		Return(branchingScene("prefetched"), nil)
	gen.On("GenerateNextScene", mock.Anything, mock.Anything, "inspect the desk").
		Return(branchingScene("fresh"), nil)

	e := newTestEngine(gen, nil, nil)
	ctx := context.Background()

	_, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)

	st, err := e.AdvanceWithChoice(ctx, "inspect the desk")
	require.NoError(t, err)
	e.Close()

	assert.Equal(t, "fresh", st.Narrative)
}

func TestUnlockBonus(t *testing.T) {
	heroine := models.Heroine{ID: "yuki", Name: "Yuki", Archetype: "childhood friend", Affection: 85}

	newPlayingEngine := func(gen *mockGenerator, gallery GalleryStore) *Engine {
		initial := branchingScene("opening")
		initial.Heroines = []models.Heroine{heroine}
		gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(initial, nil)
		e := newTestEngine(gen, nil, gallery)
		_, err := e.StartGame(context.Background(), "Aki", "t", "English")
		require.NoError(t, err)
		return e
	}

	t.Run("archives event media", func(t *testing.T) {
		gen := new(mockGenerator)
		mem := &models.SecretMemory{ID: "m1", Title: "First Snow", Description: "a walk", ImagePrompt: "snow"}
		gen.On("GenerateSecretMemory", mock.Anything, heroine, "t", "English").Return(mem, nil)
		gen.On("GenerateImage", mock.Anything, "snow").Return("data:image/jpeg;base64,cg", nil)

		gallery := &memGalleryStore{}
		e := newPlayingEngine(gen, gallery)

		media, err := e.UnlockBonus(context.Background(), "yuki")
		require.NoError(t, err)
		e.Close()

		assert.Equal(t, "First Snow", media.Title)
		assert.Equal(t, models.MediaKindEvent, media.Kind)
		assert.Contains(t, media.ID, "m1_")
		require.Len(t, gallery.byKind(models.MediaKindEvent), 1)
	})

	t.Run("unknown heroine", func(t *testing.T) {
		gen := new(mockGenerator)
		e := newPlayingEngine(gen, nil)
		_, err := e.UnlockBonus(context.Background(), "nobody")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("no active game", func(t *testing.T) {
		e := newTestEngine(new(mockGenerator), nil, nil)
		_, err := e.UnlockBonus(context.Background(), "yuki")
		assert.ErrorIs(t, err, models.ErrNoActiveGame)
	})

	t.Run("concurrent unlock for same heroine is rejected", func(t *testing.T) {
		gen := new(mockGenerator)
		mem := &models.SecretMemory{ID: "m1", Title: "First Snow", Description: "a walk", ImagePrompt: "snow"}

		started := make(chan struct{})
		release := make(chan struct{})
		gen.On("GenerateSecretMemory", mock.Anything, heroine, "t", "English").
			Run(func(mock.Arguments) {
				close(started)
				<-release
			}).
			Return(mem, nil).Once()
		gen.On("GenerateImage", mock.Anything, "snow").Return("data:image/jpeg;base64,cg", nil)

		gallery := &memGalleryStore{}
		e := newPlayingEngine(gen, gallery)

		firstDone := make(chan error, 1)
		go func() {
			_, err := e.UnlockBonus(context.Background(), "yuki")
			firstDone <- err
		}()
		<-started

		_, err := e.UnlockBonus(context.Background(), "yuki")
		assert.ErrorIs(t, err, models.ErrUnlockInProgress)

		close(release)
		require.NoError(t, <-firstDone)
		e.Close()

		assert.Len(t, gallery.byKind(models.MediaKindEvent), 1)
	})
}

func TestRestore(t *testing.T) {
	gen := new(mockGenerator)
	e := newTestEngine(gen, nil, nil)

	saved := &models.GameState{
		PlayerName: "Aki",
		Narrative:  "mid-story",
		Choices:    []models.Choice{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
		TurnCount:  7,
		History:    []string{"one", "two", "mid-story"},
		Theme:      "t",
		Language:   "English",
	}

	st := e.Restore(saved)
	e.Close()

	assert.Equal(t, 7, st.TurnCount)
	_, status := e.State()
	assert.Equal(t, models.StatusPlaying, status)

	// The engine owns a copy; mutating the caller's state must not leak in.
	saved.TurnCount = 99
	cur, _ := e.State()
	assert.Equal(t, 7, cur.TurnCount)
}

func TestEnd(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(branchingScene("opening"), nil)

	e := newTestEngine(gen, nil, nil)
	_, err := e.StartGame(context.Background(), "Aki", "t", "English")
	require.NoError(t, err)

	e.End()
	e.Close()

	st, status := e.State()
	assert.Nil(t, st)
	assert.Equal(t, models.StatusStartScreen, status)
}

func TestTurnCounterAcrossManyTurns(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateInitialScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(branchingScene("opening"), nil)
	for i := 2; i <= 10; i++ {
		gen.On("GenerateNextScene", mock.Anything, mock.Anything, fmt.Sprintf("pick-%d", i)).
			Return(branchingScene(fmt.Sprintf("turn %d", i)), nil).Once()
	}

	e := newTestEngine(gen, nil, nil)
	ctx := context.Background()
	_, err := e.StartGame(ctx, "Aki", "t", "English")
	require.NoError(t, err)

	var st *models.GameState
	for i := 2; i <= 10; i++ {
		st, err = e.AdvanceWithChoice(ctx, fmt.Sprintf("pick-%d", i))
		require.NoError(t, err)
	}
	e.Close()

	assert.Equal(t, 10, st.TurnCount)
	assert.Len(t, st.History, 10)
}
