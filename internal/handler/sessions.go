package handler

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/howtomakeaname/kizuna-engine/internal/engine"
	"github.com/howtomakeaname/kizuna-engine/internal/models"
)

// Session binds one play-through engine to its websocket hub.
type Session struct {
	ID     string
	Engine *engine.Engine
	Hub    *Hub
}

// EngineFactory builds an engine wired to the given event sink.
type EngineFactory func(events engine.Events) *engine.Engine

// Registry tracks live sessions by id.
type Registry struct {
	newEngine EngineFactory
	logger    zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(factory EngineFactory, logger zerolog.Logger) *Registry {
	return &Registry{
		newEngine: factory,
		logger:    logger.With().Str("component", "session_registry").Logger(),
		sessions:  make(map[string]*Session),
	}
}

// Create allocates a new session with a fresh engine.
func (r *Registry) Create() *Session {
	hub := NewHub(r.logger)
	s := &Session{
		ID:     uuid.NewString(),
		Engine: r.newEngine(hub),
		Hub:    hub,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.logger.Info().Str("session", s.ID).Msg("session created")
	return s
}

// Get returns the session or models.ErrSessionNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return s, nil
}

// Remove ends the session's play-through, closes its hub and waits for
// background tasks.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}

	s.Engine.End()
	s.Hub.Close()
	s.Engine.Close()
	r.logger.Info().Str("session", id).Msg("session removed")
	return nil
}

// CloseAll drains every session, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Hub.Close()
		s.Engine.Close()
	}
}
