// Package handler exposes the HTTP and websocket API: game sessions, turn
// advancement, saves, the media gallery and prompt template administration.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/howtomakeaname/kizuna-engine/internal/engine"
	"github.com/howtomakeaname/kizuna-engine/internal/models"
	"github.com/howtomakeaname/kizuna-engine/internal/prompts"
)

// SaveStore is the save-slot persistence used by the API.
type SaveStore interface {
	Put(ctx context.Context, slot *models.SaveSlot) error
	Get(ctx context.Context, id string) (*models.SaveSlot, error)
	List(ctx context.Context) ([]models.SaveSlot, error)
	Delete(ctx context.Context, id string) error
}

// GalleryStore lists archived media.
type GalleryStore interface {
	List(ctx context.Context) ([]models.SavedMedia, error)
}

// APIError is the standard error response body.
type APIError struct {
	Message string `json:"message"`
}

type Handler struct {
	registry  *Registry
	saves     SaveStore
	gallery   GalleryStore
	templates *prompts.Service
	logger    zerolog.Logger
}

func New(registry *Registry, saves SaveStore, gallery GalleryStore, templates *prompts.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		registry:  registry,
		saves:     saves,
		gallery:   gallery,
		templates: templates,
		logger:    logger.With().Str("component", "handler").Logger(),
	}
}

// RegisterRoutes attaches all API routes to the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/game", h.startGame)
		api.POST("/game/load", h.loadGame)
		api.GET("/game/:id", h.getState)
		api.DELETE("/game/:id", h.endGame)
		api.POST("/game/:id/choice", h.makeChoice)
		api.POST("/game/:id/unlock", h.unlockBonus)
		api.POST("/game/:id/save/:slotID", h.saveGame)
		api.GET("/game/:id/events", h.events)

		api.GET("/saves", h.listSaves)
		api.DELETE("/saves/:slotID", h.deleteSave)

		api.GET("/gallery", h.listGallery)
		api.GET("/themes", h.listThemes)

		api.GET("/templates/:type", h.getTemplate)
		api.PUT("/templates/:type", h.putTemplate)
		api.GET("/templates/:type/history", h.templateHistory)
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrNoActiveGame), errors.Is(err, models.ErrUnlockInProgress):
		status = http.StatusConflict
	case errors.Is(err, models.ErrAuthMissing):
		status = http.StatusServiceUnavailable
	case errors.Is(err, models.ErrProvider), errors.Is(err, models.ErrMalformedPayload):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, APIError{Message: err.Error()})
}

type startGameRequest struct {
	PlayerName string `json:"playerName"`
	Theme      string `json:"theme"`
	Language   string `json:"language"`
}

type gameResponse struct {
	SessionID string            `json:"sessionId"`
	Status    models.GameStatus `json:"status"`
	State     *models.GameState `json:"state,omitempty"`
}

func (h *Handler) startGame(c *gin.Context) {
	var req startGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, models.ErrInvalidInput)
		return
	}
	if req.PlayerName == "" {
		req.PlayerName = "Player"
	}
	if req.Language == "" {
		req.Language = "English"
	}
	if req.Theme == "" {
		req.Theme = prompts.PredefinedThemes[0]
	}

	session := h.registry.Create()
	state, err := session.Engine.StartGame(c.Request.Context(), req.PlayerName, req.Theme, req.Language)
	if err != nil {
		_ = h.registry.Remove(session.ID)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gameResponse{SessionID: session.ID, Status: models.StatusPlaying, State: state})
}

type loadGameRequest struct {
	SlotID string `json:"slotId" binding:"required"`
}

func (h *Handler) loadGame(c *gin.Context) {
	var req loadGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, models.ErrInvalidInput)
		return
	}

	slot, err := h.saves.Get(c.Request.Context(), req.SlotID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if slot.GameState == nil {
		h.respondError(c, models.ErrInvalidInput)
		return
	}

	session := h.registry.Create()
	state := session.Engine.Restore(slot.GameState)
	c.JSON(http.StatusCreated, gameResponse{SessionID: session.ID, Status: models.StatusPlaying, State: state})
}

func (h *Handler) getState(c *gin.Context) {
	session, err := h.registry.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	state, status := session.Engine.State()
	c.JSON(http.StatusOK, gameResponse{SessionID: session.ID, Status: status, State: state})
}

func (h *Handler) endGame(c *gin.Context) {
	if err := h.registry.Remove(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type choiceRequest struct {
	ChoiceID string `json:"choiceId" binding:"required"`
}

func (h *Handler) makeChoice(c *gin.Context) {
	session, err := h.registry.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req choiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, models.ErrInvalidInput)
		return
	}

	state, err := session.Engine.AdvanceWithChoice(c.Request.Context(), req.ChoiceID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gameResponse{SessionID: session.ID, Status: models.StatusPlaying, State: state})
}

type unlockRequest struct {
	HeroineID string `json:"heroineId" binding:"required"`
}

func (h *Handler) unlockBonus(c *gin.Context) {
	session, err := h.registry.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, models.ErrInvalidInput)
		return
	}

	media, err := session.Engine.UnlockBonus(c.Request.Context(), req.HeroineID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, media)
}

func (h *Handler) saveGame(c *gin.Context) {
	session, err := h.registry.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	slotID := c.Param("slotID")
	if slotID == "" {
		h.respondError(c, models.ErrInvalidInput)
		return
	}

	state, status := session.Engine.State()
	if state == nil || status != models.StatusPlaying {
		h.respondError(c, models.ErrNoActiveGame)
		return
	}

	slot := &models.SaveSlot{
		ID:           slotID,
		Timestamp:    time.Now(),
		Location:     state.Location,
		TurnCount:    state.TurnCount,
		PreviewImage: state.CurrentBgImage,
		GameState:    state,
	}
	if err := h.saves.Put(c.Request.Context(), slot); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

func (h *Handler) events(c *gin.Context) {
	session, err := h.registry.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := session.Hub.Attach(c.Writer, c.Request); err != nil {
		h.logger.Warn().Err(err).Str("session", session.ID).Msg("websocket upgrade failed")
	}
}

func (h *Handler) listSaves(c *gin.Context) {
	slots, err := h.saves.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saves": slots})
}

func (h *Handler) deleteSave(c *gin.Context) {
	if err := h.saves.Delete(c.Request.Context(), c.Param("slotID")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listGallery(c *gin.Context) {
	entries, err := h.gallery.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gallery": entries})
}

func (h *Handler) listThemes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"themes": prompts.PredefinedThemes})
}

type templateResponse struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (h *Handler) getTemplate(c *gin.Context) {
	t, err := prompts.ParseType(c.Param("type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, templateResponse{Type: string(t), Content: h.templates.Active(c.Request.Context(), t)})
}

type putTemplateRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) putTemplate(c *gin.Context) {
	t, err := prompts.ParseType(c.Param("type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req putTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, models.ErrInvalidInput)
		return
	}

	version, err := h.templates.SaveVersion(c.Request.Context(), t, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, version)
}

func (h *Handler) templateHistory(c *gin.Context) {
	t, err := prompts.ParseType(c.Param("type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	versions, err := h.templates.History(c.Request.Context(), t)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

var _ engine.SaveStore = (SaveStore)(nil)
