package handler

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/howtomakeaname/kizuna-engine/internal/engine"
	"github.com/howtomakeaname/kizuna-engine/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks belong to the CORS layer in front of the upgrade.
		return true
	},
}

// wsEvent is the envelope for every server-pushed message.
type wsEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type backgroundUpdatedPayload struct {
	Image     string `json:"image"`
	TurnCount int    `json:"turnCount"`
}

// Hub fans engine events out to the websocket connections of one session.
type Hub struct {
	logger zerolog.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

var _ engine.Events = (*Hub)(nil)

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "ws_hub").Logger(),
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// Attach upgrades the request and tracks the connection until the peer
// disconnects or the hub closes.
func (h *Hub) Attach(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return nil
	}
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Reader goroutine: the protocol is push-only, incoming frames are
	// discarded, but reading is required to notice a dropped peer.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *Hub) broadcast(event wsEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug().Err(err).Msg("websocket write failed, dropping connection")
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// BackgroundUpdated notifies clients that an asynchronously generated
// background image has landed for the given turn.
func (h *Hub) BackgroundUpdated(image string, turnCount int) {
	h.broadcast(wsEvent{Type: "background_updated", Payload: backgroundUpdatedPayload{Image: image, TurnCount: turnCount}})
}

// GalleryUpdated notifies clients of a new gallery entry.
func (h *Hub) GalleryUpdated(media *models.SavedMedia) {
	h.broadcast(wsEvent{Type: "gallery_updated", Payload: media})
}

// Close drops all connections. Events after Close are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
