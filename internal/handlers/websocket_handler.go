package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vaultblockmagic/vault/internal/events"
)

// WebSocketHandler streams operation lifecycle events to connected clients.
type WebSocketHandler struct {
	publisher   *events.Publisher
	authEnabled bool
	logger      *logrus.Logger
	upgrader    websocket.Upgrader
}

func NewWebSocketHandler(publisher *events.Publisher, authEnabled bool, logger *logrus.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		publisher:   publisher,
		authEnabled: authEnabled,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWebSocket upgrades the connection and forwards every published
// OperationEvent until the client goes away.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.authEnabled {
		if _, err := h.claimsFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	eventCh, cancel := h.publisher.Subscribe()
	defer cancel()

	h.logger.WithField("remote", r.RemoteAddr).Info("websocket client connected")

	conn.WriteJSON(map[string]interface{}{
		"type":      "connected",
		"timestamp": time.Now(),
	})

	// The read loop only services control frames and detects disconnects.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}()

	pingTicker := time.NewTicker(54 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.WithError(err).Debug("websocket write failed")
				return
			}
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readDone:
			return
		}
	}
}

func (h *WebSocketHandler) claimsFromRequest(r *http.Request) (*JWTClaims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	return ValidateJWTToken(token)
}
