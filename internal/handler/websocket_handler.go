package handler

import (
	"net/http"

	"github.com/sebascrugu/finanzas-tracker-go/internal/websocket"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// JWTValidator validates JWT tokens and returns the profile ID
type JWTValidator interface {
	ValidateToken(token string) (profileID string, err error)
}

// WebSocketHandler handles the dashboard's watch-only WebSocket connection.
type WebSocketHandler struct {
	hub            *websocket.Hub
	validator      JWTValidator
	allowedOrigins map[string]bool
	upgrader       ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, validator JWTValidator, allowedOrigins []string) *WebSocketHandler {
	originMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		originMap[origin] = true
	}

	h := &WebSocketHandler{
		hub:            hub,
		validator:      validator,
		allowedOrigins: originMap,
	}

	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if h.allowedOrigins[origin] {
		return true
	}

	log.Warn().
		Str("origin", origin).
		Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// HandleWS handles WebSocket connection requests at GET /ws
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		log.Debug().Msg("WebSocket connection rejected: missing token")
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	profileID, err := h.validator.ValidateToken(token)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket connection rejected: invalid token")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	client := websocket.NewClient(conn, profileID, h.hub)
	h.hub.Register(client)

	log.Info().
		Str("profile_id", profileID).
		Str("client_id", client.ID()).
		Msg("WebSocket client connected")

	go client.WritePump()
	go client.ReadPump()

	return nil
}
