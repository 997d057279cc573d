package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bolaodoscria/bolao-backend/realtime"
	"github.com/bolaodoscria/bolao-backend/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub         *realtime.Hub
	poolService services.PoolService
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler accepts connections whose Origin is in allowedOrigins.
// A "*" entry, or a request without an Origin header, is always accepted.
func NewWebSocketHandler(hub *realtime.Hub, poolService services.PoolService, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub:         hub,
		poolService: poolService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// ServeWs subscribes the caller to the events of one pool.
// @Summary Subscribe to pool events over WebSocket
// @Description The token may be sent as ?token= since browsers cannot set headers on WebSocket requests.
// @Tags realtime
// @Param poolID path string true "Pool ID"
// @Param token query string false "JWT, when no Authorization header is sent"
// @Success 101
// @Failure 404 {object} map[string]string "Pool not found"
// @Security BearerAuth
// @Router /ws/pools/{poolID} [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuidParam(r, "poolID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, err := h.poolService.GetPool(r.Context(), poolID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.WarnContext(r.Context(), "websocket upgrade failed", slog.String("pool_id", poolID), slog.Any("error", err))
		return
	}

	room := realtime.RoomForPool(poolID)
	client := realtime.NewClient(h.hub, conn, room)
	if !h.hub.Join(client) {
		conn.Close()
		return
	}
	slog.DebugContext(r.Context(), "websocket client joined", slog.String("room", room))

	go client.WritePump()
	go client.ReadPump()
}
