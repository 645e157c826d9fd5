package handlers

import (
	"net/http"

	"captable/internal/auth"
	ws "captable/internal/websocket"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSPositions streams position updates for the caller's entity. The token
// rides in the query string because browsers cannot set headers on
// websocket upgrades.
func (h *Handler) WSPositions(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	scope, found, err := h.operators.ScopeFor(r.Context(), claims.UserID)
	if err != nil || !found {
		respondError(w, http.StatusForbidden, "no entity scope")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := ws.NewClient(conn)
	h.hub.Register(scope.EntityID, client)
	go client.WritePump()
	go client.ReadPump(func() {
		h.hub.Unregister(scope.EntityID, client)
	})
}
