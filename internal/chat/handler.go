package chat

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"bazaar/internal/auth"
)

// Handler upgrades HTTP requests to chat connections. The credential rides on
// the handshake as a query parameter; a missing or invalid token closes the
// socket with a policy-violation code before any frame is exchanged.
type Handler struct {
	hub      *Hub
	verifier auth.Verifier
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, verifier auth.Verifier) *Handler {
	return &Handler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Browser clients connect from the marketplace web app on a
				// different origin.
				return true
			},
		},
	}
}

func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade websocket", "error", err)
		return
	}

	userID, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		slog.Warn("websocket handshake rejected", "error", err)
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	client := NewClient(userID, h.hub, conn)
	h.hub.Attach(client)

	client.enqueue(&ConnectionEstablishedFrame{Type: FrameConnectionEstablished, UserID: userID})

	go client.WritePump()
	go client.ReadPump()
}
