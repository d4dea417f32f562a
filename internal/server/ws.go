package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/lironoshka111/supportme/internal/middleware"
)

// handleSubscribe upgrades to a WebSocket and streams room events: the full
// message history first (optionally starting after ?after=<seq>), then the
// live tail. The stream ends when the client disconnects or the room is
// deleted.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())
	afterSeq := parseInt64(r.URL.Query().Get("after"), 0)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The REST API is already open cross-origin; the socket matches.
		InsecureSkipVerify: true,
	})
	if err != nil {
		slog.Warn("WebSocket accept failed", "room_id", roomID, "error", err)
		return
	}
	defer wsConn.Close(websocket.StatusInternalError, "closing connection")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := s.chat.Subscribe(ctx, roomID, afterSeq)
	if err != nil {
		payload, _ := json.Marshal(errorResponse{Error: err.Error()})
		_ = wsConn.Write(ctx, websocket.MessageText, payload)
		wsConn.Close(websocket.StatusPolicyViolation, "subscription rejected")
		return
	}

	slog.Info("Subscription opened", "room_id", roomID, "user_id", userID)
	defer slog.Info("Subscription closed", "room_id", roomID, "user_id", userID)

	// Drain the client side only to notice the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := wsConn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			slog.Error("Failed to encode event", "room_id", roomID, "error", err)
			continue
		}
		if err := wsConn.Write(ctx, websocket.MessageText, payload); err != nil {
			return
		}
	}

	wsConn.Close(websocket.StatusNormalClosure, "stream ended")
}
