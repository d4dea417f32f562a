// Package server exposes the supportme API over HTTP: JSON endpoints for
// accounts, rooms, membership, and messages, plus a WebSocket stream for live
// room subscriptions.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lironoshka111/supportme/internal/auth"
	"github.com/lironoshka111/supportme/internal/lookup"
	"github.com/lironoshka111/supportme/internal/middleware"
	"github.com/lironoshka111/supportme/internal/service"
)

// Server holds the services behind the HTTP API.
type Server struct {
	auths      *service.AuthService
	rooms      *service.RoomService
	chat       *service.ChatService
	conditions *lookup.ConditionsClient
	geocode    *lookup.GeocodeClient
	jwt        *auth.JWTManager
}

// New creates a Server over the given services.
func New(
	auths *service.AuthService,
	rooms *service.RoomService,
	chat *service.ChatService,
	conditions *lookup.ConditionsClient,
	geocode *lookup.GeocodeClient,
	jwt *auth.JWTManager,
) *Server {
	return &Server{
		auths:      auths,
		rooms:      rooms,
		chat:       chat,
		conditions: conditions,
		geocode:    geocode,
		jwt:        jwt,
	}
}

// Handler builds the routed HTTP handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(s.jwt)
	optionalAuth := middleware.OptionalAuth(s.jwt)

	// Public endpoints.
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	// Account endpoints.
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(s.handleGetMe)))
	mux.Handle("PATCH /api/auth/me", requireAuth(http.HandlerFunc(s.handleUpdateMe)))

	// Room directory. Listing works unauthenticated, but the favorites
	// filter needs a session.
	mux.Handle("GET /api/rooms", optionalAuth(http.HandlerFunc(s.handleListRooms)))
	mux.Handle("POST /api/rooms", requireAuth(http.HandlerFunc(s.handleCreateRoom)))
	mux.Handle("GET /api/rooms/{id}", optionalAuth(http.HandlerFunc(s.handleGetRoom)))
	mux.Handle("PUT /api/rooms/{id}", requireAuth(http.HandlerFunc(s.handleUpdateRoom)))
	mux.Handle("DELETE /api/rooms/{id}", requireAuth(http.HandlerFunc(s.handleDeleteRoom)))

	// Membership.
	mux.Handle("GET /api/me/rooms", requireAuth(http.HandlerFunc(s.handleMyRooms)))
	mux.Handle("POST /api/rooms/{id}/join", requireAuth(http.HandlerFunc(s.handleJoinRoom)))
	mux.Handle("POST /api/rooms/{id}/leave", requireAuth(http.HandlerFunc(s.handleLeaveRoom)))
	mux.Handle("PUT /api/rooms/{id}/favorite", requireAuth(http.HandlerFunc(s.handleFavorite)))
	mux.Handle("GET /api/rooms/{id}/members", requireAuth(http.HandlerFunc(s.handleListMembers)))
	mux.Handle("POST /api/rooms/{id}/seen", requireAuth(http.HandlerFunc(s.handleMarkSeen)))
	mux.Handle("GET /api/rooms/{id}/unread", requireAuth(http.HandlerFunc(s.handleUnread)))
	mux.Handle("POST /api/rooms/{id}/restrictions/{userID}", requireAuth(http.HandlerFunc(s.handleRestrict)))
	mux.Handle("DELETE /api/rooms/{id}/restrictions/{userID}", requireAuth(http.HandlerFunc(s.handleUnrestrict)))

	// Messages.
	mux.Handle("GET /api/rooms/{id}/messages", requireAuth(http.HandlerFunc(s.handleHistory)))
	mux.Handle("POST /api/rooms/{id}/messages", requireAuth(http.HandlerFunc(s.handleSendMessage)))
	mux.Handle("DELETE /api/rooms/{id}/messages/{msgID}", requireAuth(http.HandlerFunc(s.handleDeleteMessage)))
	mux.Handle("PUT /api/rooms/{id}/messages/{msgID}/reactions", requireAuth(http.HandlerFunc(s.handleReaction)))

	// Live subscription. Auth via Authorization header or access_token query.
	mux.Handle("GET /api/rooms/{id}/ws", requireAuth(http.HandlerFunc(s.handleSubscribe)))

	// Lookup proxies.
	mux.Handle("GET /api/lookup/conditions", requireAuth(http.HandlerFunc(s.handleConditions)))
	mux.Handle("GET /api/lookup/locations", requireAuth(http.HandlerFunc(s.handleLocations)))

	return middleware.Logging(middleware.CORS(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
