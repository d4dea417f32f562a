package server

import (
	"net/http"
	"strconv"

	"github.com/lironoshka111/supportme/internal/middleware"
	"github.com/lironoshka111/supportme/internal/models"
	"github.com/lironoshka111/supportme/internal/storage"
)

// roomRequest carries the mutable room fields for create and update.
type roomRequest struct {
	Title            string           `json:"title"`
	Category         string           `json:"category"`
	Description      string           `json:"description"`
	Location         *models.Location `json:"location"`
	InfoLink         string           `json:"infoLink"`
	MeetingURL       string           `json:"meetingUrl"`
	IsOnline         bool             `json:"isOnline"`
	MaxMembers       int              `json:"maxMembers"`
	MeetingFrequency string           `json:"meetingFrequency"`
	GroupRules       string           `json:"groupRules"`
}

func (req *roomRequest) toModel() *models.Room {
	return &models.Room{
		Title:            req.Title,
		Category:         req.Category,
		Description:      req.Description,
		Location:         req.Location,
		InfoLink:         req.InfoLink,
		MeetingURL:       req.MeetingURL,
		IsOnline:         req.IsOnline,
		MaxMembers:       req.MaxMembers,
		MeetingFrequency: req.MeetingFrequency,
		GroupRules:       req.GroupRules,
	}
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	room, err := s.rooms.CreateRoom(r.Context(), middleware.GetUserID(r.Context()), req.toModel())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.rooms.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	filter := storage.RoomFilter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}
	if r.URL.Query().Get("favorites") == "true" {
		userID := middleware.GetUserID(r.Context())
		if userID == "" {
			badRequest(w, "favorites filter requires authentication")
			return
		}
		filter.FavoritesOf = userID
	}

	rooms, err := s.rooms.ListRooms(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	room := req.toModel()
	room.ID = r.PathValue("id")

	updated, err := s.rooms.UpdateRoom(r.Context(), middleware.GetUserID(r.Context()), room)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	err := s.rooms.DeleteRoom(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type joinRequest struct {
	Anonymous bool   `json:"anonymous"`
	Nickname  string `json:"nickname"`
	Avatar    string `json:"avatar"`
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
	}

	member, err := s.rooms.JoinRoom(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()), storage.JoinOptions{
		Anonymous: req.Anonymous,
		Nickname:  req.Nickname,
		Avatar:    req.Avatar,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	err := s.rooms.LeaveRoom(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type favoriteRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	err := s.rooms.ToggleFavorite(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()), req.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.rooms.ListMembers(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleMyRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.ListRoomsForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleMarkSeen(w http.ResponseWriter, r *http.Request) {
	prev, err := s.rooms.MarkSeen(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"previousLastSeenMs": prev})
}

func (s *Server) handleUnread(w http.ResponseWriter, r *http.Request) {
	count, err := s.rooms.UnreadCount(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (s *Server) handleRestrict(w http.ResponseWriter, r *http.Request) {
	err := s.rooms.RestrictUser(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleUnrestrict(w http.ResponseWriter, r *http.Request) {
	err := s.rooms.UnrestrictUser(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("id"), r.PathValue("userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// parseInt64 parses a query parameter, returning fallback when absent.
func parseInt64(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
