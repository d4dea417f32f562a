package server

import (
	"net/http"

	"github.com/lironoshka111/supportme/internal/middleware"
	"github.com/lironoshka111/supportme/internal/service"
)

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	claims := middleware.GetClaims(r.Context())
	sender := service.Sender{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		PhotoURL:    claims.PhotoURL,
	}

	msg, err := s.chat.SendMessage(r.Context(), r.PathValue("id"), sender, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	afterSeq := parseInt64(r.URL.Query().Get("after"), 0)
	limit := int(parseInt64(r.URL.Query().Get("limit"), 0))

	messages, err := s.chat.History(r.Context(), r.PathValue("id"), afterSeq, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	err := s.chat.DeleteMessage(r.Context(), r.PathValue("id"), r.PathValue("msgID"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type reactionRequest struct {
	ReactionType string `json:"reactionType"`
	Active       bool   `json:"active"`
}

func (s *Server) handleReaction(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ReactionType == "" {
		badRequest(w, "reactionType is required")
		return
	}

	msg, err := s.chat.ToggleReaction(
		r.Context(),
		r.PathValue("id"),
		r.PathValue("msgID"),
		middleware.GetUserID(r.Context()),
		req.ReactionType,
		req.Active,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
