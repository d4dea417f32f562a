package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lironoshka111/supportme/internal/auth"
	"github.com/lironoshka111/supportme/internal/service"
	"github.com/lironoshka111/supportme/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps service and storage errors onto HTTP statuses. Anything
// unrecognized is an internal error and its detail stays out of the response.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, storage.ErrRoomNotFound),
		errors.Is(err, storage.ErrMessageNotFound),
		errors.Is(err, storage.ErrMemberNotFound),
		errors.Is(err, service.ErrUserNotFound):
		status = http.StatusNotFound

	case errors.Is(err, storage.ErrRoomFull),
		errors.Is(err, storage.ErrAlreadyMember),
		errors.Is(err, auth.ErrEmailExists):
		status = http.StatusConflict

	case errors.Is(err, storage.ErrUserRestricted),
		errors.Is(err, service.ErrNotRoomAdmin),
		errors.Is(err, service.ErrAdminCannotLeave),
		errors.Is(err, service.ErrCannotRestrictSelf),
		errors.Is(err, service.ErrNotMember),
		errors.Is(err, service.ErrNotAuthor):
		status = http.StatusForbidden

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		status = http.StatusUnauthorized

	case errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, service.ErrEmailRequired),
		errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrCategoryRequired),
		errors.Is(err, service.ErrInvalidMaxMembers),
		errors.Is(err, service.ErrDescriptionTooLong):
		status = http.StatusBadRequest
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Internal error", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
