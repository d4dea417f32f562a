package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lironoshka111/supportme/internal/hub"
	"github.com/lironoshka111/supportme/internal/metrics"
	"github.com/lironoshka111/supportme/internal/models"
	"github.com/lironoshka111/supportme/internal/storage"
)

// Validation errors surfaced to API clients as bad requests.
var (
	ErrTitleRequired      = errors.New("room title is required")
	ErrCategoryRequired   = errors.New("room category is required")
	ErrInvalidMaxMembers  = errors.New("max members must be zero or positive")
	ErrDescriptionTooLong = errors.New("description must be at most 100 words")
	ErrNotRoomAdmin       = errors.New("only the room admin may do this")
	ErrAdminCannotLeave   = errors.New("the room admin cannot leave their own room")
	ErrCannotRestrictSelf = errors.New("the room admin cannot restrict themselves")
)

// maxDescriptionWords mirrors the room form's word-count limit.
const maxDescriptionWords = 100

// RoomService owns the room directory and membership operations.
type RoomService struct {
	store storage.Store
	hub   *hub.Hub
	clock Clock
}

// NewRoomService creates a new RoomService with the given storage backend.
func NewRoomService(store storage.Store, h *hub.Hub) *RoomService {
	return &RoomService{store: store, hub: h, clock: systemClock{}}
}

// validateRoom applies the creation/update form rules.
func validateRoom(room *models.Room) error {
	if strings.TrimSpace(room.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(room.Category) == "" {
		return ErrCategoryRequired
	}
	if room.MaxMembers < 0 {
		return ErrInvalidMaxMembers
	}
	if len(strings.Fields(room.Description)) > maxDescriptionWords {
		return ErrDescriptionTooLong
	}
	return nil
}

// CreateRoom creates a room with adminID as its administrator and joins the
// admin as its first member.
func (s *RoomService) CreateRoom(ctx context.Context, adminID string, room *models.Room) (*models.Room, error) {
	slog.Info("CreateRoom request received", "admin_id", adminID, "title", room.Title)

	if err := validateRoom(room); err != nil {
		return nil, err
	}
	room.AdminID = adminID

	if err := s.store.CreateRoom(ctx, room); err != nil {
		slog.Error("CreateRoom failed", "error", err)
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	// The creator joins their own room immediately.
	if _, err := s.store.JoinRoom(ctx, room.ID, adminID, storage.JoinOptions{}); err != nil {
		slog.Error("CreateRoom failed to join admin", "room_id", room.ID, "error", err)
		return nil, fmt.Errorf("failed to add admin membership: %w", err)
	}
	room.MemberCount = 1

	metrics.RoomsCreated.Inc()
	slog.Info("Room created", "room_id", room.ID, "title", room.Title)

	return room, nil
}

// GetRoom retrieves a room by ID.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return s.store.GetRoom(ctx, roomID)
}

// ListRooms returns the directory filtered per the request.
func (s *RoomService) ListRooms(ctx context.Context, filter storage.RoomFilter) ([]*models.Room, error) {
	rooms, err := s.store.ListRooms(ctx, filter)
	if err != nil {
		slog.Error("ListRooms failed", "error", err)
		return nil, err
	}
	return rooms, nil
}

// UpdateRoom overwrites a room's fields. Admin only; last writer wins.
func (s *RoomService) UpdateRoom(ctx context.Context, actorID string, room *models.Room) (*models.Room, error) {
	slog.Info("UpdateRoom request received", "room_id", room.ID, "actor_id", actorID)

	if err := validateRoom(room); err != nil {
		return nil, err
	}

	existing, err := s.store.GetRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if existing.AdminID != actorID {
		return nil, ErrNotRoomAdmin
	}

	if err := s.store.UpdateRoom(ctx, room); err != nil {
		slog.Error("UpdateRoom failed", "room_id", room.ID, "error", err)
		return nil, err
	}

	updated, err := s.store.GetRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("Room updated", "room_id", room.ID)
	return updated, nil
}

// DeleteRoom removes a room and all of its data. Admin only. Live
// subscriptions on the room are closed.
func (s *RoomService) DeleteRoom(ctx context.Context, actorID, roomID string) error {
	slog.Info("DeleteRoom request received", "room_id", roomID, "actor_id", actorID)

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.AdminID != actorID {
		return ErrNotRoomAdmin
	}

	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		slog.Error("DeleteRoom failed", "room_id", roomID, "error", err)
		return err
	}

	s.hub.CloseRoom(roomID)

	slog.Info("Room deleted", "room_id", roomID)
	return nil
}

// JoinRoom adds the user to the room. The capacity check and the insert are a
// single conditional write in the store, so the "room full" boundary holds
// under concurrent joins.
func (s *RoomService) JoinRoom(ctx context.Context, roomID, userID string, opts storage.JoinOptions) (*models.GroupMember, error) {
	slog.Info("JoinRoom request received", "room_id", roomID, "user_id", userID)

	member, err := s.store.JoinRoom(ctx, roomID, userID, opts)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrRoomFull):
			metrics.JoinsRejected.WithLabelValues("full").Inc()
		case errors.Is(err, storage.ErrAlreadyMember):
			metrics.JoinsRejected.WithLabelValues("duplicate").Inc()
		case errors.Is(err, storage.ErrUserRestricted):
			metrics.JoinsRejected.WithLabelValues("restricted").Inc()
		}
		slog.Warn("JoinRoom rejected", "room_id", roomID, "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("User joined room", "room_id", roomID, "user_id", userID)
	return member, nil
}

// LeaveRoom removes the user's membership. Admins must delete or hand off
// their room instead of leaving it.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	slog.Info("LeaveRoom request received", "room_id", roomID, "user_id", userID)

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.AdminID == userID {
		return ErrAdminCannotLeave
	}

	if err := s.store.LeaveRoom(ctx, roomID, userID); err != nil {
		return err
	}

	slog.Info("User left room", "room_id", roomID, "user_id", userID)
	return nil
}

// ToggleFavorite sets or clears the favorite flag on the user's membership.
func (s *RoomService) ToggleFavorite(ctx context.Context, roomID, userID string, active bool) error {
	slog.Info("ToggleFavorite request received", "room_id", roomID, "user_id", userID, "active", active)
	return s.store.SetFavorite(ctx, roomID, userID, active)
}

// ListMembers returns the room's membership.
func (s *RoomService) ListMembers(ctx context.Context, roomID string) ([]*models.GroupMember, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, roomID)
}

// ListRoomsForUser returns the user's sidebar: their rooms, favorites first.
func (s *RoomService) ListRoomsForUser(ctx context.Context, userID string) ([]*models.Room, error) {
	return s.store.ListRoomsForUser(ctx, userID)
}

// MarkSeen records that the user viewed the room now, returning the previous
// marker so clients can place the "new messages" divider.
func (s *RoomService) MarkSeen(ctx context.Context, roomID, userID string) (int64, error) {
	return s.store.MarkSeen(ctx, roomID, userID, s.clock.NowMs())
}

// UnreadCount returns how many messages arrived since the user's last visit.
func (s *RoomService) UnreadCount(ctx context.Context, roomID, userID string) (int, error) {
	return s.store.UnreadCount(ctx, roomID, userID)
}

// RestrictUser bans a user from a room. Admin only; the banned user's
// membership is dropped.
func (s *RoomService) RestrictUser(ctx context.Context, actorID, roomID, userID string) error {
	slog.Info("RestrictUser request received", "room_id", roomID, "actor_id", actorID, "user_id", userID)

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.AdminID != actorID {
		return ErrNotRoomAdmin
	}
	if userID == room.AdminID {
		return ErrCannotRestrictSelf
	}

	return s.store.RestrictUser(ctx, roomID, userID)
}

// UnrestrictUser lifts a ban. Admin only.
func (s *RoomService) UnrestrictUser(ctx context.Context, actorID, roomID, userID string) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.AdminID != actorID {
		return ErrNotRoomAdmin
	}

	return s.store.UnrestrictUser(ctx, roomID, userID)
}
