// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/lironoshka111/supportme/internal/models"
)

// Sentinel errors returned by Store implementations. Services map these to
// API error codes; everything else is treated as internal.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrMemberNotFound  = errors.New("membership not found")
	ErrRoomFull        = errors.New("room is full")
	ErrAlreadyMember   = errors.New("user is already a member of the room")
	ErrUserRestricted  = errors.New("user is restricted from the room")
)

// RoomFilter narrows ListRooms results. Zero value means "all rooms".
type RoomFilter struct {
	// Query matches case-insensitively against title and category.
	Query string

	// Category matches the room category exactly.
	Category string

	// FavoritesOf restricts to rooms the given user marked as favorite.
	FavoritesOf string
}

// JoinOptions carries the optional membership fields set at join time.
type JoinOptions struct {
	Anonymous bool
	Nickname  string
	Avatar    string
}

// Store defines the persistence operations for rooms, memberships, and
// messages. This abstraction allows swapping storage backends (SQLite,
// PostgreSQL, etc.) without changing the service layer.
type Store interface {
	UserStore
	RoomStore
	MemberStore
	MessageStore

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

// RoomStore persists the room directory.
type RoomStore interface {
	// CreateRoom persists a new room and returns the assigned ID.
	// The room.ID field will be populated by the store.
	CreateRoom(ctx context.Context, room *models.Room) error

	// GetRoom retrieves a room by ID, with MemberCount populated.
	// Returns ErrRoomNotFound if it does not exist.
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)

	// ListRooms returns rooms matching the filter, newest first.
	ListRooms(ctx context.Context, filter RoomFilter) ([]*models.Room, error)

	// UpdateRoom overwrites the mutable fields of an existing room.
	// Last writer wins; there is no optimistic concurrency control.
	UpdateRoom(ctx context.Context, room *models.Room) error

	// DeleteRoom removes a room together with its memberships, messages,
	// reactions, and restrictions in one transaction.
	DeleteRoom(ctx context.Context, roomID string) error

	// RestrictUser bans a user from a room and removes their membership.
	RestrictUser(ctx context.Context, roomID, userID string) error

	// UnrestrictUser lifts a ban. No-op if the user was not restricted.
	UnrestrictUser(ctx context.Context, roomID, userID string) error
}

// MemberStore persists the user<->room relation.
type MemberStore interface {
	// JoinRoom inserts the membership row atomically: the capacity check,
	// the restriction check, and the insert happen in a single conditional
	// write, so concurrent joins can never push a room over MaxMembers or
	// create duplicate rows. Returns ErrRoomFull, ErrAlreadyMember,
	// ErrUserRestricted, or ErrRoomNotFound accordingly.
	JoinRoom(ctx context.Context, roomID, userID string, opts JoinOptions) (*models.GroupMember, error)

	// LeaveRoom deletes the membership row.
	// Returns ErrMemberNotFound if the user was not a member.
	LeaveRoom(ctx context.Context, roomID, userID string) error

	// GetMember fetches the membership row for (roomID, userID).
	GetMember(ctx context.Context, roomID, userID string) (*models.GroupMember, error)

	// SetFavorite upserts the membership row's favorite flag. If the user is
	// not yet a member, a bare membership row is created (favoriting from
	// the directory without joining), matching the source behavior.
	SetFavorite(ctx context.Context, roomID, userID string, favorite bool) error

	// ListMembers returns all members of a room ordered by join time.
	ListMembers(ctx context.Context, roomID string) ([]*models.GroupMember, error)

	// ListRoomsForUser returns the rooms a user belongs to, favorites first.
	ListRoomsForUser(ctx context.Context, userID string) ([]*models.Room, error)

	// MarkSeen sets the member's last-seen marker to nowMs and returns the
	// previous value (zero if never set).
	MarkSeen(ctx context.Context, roomID, userID string, nowMs int64) (int64, error)

	// UnreadCount counts messages in the room newer than the member's
	// last-seen marker.
	UnreadCount(ctx context.Context, roomID, userID string) (int, error)
}

// MessageStore persists the append-only message log and reactions.
type MessageStore interface {
	// AppendMessage assigns Seq, ID, and CreatedAtMs and inserts the message.
	AppendMessage(ctx context.Context, msg *models.Message) error

	// GetMessage fetches one message with its reactions.
	GetMessage(ctx context.Context, roomID, messageID string) (*models.Message, error)

	// ListMessages returns messages with seq > afterSeq, ordered by seq
	// ascending. limit <= 0 means no limit.
	ListMessages(ctx context.Context, roomID string, afterSeq int64, limit int) ([]*models.Message, error)

	// DeleteMessage removes a message and its reactions.
	DeleteMessage(ctx context.Context, roomID, messageID string) error

	// AddReaction adds a (user, type) reaction. Adding an already-present
	// reaction is a no-op (set union).
	AddReaction(ctx context.Context, messageID, userID, reactionType string) error

	// RemoveReaction removes a (user, type) reaction. Removing an absent
	// reaction is a no-op (set difference).
	RemoveReaction(ctx context.Context, messageID, userID, reactionType string) error
}
