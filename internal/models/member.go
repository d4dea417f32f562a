package models

// GroupMember is the join row between a user and a room.
// At most one row exists per (RoomID, UserID) pair.
type GroupMember struct {
	// ID is the unique identifier for the membership row (UUID format).
	ID string `json:"id"`

	// RoomID and UserID identify the relation.
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`

	// IsFavorite marks the room as a favorite for this user.
	IsFavorite bool `json:"isFavorite"`

	// IsAnonymous hides the user's real profile inside the room.
	IsAnonymous bool `json:"isAnonymous"`

	// Nickname and Avatar are the in-room identity snapshot. Empty means
	// "use the account's display name / photo".
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`

	// LastSeenMs is the Unix-millisecond timestamp of the user's last visit
	// to the room. Zero means the user has never opened it. Unread counting
	// is derived from this field.
	LastSeenMs int64 `json:"lastSeenMs"`

	// JoinedAt is the Unix timestamp when the user joined.
	JoinedAt int64 `json:"joinedAt"`
}
