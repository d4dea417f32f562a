package models

// Reaction is a single (user, type) pair attached to a message.
// The store enforces set semantics: a user holds a given reaction type on a
// message at most once. Nothing prevents a user from holding several distinct
// types on the same message.
type Reaction struct {
	// ReactingUserID is the user who reacted.
	ReactingUserID string `json:"reactingUserId"`

	// ReactionType is the emoji/type value (e.g., "like", "love").
	ReactionType string `json:"reactionType"`
}

// Message is one chat message inside a room. Messages are append-only and
// never edited; deletion removes the row together with its reactions.
type Message struct {
	// Seq is the store-assigned sequence number. It totally orders messages
	// and lets subscriptions hand off from replay to live-tail without
	// duplicates.
	Seq int64 `json:"seq"`

	// ID is the unique identifier for the message (UUID format).
	ID string `json:"id"`

	// RoomID is the room this message belongs to.
	RoomID string `json:"roomId"`

	// UserID is the sender's user ID.
	UserID string `json:"userId"`

	// UserName and UserImage are the sender's display snapshot at send time.
	UserName  string `json:"userName"`
	UserImage string `json:"userImage,omitempty"`

	// Text is the message body, after moderation.
	Text string `json:"text"`

	// Censored indicates the moderation screen rewrote the text.
	Censored bool `json:"censored,omitempty"`

	// CreatedAtMs is the server-assigned Unix-millisecond timestamp.
	CreatedAtMs int64 `json:"createdAtMs"`

	// Reactions is the current reaction set. Populated on reads.
	Reactions []Reaction `json:"reactions,omitempty"`
}
