package models

// Location is a geocoded place attached to a room (for in-person groups).
// Shape follows what the geocoding API returns: a display string plus
// coordinates.
type Location struct {
	// DisplayName is the human-readable address ("Tel Aviv, Israel").
	DisplayName string `json:"displayName"`

	// Lat and Lon are the WGS84 coordinates.
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Room represents a support group chat channel.
type Room struct {
	// ID is the unique identifier for the room (UUID format).
	ID string `json:"id"`

	// Title is the display name of the room (e.g., "Diabetes Support").
	Title string `json:"title"`

	// Category is the topic of the room, typically a condition name.
	Category string `json:"category"`

	// Description is a free-text description of the group.
	Description string `json:"description,omitempty"`

	// Location is the physical meeting place, when the group meets offline.
	Location *Location `json:"location,omitempty"`

	// InfoLink is an optional link to further reading about the condition.
	InfoLink string `json:"infoLink,omitempty"`

	// MeetingURL is the video-call link for online groups.
	MeetingURL string `json:"meetingUrl,omitempty"`

	// IsOnline indicates whether the group meets online.
	IsOnline bool `json:"isOnline"`

	// MaxMembers caps how many users may join. Zero means unlimited.
	MaxMembers int `json:"maxMembers"`

	// AdminID is the user ID of the room's administrator (its creator).
	AdminID string `json:"adminId"`

	// MeetingFrequency is free text like "weekly" or "biweekly".
	MeetingFrequency string `json:"meetingFrequency,omitempty"`

	// GroupRules is free text set by the admin.
	GroupRules string `json:"groupRules,omitempty"`

	// MemberCount is the current number of members. Populated on reads,
	// never written directly.
	MemberCount int `json:"memberCount"`

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// Unlimited reports whether the room has no member cap.
func (r *Room) Unlimited() bool {
	return r.MaxMembers <= 0
}
