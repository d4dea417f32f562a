package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lironoshka111/supportme/internal/models"
	"github.com/lironoshka111/supportme/internal/storage"
)

const roomColumns = `r.id, r.title, r.category, r.description,
	r.location_name, r.location_lat, r.location_lon,
	r.info_link, r.meeting_url, r.is_online, r.max_members, r.admin_id,
	r.meeting_frequency, r.group_rules, r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM group_members gm WHERE gm.room_id = r.id) AS member_count`

// CreateRoom persists a new room to the database.
func (s *SQLiteStore) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if room.CreatedAt == 0 {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	var locName string
	var locLat, locLon float64
	if room.Location != nil {
		locName = room.Location.DisplayName
		locLat = room.Location.Lat
		locLon = room.Location.Lon
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, title, category, description,
			location_name, location_lat, location_lon,
			info_link, meeting_url, is_online, max_members, admin_id,
			meeting_frequency, group_rules, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID, room.Title, room.Category, room.Description,
		locName, locLat, locLon,
		room.InfoLink, room.MeetingURL, room.IsOnline, room.MaxMembers, room.AdminID,
		room.MeetingFrequency, room.GroupRules, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}

	return nil
}

func scanRoom(scanner interface{ Scan(...any) error }) (*models.Room, error) {
	room := &models.Room{}
	var locName string
	var locLat, locLon float64

	err := scanner.Scan(
		&room.ID, &room.Title, &room.Category, &room.Description,
		&locName, &locLat, &locLon,
		&room.InfoLink, &room.MeetingURL, &room.IsOnline, &room.MaxMembers, &room.AdminID,
		&room.MeetingFrequency, &room.GroupRules, &room.CreatedAt, &room.UpdatedAt,
		&room.MemberCount,
	)
	if err != nil {
		return nil, err
	}

	if locName != "" {
		room.Location = &models.Location{DisplayName: locName, Lat: locLat, Lon: locLon}
	}
	return room, nil
}

// GetRoom retrieves a room by ID with its current member count.
func (s *SQLiteStore) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms r WHERE r.id = ?`, roomID)

	room, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// ListRooms returns rooms matching the filter, newest first.
func (s *SQLiteStore) ListRooms(ctx context.Context, filter storage.RoomFilter) ([]*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms r`
	var args []any
	var where []string

	if filter.Query != "" {
		where = append(where, `(r.title LIKE ? COLLATE NOCASE OR r.category LIKE ? COLLATE NOCASE)`)
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Category != "" {
		where = append(where, `r.category = ?`)
		args = append(args, filter.Category)
	}
	if filter.FavoritesOf != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM group_members gm
			WHERE gm.room_id = r.id AND gm.user_id = ? AND gm.is_favorite = 1)`)
		args = append(args, filter.FavoritesOf)
	}

	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY r.created_at DESC, r.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return rooms, nil
}

// UpdateRoom overwrites the mutable fields of an existing room.
func (s *SQLiteStore) UpdateRoom(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now().Unix()

	var locName string
	var locLat, locLon float64
	if room.Location != nil {
		locName = room.Location.DisplayName
		locLat = room.Location.Lat
		locLon = room.Location.Lon
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms
		SET title = ?, category = ?, description = ?,
			location_name = ?, location_lat = ?, location_lon = ?,
			info_link = ?, meeting_url = ?, is_online = ?, max_members = ?,
			meeting_frequency = ?, group_rules = ?, updated_at = ?
		WHERE id = ?`,
		room.Title, room.Category, room.Description,
		locName, locLat, locLon,
		room.InfoLink, room.MeetingURL, room.IsOnline, room.MaxMembers,
		room.MeetingFrequency, room.GroupRules, room.UpdatedAt,
		room.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return storage.ErrRoomNotFound
	}

	return nil
}

// DeleteRoom removes a room and everything hanging off it in one transaction.
// Reactions go through the messages FK cascade.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, roomID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reactions WHERE message_id IN (SELECT id FROM messages WHERE room_id = ?)`,
		roomID,
	); err != nil {
		return fmt.Errorf("failed to delete reactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM group_members WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("failed to delete group members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM room_restrictions WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("failed to delete restrictions: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return storage.ErrRoomNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RestrictUser bans a user from the room and drops their membership.
func (s *SQLiteStore) RestrictUser(ctx context.Context, roomID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE id = ?)`, roomID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check room: %w", err)
	}
	if !exists {
		return storage.ErrRoomNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO room_restrictions (room_id, user_id) VALUES (?, ?)`,
		roomID, userID,
	); err != nil {
		return fmt.Errorf("failed to insert restriction: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	); err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UnrestrictUser lifts a ban. No-op if the user was not restricted.
func (s *SQLiteStore) UnrestrictUser(ctx context.Context, roomID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM room_restrictions WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete restriction: %w", err)
	}
	return nil
}
