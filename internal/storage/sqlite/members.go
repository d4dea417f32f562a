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

// JoinRoom inserts the membership row with a single conditional INSERT.
// The restriction check, the capacity check, and the insert execute as one
// statement under SQLite's write lock, so two concurrent joins cannot both
// slip past the capacity check, and the UNIQUE(room_id, user_id) constraint
// rules out duplicate rows.
func (s *SQLiteStore) JoinRoom(ctx context.Context, roomID, userID string, opts storage.JoinOptions) (*models.GroupMember, error) {
	member := &models.GroupMember{
		ID:          uuid.New().String(),
		RoomID:      roomID,
		UserID:      userID,
		IsAnonymous: opts.Anonymous,
		Nickname:    opts.Nickname,
		Avatar:      opts.Avatar,
		JoinedAt:    time.Now().Unix(),
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (id, room_id, user_id, is_favorite, is_anonymous, nickname, avatar, last_seen_ms, joined_at)
		SELECT ?, ?, ?, 0, ?, ?, ?, 0, ?
		WHERE EXISTS (SELECT 1 FROM rooms WHERE id = ?)
		  AND NOT EXISTS (SELECT 1 FROM room_restrictions WHERE room_id = ? AND user_id = ?)
		  AND ((SELECT max_members FROM rooms WHERE id = ?) <= 0
		       OR (SELECT COUNT(*) FROM group_members WHERE room_id = ?) < (SELECT max_members FROM rooms WHERE id = ?))`,
		member.ID, roomID, userID,
		member.IsAnonymous, member.Nickname, member.Avatar, member.JoinedAt,
		roomID,
		roomID, userID,
		roomID, roomID, roomID,
	)
	if isUniqueViolation(err) {
		return nil, storage.ErrAlreadyMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check join result: %w", err)
	}
	if n == 0 {
		// The conditional insert did nothing; figure out which guard failed.
		return nil, s.diagnoseJoinFailure(ctx, roomID, userID)
	}

	return member, nil
}

// diagnoseJoinFailure distinguishes a missing room, a restriction, and a full
// room after a conditional join inserted nothing. The answer is advisory: the
// guarantee lives in the conditional insert itself.
func (s *SQLiteStore) diagnoseJoinFailure(ctx context.Context, roomID, userID string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE id = ?)`, roomID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check room: %w", err)
	}
	if !exists {
		return storage.ErrRoomNotFound
	}

	var restricted bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM room_restrictions WHERE room_id = ? AND user_id = ?)`,
		roomID, userID,
	).Scan(&restricted); err != nil {
		return fmt.Errorf("failed to check restriction: %w", err)
	}
	if restricted {
		return storage.ErrUserRestricted
	}

	return storage.ErrRoomFull
}

// LeaveRoom deletes the membership row.
func (s *SQLiteStore) LeaveRoom(ctx context.Context, roomID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check leave result: %w", err)
	}
	if n == 0 {
		return storage.ErrMemberNotFound
	}

	return nil
}

const memberColumns = `id, room_id, user_id, is_favorite, is_anonymous, nickname, avatar, last_seen_ms, joined_at`

func scanMember(scanner interface{ Scan(...any) error }) (*models.GroupMember, error) {
	m := &models.GroupMember{}
	err := scanner.Scan(
		&m.ID, &m.RoomID, &m.UserID,
		&m.IsFavorite, &m.IsAnonymous, &m.Nickname, &m.Avatar,
		&m.LastSeenMs, &m.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetMember fetches the membership row for (roomID, userID).
func (s *SQLiteStore) GetMember(ctx context.Context, roomID, userID string) (*models.GroupMember, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM group_members WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	)

	member, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// SetFavorite upserts the favorite flag. A user can favorite a room from the
// directory without joining it first; that creates a bare membership row,
// matching how the source app behaved.
func (s *SQLiteStore) SetFavorite(ctx context.Context, roomID, userID string, favorite bool) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE id = ?)`, roomID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check room: %w", err)
	}
	if !exists {
		return storage.ErrRoomNotFound
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (id, room_id, user_id, is_favorite, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (room_id, user_id) DO UPDATE SET is_favorite = excluded.is_favorite`,
		uuid.New().String(), roomID, userID, favorite, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to set favorite: %w", err)
	}

	return nil
}

// ListMembers returns all members of a room ordered by join time.
func (s *SQLiteStore) ListMembers(ctx context.Context, roomID string) ([]*models.GroupMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM group_members WHERE room_id = ? ORDER BY joined_at, id`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.GroupMember
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// ListRoomsForUser returns the rooms a user belongs to, favorites first,
// then most recently joined.
func (s *SQLiteStore) ListRoomsForUser(ctx context.Context, userID string) ([]*models.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+roomColumns+`
		 FROM rooms r
		 JOIN group_members gm ON gm.room_id = r.id
		 WHERE gm.user_id = ?
		 ORDER BY gm.is_favorite DESC, gm.joined_at DESC, r.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms for user: %w", err)
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

// MarkSeen advances the member's last-seen marker and returns the previous one.
func (s *SQLiteStore) MarkSeen(ctx context.Context, roomID, userID string, nowMs int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var prev int64
	err = tx.QueryRowContext(ctx,
		`SELECT last_seen_ms FROM group_members WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	).Scan(&prev)
	if err == sql.ErrNoRows {
		return 0, storage.ErrMemberNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read last seen: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE group_members SET last_seen_ms = ? WHERE room_id = ? AND user_id = ?`,
		nowMs, roomID, userID,
	); err != nil {
		return 0, fmt.Errorf("failed to update last seen: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return prev, nil
}

// UnreadCount counts messages newer than the member's last-seen marker.
func (s *SQLiteStore) UnreadCount(ctx context.Context, roomID, userID string) (int, error) {
	var lastSeen int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_seen_ms FROM group_members WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	).Scan(&lastSeen)
	if err == sql.ErrNoRows {
		return 0, storage.ErrMemberNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read last seen: %w", err)
	}

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE room_id = ? AND created_at_ms > ?`,
		roomID, lastSeen,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}

	return count, nil
}
