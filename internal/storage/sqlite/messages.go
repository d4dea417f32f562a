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

// AppendMessage inserts a message and fills in its server-assigned fields
// (Seq, ID, CreatedAtMs).
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAtMs == 0 {
		msg.CreatedAtMs = time.Now().UnixMilli()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, user_id, user_name, user_image, text, censored, created_at_ms)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM rooms WHERE id = ?)`,
		msg.ID, msg.RoomID, msg.UserID, msg.UserName, msg.UserImage,
		msg.Text, msg.Censored, msg.CreatedAtMs,
		msg.RoomID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check insert result: %w", err)
	}
	if n == 0 {
		return storage.ErrRoomNotFound
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read message seq: %w", err)
	}
	msg.Seq = seq

	return nil
}

const messageColumns = `seq, id, room_id, user_id, user_name, user_image, text, censored, created_at_ms`

func scanMessage(scanner interface{ Scan(...any) error }) (*models.Message, error) {
	m := &models.Message{}
	err := scanner.Scan(
		&m.Seq, &m.ID, &m.RoomID, &m.UserID,
		&m.UserName, &m.UserImage, &m.Text, &m.Censored, &m.CreatedAtMs,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches one message with its reactions.
func (s *SQLiteStore) GetMessage(ctx context.Context, roomID, messageID string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE room_id = ? AND id = ?`,
		roomID, messageID,
	)

	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	if err := s.loadReactions(ctx, map[string]*models.Message{msg.ID: msg}); err != nil {
		return nil, err
	}

	return msg, nil
}

// ListMessages returns messages with seq > afterSeq, ordered by seq ascending.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID string, afterSeq int64, limit int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE room_id = ? AND seq > ? ORDER BY seq`
	args := []any{roomID, afterSeq}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	byID := make(map[string]*models.Message)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
		byID[msg.ID] = msg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	if err := s.loadReactions(ctx, byID); err != nil {
		return nil, err
	}

	return messages, nil
}

// loadReactions attaches reaction sets to the given messages.
func (s *SQLiteStore) loadReactions(ctx context.Context, byID map[string]*models.Message) error {
	if len(byID) == 0 {
		return nil
	}

	query := `SELECT message_id, user_id, reaction_type FROM reactions WHERE message_id IN (?` +
		repeatPlaceholder(len(byID)-1) + `) ORDER BY rowid`
	args := make([]any, 0, len(byID))
	for id := range byID {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to get reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var messageID string
		var r models.Reaction
		if err := rows.Scan(&messageID, &r.ReactingUserID, &r.ReactionType); err != nil {
			return fmt.Errorf("failed to scan reaction: %w", err)
		}
		if msg, ok := byID[messageID]; ok {
			msg.Reactions = append(msg.Reactions, r)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate reactions: %w", err)
	}

	return nil
}

// DeleteMessage removes a message; its reactions follow via the FK cascade.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE room_id = ? AND id = ?`,
		roomID, messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return storage.ErrMessageNotFound
	}

	return nil
}

// AddReaction adds a (user, type) reaction. INSERT OR IGNORE gives the
// set-union semantics: adding an existing reaction changes nothing.
func (s *SQLiteStore) AddReaction(ctx context.Context, messageID, userID, reactionType string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO reactions (message_id, user_id, reaction_type)
		SELECT ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM messages WHERE id = ?)`,
		messageID, userID, reactionType, messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check reaction result: %w", err)
	}
	if n == 0 {
		// Either the reaction already exists (fine) or the message is gone.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM messages WHERE id = ?)`, messageID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check message: %w", err)
		}
		if !exists {
			return storage.ErrMessageNotFound
		}
	}

	return nil
}

// RemoveReaction removes a (user, type) reaction. Removing an absent reaction
// is a no-op (set difference).
func (s *SQLiteStore) RemoveReaction(ctx context.Context, messageID, userID, reactionType string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND reaction_type = ?`,
		messageID, userID, reactionType,
	)
	if err != nil {
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	return nil
}

// repeatPlaceholder returns a string of ", ?" repeated n times.
// Used for building IN clauses with multiple placeholders.
func repeatPlaceholder(n int) string {
	if n <= 0 {
		return ""
	}
	result := ""
	for i := 0; i < n; i++ {
		result += ", ?"
	}
	return result
}
