package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResolveCurrentSession returns the user's most recently updated session,
// creating one when none exists. Sequential calls reuse the created
// session; concurrent first calls may race into two sessions, which is
// tolerated (both remain readable through History).
func (s *SQLiteStore) ResolveCurrentSession(userID int64) (*ChatSession, error) {
	var session ChatSession
	err := s.db.QueryRow(
		`SELECT id, user_id, title, created_at, updated_at
         FROM chat_sessions WHERE user_id = ?
         ORDER BY updated_at DESC LIMIT 1`, userID,
	).Scan(&session.ID, &session.UserID, &session.Title, &session.CreatedAt, &session.UpdatedAt)
	if err == nil {
		return &session, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query current session: %w", err)
	}

	now := time.Now()
	created := ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     "Chat " + now.Format("1/2/2006"),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.Exec(
		"INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		created.ID, created.UserID, created.Title, created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &created, nil
}

// AppendMessages persists a batch of finalized turns in their given order.
// The batch commits or rolls back as a unit, and each message gets a
// strictly increasing timestamp so display order matches send order even
// within one batch.
func (s *SQLiteStore) AppendMessages(sessionID string, messages []ChatMessage) ([]ChatMessage, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin append transaction: %w", err)
	}
	defer tx.Rollback()

	base := time.Now()
	stored := make([]ChatMessage, 0, len(messages))
	for i, msg := range messages {
		msg.ID = uuid.NewString()
		msg.SessionID = sessionID
		msg.CreatedAt = base.Add(time.Duration(i) * time.Microsecond)
		if _, err := tx.Exec(
			"INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
			msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to insert message: %w", err)
		}
		stored = append(stored, msg)
	}

	if _, err := tx.Exec(
		"UPDATE chat_sessions SET updated_at = ? WHERE id = ?", base, sessionID,
	); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit messages: %w", err)
	}
	return stored, nil
}

// History returns the user's most recent messages across all of their
// sessions, re-ordered to chronological ascending for display.
func (s *SQLiteStore) History(userID int64, limit int) ([]ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT cm.id, cm.session_id, cm.role, cm.content, cm.created_at
         FROM chat_messages cm
         JOIN chat_sessions cs ON cm.session_id = cs.id
         WHERE cs.user_id = ?
         ORDER BY cm.created_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}

	// Newest-first bounds the result size; the caller wants oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *SQLiteStore) GetSessionsByUserID(userID int64) ([]ChatSession, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, title, created_at, updated_at
         FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var session ChatSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.Title, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
