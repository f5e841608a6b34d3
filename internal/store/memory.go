package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertMemory(e execer, memory *Memory, now time.Time) error {
	if memory.ImportanceScore == 0 {
		memory.ImportanceScore = DefaultImportance
	}
	data, err := json.Marshal(memory.ContextData)
	if err != nil {
		return fmt.Errorf("failed to marshal context data: %w", err)
	}

	res, err := e.Exec(
		`INSERT INTO memories (user_id, context_type, context_data, importance_score, last_accessed, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		memory.UserID, memory.ContextType, string(data), memory.ImportanceScore, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	memory.ID, _ = res.LastInsertId()
	memory.LastAccessed = now
	memory.CreatedAt = now
	return nil
}

// SaveMemory stores one context memory record. A zero importance score
// falls back to DefaultImportance.
func (s *SQLiteStore) SaveMemory(memory *Memory) error {
	return insertMemory(s.db, memory, time.Now())
}

// LoadMemories returns up to limit memory rows for the user, optionally
// filtered to one context type, most important and most recently touched
// first. Returned rows have their last_accessed bumped, so a memory that
// keeps being used keeps winning ties.
func (s *SQLiteStore) LoadMemories(userID int64, contextType string, limit int) ([]Memory, error) {
	query := `SELECT id, user_id, context_type, context_data, importance_score, last_accessed, created_at
              FROM memories WHERE user_id = ?`
	args := []any{userID}
	if contextType != "" {
		query += " AND context_type = ?"
		args = append(args, contextType)
	}
	query += " ORDER BY importance_score DESC, last_accessed DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var memories []Memory
	for rows.Next() {
		var m Memory
		var rawData string
		if err := rows.Scan(&m.ID, &m.UserID, &m.ContextType, &rawData, &m.ImportanceScore, &m.LastAccessed, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		if err := json.Unmarshal([]byte(rawData), &m.ContextData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context data for memory %d: %w", m.ID, err)
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memory rows: %w", err)
	}

	if err := s.touchMemories(memories); err != nil {
		return nil, err
	}
	return memories, nil
}

// touchMemories marks the rows as read. Recency feeds the ordering
// tiebreak on the next load.
func (s *SQLiteStore) touchMemories(memories []Memory) error {
	if len(memories) == 0 {
		return nil
	}
	placeholders := make([]string, len(memories))
	args := make([]any, 0, len(memories)+1)
	args = append(args, time.Now())
	for i, m := range memories {
		placeholders[i] = "?"
		args = append(args, m.ID)
	}
	_, err := s.db.Exec(
		fmt.Sprintf("UPDATE memories SET last_accessed = ? WHERE id IN (%s)", strings.Join(placeholders, ", ")),
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to touch memories: %w", err)
	}
	return nil
}
