package store

import (
	"fmt"

	"currency-agent-backend/internal/db"
)

// DatabaseStore persists chat turns in PostgreSQL so session history survives
// restarts and can be shared across backend replicas.
type DatabaseStore struct {
	db *db.DB
}

func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

// AppendMessage records one chat turn for a session.
func (ds *DatabaseStore) AppendMessage(sessionID, role, content string) error {
	if sessionID == "" || role == "" {
		return fmt.Errorf("session_id and role are required")
	}

	query := `
		INSERT INTO chat_messages (session_id, role, content, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	if _, err := ds.db.Exec(query, sessionID, role, content); err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// GetHistory returns the most recent messages of a session in chronological
// order, capped at limit (0 means no cap).
func (ds *DatabaseStore) GetHistory(sessionID string, limit int) ([]Message, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	query := `
		SELECT role, content FROM (
			SELECT id, role, content
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC
	`
	if limit <= 0 {
		limit = 1000
	}
	rows, err := ds.db.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	return msgs, nil
}

// ClearHistory deletes all messages of a session.
func (ds *DatabaseStore) ClearHistory(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if _, err := ds.db.Exec(`DELETE FROM chat_messages WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}
