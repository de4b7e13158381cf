package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ThreadInfo summarises a stored conversation thread.
type ThreadInfo struct {
	ID        string    `json:"id"`
	Messages  int       `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveThread replaces the stored messages of a thread. Each message is an
// opaque JSON document kept in order.
func (d *DB) SaveThread(ctx context.Context, threadID string, messages []json.RawMessage) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE thread_id = ?", threadID); err != nil {
		return fmt.Errorf("clearing thread %s: %w", threadID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (thread_id, seq, json, updated_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing message insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, m := range messages {
		if _, err := stmt.ExecContext(ctx, threadID, i, string(m), now); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadThread returns a thread's messages in order. Unknown threads are empty.
func (d *DB) LoadThread(ctx context.Context, threadID string) ([]json.RawMessage, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT json FROM messages WHERE thread_id = ? ORDER BY seq", threadID)
	if err != nil {
		return nil, fmt.Errorf("querying thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var messages []json.RawMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, json.RawMessage(data))
	}
	return messages, rows.Err()
}

// ClearThread deletes every message of a thread.
func (d *DB) ClearThread(ctx context.Context, threadID string) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM messages WHERE thread_id = ?", threadID)
	return err
}

// ListThreads returns stored threads, most recently updated first.
func (d *DB) ListThreads(ctx context.Context) ([]ThreadInfo, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT thread_id, COUNT(*), MAX(updated_at)
		FROM messages
		GROUP BY thread_id
		ORDER BY MAX(updated_at) DESC, thread_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	defer rows.Close()

	var threads []ThreadInfo
	for rows.Next() {
		var t ThreadInfo
		var updated int64
		if err := rows.Scan(&t.ID, &t.Messages, &updated); err != nil {
			return nil, fmt.Errorf("scanning thread: %w", err)
		}
		t.UpdatedAt = time.Unix(updated, 0)
		threads = append(threads, t)
	}
	return threads, rows.Err()
}
