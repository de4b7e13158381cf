package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matsen/scout/internal/agent"
	"github.com/matsen/scout/internal/storage"
)

// SQLiteStore persists threads in the scout database, one row per message.
type SQLiteStore struct {
	db *storage.DB
}

// NewSQLiteStore wraps db. The caller owns the database and closes it.
func NewSQLiteStore(db *storage.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load decodes the thread's stored messages.
func (s *SQLiteStore) Load(ctx context.Context, threadID string) ([]agent.Message, error) {
	rows, err := s.db.LoadThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return DecodeMessages(rows)
}

// Save replaces the thread's stored messages.
func (s *SQLiteStore) Save(ctx context.Context, threadID string, msgs []agent.Message) error {
	rows, err := EncodeMessages(msgs)
	if err != nil {
		return err
	}
	return s.db.SaveThread(ctx, threadID, rows)
}

// Clear deletes the thread.
func (s *SQLiteStore) Clear(ctx context.Context, threadID string) error {
	return s.db.ClearThread(ctx, threadID)
}

// Threads lists stored thread ids, most recently updated first.
func (s *SQLiteStore) Threads(ctx context.Context) ([]string, error) {
	infos, err := s.db.ListThreads(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(infos))
	for i, t := range infos {
		ids[i] = t.ID
	}
	return ids, nil
}

// Close is a no-op; the database belongs to the caller.
func (s *SQLiteStore) Close() error { return nil }

// EncodeMessages converts messages into one JSON document each.
func EncodeMessages(msgs []agent.Message) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(msgs))
	for i, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encoding message %d: %w", i, err)
		}
		out[i] = data
	}
	return out, nil
}

// DecodeMessages is the inverse of EncodeMessages.
func DecodeMessages(rows []json.RawMessage) ([]agent.Message, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]agent.Message, len(rows))
	for i, r := range rows {
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return nil, fmt.Errorf("decoding message %d: %w", i, err)
		}
	}
	return out, nil
}
