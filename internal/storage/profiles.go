package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SaveProfile stores the key/value context for a user, replacing any previous one.
func (d *DB) SaveProfile(ctx context.Context, userID string, profile map[string]string) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO profiles (user_id, json) VALUES (?, ?)
	`, userID, string(data))
	return err
}

// GetProfile returns a user's stored context, or an empty map when unset.
func (d *DB) GetProfile(ctx context.Context, userID string) (map[string]string, error) {
	var data string
	err := d.db.QueryRowContext(ctx, "SELECT json FROM profiles WHERE user_id = ?", userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}

	profile := map[string]string{}
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, fmt.Errorf("parsing profile for %s: %w", userID, err)
	}
	return profile, nil
}
