package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyText is returned when storing a response without text.
var ErrEmptyText = errors.New("response text is empty")

// Response is a stored catalog override.
type Response struct {
	Key       string
	Text      string
	UpdatedAt time.Time
}

// SetResponse inserts or replaces the override for key.
func (db *DB) SetResponse(ctx context.Context, key, text string) error {
	if key == "" {
		return fmt.Errorf("response key is empty")
	}
	if text == "" {
		return ErrEmptyText
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO responses (key, text, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at
	`, key, text, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set response %s: %w", key, err)
	}
	return nil
}

// DeleteResponse removes the override for key. It reports whether a row existed.
func (db *DB) DeleteResponse(ctx context.Context, key string) (bool, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM responses WHERE key = ?", key)
	if err != nil {
		return false, fmt.Errorf("failed to delete response %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete response %s: %w", key, err)
	}
	return n > 0, nil
}

// ListResponses returns all overrides ordered by key.
func (db *DB) ListResponses(ctx context.Context) ([]Response, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, text, updated_at FROM responses ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var responses []Response
	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.Key, &r.Text, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// Overrides returns the stored overrides as a catalog layer.
func (db *DB) Overrides(ctx context.Context) (map[string]string, error) {
	responses, err := db.ListResponses(ctx)
	if err != nil {
		return nil, err
	}
	layer := make(map[string]string, len(responses))
	for _, r := range responses {
		layer[r.Key] = r.Text
	}
	return layer, nil
}

// ImportResponses stores every entry in a single transaction.
func (db *DB) ImportResponses(ctx context.Context, entries map[string]string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, text := range entries {
		if text == "" {
			return fmt.Errorf("key %q: %w", key, ErrEmptyText)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO responses (key, text, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at
		`, key, text, now); err != nil {
			return fmt.Errorf("failed to import response %s: %w", key, err)
		}
	}
	return tx.Commit()
}
