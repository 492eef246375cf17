package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetCursor retrieves the saved ingest cursor for a service.
func (r *Repository) GetCursor(ctx context.Context, service string) (int64, error) {
	var cursor int64
	err := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT cursor_value FROM cursors WHERE service = ?`), service,
	).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return cursor, err
}

// UpdateCursor upserts the ingest cursor for a service.
func (r *Repository) UpdateCursor(ctx context.Context, service string, cursor int64) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO cursors (service, cursor_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (service) DO UPDATE
		SET cursor_value = excluded.cursor_value, updated_at = excluded.updated_at`),
		service, cursor, time.Now().UTC(),
	)
	return err
}
