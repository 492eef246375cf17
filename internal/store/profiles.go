package store

import (
	"context"
	"fmt"

	"github.com/blackmichael/geofeed/internal/domain"
)

// Profiles resolves display profiles for userIDs. Unknown ids are skipped.
func (r *Repository) Profiles(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	profiles := make(map[string]domain.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		r.rebind(`SELECT id, name, avatar FROM users WHERE id IN (`+placeholders(len(userIDs))+`)`),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.UserID, &p.Name, &p.Avatar); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}
