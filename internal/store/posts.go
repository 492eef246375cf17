package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blackmichael/geofeed/internal/domain"
)

// postColumns selects a post with its vote tallies and the vote of the
// viewer bound to the first placeholder.
const postColumns = `
	p.id, p.author_id, p.title, p.caption, p.category,
	p.latitude, p.longitude, p.created_at,
	(SELECT COUNT(*) FROM votes v WHERE v.post_id = p.id AND v.value > 0) AS upvotes,
	(SELECT COUNT(*) FROM votes v WHERE v.post_id = p.id AND v.value < 0) AS downvotes,
	COALESCE((SELECT v.value FROM votes v WHERE v.post_id = p.id AND v.user_id = ?), 0) AS viewer_vote`

// FindAll returns posts in scope, newest first.
func (r *Repository) FindAll(ctx context.Context, scope domain.Scope) ([]domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p`
	args := []any{scope.ViewerID}
	if !scope.Since.IsZero() {
		query += ` WHERE p.created_at >= ?`
		args = append(args, scope.Since.UTC())
	}
	query += ` ORDER BY p.created_at DESC, p.id`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query posts (since=%v): %w", scope.Since, err)
	}
	return scanPosts(rows)
}

// FindByAuthors returns every post written by one of authorIDs, newest first.
func (r *Repository) FindByAuthors(ctx context.Context, viewerID string, authorIDs []string) ([]domain.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + postColumns + `
		FROM posts p
		WHERE p.author_id IN (` + placeholders(len(authorIDs)) + `)
		ORDER BY p.created_at DESC, p.id`

	args := make([]any, 0, len(authorIDs)+1)
	args = append(args, viewerID)
	for _, id := range authorIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query posts by %d authors: %w", len(authorIDs), err)
	}
	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]domain.Post, error) {
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var (
			p        domain.Post
			category sql.NullString
			lat, lon sql.NullFloat64
			vote     int
		)
		err := rows.Scan(
			&p.ID,
			&p.AuthorID,
			&p.Title,
			&p.Caption,
			&category,
			&lat,
			&lon,
			&p.CreatedAt,
			&p.Upvotes,
			&p.Downvotes,
			&vote,
		)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}

		if category.Valid {
			c := category.String
			p.Category = &c
		}
		if lat.Valid && lon.Valid {
			p.Location = &domain.Location{Lat: lat.Float64, Lon: lon.Float64}
		}
		p.CreatedAt = p.CreatedAt.UTC()
		p.ViewerVote = toVoteState(vote)

		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func toVoteState(v int) domain.VoteState {
	switch {
	case v > 0:
		return domain.VoteUp
	case v < 0:
		return domain.VoteDown
	default:
		return domain.VoteNone
	}
}

// CreatePost inserts a new post.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	var lat, lon sql.NullFloat64
	if post.Location != nil {
		lat = sql.NullFloat64{Float64: post.Location.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: post.Location.Lon, Valid: true}
	}
	var category sql.NullString
	if post.Category != nil {
		category = sql.NullString{String: *post.Category, Valid: true}
	}

	query := `
		INSERT INTO posts (id, author_id, title, caption, category, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		post.ID,
		post.AuthorID,
		post.Title,
		post.Caption,
		category,
		lat,
		lon,
		post.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert post %s: %w", post.ID, err)
	}
	return nil
}

// DeletePost removes a post and its votes.
func (r *Repository) DeletePost(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM votes WHERE post_id = ?`), id); err != nil {
		return fmt.Errorf("delete votes of post %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM posts WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return tx.Commit()
}

// DeleteOldPosts removes posts older than maxAge and any excess rows beyond
// maxRows, keeping the most recent posts. Returns the total number of posts
// deleted.
func (r *Repository) DeleteOldPosts(ctx context.Context, maxAge time.Duration, maxRows int) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ttlDeleted, capDeleted int64

	if maxAge > 0 {
		res, err := tx.ExecContext(ctx,
			r.rebind(`DELETE FROM posts WHERE created_at < ?`),
			time.Now().UTC().Add(-maxAge),
		)
		if err != nil {
			return 0, fmt.Errorf("delete expired posts: %w", err)
		}
		ttlDeleted, _ = res.RowsAffected()
	}

	if maxRows > 0 {
		// SQLite only accepts OFFSET after a LIMIT; -1 means no limit.
		offset := `OFFSET ?`
		if r.dialect == SQLite {
			offset = `LIMIT -1 OFFSET ?`
		}
		res, err := tx.ExecContext(ctx, r.rebind(`
			DELETE FROM posts WHERE id IN (
				SELECT id FROM posts
				ORDER BY created_at DESC, id
				`+offset+`
			)`), maxRows,
		)
		if err != nil {
			return 0, fmt.Errorf("delete excess posts: %w", err)
		}
		capDeleted, _ = res.RowsAffected()
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE post_id NOT IN (SELECT id FROM posts)`); err != nil {
		return 0, fmt.Errorf("delete orphaned votes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return ttlDeleted + capDeleted, nil
}
