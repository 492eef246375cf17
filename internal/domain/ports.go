package domain

import (
	"context"
	"time"
)

// PostStore loads candidate posts for the feed engine.
type PostStore interface {
	// FindAll returns every post in scope, newest first. Vote state is
	// resolved for scope.ViewerID.
	FindAll(ctx context.Context, scope Scope) ([]Post, error)

	// FindByAuthors returns every post written by one of authorIDs, with vote
	// state resolved for viewerID.
	FindByAuthors(ctx context.Context, viewerID string, authorIDs []string) ([]Post, error)
}

// ProfileLookup resolves display profiles for a batch of user ids. Unknown
// ids are absent from the result.
type ProfileLookup interface {
	Profiles(ctx context.Context, userIDs []string) (map[string]Profile, error)
}

// SocialGraph resolves who a user follows. It never fails: transport and
// decoding problems are reported through FollowingSet.Degraded.
type SocialGraph interface {
	Following(ctx context.Context, userID, credential string) FollowingSet
}

// FollowingSet is the result of one social-graph lookup.
type FollowingSet struct {
	// Profiles maps each followed user id to its display profile.
	Profiles map[string]Profile

	// Degraded is set when the lookup failed and Profiles was emptied.
	Degraded bool

	// Reason names the failure of a degraded lookup.
	Reason string
}

// Empty reports whether the set follows nobody.
func (f FollowingSet) Empty() bool {
	return len(f.Profiles) == 0
}

// DegradedFollowing returns an empty set flagged with reason.
func DegradedFollowing(reason string) FollowingSet {
	return FollowingSet{Profiles: map[string]Profile{}, Degraded: true, Reason: reason}
}

// PostWriter defines the write operations used by ingest and retention.
type PostWriter interface {
	// CreatePost inserts a post. Inserting an existing id is a no-op.
	CreatePost(ctx context.Context, post *Post) error

	// DeletePost removes a post by id.
	DeletePost(ctx context.Context, id string) error

	// DeleteOldPosts removes posts older than maxAge and any excess rows beyond
	// maxRows, keeping the most recent posts. A zero maxAge or maxRows disables
	// that rule. Returns the number of rows deleted.
	DeleteOldPosts(ctx context.Context, maxAge time.Duration, maxRows int) (int64, error)
}

// CursorRepository defines persistence operations for ingest cursors.
type CursorRepository interface {
	// GetCursor retrieves the last-processed ingest cursor for the given
	// service name. Returns 0 if no cursor has been saved.
	GetCursor(ctx context.Context, service string) (int64, error)

	// UpdateCursor persists the ingest cursor so we can resume on restart.
	UpdateCursor(ctx context.Context, service string, cursor int64) error
}
