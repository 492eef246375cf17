package domain

import (
	"context"
	"log/slog"
	"slices"
)

// FollowingStrategy ranks posts written by the users the requester follows,
// newest first. It derives its own candidate set and ignores the one passed
// in.
type FollowingStrategy struct {
	graph  SocialGraph
	posts  PostStore
	logger *slog.Logger
}

// NewFollowingStrategy creates a FollowingStrategy.
func NewFollowingStrategy(graph SocialGraph, posts PostStore, logger *slog.Logger) *FollowingStrategy {
	return &FollowingStrategy{graph: graph, posts: posts, logger: logger}
}

// ProcessFeed resolves the requester's following set and ranks their posts.
// A degraded or empty following set yields an empty page without touching
// the post store. Only post store failures are returned.
func (s *FollowingStrategy) ProcessFeed(ctx context.Context, _ []Post, q Query) (*Page, error) {
	following := s.graph.Following(ctx, q.UserID, q.Credential)
	if following.Degraded {
		s.logger.Warn("social graph unavailable, serving empty following feed",
			"user_id", q.UserID,
			"reason", following.Reason,
		)
	}
	if following.Empty() {
		return Paginate(nil, q.PageIndex, q.PageSize), nil
	}

	authorIDs := make([]string, 0, len(following.Profiles))
	for id := range following.Profiles {
		authorIDs = append(authorIDs, id)
	}
	slices.Sort(authorIDs)

	candidates, err := s.posts.FindByAuthors(ctx, q.UserID, authorIDs)
	if err != nil {
		return nil, &StoreError{Op: "find by authors", Err: err}
	}

	views := newViews(FilterPosts(candidates, &q))
	sortNewestFirst(views)
	for i := range views {
		if profile, ok := following.Profiles[views[i].Post.AuthorID]; ok {
			views[i].Author = &profile
		}
	}

	return Paginate(views, q.PageIndex, q.PageSize), nil
}
