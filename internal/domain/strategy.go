package domain

import (
	"cmp"
	"context"
	"slices"
)

// Strategy ranks a candidate set for one feed mode. Implementations filter
// before ranking and paginate last, so page boundaries reflect the filtered
// total.
type Strategy interface {
	ProcessFeed(ctx context.Context, candidates []Post, q Query) (*Page, error)
}

// newViews wraps filtered posts in views carrying the viewer's vote state.
func newViews(posts []Post) []PostView {
	views := make([]PostView, len(posts))
	for i, p := range posts {
		views[i] = PostView{Post: p, Viewer: p.ViewerVote}
	}
	return views
}

// sortNewestFirst orders views by CreatedAt descending. Equal timestamps keep
// their input order.
func sortNewestFirst(views []PostView) {
	slices.SortStableFunc(views, func(a, b PostView) int {
		return b.Post.CreatedAt.Compare(a.Post.CreatedAt)
	})
}

// sortNearestFirst orders views by DistanceKm ascending. Equal distances keep
// their input order.
func sortNearestFirst(views []PostView) {
	slices.SortStableFunc(views, func(a, b PostView) int {
		return cmp.Compare(*a.DistanceKm, *b.DistanceKm)
	})
}

// RecentStrategy ranks posts newest first. It performs no I/O.
type RecentStrategy struct{}

// ProcessFeed filters candidates, sorts them newest first and paginates.
func (RecentStrategy) ProcessFeed(_ context.Context, candidates []Post, q Query) (*Page, error) {
	views := newViews(FilterPosts(candidates, &q))
	sortNewestFirst(views)
	return Paginate(views, q.PageIndex, q.PageSize), nil
}

// NearestStrategy ranks posts by distance from the requester.
type NearestStrategy struct{}

// ProcessFeed filters candidates, attaches the distance from q.Origin to each
// located post, sorts nearest first and paginates. Posts without a location
// are dropped since they cannot be ranked.
func (NearestStrategy) ProcessFeed(_ context.Context, candidates []Post, q Query) (*Page, error) {
	if q.Origin == nil {
		return nil, NewValidationError("origin", "latitude and longitude are required for the nearby feed")
	}

	filtered := FilterPosts(candidates, &q)
	views := make([]PostView, 0, len(filtered))
	for _, p := range filtered {
		if p.Location == nil {
			continue
		}
		d := DistanceBetween(*q.Origin, *p.Location)
		views = append(views, PostView{Post: p, Viewer: p.ViewerVote, DistanceKm: &d})
	}

	sortNearestFirst(views)
	return Paginate(views, q.PageIndex, q.PageSize), nil
}
