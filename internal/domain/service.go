package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Store is the full persistence port used by FeedService.
type Store interface {
	PostStore
	PostWriter
	CursorRepository
}

// ServiceConfig holds the paging limits of the feed service.
type ServiceConfig struct {
	// MaxPageSize caps Query.PageSize. Zero means no cap.
	MaxPageSize int
}

// FeedService is the core domain service. It selects a ranking strategy per
// request, supplies its candidate posts, hydrates author profiles, and owns
// post ingest and retention.
type FeedService struct {
	cfg        ServiceConfig
	store      Store
	profiles   ProfileLookup
	strategies map[Mode]Strategy
	logger     *slog.Logger
}

// NewFeedService creates a FeedService.
func NewFeedService(cfg ServiceConfig, store Store, profiles ProfileLookup, graph SocialGraph, logger *slog.Logger) (*FeedService, error) {
	if store == nil {
		return nil, fmt.Errorf("post store is required")
	}
	if graph == nil {
		return nil, fmt.Errorf("social graph client is required")
	}
	if cfg.MaxPageSize < 0 {
		return nil, fmt.Errorf("max page size must not be negative, got %d", cfg.MaxPageSize)
	}

	return &FeedService{
		cfg:      cfg,
		store:    store,
		profiles: profiles,
		strategies: map[Mode]Strategy{
			ModeRecent:    RecentStrategy{},
			ModeNearby:    NearestStrategy{},
			ModeFollowing: NewFollowingStrategy(graph, store, logger),
		},
		logger: logger,
	}, nil
}

// RecentFeed returns a page of posts ordered newest first.
func (s *FeedService) RecentFeed(ctx context.Context, q Query) (*Page, error) {
	return s.GetFeed(ctx, ModeRecent, q)
}

// NearbyFeed returns a page of posts ordered by distance from q.Origin.
func (s *FeedService) NearbyFeed(ctx context.Context, q Query) (*Page, error) {
	return s.GetFeed(ctx, ModeNearby, q)
}

// FollowingFeed returns a page of posts by users the requester follows,
// newest first.
func (s *FeedService) FollowingFeed(ctx context.Context, q Query) (*Page, error) {
	return s.GetFeed(ctx, ModeFollowing, q)
}

// GetFeed validates q and produces one page of the feed for mode. Only
// validation and post store errors are returned; social graph and profile
// lookup failures degrade the response instead.
func (s *FeedService) GetFeed(ctx context.Context, mode Mode, q Query) (*Page, error) {
	strategy, ok := s.strategies[mode]
	if !ok {
		return nil, NewValidationError("mode", fmt.Sprintf("unsupported feed mode %s", mode))
	}
	if err := s.validateQuery(mode, &q); err != nil {
		return nil, err
	}

	var candidates []Post
	if mode != ModeFollowing {
		scope := Scope{ViewerID: q.UserID}
		if q.DateFrom != nil {
			scope.Since = *q.DateFrom
		}

		var err error
		candidates, err = s.store.FindAll(ctx, scope)
		if err != nil {
			s.logger.Error("candidate lookup failed", "mode", mode.String(), "user_id", q.UserID, "error", err)
			return nil, &StoreError{Op: "find all", Err: err}
		}
	}

	page, err := strategy.ProcessFeed(ctx, candidates, q)
	if err != nil {
		return nil, fmt.Errorf("process %s feed: %w", mode, err)
	}

	if mode != ModeFollowing {
		s.hydrateAuthors(ctx, page)
	}

	s.logger.Debug("feed generated",
		"mode", mode.String(),
		"user_id", q.UserID,
		"candidates", len(candidates),
		"total", page.Total,
		"posts_returned", len(page.Posts),
	)
	return page, nil
}

func (s *FeedService) validateQuery(mode Mode, q *Query) error {
	if q.PageIndex < 0 {
		return NewValidationError("page", "page must not be negative")
	}
	if q.PageSize < 0 {
		return NewValidationError("size", "size must not be negative")
	}
	if s.cfg.MaxPageSize > 0 && q.PageSize > s.cfg.MaxPageSize {
		return NewValidationError("size", fmt.Sprintf("size must not exceed %d", s.cfg.MaxPageSize))
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateFrom.After(*q.DateTo) {
		return NewValidationError("dateFrom", "dateFrom must not be after dateTo")
	}

	if mode == ModeNearby {
		if q.Origin == nil {
			return NewValidationError("origin", "latitude and longitude are required for the nearby feed")
		}
		if err := validateLocation(q.Origin.Lat, q.Origin.Lon); err != nil {
			return err
		}
	}
	return nil
}

func validateLocation(lat, lon float64) error {
	if !isFinite(lat) || lat < -90 || lat > 90 {
		return NewValidationError("latitude", "latitude must be between -90 and 90")
	}
	if !isFinite(lon) || lon < -180 || lon > 180 {
		return NewValidationError("longitude", "longitude must be between -180 and 180")
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// hydrateAuthors attaches author profiles to the posts of a page. A failed
// lookup leaves the page without author data.
func (s *FeedService) hydrateAuthors(ctx context.Context, page *Page) {
	if s.profiles == nil || len(page.Posts) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(page.Posts))
	ids := make([]string, 0, len(page.Posts))
	for _, v := range page.Posts {
		if _, ok := seen[v.Post.AuthorID]; ok {
			continue
		}
		seen[v.Post.AuthorID] = struct{}{}
		ids = append(ids, v.Post.AuthorID)
	}

	profiles, err := s.profiles.Profiles(ctx, ids)
	if err != nil {
		s.logger.Warn("profile lookup failed, serving feed without authors", "authors", len(ids), "error", err)
		return
	}

	for i := range page.Posts {
		if p, ok := profiles[page.Posts[i].Post.AuthorID]; ok {
			page.Posts[i].Author = &p
		}
	}
}

// ProcessNewPost validates an ingested post and persists it.
func (s *FeedService) ProcessNewPost(ctx context.Context, incoming *IncomingPost) error {
	if incoming.ID == "" {
		return NewValidationError("id", "post id is required")
	}
	if incoming.AuthorID == "" {
		return NewValidationError("authorId", "author id is required")
	}
	if (incoming.Lat == nil) != (incoming.Lon == nil) {
		return NewValidationError("location", "latitude and longitude must be set together")
	}

	post := &Post{
		ID:        incoming.ID,
		AuthorID:  incoming.AuthorID,
		Title:     incoming.Title,
		Caption:   incoming.Caption,
		Category:  incoming.Category,
		CreatedAt: incoming.CreatedAt.UTC(),
	}
	if incoming.Lat != nil {
		if err := validateLocation(*incoming.Lat, *incoming.Lon); err != nil {
			return err
		}
		post.Location = &Location{Lat: *incoming.Lat, Lon: *incoming.Lon}
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// ProcessDeletePost removes a post by id.
func (s *FeedService) ProcessDeletePost(ctx context.Context, id string) error {
	if err := s.store.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// GetCursor retrieves the last-processed ingest cursor for the given service.
func (s *FeedService) GetCursor(ctx context.Context, service string) (int64, error) {
	return s.store.GetCursor(ctx, service)
}

// UpdateCursor persists the ingest cursor for the given service.
func (s *FeedService) UpdateCursor(ctx context.Context, service string, cursor int64) error {
	return s.store.UpdateCursor(ctx, service, cursor)
}

// StartCleanupJob runs a background loop that removes posts older than maxAge
// and caps the total at maxRows. It runs immediately on start and then repeats
// at the given interval. It blocks until ctx is cancelled.
func (s *FeedService) StartCleanupJob(ctx context.Context, interval time.Duration, maxAge time.Duration, maxRows int) {
	if maxAge <= 0 && maxRows <= 0 {
		s.logger.Info("post retention disabled")
		return
	}

	s.runCleanup(ctx, maxAge, maxRows)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup(ctx, maxAge, maxRows)
		}
	}
}

func (s *FeedService) runCleanup(ctx context.Context, maxAge time.Duration, maxRows int) {
	deleted, err := s.store.DeleteOldPosts(ctx, maxAge, maxRows)
	if err != nil {
		s.logger.Error("post cleanup failed", "error", err)
	} else if deleted > 0 {
		s.logger.Info("post cleanup complete", "deleted", deleted)
	}
}
