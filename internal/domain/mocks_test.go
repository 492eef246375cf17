package domain

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindAll(ctx context.Context, scope Scope) ([]Post, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Post), args.Error(1)
}

func (m *MockStore) FindByAuthors(ctx context.Context, viewerID string, authorIDs []string) ([]Post, error) {
	args := m.Called(ctx, viewerID, authorIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Post), args.Error(1)
}

func (m *MockStore) CreatePost(ctx context.Context, post *Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockStore) DeletePost(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) DeleteOldPosts(ctx context.Context, maxAge time.Duration, maxRows int) (int64, error) {
	args := m.Called(ctx, maxAge, maxRows)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetCursor(ctx context.Context, service string) (int64, error) {
	args := m.Called(ctx, service)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) UpdateCursor(ctx context.Context, service string, cursor int64) error {
	args := m.Called(ctx, service, cursor)
	return args.Error(0)
}

// MockProfiles is a mock implementation of ProfileLookup.
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) Profiles(ctx context.Context, userIDs []string) (map[string]Profile, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]Profile), args.Error(1)
}

// stubGraph returns a fixed following set and counts calls.
type stubGraph struct {
	set   FollowingSet
	calls int
	token string
}

func (g *stubGraph) Following(_ context.Context, _ string, credential string) FollowingSet {
	g.calls++
	g.token = credential
	return g.set
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newPost(id string, minutes int) Post {
	return Post{
		ID:        id,
		AuthorID:  "author-" + id,
		Title:     "post " + id,
		CreatedAt: baseTime.Add(time.Duration(minutes) * time.Minute),
	}
}

func postIDs(views []PostView) []string {
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.Post.ID
	}
	return ids
}
