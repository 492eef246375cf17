package domain

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, store *MockStore, profiles ProfileLookup, graph SocialGraph) *FeedService {
	t.Helper()
	if graph == nil {
		graph = &stubGraph{}
	}
	svc, err := NewFeedService(ServiceConfig{MaxPageSize: 50}, store, profiles, graph, discardLogger())
	require.NoError(t, err)
	return svc
}

func TestNewFeedService_RequiresCollaborators(t *testing.T) {
	_, err := NewFeedService(ServiceConfig{}, nil, nil, &stubGraph{}, discardLogger())
	assert.Error(t, err)

	_, err = NewFeedService(ServiceConfig{}, new(MockStore), nil, nil, discardLogger())
	assert.Error(t, err)

	_, err = NewFeedService(ServiceConfig{MaxPageSize: -1}, new(MockStore), nil, &stubGraph{}, discardLogger())
	assert.Error(t, err)
}

func TestFeedService_ValidationErrors(t *testing.T) {
	from := baseTime.Add(time.Hour)
	to := baseTime

	tests := []struct {
		name  string
		mode  Mode
		query Query
		field string
	}{
		{"negative page", ModeRecent, Query{PageIndex: -1, PageSize: 10}, "page"},
		{"negative size", ModeRecent, Query{PageSize: -5}, "size"},
		{"size above max", ModeRecent, Query{PageSize: 51}, "size"},
		{"inverted date range", ModeRecent, Query{PageSize: 10, DateFrom: &from, DateTo: &to}, "dateFrom"},
		{"nearby without origin", ModeNearby, Query{PageSize: 10}, "origin"},
		{"nearby latitude out of range", ModeNearby, Query{PageSize: 10, Origin: &Location{Lat: 91}}, "latitude"},
		{"nearby longitude out of range", ModeNearby, Query{PageSize: 10, Origin: &Location{Lon: -181}}, "longitude"},
		{"nearby latitude NaN", ModeNearby, Query{PageSize: 10, Origin: &Location{Lat: math.NaN()}}, "latitude"},
		{"nearby longitude infinite", ModeNearby, Query{PageSize: 10, Origin: &Location{Lon: math.Inf(1)}}, "longitude"},
		{"unknown mode", Mode(42), Query{PageSize: 10}, "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			svc := newTestService(t, store, nil, nil)

			page, err := svc.GetFeed(context.Background(), tt.mode, tt.query)

			require.Error(t, err)
			assert.Nil(t, page)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			store.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
		})
	}
}

func TestFeedService_RecentFeedHydratesAuthors(t *testing.T) {
	posts := []Post{
		{ID: "p1", AuthorID: "alice", CreatedAt: baseTime},
		{ID: "p2", AuthorID: "bob", CreatedAt: baseTime.Add(time.Minute)},
		{ID: "p3", AuthorID: "alice", CreatedAt: baseTime.Add(2 * time.Minute)},
	}

	store := new(MockStore)
	store.On("FindAll", mock.Anything, Scope{ViewerID: "viewer"}).Return(posts, nil)

	profiles := new(MockProfiles)
	profiles.On("Profiles", mock.Anything, []string{"alice", "bob"}).Return(map[string]Profile{
		"alice": {UserID: "alice", Name: "Alice"},
	}, nil)

	svc := newTestService(t, store, profiles, nil)
	page, err := svc.RecentFeed(context.Background(), Query{UserID: "viewer", PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p2", "p1"}, postIDs(page.Posts))
	require.NotNil(t, page.Posts[0].Author)
	assert.Equal(t, "Alice", page.Posts[0].Author.Name)
	assert.Nil(t, page.Posts[1].Author)
	require.NotNil(t, page.Posts[2].Author)
	store.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestFeedService_ProfileFailureIsAbsorbed(t *testing.T) {
	store := new(MockStore)
	store.On("FindAll", mock.Anything, mock.Anything).Return([]Post{newPost("p1", 0)}, nil)

	profiles := new(MockProfiles)
	profiles.On("Profiles", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

	svc := newTestService(t, store, profiles, nil)
	page, err := svc.RecentFeed(context.Background(), Query{PageSize: 10})

	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Nil(t, page.Posts[0].Author)
}

func TestFeedService_PushesDateFromIntoScope(t *testing.T) {
	from := baseTime.Add(-time.Hour)

	store := new(MockStore)
	store.On("FindAll", mock.Anything, Scope{ViewerID: "viewer", Since: from}).Return([]Post{}, nil)

	svc := newTestService(t, store, nil, nil)
	page, err := svc.NearbyFeed(context.Background(), Query{
		UserID:   "viewer",
		DateFrom: &from,
		Origin:   &Location{Lat: 1, Lon: 1},
		PageSize: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	store.AssertExpectations(t)
}

func TestFeedService_NearbyFeed(t *testing.T) {
	store := new(MockStore)
	store.On("FindAll", mock.Anything, mock.Anything).Return([]Post{
		locatedPost("far", 3, 0),
		locatedPost("near", 1, 0),
	}, nil)

	svc := newTestService(t, store, nil, nil)
	page, err := svc.NearbyFeed(context.Background(), Query{Origin: &Location{}, PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, []string{"near", "far"}, postIDs(page.Posts))
	assert.Equal(t, 111.32, *page.Posts[0].DistanceKm)
}

func TestFeedService_StoreErrorPropagates(t *testing.T) {
	store := new(MockStore)
	store.On("FindAll", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	svc := newTestService(t, store, nil, nil)
	page, err := svc.RecentFeed(context.Background(), Query{PageSize: 10})

	require.Error(t, err)
	assert.Nil(t, page)
	assert.True(t, IsStoreError(err))
	assert.False(t, IsValidationError(err))
}

func TestFeedService_FollowingFeedDegradesToEmptyPage(t *testing.T) {
	store := new(MockStore)
	profiles := new(MockProfiles)
	graph := &stubGraph{set: DegradedFollowing("status 503")}

	svc := newTestService(t, store, profiles, graph)
	page, err := svc.FollowingFeed(context.Background(), Query{UserID: "viewer", Credential: "tok", PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Posts)
	store.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "FindByAuthors", mock.Anything, mock.Anything, mock.Anything)
	profiles.AssertNotCalled(t, "Profiles", mock.Anything, mock.Anything)
}

func TestFeedService_FollowingFeedUsesGraphProfiles(t *testing.T) {
	graph := &stubGraph{set: FollowingSet{Profiles: map[string]Profile{"alice": {UserID: "alice", Name: "Alice"}}}}
	store := new(MockStore)
	store.On("FindByAuthors", mock.Anything, "viewer", []string{"alice"}).
		Return([]Post{{ID: "p1", AuthorID: "alice", CreatedAt: baseTime}}, nil)
	profiles := new(MockProfiles)

	svc := newTestService(t, store, profiles, graph)
	page, err := svc.FollowingFeed(context.Background(), Query{UserID: "viewer", PageSize: 10})

	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "Alice", page.Posts[0].Author.Name)
	profiles.AssertNotCalled(t, "Profiles", mock.Anything, mock.Anything)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"recent", ModeRecent},
		{"timestamp", ModeRecent},
		{"Nearby", ModeNearby},
		{"distance", ModeNearby},
		{" following ", ModeFollowing},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseMode("popular")
	assert.True(t, IsValidationError(err))
}

func TestFeedService_ProcessNewPost(t *testing.T) {
	lat, lon := 45.0, 7.5

	store := new(MockStore)
	store.On("CreatePost", mock.Anything, mock.MatchedBy(func(p *Post) bool {
		return p.ID == "p1" && p.Location != nil && p.Location.Lat == lat && p.Location.Lon == lon && !p.CreatedAt.IsZero()
	})).Return(nil)

	svc := newTestService(t, store, nil, nil)
	err := svc.ProcessNewPost(context.Background(), &IncomingPost{ID: "p1", AuthorID: "alice", Lat: &lat, Lon: &lon})

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestFeedService_ProcessNewPostValidation(t *testing.T) {
	lat, badLat, nanLat := 45.0, 120.0, math.NaN()

	tests := []struct {
		name     string
		incoming IncomingPost
		field    string
	}{
		{"missing id", IncomingPost{AuthorID: "a"}, "id"},
		{"missing author", IncomingPost{ID: "p"}, "authorId"},
		{"latitude without longitude", IncomingPost{ID: "p", AuthorID: "a", Lat: &lat}, "location"},
		{"longitude without latitude", IncomingPost{ID: "p", AuthorID: "a", Lon: &lat}, "location"},
		{"latitude out of range", IncomingPost{ID: "p", AuthorID: "a", Lat: &badLat, Lon: &lat}, "latitude"},
		{"latitude NaN", IncomingPost{ID: "p", AuthorID: "a", Lat: &nanLat, Lon: &lat}, "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			svc := newTestService(t, store, nil, nil)

			err := svc.ProcessNewPost(context.Background(), &tt.incoming)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			store.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything)
		})
	}
}

func TestFeedService_CleanupJob(t *testing.T) {
	store := new(MockStore)
	store.On("DeleteOldPosts", mock.Anything, time.Hour, 100).Return(int64(3), nil)

	svc := newTestService(t, store, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.StartCleanupJob(ctx, time.Minute, time.Hour, 100)

	store.AssertNumberOfCalls(t, "DeleteOldPosts", 1)
}

func TestFeedService_CleanupJobDisabled(t *testing.T) {
	store := new(MockStore)
	svc := newTestService(t, store, nil, nil)

	svc.StartCleanupJob(context.Background(), time.Minute, 0, 0)

	store.AssertNotCalled(t, "DeleteOldPosts", mock.Anything, mock.Anything, mock.Anything)
}
