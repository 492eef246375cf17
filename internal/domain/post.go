package domain

import "time"

// Location is a WGS84 coordinate in degrees.
type Location struct {
	Lat float64
	Lon float64
}

// VoteState is the requesting user's vote on a post.
type VoteState int

const (
	VoteNone VoteState = 0
	VoteUp   VoteState = 1
	VoteDown VoteState = -1
)

// String returns the wire name of the vote state.
func (v VoteState) String() string {
	switch v {
	case VoteUp:
		return "up"
	case VoteDown:
		return "down"
	default:
		return "none"
	}
}

// Post represents a stored geo-tagged post. The feed engine treats posts as
// read-only input.
type Post struct {
	// ID is the opaque unique identifier of the post.
	ID string

	// Location is where the post was made. Nil when the backend holds no
	// coordinates for the row.
	Location *Location

	Title    string
	Caption  string
	Category *string

	// AuthorID is the user id of the post's author.
	AuthorID string

	// CreatedAt is the creation time in UTC.
	CreatedAt time.Time

	Upvotes   int
	Downvotes int

	// ViewerVote is the requesting user's vote, resolved by the store for the
	// viewer named in the lookup.
	ViewerVote VoteState
}

// Profile is the display data of a user.
type Profile struct {
	UserID string
	Name   string
	Avatar string
}

// PostView is a post annotated for a single feed response.
type PostView struct {
	Post Post

	// Viewer is the requesting user's vote on the post.
	Viewer VoteState

	// Author is nil when no profile could be resolved.
	Author *Profile

	// DistanceKm is only set by the nearby feed.
	DistanceKm *float64
}

// IncomingPost is a post event from the ingest stream that hasn't been
// persisted yet.
type IncomingPost struct {
	ID        string
	AuthorID  string
	Title     string
	Caption   string
	Category  *string
	Lat       *float64
	Lon       *float64
	CreatedAt time.Time
}
