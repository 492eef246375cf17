package domain

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the ranking discipline of a feed.
type Mode int

const (
	ModeRecent Mode = iota
	ModeNearby
	ModeFollowing
)

func (m Mode) String() string {
	switch m {
	case ModeRecent:
		return "recent"
	case ModeNearby:
		return "nearby"
	case ModeFollowing:
		return "following"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a mode name to a Mode. "timestamp" and "distance" are
// accepted as aliases of "recent" and "nearby".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "recent", "timestamp":
		return ModeRecent, nil
	case "nearby", "distance":
		return ModeNearby, nil
	case "following":
		return ModeFollowing, nil
	default:
		return 0, NewValidationError("mode", fmt.Sprintf("unknown feed mode %q", s))
	}
}

// Query describes a single feed request. It is built per request and never
// shared.
type Query struct {
	// Categories is an allow-list; empty means every category.
	Categories []string

	// Keyword is matched case-insensitively against title and caption.
	Keyword string

	// DateFrom and DateTo are inclusive bounds on CreatedAt.
	DateFrom *time.Time
	DateTo   *time.Time

	// UserID is the requesting user.
	UserID string

	// Credential is the caller's bearer token, forwarded to the social graph.
	Credential string

	PageIndex int
	PageSize  int

	// Origin is the requester's position. Required by the nearby feed.
	Origin *Location
}

// Scope narrows the candidate set loaded from the post store.
type Scope struct {
	// ViewerID is used to resolve per-viewer vote state.
	ViewerID string

	// Since excludes posts created before it. Zero means no bound.
	Since time.Time
}

// Page is one slice of an ordered feed plus the size of the whole
// filtered result.
type Page struct {
	Posts      []PostView
	Total      int
	PageIndex  int
	PageSize   int
	TotalPages int
}
