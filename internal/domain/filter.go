package domain

import "strings"

// MatchesCategory reports whether the post's category is in the allow-list.
// An empty allow-list accepts every post. Matching is exact and
// case-sensitive; a post without a category only passes an empty list.
func MatchesCategory(p *Post, categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	if p.Category == nil {
		return false
	}
	for _, c := range categories {
		if c == *p.Category {
			return true
		}
	}
	return false
}

// MatchesKeyword reports whether keyword occurs, ignoring case, in the post's
// title or caption. An empty keyword accepts every post.
func MatchesKeyword(p *Post, keyword string) bool {
	if keyword == "" {
		return true
	}
	kw := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(p.Title), kw) ||
		strings.Contains(strings.ToLower(p.Caption), kw)
}

// MatchesDateRange reports whether the post was created within the inclusive
// range. Either bound may be nil.
func MatchesDateRange(p *Post, q *Query) bool {
	if q.DateFrom != nil && p.CreatedAt.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && p.CreatedAt.After(*q.DateTo) {
		return false
	}
	return true
}

// Matches applies all three predicates.
func Matches(p *Post, q *Query) bool {
	return MatchesCategory(p, q.Categories) &&
		MatchesKeyword(p, q.Keyword) &&
		MatchesDateRange(p, q)
}

// FilterPosts returns the posts accepted by q, in input order.
func FilterPosts(posts []Post, q *Query) []Post {
	out := make([]Post, 0, len(posts))
	for i := range posts {
		if Matches(&posts[i], q) {
			out = append(out, posts[i])
		}
	}
	return out
}
