package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatchesKeyword(t *testing.T) {
	post := &Post{Title: "Flooded underpass on Main St", Caption: "Water is knee deep near the BAKERY"}

	tests := []struct {
		name    string
		keyword string
		want    bool
	}{
		{"empty keyword", "", true},
		{"title exact case", "Flooded", true},
		{"title different case", "fLOODED", true},
		{"caption upper in post", "bakery", true},
		{"caption substring", "knee dee", true},
		{"absent", "wildfire", false},
		{"spans both fields", "St Water", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesKeyword(post, tt.keyword))
		})
	}
}

func TestMatchesKeyword_AnyCasingOfPresentKeyword(t *testing.T) {
	post := &Post{Title: "Lost cat", Caption: "Grey tabby, answers to Miso"}
	for _, kw := range []string{"miso", "MISO", "Miso", "mIsO", "tabby", "LOST CAT"} {
		assert.True(t, MatchesKeyword(post, kw), kw)
		assert.False(t, MatchesKeyword(post, kw+"zz"), kw+"zz")
	}
	assert.True(t, MatchesKeyword(post, strings.ToUpper(post.Caption)))
}

func TestMatchesCategory(t *testing.T) {
	tests := []struct {
		name       string
		category   *string
		categories []string
		want       bool
	}{
		{"no allow-list", strPtr("Flooding"), nil, true},
		{"no allow-list and no category", nil, nil, true},
		{"in allow-list", strPtr("Flooding"), []string{"Lost Item", "Flooding"}, true},
		{"not in allow-list", strPtr("Flooding"), []string{"Lost Item"}, false},
		{"case sensitive", strPtr("flooding"), []string{"Flooding"}, false},
		{"nil category with allow-list", nil, []string{"Flooding"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Post{Category: tt.category}
			assert.Equal(t, tt.want, MatchesCategory(p, tt.categories))
		})
	}
}

func TestMatchesDateRange_InclusiveBounds(t *testing.T) {
	from := baseTime
	to := baseTime.Add(24 * time.Hour)
	q := &Query{DateFrom: &from, DateTo: &to}

	at := func(ts time.Time) *Post { return &Post{CreatedAt: ts} }

	assert.True(t, MatchesDateRange(at(from), q), "equal to from")
	assert.True(t, MatchesDateRange(at(to), q), "equal to to")
	assert.True(t, MatchesDateRange(at(from.Add(time.Hour)), q), "inside")
	assert.False(t, MatchesDateRange(at(from.Add(-time.Nanosecond)), q), "just before from")
	assert.False(t, MatchesDateRange(at(to.Add(time.Nanosecond)), q), "just after to")
	assert.False(t, MatchesDateRange(at(from.Add(-time.Second)), q), "one second before from")
	assert.False(t, MatchesDateRange(at(to.Add(time.Second)), q), "one second after to")
}

func TestMatchesDateRange_OpenBounds(t *testing.T) {
	p := &Post{CreatedAt: baseTime}

	assert.True(t, MatchesDateRange(p, &Query{}))
	assert.True(t, MatchesDateRange(p, &Query{DateFrom: timePtr(baseTime.Add(-time.Hour))}))
	assert.False(t, MatchesDateRange(p, &Query{DateFrom: timePtr(baseTime.Add(time.Hour))}))
	assert.True(t, MatchesDateRange(p, &Query{DateTo: timePtr(baseTime.Add(time.Hour))}))
	assert.False(t, MatchesDateRange(p, &Query{DateTo: timePtr(baseTime.Add(-time.Hour))}))
}

func TestFilterPosts_CategoryKeepsRelativeOrder(t *testing.T) {
	posts := []Post{
		{ID: "a", Category: strPtr("Lost Item")},
		{ID: "b", Category: strPtr("Flooding")},
		{ID: "c", Category: strPtr("Lost Item")},
	}

	got := FilterPosts(posts, &Query{Categories: []string{"Lost Item"}})

	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestFilterPosts_PredicatesAreANDed(t *testing.T) {
	posts := []Post{
		{ID: "match", Title: "Road flooding", Category: strPtr("Flooding"), CreatedAt: baseTime},
		{ID: "wrong-category", Title: "Road flooding", Category: strPtr("Traffic"), CreatedAt: baseTime},
		{ID: "wrong-keyword", Title: "Sunny day", Category: strPtr("Flooding"), CreatedAt: baseTime},
		{ID: "too-old", Title: "Road flooding", Category: strPtr("Flooding"), CreatedAt: baseTime.Add(-48 * time.Hour)},
	}
	q := &Query{
		Categories: []string{"Flooding"},
		Keyword:    "FLOOD",
		DateFrom:   timePtr(baseTime.Add(-time.Hour)),
	}

	got := FilterPosts(posts, q)

	assert.Len(t, got, 1)
	assert.Equal(t, "match", got[0].ID)
}
