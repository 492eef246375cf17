package httpserver

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blackmichael/geofeed/internal/domain"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (s *Server) handleFeedByMode(w http.ResponseWriter, r *http.Request) {
	mode, err := domain.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		writeError(w, http.StatusNotFound, "UnknownFeed", err.Error())
		return
	}
	s.handleFeed(mode)(w, r)
}

func (s *Server) handleFeed(mode domain.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		q, err := s.parseQuery(r, mode)
		if err != nil {
			s.metrics.ObserveFeedRequest(mode.String(), "invalid", time.Since(start))
			writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
			return
		}

		page, err := s.feedService.GetFeed(r.Context(), mode, q)
		if err != nil {
			if domain.IsValidationError(err) {
				s.metrics.ObserveFeedRequest(mode.String(), "invalid", time.Since(start))
				writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
				return
			}
			s.metrics.ObserveFeedRequest(mode.String(), "error", time.Since(start))
			s.logger.Error("failed to get feed",
				"mode", mode.String(),
				"user_id", q.UserID,
				"error", err,
			)
			writeError(w, http.StatusInternalServerError, "InternalError", "failed to get feed")
			return
		}

		s.metrics.ObserveFeedRequest(mode.String(), "ok", time.Since(start))
		writeJSON(w, http.StatusOK, toFeedResponse(page))
	}
}

// parseQuery builds a domain.Query from the request's query string and the
// authenticated caller.
func (s *Server) parseQuery(r *http.Request, mode domain.Mode) (domain.Query, error) {
	values := r.URL.Query()
	q := domain.Query{
		Categories: parseCategories(values),
		Keyword:    strings.TrimSpace(values.Get("keyword")),
		UserID:     UserID(r.Context()),
		Credential: Token(r.Context()),
		PageSize:   s.cfg.DefaultPageSize,
	}

	var err error
	if q.PageIndex, err = intParam(values, "page", 0); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(values, "size", s.cfg.DefaultPageSize); err != nil {
		return q, err
	}
	if q.DateFrom, err = dateParam(values, "dateFrom", false); err != nil {
		return q, err
	}
	if q.DateTo, err = dateParam(values, "dateTo", true); err != nil {
		return q, err
	}

	if mode == domain.ModeNearby {
		if q.Origin, err = originParam(values); err != nil {
			return q, err
		}
	}
	return q, nil
}

// parseCategories accepts repeated and comma separated category params.
func parseCategories(values url.Values) []string {
	var categories []string
	for _, raw := range values["category"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
	}
	return categories
}

func intParam(values url.Values, name string, fallback int) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// dateParam parses an RFC3339 timestamp, a zone-less timestamp (UTC) or a
// bare date. A bare date used as an upper bound covers the whole day.
func dateParam(values url.Values, name string, endOfDay bool) (*time.Time, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if endOfDay && layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		t = t.UTC()
		return &t, nil
	}
	return nil, domain.NewValidationError(name, "must be an RFC3339 timestamp or a YYYY-MM-DD date")
}

func originParam(values url.Values) (*domain.Location, error) {
	rawLat, rawLon := values.Get("lat"), values.Get("lon")
	if rawLat == "" && rawLon == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return nil, domain.NewValidationError("latitude", "must be a finite number")
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return nil, domain.NewValidationError("longitude", "must be a finite number")
	}
	return &domain.Location{Lat: lat, Lon: lon}, nil
}

type feedResponse struct {
	Posts      []postResponse `json:"posts"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	TotalPages int            `json:"totalPages"`
}

type postResponse struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Caption    string            `json:"caption"`
	Category   *string           `json:"category"`
	Location   *locationResponse `json:"location"`
	AuthorID   string            `json:"authorId"`
	Author     *authorResponse   `json:"author,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	Upvotes    int               `json:"upvotes"`
	Downvotes  int               `json:"downvotes"`
	Vote       string            `json:"vote"`
	DistanceKm *float64          `json:"distanceKm,omitempty"`
}

type locationResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type authorResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

func toFeedResponse(page *domain.Page) feedResponse {
	posts := make([]postResponse, len(page.Posts))
	for i, v := range page.Posts {
		p := postResponse{
			ID:         v.Post.ID,
			Title:      v.Post.Title,
			Caption:    v.Post.Caption,
			Category:   v.Post.Category,
			AuthorID:   v.Post.AuthorID,
			CreatedAt:  v.Post.CreatedAt,
			Upvotes:    v.Post.Upvotes,
			Downvotes:  v.Post.Downvotes,
			Vote:       v.Viewer.String(),
			DistanceKm: v.DistanceKm,
		}
		if v.Post.Location != nil {
			p.Location = &locationResponse{Lat: v.Post.Location.Lat, Lon: v.Post.Location.Lon}
		}
		if v.Author != nil {
			p.Author = &authorResponse{UserID: v.Author.UserID, Name: v.Author.Name, Avatar: v.Author.Avatar}
		}
		posts[i] = p
	}

	return feedResponse{
		Posts:      posts,
		Total:      page.Total,
		Page:       page.PageIndex,
		Size:       page.PageSize,
		TotalPages: page.TotalPages,
	}
}
