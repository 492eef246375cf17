package socialgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/blackmichael/geofeed/internal/domain"
	"github.com/blackmichael/geofeed/internal/metrics"
)

const (
	defaultTimeout = 3 * time.Second

	// maxResponseBytes caps how much of a following payload is read.
	maxResponseBytes = 4 << 20
)

var errResponseTooLarge = errors.New("response body too large")

// Degradation reasons reported on FollowingSet.Reason.
const (
	ReasonTransport = "transport"
	ReasonTimeout   = "timeout"
	ReasonStatus    = "status"
	ReasonDecode    = "decode"
	ReasonTooLarge  = "too_large"
)

// Client resolves following sets from the social-graph service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxBody    int64
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a social-graph client. A zero timeout uses the default of
// three seconds.
func NewClient(baseURL string, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxBody: maxResponseBytes,
		metrics: m,
		logger:  logger,
	}
}

// Following returns the users userID follows. Failures never surface as
// errors; they produce an empty set flagged as degraded.
func (c *Client) Following(ctx context.Context, userID, credential string) domain.FollowingSet {
	if userID == "" {
		return domain.FollowingSet{Profiles: map[string]domain.Profile{}}
	}

	body, err := c.get(ctx, "/follow/following/"+url.PathEscape(userID), credential)
	if err != nil {
		reason := ReasonTransport
		var se *statusError
		switch {
		case errors.As(err, &se):
			reason = ReasonStatus
		case errors.Is(err, errResponseTooLarge):
			reason = ReasonTooLarge
		case isTimeout(err):
			reason = ReasonTimeout
		}
		return c.degraded(userID, reason, err)
	}

	profiles, err := decodeFollowing(body)
	if err != nil {
		return c.degraded(userID, ReasonDecode, err)
	}
	return domain.FollowingSet{Profiles: profiles}
}

func (c *Client) degraded(userID, reason string, err error) domain.FollowingSet {
	c.logger.Warn("social graph lookup failed",
		"user_id", userID,
		"reason", reason,
		"error", err,
	)
	c.metrics.SocialGraphDegradedInc(reason)
	return domain.DegradedFollowing(reason)
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.status, e.body)
}

func (c *Client) get(ctx context.Context, path, credential string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	tooLarge := int64(len(respBody)) > c.maxBody
	if tooLarge {
		respBody = respBody[:c.maxBody]
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{status: resp.StatusCode, body: string(respBody)}
	}
	if tooLarge {
		return nil, fmt.Errorf("read response: %w (limit %d bytes)", errResponseTooLarge, c.maxBody)
	}
	return respBody, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// followedUser is one entry of the following payload.
type followedUser struct {
	UserID         userID `json:"userId"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
}

// userID accepts both JSON strings and numbers.
type userID string

func (u *userID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = userID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("userId must be a string or number: %w", err)
	}
	*u = userID(n.String())
	return nil
}

// decodeFollowing parses the following payload. An empty body or a JSON null
// is an empty set.
func decodeFollowing(body []byte) (map[string]domain.Profile, error) {
	profiles := make(map[string]domain.Profile)

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return profiles, nil
	}

	var users []followedUser
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("unmarshal following: %w", err)
	}

	for _, u := range users {
		id := string(u.UserID)
		if id == "" {
			continue
		}
		profiles[id] = domain.Profile{
			UserID: id,
			Name:   u.Name,
			Avatar: u.ProfilePicture,
		}
	}
	return profiles, nil
}
