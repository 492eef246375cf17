package firehose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/blackmichael/geofeed/internal/domain"
	"github.com/blackmichael/geofeed/internal/metrics"
)

const (
	cursorServiceName  = "post-stream"
	cursorSaveInterval = 5 * time.Second
	reconnectBackoff   = 5 * time.Second
)

// Ingester applies post events and tracks the stream cursor.
// *domain.FeedService satisfies it.
type Ingester interface {
	ProcessNewPost(ctx context.Context, incoming *domain.IncomingPost) error
	ProcessDeletePost(ctx context.Context, id string) error
	GetCursor(ctx context.Context, service string) (int64, error)
	UpdateCursor(ctx context.Context, service string, cursor int64) error
}

// Subscriber connects to the post-event stream and ingests events.
type Subscriber struct {
	url      string
	ingester Ingester
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSubscriber creates a new stream subscriber.
func NewSubscriber(streamURL string, ingester Ingester, m *metrics.Metrics, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		url:      streamURL,
		ingester: ingester,
		metrics:  m,
		logger:   logger,
	}
}

// Start connects to the stream and processes events until the context is
// cancelled. It automatically reconnects on transient errors.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil {
				s.logger.Error("post stream connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectBackoff):
				}
			}
		}
	}
}

func (s *Subscriber) buildURL(cursor int64) (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	if cursor > 0 {
		q := u.Query()
		q.Set("cursor", strconv.FormatInt(cursor, 10))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	cursor, err := s.ingester.GetCursor(ctx, cursorServiceName)
	if err != nil {
		s.logger.Warn("failed to load cursor, starting from live", "error", err)
	}

	wsURL, err := s.buildURL(cursor)
	if err != nil {
		return err
	}
	s.logger.Info("connecting to post stream", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial post stream: %w", err)
	}
	defer conn.Close()

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.logger.Info("connected to post stream")

	lastCursorSave := time.Now()
	var latestCursor int64
	var eventsReceived, postsApplied int64
	lastStatsLog := time.Now()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				s.saveCursor(context.Background(), latestCursor)
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}

		event, err := parseEvent(message)
		if err != nil {
			s.logger.Error("failed to parse event", "error", err)
			continue
		}

		eventsReceived++
		if event.TimeUS > latestCursor {
			latestCursor = event.TimeUS
		}

		if applied, err := s.handleEvent(ctx, event); err != nil {
			s.logger.Error("failed to handle event", "op", event.Op, "error", err)
		} else if applied {
			postsApplied++
		}

		if time.Since(lastStatsLog) >= 30*time.Second {
			s.logger.Info("post stream stats",
				"events_received", eventsReceived,
				"posts_applied", postsApplied,
			)
			lastStatsLog = time.Now()
		}

		if time.Since(lastCursorSave) >= cursorSaveInterval {
			if s.saveCursor(ctx, latestCursor) {
				lastCursorSave = time.Now()
			}
		}
	}
}

func (s *Subscriber) saveCursor(ctx context.Context, cursor int64) bool {
	if cursor <= 0 {
		return false
	}
	if err := s.ingester.UpdateCursor(ctx, cursorServiceName, cursor); err != nil {
		s.logger.Error("failed to save cursor", "error", err)
		return false
	}
	return true
}

// handleEvent applies one event. Events that fail validation are logged and
// skipped rather than returned.
func (s *Subscriber) handleEvent(ctx context.Context, event *postEvent) (applied bool, err error) {
	if event.Kind != kindPost || event.Post == nil {
		return false, nil
	}

	switch event.Op {
	case opCreate:
		incoming := toIncoming(event.Post)
		if err := s.ingester.ProcessNewPost(ctx, incoming); err != nil {
			if domain.IsValidationError(err) {
				s.logger.Warn("skipping invalid post", "post_id", incoming.ID, "error", err)
				return false, nil
			}
			return false, err
		}
		s.metrics.IngestedPostInc(opCreate)
		s.logger.Debug("ingested post", "post_id", incoming.ID, "author_id", incoming.AuthorID)
		return true, nil

	case opDelete:
		if event.Post.ID == "" {
			s.logger.Warn("skipping delete without post id")
			return false, nil
		}
		if err := s.ingester.ProcessDeletePost(ctx, event.Post.ID); err != nil {
			return false, err
		}
		s.metrics.IngestedPostInc(opDelete)
		return true, nil

	default:
		return false, nil
	}
}

// toIncoming converts a stream record, assigning a random id when the
// producer sent none.
func toIncoming(rec *postRecord) *domain.IncomingPost {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &domain.IncomingPost{
		ID:        id,
		AuthorID:  rec.AuthorID,
		Title:     rec.Title,
		Caption:   rec.Caption,
		Category:  rec.Category,
		Lat:       rec.Lat,
		Lon:       rec.Lon,
		CreatedAt: rec.CreatedAt,
	}
}

func parseEvent(data []byte) (*postEvent, error) {
	var event postEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}
