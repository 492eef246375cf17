package firehose

import "time"

const (
	kindPost = "post"

	opCreate = "create"
	opDelete = "delete"
)

// postEvent is the raw JSON structure of one message on the ingest stream.
type postEvent struct {
	Kind   string      `json:"kind"`
	TimeUS int64       `json:"time_us"`
	Op     string      `json:"op"`
	Post   *postRecord `json:"post,omitempty"`
}

// postRecord is the post payload of a create or delete event. Deletes only
// carry the id.
type postRecord struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Title     string    `json:"title"`
	Caption   string    `json:"caption"`
	Category  *string   `json:"category"`
	Lat       *float64  `json:"lat"`
	Lon       *float64  `json:"lon"`
	CreatedAt time.Time `json:"createdAt"`
}
