package codec

import (
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/deweblabs/depost/pkg/internal/models"
)

// Wire layout of a post blob. Counters are frozen at zero inside the blob
// itself; the live values come from the overlay stream.
type postBlob struct {
	Content   string   `json:"content"`
	Author    string   `json:"author"`
	Language  string   `json:"language,omitempty"`
	Timestamp string   `json:"timestamp"`
	Likes     int      `json:"likes"`
	Views     int      `json:"views"`
	Tags      []string `json:"tags"`
	Mentions  []string `json:"mentions"`
	LikedBy   []string `json:"likedBy"`
	ViewedBy  []string `json:"viewedBy"`
	ParentID  string   `json:"parentId,omitempty"`
}

type overlayBlob struct {
	PostID    string   `json:"postId"`
	Likes     int      `json:"likes"`
	Views     int      `json:"views"`
	LikedBy   []string `json:"likedBy"`
	ViewedBy  []string `json:"viewedBy"`
	Timestamp string   `json:"timestamp"`
}

// PostFields is everything a caller supplies when pinning a new post.
type PostFields struct {
	Content   string
	Author    string
	Timestamp time.Time
	Tags      []string
	ParentID  string
}

// EncodePost serializes a new post into its canonical pinned form.
// Mentions are extracted from the content here so every encoded blob uses
// the same matching rules as the render path.
func EncodePost(fields PostFields) ([]byte, error) {
	if len(strings.TrimSpace(fields.Content)) == 0 {
		return nil, &ValidationError{Reason: "post content cannot be empty"}
	}

	blob := postBlob{
		Content:   strings.TrimSpace(fields.Content),
		Author:    fields.Author,
		Language:  DetectLanguage(fields.Content),
		Timestamp: fields.Timestamp.UTC().Format(time.RFC3339Nano),
		Tags:      emptyWhenNil(fields.Tags),
		Mentions:  ExtractMentions(fields.Content),
		LikedBy:   []string{},
		ViewedBy:  []string{},
		ParentID:  fields.ParentID,
	}

	return jsoniter.Marshal(blob)
}

// DecodePost parses a pinned post blob. Missing optional fields default to
// empty collections; a malformed blob yields the placeholder post plus a
// DecodeError so a single corrupted pin never takes down a whole load.
func DecodePost(id string, blob []byte, pinnedAt time.Time) (models.Post, error) {
	var data postBlob
	if err := jsoniter.Unmarshal(blob, &data); err != nil {
		return UnavailablePost(id, pinnedAt), &DecodeError{ID: id, Err: err}
	}
	if len(data.Content) == 0 {
		data.Content = models.UnavailableContent
	}
	if len(data.Author) == 0 {
		data.Author = "Unknown"
	}

	timestamp := pinnedAt
	if parsed, err := time.Parse(time.RFC3339Nano, data.Timestamp); err == nil {
		timestamp = parsed
	}

	return models.Post{
		ID:        id,
		Content:   data.Content,
		Author:    data.Author,
		Language:  data.Language,
		Timestamp: timestamp,
		Tags:      emptyWhenNil(data.Tags),
		Mentions:  emptyWhenNil(data.Mentions),
		ParentID:  data.ParentID,
	}, nil
}

// UnavailablePost is the sentinel shown in place of a pin whose content
// could not be retrieved.
func UnavailablePost(id string, pinnedAt time.Time) models.Post {
	return models.Post{
		ID:          id,
		Content:     models.UnavailableContent,
		Author:      "Unknown",
		Timestamp:   pinnedAt,
		Tags:        []string{},
		Mentions:    []string{},
		Unavailable: true,
	}
}

// EncodeOverlay serializes a counter snapshot for pinning.
func EncodeOverlay(item models.CounterOverlay) ([]byte, error) {
	return jsoniter.Marshal(overlayBlob{
		PostID:    item.TargetPostID,
		Likes:     item.Likes,
		Views:     item.Views,
		LikedBy:   emptyWhenNil(item.LikedBy),
		ViewedBy:  emptyWhenNil(item.ViewedBy),
		Timestamp: item.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// DecodeOverlay parses a pinned counter snapshot.
func DecodeOverlay(id string, blob []byte) (models.CounterOverlay, error) {
	var data overlayBlob
	if err := jsoniter.Unmarshal(blob, &data); err != nil {
		return models.CounterOverlay{}, &DecodeError{ID: id, Err: err}
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, data.Timestamp)

	return models.CounterOverlay{
		ID:           id,
		TargetPostID: data.PostID,
		Likes:        data.Likes,
		Views:        data.Views,
		LikedBy:      emptyWhenNil(data.LikedBy),
		ViewedBy:     emptyWhenNil(data.ViewedBy),
		CreatedAt:    createdAt,
	}, nil
}

func emptyWhenNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
