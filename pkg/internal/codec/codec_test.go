package codec

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deweblabs/depost/pkg/internal/models"
)

func TestEncodePost(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	blob, err := EncodePost(PostFields{
		Content:   "  hello @alice, welcome!  ",
		Author:    "bob@example.com",
		Timestamp: now,
		Tags:      []string{"intro"},
	})
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, jsoniter.Unmarshal(blob, &data))

	assert.Equal(t, "hello @alice, welcome!", data["content"])
	assert.Equal(t, "bob@example.com", data["author"])
	assert.Equal(t, "2024-05-01T12:00:00Z", data["timestamp"])
	assert.EqualValues(t, 0, data["likes"])
	assert.EqualValues(t, 0, data["views"])
	assert.Equal(t, []any{"intro"}, data["tags"])
	assert.Equal(t, []any{"alice"}, data["mentions"])
	assert.Equal(t, []any{}, data["likedBy"])
	assert.Equal(t, []any{}, data["viewedBy"])
	assert.NotContains(t, data, "parentId")
}

func TestEncodePostEmptyContent(t *testing.T) {
	_, err := EncodePost(PostFields{Content: "   \n\t ", Author: "bob@example.com"})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestEncodePostCarriesParent(t *testing.T) {
	blob, err := EncodePost(PostFields{
		Content:   "a reply",
		Author:    "bob@example.com",
		Timestamp: time.Now(),
		ParentID:  "QmParent",
	})
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, jsoniter.Unmarshal(blob, &data))
	assert.Equal(t, "QmParent", data["parentId"])
}

func TestDecodePostDefaults(t *testing.T) {
	pinnedAt := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)

	post, err := DecodePost("QmTest", []byte(`{"content":"hi","author":"a@b.com"}`), pinnedAt)
	require.NoError(t, err)

	assert.Equal(t, "QmTest", post.ID)
	assert.Equal(t, "hi", post.Content)
	assert.Equal(t, []string{}, post.Tags)
	assert.Equal(t, []string{}, post.Mentions)
	assert.True(t, post.IsRoot())
	// No timestamp in the blob, fall back to the pin time.
	assert.Equal(t, pinnedAt, post.Timestamp)
	assert.False(t, post.Unavailable)
}

func TestDecodePostMalformed(t *testing.T) {
	pinnedAt := time.Now()

	post, err := DecodePost("QmBad", []byte(`{not json`), pinnedAt)

	var decode *DecodeError
	require.ErrorAs(t, err, &decode)
	assert.Equal(t, "QmBad", decode.ID)

	// The returned post is a usable placeholder, never garbage.
	assert.True(t, post.Unavailable)
	assert.Equal(t, models.UnavailableContent, post.Content)
	assert.Equal(t, "QmBad", post.ID)
}

func TestDecodeOverlayRoundTrip(t *testing.T) {
	createdAt := time.Date(2024, 3, 3, 9, 30, 0, 0, time.UTC)

	blob, err := EncodeOverlay(models.CounterOverlay{
		TargetPostID: "QmPost",
		Likes:        2,
		Views:        5,
		LikedBy:      []string{"a@b.com", "c@d.com"},
		ViewedBy:     []string{"a@b.com", "c@d.com", "e@f.com"},
		CreatedAt:    createdAt,
	})
	require.NoError(t, err)

	item, err := DecodeOverlay("QmOverlay", blob)
	require.NoError(t, err)

	assert.Equal(t, "QmOverlay", item.ID)
	assert.Equal(t, "QmPost", item.TargetPostID)
	assert.Equal(t, 2, item.Likes)
	assert.Equal(t, 5, item.Views)
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, item.LikedBy)
	assert.True(t, item.CreatedAt.Equal(createdAt))
}

func TestDecodeOverlayMalformed(t *testing.T) {
	_, err := DecodeOverlay("QmBad", []byte(`]`))

	var decode *DecodeError
	require.ErrorAs(t, err, &decode)
}
