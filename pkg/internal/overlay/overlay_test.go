package overlay

import (
	"context"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deweblabs/depost/pkg/internal/models"
	"github.com/deweblabs/depost/pkg/internal/pinning"
)

// pinClientStub is a function-field stub for pinning.Client.
type pinClientStub struct {
	pinFn   func(ctx context.Context, name string, blob []byte, tags map[string]string) (string, error)
	listFn  func(ctx context.Context) ([]pinning.PinRecord, error)
	fetchFn func(ctx context.Context, id string) ([]byte, error)
	unpinFn func(ctx context.Context, id string) error
}

func (s *pinClientStub) Pin(ctx context.Context, name string, blob []byte, tags map[string]string) (string, error) {
	return s.pinFn(ctx, name, blob, tags)
}
func (s *pinClientStub) List(ctx context.Context) ([]pinning.PinRecord, error) {
	return s.listFn(ctx)
}
func (s *pinClientStub) Fetch(ctx context.Context, id string) ([]byte, error) {
	return s.fetchFn(ctx, id)
}
func (s *pinClientStub) Unpin(ctx context.Context, id string) error {
	return s.unpinFn(ctx, id)
}

func overlayRecord(id, postID, updatedAt string) pinning.PinRecord {
	return pinning.PinRecord{
		ID:   id,
		Name: "depost-metadata-" + postID,
		Tags: map[string]string{
			models.TagKeyType:      models.TagTypeMetadata,
			models.TagKeyPostID:    postID,
			models.TagKeyUpdatedAt: updatedAt,
			models.TagKeyLikes:     "1",
			models.TagKeyViews:     "2",
		},
	}
}

func overlayBlobFor(t *testing.T, postID string, likedBy, viewedBy []string) []byte {
	t.Helper()
	blob, err := jsoniter.Marshal(map[string]any{
		"postId":   postID,
		"likes":    len(likedBy),
		"views":    len(viewedBy),
		"likedBy":  likedBy,
		"viewedBy": viewedBy,
	})
	require.NoError(t, err)
	return blob
}

func TestPublish(t *testing.T) {
	var gotName string
	var gotTags map[string]string
	var gotBlob []byte

	pins := &pinClientStub{
		pinFn: func(_ context.Context, name string, blob []byte, tags map[string]string) (string, error) {
			gotName, gotBlob, gotTags = name, blob, tags
			return "QmNewOverlay", nil
		},
	}

	id, err := Publish(context.Background(), pins, "QmPost", []string{"a@b.com"}, []string{"a@b.com", "c@d.com"})
	require.NoError(t, err)
	assert.Equal(t, "QmNewOverlay", id)

	assert.Contains(t, gotName, "depost-metadata-QmPost-")
	assert.Equal(t, models.TagTypeMetadata, gotTags[models.TagKeyType])
	assert.Equal(t, "QmPost", gotTags[models.TagKeyPostID])
	assert.Equal(t, "1", gotTags[models.TagKeyLikes])
	assert.Equal(t, "2", gotTags[models.TagKeyViews])
	_, err = time.Parse(time.RFC3339Nano, gotTags[models.TagKeyUpdatedAt])
	assert.NoError(t, err)

	var payload map[string]any
	require.NoError(t, jsoniter.Unmarshal(gotBlob, &payload))
	assert.Equal(t, []any{"a@b.com"}, payload["likedBy"])
	assert.Equal(t, []any{"a@b.com", "c@d.com"}, payload["viewedBy"])
}

func TestLatestPicksGreatestUpdatedAt(t *testing.T) {
	candidates := []pinning.PinRecord{
		overlayRecord("QmA", "P", "2024-01-01T00:00:00Z"),
		overlayRecord("QmB", "P", "2024-01-02T00:00:00Z"),
		overlayRecord("QmC", "Q", "2024-01-03T00:00:00Z"),
	}

	best, ok := Latest("P", candidates)
	require.True(t, ok)
	assert.Equal(t, "QmB", best.ID)
}

func TestLatestTieBreaksByID(t *testing.T) {
	candidates := []pinning.PinRecord{
		overlayRecord("QmAaa", "P", "2024-01-01T00:00:00Z"),
		overlayRecord("QmZzz", "P", "2024-01-01T00:00:00Z"),
		overlayRecord("QmMmm", "P", "2024-01-01T00:00:00Z"),
	}

	best, ok := Latest("P", candidates)
	require.True(t, ok)
	assert.Equal(t, "QmZzz", best.ID)
}

func TestResolvePrefersOverlayStream(t *testing.T) {
	candidates := []pinning.PinRecord{
		overlayRecord("QmOld", "P", "2024-01-01T00:00:00Z"),
		overlayRecord("QmNew", "P", "2024-01-02T00:00:00Z"),
	}
	pins := &pinClientStub{
		fetchFn: func(_ context.Context, id string) ([]byte, error) {
			require.Equal(t, "QmNew", id)
			return overlayBlobFor(t, "P", []string{"a@b.com", "c@d.com", "e@f.com"}, []string{"a@b.com"}), nil
		},
	}

	counters := Resolve(context.Background(), pins, "P", candidates, nil)

	assert.Equal(t, 3, counters.Likes)
	assert.Equal(t, 1, counters.Views)
	assert.Equal(t, []string{"a@b.com", "c@d.com", "e@f.com"}, counters.LikedBy)
}

func TestResolveOverlayContentUnavailable(t *testing.T) {
	candidates := []pinning.PinRecord{overlayRecord("QmOnly", "P", "2024-01-01T00:00:00Z")}
	pins := &pinClientStub{
		fetchFn: func(_ context.Context, _ string) ([]byte, error) {
			return nil, assert.AnError
		},
	}

	counters := Resolve(context.Background(), pins, "P", candidates, nil)

	// Counts come from the overlay's tags; the sets are unknowable.
	assert.Equal(t, 1, counters.Likes)
	assert.Equal(t, 2, counters.Views)
	assert.Empty(t, counters.LikedBy)
	assert.Empty(t, counters.ViewedBy)
}

func TestResolveLegacyTagFallback(t *testing.T) {
	pins := &pinClientStub{}

	counters := Resolve(context.Background(), pins, "P", nil, map[string]string{
		models.TagKeyLikes:    "4",
		models.TagKeyViews:    "9",
		models.TagKeyLikedBy:  "a@b.com,c@d.com",
		models.TagKeyViewedBy: "a@b.com",
	})

	assert.Equal(t, 4, counters.Likes)
	assert.Equal(t, 9, counters.Views)
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, counters.LikedBy)
	assert.Equal(t, []string{"a@b.com"}, counters.ViewedBy)
}

func TestResolveZeroFallback(t *testing.T) {
	pins := &pinClientStub{}

	counters := Resolve(context.Background(), pins, "P", nil, nil)

	assert.Zero(t, counters.Likes)
	assert.Zero(t, counters.Views)
	assert.Empty(t, counters.LikedBy)
	assert.Empty(t, counters.ViewedBy)
}

func TestResolveIgnoresMalformedLegacyTags(t *testing.T) {
	pins := &pinClientStub{}

	counters := Resolve(context.Background(), pins, "P", nil, map[string]string{
		models.TagKeyLikes:   "not-a-number",
		models.TagKeyViews:   "-3",
		models.TagKeyLikedBy: ",,",
	})

	assert.Zero(t, counters.Likes)
	assert.Zero(t, counters.Views)
	assert.Empty(t, counters.LikedBy)
}
