package overlay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/deweblabs/depost/pkg/internal/codec"
	"github.com/deweblabs/depost/pkg/internal/models"
	"github.com/deweblabs/depost/pkg/internal/pinning"
)

// Publish pins a fresh counter snapshot for a post. The snapshot always
// carries the complete likedBy/viewedBy sets, never a delta; that is what
// lets the protocol work without compare-and-swap on an append-only
// substrate. Two principals mutating without an intervening refresh can
// race and the later overlay silently wins; that trade-off is accepted.
func Publish(ctx context.Context, pins pinning.Client, postID string, likedBy, viewedBy []string) (string, error) {
	now := time.Now()
	item := models.CounterOverlay{
		TargetPostID: postID,
		Likes:        len(likedBy),
		Views:        len(viewedBy),
		LikedBy:      likedBy,
		ViewedBy:     viewedBy,
		CreatedAt:    now,
	}

	blob, err := codec.EncodeOverlay(item)
	if err != nil {
		return "", fmt.Errorf("failed to serialize counter overlay: %v", err)
	}

	name := fmt.Sprintf("depost-metadata-%s-%d", postID, now.UnixMilli())
	tags := map[string]string{
		models.TagKeyType:      models.TagTypeMetadata,
		models.TagKeyPostID:    postID,
		models.TagKeyLikes:     strconv.Itoa(len(likedBy)),
		models.TagKeyViews:     strconv.Itoa(len(viewedBy)),
		models.TagKeyUpdatedAt: now.UTC().Format(time.RFC3339Nano),
	}

	id, err := pins.Pin(ctx, name, blob, tags)
	if err != nil {
		return "", fmt.Errorf("failed to publish counter overlay: %v", err)
	}

	log.Debug().Str("post", postID).Str("overlay", id).Msg("Published a counter overlay.")

	return id, nil
}

// Latest picks the effective overlay pin for a post: the one with the
// greatest updatedAt tag, ties broken by the greatest content address in
// lexical byte order. The tie-break is a fixed policy so every client
// discards the same losers.
func Latest(postID string, candidates []pinning.PinRecord) (pinning.PinRecord, bool) {
	addressed := lo.Filter(candidates, func(item pinning.PinRecord, _ int) bool {
		return item.Tags[models.TagKeyPostID] == postID
	})
	if len(addressed) == 0 {
		return pinning.PinRecord{}, false
	}

	best := lo.MaxBy(addressed, func(a, b pinning.PinRecord) bool {
		at, bt := a.Tags[models.TagKeyUpdatedAt], b.Tags[models.TagKeyUpdatedAt]
		if at != bt {
			return at > bt
		}
		return a.ID > b.ID
	})
	return best, true
}

// Resolve produces the current counters for a post. Resolution is
// two-tier: first the overlay stream, then counters embedded in the
// post's own pin-time tags (posts that predate the overlay protocol),
// then zero/empty.
func Resolve(ctx context.Context, pins pinning.Client, postID string, candidates []pinning.PinRecord, legacyTags map[string]string) models.Counters {
	if best, ok := Latest(postID, candidates); ok {
		blob, err := pins.Fetch(ctx, best.ID)
		if err == nil {
			if item, decodeErr := codec.DecodeOverlay(best.ID, blob); decodeErr == nil {
				return item.ToCounters()
			}
		}
		log.Warn().Str("post", postID).Str("overlay", best.ID).
			Msg("Counter overlay content unavailable, falling back to its tags...")

		// The overlay's own tags still carry the counts, just not the sets.
		return models.Counters{
			Likes:    parseCount(best.Tags[models.TagKeyLikes]),
			Views:    parseCount(best.Tags[models.TagKeyViews]),
			LikedBy:  []string{},
			ViewedBy: []string{},
		}
	}

	return legacyCounters(legacyTags)
}

func legacyCounters(tags map[string]string) models.Counters {
	return models.Counters{
		Likes:    parseCount(tags[models.TagKeyLikes]),
		Views:    parseCount(tags[models.TagKeyViews]),
		LikedBy:  splitSet(tags[models.TagKeyLikedBy]),
		ViewedBy: splitSet(tags[models.TagKeyViewedBy]),
	}
}

func parseCount(raw string) int {
	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0
	}
	return count
}

func splitSet(raw string) []string {
	if len(raw) == 0 {
		return []string{}
	}
	return lo.Filter(strings.Split(raw, ","), func(item string, _ int) bool {
		return len(item) > 0
	})
}
