package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/deweblabs/depost/pkg/internal/codec"
	"github.com/deweblabs/depost/pkg/internal/models"
	"github.com/deweblabs/depost/pkg/internal/overlay"
	"github.com/deweblabs/depost/pkg/internal/pinning"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Adapter turns the flat, unordered pin listing into resolved posts and
// handles the write paths back into the substrate.
type Adapter struct {
	pins pinning.Client
}

func New(pins pinning.Client) *Adapter {
	return &Adapter{pins: pins}
}

// PostDraft is the caller-supplied input for a new root post.
type PostDraft struct {
	Content string   `validate:"required,max=500"`
	Author  string   `validate:"required,email"`
	Tags    []string `validate:"max=5,dive,min=1,max=20"`
}

// ReplyDraft is the caller-supplied input for a reply; replies are capped
// shorter than root posts and carry no tags of their own.
type ReplyDraft struct {
	Content string `validate:"required,max=280"`
	Author  string `validate:"required,email"`
}

// LoadAll lists every pinned object, classifies it by tags and yields the
// fully resolved posts. Only a failing listing call is fatal; any single
// pin that cannot be fetched or decoded degrades to a placeholder.
func (v *Adapter) LoadAll(ctx context.Context) ([]models.Post, error) {
	records, err := v.pins.List(ctx)
	if err != nil {
		var unavailable *pinning.StoreUnavailableError
		if errors.As(err, &unavailable) {
			return nil, err
		}
		return nil, &pinning.StoreUnavailableError{Op: "list", Err: err}
	}

	postCandidates, overlayCandidates := classify(records)

	posts := make([]models.Post, len(postCandidates))

	var wg sync.WaitGroup
	for idx, record := range postCandidates {
		wg.Add(1)
		go func(idx int, record pinning.PinRecord) {
			defer wg.Done()
			posts[idx] = v.resolveOne(ctx, record, overlayCandidates)
		}(idx, record)
	}
	wg.Wait()

	log.Debug().
		Int("posts", len(postCandidates)).
		Int("overlays", len(overlayCandidates)).
		Msg("Loaded and resolved pinned posts.")

	return posts, nil
}

// LoadByAuthor is LoadAll narrowed to one author, used by profile views.
func (v *Adapter) LoadByAuthor(ctx context.Context, author string) ([]models.Post, error) {
	posts, err := v.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(posts, func(item models.Post, _ int) bool {
		return strings.EqualFold(item.Author, author)
	}), nil
}

func (v *Adapter) resolveOne(ctx context.Context, record pinning.PinRecord, overlays []pinning.PinRecord) models.Post {
	blob, err := v.pins.Fetch(ctx, record.ID)
	if err != nil {
		log.Warn().Err(err).Str("id", record.ID).Msg("Unable to fetch post content, degrading to placeholder...")
		post := codec.UnavailablePost(record.ID, record.PinnedAt)
		post.Counters = overlay.Resolve(ctx, v.pins, record.ID, overlays, record.Tags)
		return post
	}

	post, err := codec.DecodePost(record.ID, blob, record.PinnedAt)
	if err != nil {
		log.Warn().Err(err).Str("id", record.ID).Msg("Unable to decode post content, degrading to placeholder...")
	}
	post.Counters = overlay.Resolve(ctx, v.pins, record.ID, overlays, record.Tags)
	return post
}

// classify partitions a listing into post candidates and overlay
// candidates. Pins named like edit duplicates ("updated") or carrying an
// originalId tag are leftovers of an abandoned in-place edit scheme and
// are excluded from the feed entirely.
func classify(records []pinning.PinRecord) (postCandidates, overlayCandidates []pinning.PinRecord) {
	for _, record := range records {
		kind := record.Tags[models.TagKeyType]
		switch {
		case kind == models.TagTypeMetadata:
			overlayCandidates = append(overlayCandidates, record)
		case kind == models.TagTypePost || strings.HasPrefix(record.Name, "depost-"):
			if strings.Contains(record.Name, "updated") {
				continue
			}
			if _, edited := record.Tags[models.TagKeyOriginalID]; edited {
				continue
			}
			postCandidates = append(postCandidates, record)
		}
	}
	return
}

// CreatePost encodes, pins and returns a new root post with zero counters.
func (v *Adapter) CreatePost(ctx context.Context, draft PostDraft) (models.Post, error) {
	if err := validate.Struct(draft); err != nil {
		return models.Post{}, &codec.ValidationError{Reason: err.Error()}
	}

	now := time.Now()
	mentions := codec.ExtractMentions(draft.Content)

	blob, err := codec.EncodePost(codec.PostFields{
		Content:   draft.Content,
		Author:    draft.Author,
		Timestamp: now,
		Tags:      draft.Tags,
	})
	if err != nil {
		return models.Post{}, err
	}

	name := fmt.Sprintf("depost-%d", now.UnixMilli())
	tags := map[string]string{
		models.TagKeyType:     models.TagTypePost,
		models.TagKeyAuthor:   draft.Author,
		models.TagKeyTags:     strings.Join(draft.Tags, ","),
		models.TagKeyMentions: strings.Join(mentions, ","),
	}

	id, err := v.pins.Pin(ctx, name, blob, tags)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to pin post: %v", err)
	}

	return models.Post{
		ID:        id,
		Content:   strings.TrimSpace(draft.Content),
		Author:    draft.Author,
		Timestamp: now,
		Tags:      draft.Tags,
		Mentions:  mentions,
		Counters:  models.Counters{LikedBy: []string{}, ViewedBy: []string{}},
	}, nil
}

// CreateReply is CreatePost with a required parent reference and the
// shorter reply length limit.
func (v *Adapter) CreateReply(ctx context.Context, parentID string, draft ReplyDraft) (models.Post, error) {
	if len(parentID) == 0 {
		return models.Post{}, &codec.ValidationError{Reason: "reply requires a parent post"}
	}
	if err := validate.Struct(draft); err != nil {
		return models.Post{}, &codec.ValidationError{Reason: err.Error()}
	}

	now := time.Now()
	mentions := codec.ExtractMentions(draft.Content)

	blob, err := codec.EncodePost(codec.PostFields{
		Content:   draft.Content,
		Author:    draft.Author,
		Timestamp: now,
		ParentID:  parentID,
	})
	if err != nil {
		return models.Post{}, err
	}

	name := fmt.Sprintf("depost-reply-%d", now.UnixMilli())
	tags := map[string]string{
		models.TagKeyType:     models.TagTypePost,
		models.TagKeyAuthor:   draft.Author,
		models.TagKeyParentID: parentID,
		models.TagKeyMentions: strings.Join(mentions, ","),
		models.TagKeyLikes:    "0",
		models.TagKeyViews:    "0",
		models.TagKeyLikedBy:  "",
		models.TagKeyViewedBy: "",
	}

	id, err := v.pins.Pin(ctx, name, blob, tags)
	if err != nil {
		return models.Post{}, fmt.Errorf("failed to pin reply: %v", err)
	}

	return models.Post{
		ID:        id,
		Content:   strings.TrimSpace(draft.Content),
		Author:    draft.Author,
		Timestamp: now,
		Tags:      []string{},
		Mentions:  mentions,
		ParentID:  parentID,
		Counters:  models.Counters{LikedBy: []string{}, ViewedBy: []string{}},
	}, nil
}

// Delete unpins the one target. Descendant replies stay pinned and become
// orphans; the session is responsible for hiding them from its own view.
func (v *Adapter) Delete(ctx context.Context, id string) error {
	if err := v.pins.Unpin(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %v", err)
	}
	return nil
}
