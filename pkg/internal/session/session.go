package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/deweblabs/depost/pkg/internal/models"
	"github.com/deweblabs/depost/pkg/internal/overlay"
	"github.com/deweblabs/depost/pkg/internal/pinning"
	"github.com/deweblabs/depost/pkg/internal/store"
	"github.com/deweblabs/depost/pkg/internal/thread"
)

const DefaultViewDwell = 2 * time.Second

// Session orchestrates loading, threading and mutations for one principal.
// Sessions are fully independent of each other; the substrate has no locks
// and none are simulated. Counter races between sessions are tolerated and
// settled by whichever overlay publishes last.
type Session struct {
	id        string
	principal models.Principal
	adapter   *store.Adapter
	pins      pinning.Client

	dwell        time.Duration
	authorFilter string

	generation atomic.Uint64

	mu         sync.Mutex
	posts      []models.Post
	threads    []*thread.Node
	viewTimers map[string]*time.Timer
}

type Option func(*Session)

// WithAuthorFilter narrows every load to posts by one author, as profile
// views do.
func WithAuthorFilter(author string) Option {
	return func(s *Session) { s.authorFilter = author }
}

// WithViewDwell overrides how long a post must stay visible before its
// view is recorded.
func WithViewDwell(dwell time.Duration) Option {
	return func(s *Session) { s.dwell = dwell }
}

func New(principal models.Principal, adapter *store.Adapter, pins pinning.Client, options ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		principal:  principal,
		adapter:    adapter,
		pins:       pins,
		dwell:      DefaultViewDwell,
		viewTimers: make(map[string]*time.Timer),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Session) Principal() models.Principal {
	return s.principal
}

// Refresh fully reloads the view; there is no incremental merge. Every
// call gets a generation number at start and its result only applies while
// no newer refresh has been started, so a slow early refresh can never
// overwrite the data of a later one.
func (s *Session) Refresh(ctx context.Context) error {
	generation := s.generation.Add(1)

	var posts []models.Post
	var err error
	if len(s.authorFilter) > 0 {
		posts, err = s.adapter.LoadByAuthor(ctx, s.authorFilter)
	} else {
		posts, err = s.adapter.LoadAll(ctx)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation.Load() {
		log.Debug().Str("session", s.id).Uint64("generation", generation).
			Msg("Discarding a stale refresh result...")
		return nil
	}

	s.posts = posts
	s.threads = thread.Build(posts)

	log.Debug().Str("session", s.id).Int("posts", len(posts)).Msg("Refreshed the feed.")

	return nil
}

// Threads returns the current reply forest, newest thread first.
func (s *Session) Threads() []*thread.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads
}

// Posts returns the flat resolved collection behind the forest.
func (s *Session) Posts() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Post(nil), s.posts...)
}

// Create publishes a new root post and reloads so it shows up threaded.
func (s *Session) Create(ctx context.Context, content string, tags []string) (models.Post, error) {
	post, err := s.adapter.CreatePost(ctx, store.PostDraft{
		Content: content,
		Author:  s.principal.Email,
		Tags:    tags,
	})
	if err != nil {
		return models.Post{}, err
	}
	return post, s.Refresh(ctx)
}

// Reply publishes a reply under parentID and reloads to re-thread.
func (s *Session) Reply(ctx context.Context, parentID, content string) (models.Post, error) {
	post, err := s.adapter.CreateReply(ctx, parentID, store.ReplyDraft{
		Content: content,
		Author:  s.principal.Email,
	})
	if err != nil {
		return models.Post{}, err
	}
	return post, s.Refresh(ctx)
}

// Like adds the acting principal to the post's liked set, applies the
// change optimistically and publishes the complete new sets as a fresh
// overlay. The next refresh is authoritative; a failed publish is not
// retried.
func (s *Session) Like(ctx context.Context, postID string) error {
	return s.toggleLike(ctx, postID, true)
}

// Unlike removes the acting principal from the post's liked set.
func (s *Session) Unlike(ctx context.Context, postID string) error {
	return s.toggleLike(ctx, postID, false)
}

func (s *Session) toggleLike(ctx context.Context, postID string, liked bool) error {
	s.mu.Lock()

	idx := s.indexOf(postID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("unable to find post %s in the current view", postID)
	}

	current := s.posts[idx].Counters
	if liked == current.LikedByPrincipal(s.principal.Email) {
		// Nothing to change; keep the substrate quiet.
		s.mu.Unlock()
		return nil
	}

	var likedBy []string
	if liked {
		likedBy = append(append([]string{}, current.LikedBy...), s.principal.Email)
	} else {
		likedBy = lo.Filter(current.LikedBy, func(item string, _ int) bool {
			return item != s.principal.Email
		})
	}
	viewedBy := append([]string{}, current.ViewedBy...)

	s.applyCounters(idx, models.Counters{
		Likes:    len(likedBy),
		Views:    len(viewedBy),
		LikedBy:  likedBy,
		ViewedBy: viewedBy,
	})
	s.mu.Unlock()

	if _, err := overlay.Publish(ctx, s.pins, postID, likedBy, viewedBy); err != nil {
		log.Error().Err(err).Str("session", s.id).Str("post", postID).
			Msg("An error occurred when publishing a like overlay.")
		return err
	}
	return nil
}

// Delete unpins the post and cascades locally: the post and its direct
// replies disappear from this session's view. The substrate keeps the
// reply pins; other sessions will see them as orphaned roots.
func (s *Session) Delete(ctx context.Context, postID string) error {
	if err := s.adapter.Delete(ctx, postID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := map[string]bool{postID: true}
	s.posts = lo.Filter(s.posts, func(item models.Post, _ int) bool {
		if item.ID == postID || item.ParentID == postID {
			removed[item.ID] = true
			return false
		}
		return true
	})
	s.threads = thread.Build(s.posts)

	for id := range removed {
		if timer, ok := s.viewTimers[id]; ok {
			timer.Stop()
			delete(s.viewTimers, id)
		}
	}

	return nil
}

// applyCounters mutates one post's resolved counters in place and rebuilds
// the forest. Caller holds the lock.
func (s *Session) applyCounters(idx int, counters models.Counters) {
	s.posts[idx].Counters = counters
	s.threads = thread.Build(s.posts)
}
