package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/deweblabs/depost/pkg/internal/models"
	"github.com/deweblabs/depost/pkg/internal/overlay"
)

// EnterView arms the dwell timer for a post that just became visible. The
// view only counts after the post stays visible for the full dwell time,
// and counts at most once per principal.
func (s *Session) EnterView(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, pending := s.viewTimers[postID]; pending {
		return
	}

	idx := s.indexOf(postID)
	if idx < 0 {
		return
	}
	if s.posts[idx].Counters.ViewedByPrincipal(s.principal.Email) {
		return
	}

	s.viewTimers[postID] = time.AfterFunc(s.dwell, func() {
		s.recordView(postID)
	})
}

// LeaveView cancels a pending view before the dwell elapses. The scheduled
// publish is simply never issued; nothing is rolled back because nothing
// happened yet.
func (s *Session) LeaveView(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.viewTimers[postID]; ok {
		timer.Stop()
		delete(s.viewTimers, postID)
	}
}

func (s *Session) recordView(postID string) {
	s.mu.Lock()

	if _, pending := s.viewTimers[postID]; !pending {
		// Cancelled between firing and acquiring the lock.
		s.mu.Unlock()
		return
	}
	delete(s.viewTimers, postID)

	idx := s.indexOf(postID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	current := s.posts[idx].Counters
	if current.ViewedByPrincipal(s.principal.Email) {
		s.mu.Unlock()
		return
	}

	likedBy := append([]string{}, current.LikedBy...)
	viewedBy := append(append([]string{}, current.ViewedBy...), s.principal.Email)

	s.applyCounters(idx, models.Counters{
		Likes:    len(likedBy),
		Views:    len(viewedBy),
		LikedBy:  likedBy,
		ViewedBy: viewedBy,
	})
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := overlay.Publish(ctx, s.pins, postID, likedBy, viewedBy); err != nil {
		log.Error().Err(err).Str("session", s.id).Str("post", postID).
			Msg("An error occurred when publishing a view overlay.")
	}
}

// indexOf finds a post in the current view. Caller holds the lock.
func (s *Session) indexOf(postID string) int {
	return lo.IndexOf(lo.Map(s.posts, func(item models.Post, _ int) string {
		return item.ID
	}), postID)
}
