package models

import (
	"strings"
	"time"
)

const (
	// Maximum content length for a root post and for a reply.
	PostContentLimit  = 500
	ReplyContentLimit = 280

	// A root post carries at most this many tags.
	PostTagLimit = 5

	// Body shown in place of a pin that could not be fetched or decoded.
	UnavailableContent = "Post content unavailable"
)

// Post is the resolved view of a single pinned blob. The identity and all
// immutable fields come from the blob itself; the counters are resolved
// at read time from the overlay stream and may change between loads.
type Post struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Language  string    `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Tags      []string  `json:"tags"`
	Mentions  []string  `json:"mentions"`
	ParentID  string    `json:"parent_id,omitempty"`

	Counters Counters `json:"counters"`

	// Unavailable marks a placeholder produced from a pin whose content
	// could not be fetched or decoded. The rest of the feed is unaffected.
	Unavailable bool `json:"unavailable,omitempty"`
}

// IsRoot reports whether the post starts a thread of its own.
func (p Post) IsRoot() bool {
	return len(p.ParentID) == 0
}

// Counters is the overlay-resolved mutable-looking state of a post.
type Counters struct {
	Likes    int      `json:"likes"`
	Views    int      `json:"views"`
	LikedBy  []string `json:"liked_by"`
	ViewedBy []string `json:"viewed_by"`
}

func (c Counters) LikedByPrincipal(email string) bool {
	for _, item := range c.LikedBy {
		if strings.EqualFold(item, email) {
			return true
		}
	}
	return false
}

func (c Counters) ViewedByPrincipal(email string) bool {
	for _, item := range c.ViewedBy {
		if strings.EqualFold(item, email) {
			return true
		}
	}
	return false
}
