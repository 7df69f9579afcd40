package models

import "time"

// Tag keys and values carried on every pin. The substrate offers no query
// language beyond key/value matching, so these tags are the only thing the
// adapter has to classify pins with.
const (
	TagKeyType       = "type"
	TagKeyAuthor     = "author"
	TagKeyTags       = "tags"
	TagKeyMentions   = "mentions"
	TagKeyParentID   = "parentId"
	TagKeyPostID     = "postId"
	TagKeyUpdatedAt  = "updatedAt"
	TagKeyLikes      = "likes"
	TagKeyViews      = "views"
	TagKeyLikedBy    = "likedBy"
	TagKeyViewedBy   = "viewedBy"
	TagKeyOriginalID = "originalId"

	TagTypePost     = "post"
	TagTypeMetadata = "metadata"
)

// CounterOverlay is one immutable snapshot of a post's counters. Every
// like, unlike or first view pins a fresh one; superseded overlays stay in
// the substrate and are simply ignored once a newer one exists.
type CounterOverlay struct {
	ID           string    `json:"id"`
	TargetPostID string    `json:"post_id"`
	Likes        int       `json:"likes"`
	Views        int       `json:"views"`
	LikedBy      []string  `json:"liked_by"`
	ViewedBy     []string  `json:"viewed_by"`
	CreatedAt    time.Time `json:"created_at"`
}

func (v CounterOverlay) ToCounters() Counters {
	return Counters{
		Likes:    v.Likes,
		Views:    v.Views,
		LikedBy:  v.LikedBy,
		ViewedBy: v.ViewedBy,
	}
}
