package entity

import "time"

// Routing keys on the feed_events exchange.
const (
	EventPostCreated  = "post.created"
	EventPostDeleted  = "post.deleted"
	EventPostLiked    = "post.liked"
	EventCommentAdded = "comment.added"
	EventRecount      = "counter.recount"
)

type PostEvent struct {
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type LikeEvent struct {
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	AuthorID  string    `json:"author_id"`
	Timestamp time.Time `json:"timestamp"`
}

type CommentEvent struct {
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	PostOwner string    `json:"post_owner"`
	Timestamp time.Time `json:"timestamp"`
}

type RecountTask struct {
	PostID string `json:"post_id"`
	Reason string `json:"reason,omitempty"`
}
