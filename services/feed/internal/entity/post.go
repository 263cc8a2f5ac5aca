package entity

import (
	"io"
	"time"
)

type Post struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Body              string    `json:"body"`
	AuthorID          string    `json:"author_id"`
	AuthorDisplayName string    `json:"author_display_name"`
	ImageRef          string    `json:"image_ref,omitempty"`
	LikeCount         int64     `json:"like_count"`
	CreatedAt         time.Time `json:"created_at"`
	LastModifiedAt    time.Time `json:"last_modified_at"`
}

// PostPatch carries the mutable columns of a post. Nil fields are left as is;
// an empty ImageRef clears the image.
type PostPatch struct {
	Title          *string
	Body           *string
	ImageRef       *string
	LastModifiedAt time.Time
}

// PostEdit is the owner-facing edit request.
type PostEdit struct {
	Title       *string
	Body        *string
	Image       *ImageUpload
	RemoveImage bool
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.ReadSeeker
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Like struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
