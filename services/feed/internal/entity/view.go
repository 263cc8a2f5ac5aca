package entity

type PostDetail struct {
	Post         *Post        `json:"post"`
	Author       *UserProfile `json:"author"`
	CommentCount int64        `json:"comment_count"`
	LikeCount    int64        `json:"like_count"`
	LikeStatus   bool         `json:"like_status"`
}

type FeedPage struct {
	Items     []*PostDetail `json:"items"`
	PageIndex int           `json:"page_index"`
	PageSize  int           `json:"page_size"`
	HasMore   bool          `json:"has_more"`
}

type AuthorFeed struct {
	Author    *UserProfile `json:"author"`
	Page      *FeedPage    `json:"page"`
	IsOwnFeed bool         `json:"is_own_feed"`
}

type CommentView struct {
	Comment *Comment     `json:"comment"`
	Author  *UserProfile `json:"author"`
}

type CommentPage struct {
	Items     []*CommentView `json:"items"`
	PageIndex int            `json:"page_index"`
	PageSize  int            `json:"page_size"`
	HasMore   bool           `json:"has_more"`
}

// EditView is what the owner sees when opening a post for editing.
type EditView struct {
	PostID   string `json:"post_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageRef string `json:"image_ref,omitempty"`
}

type ToggleResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

type SweepReport struct {
	Skipped        bool  `json:"skipped"`
	Recounted      int   `json:"recounted"`
	Failed         int   `json:"failed"`
	OrphanComments int64 `json:"orphan_comments"`
	OrphanLikes    int64 `json:"orphan_likes"`
}
