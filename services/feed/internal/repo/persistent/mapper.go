package persistent

import (
	"strings"

	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/model"
)

func ToPostEntity(m *model.PostModel) *entity.Post {
	if m == nil {
		return nil
	}

	return &entity.Post{
		ID:                m.ID,
		Title:             m.Title,
		Body:              m.Body,
		AuthorID:          m.AuthorID,
		AuthorDisplayName: m.AuthorDisplayName,
		ImageRef:          m.ImageRef,
		LikeCount:         m.LikeCount,
		CreatedAt:         m.CreatedAt.UTC(),
		LastModifiedAt:    m.LastModifiedAt.UTC(),
	}
}

func ToPostModel(e *entity.Post) *model.PostModel {
	if e == nil {
		return nil
	}

	return &model.PostModel{
		ID:                e.ID,
		Title:             e.Title,
		Body:              e.Body,
		AuthorID:          e.AuthorID,
		AuthorDisplayName: e.AuthorDisplayName,
		ImageRef:          e.ImageRef,
		LikeCount:         e.LikeCount,
		CreatedAt:         e.CreatedAt,
		LastModifiedAt:    e.LastModifiedAt,
	}
}

func ToCommentEntity(m *model.CommentModel) *entity.Comment {
	if m == nil {
		return nil
	}

	return &entity.Comment{
		ID:        m.ID,
		PostID:    m.PostID,
		AuthorID:  m.AuthorID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func ToCommentModel(e *entity.Comment) *model.CommentModel {
	if e == nil {
		return nil
	}

	return &model.CommentModel{
		ID:        e.ID,
		PostID:    e.PostID,
		AuthorID:  e.AuthorID,
		Text:      e.Text,
		CreatedAt: e.CreatedAt,
	}
}

func ToLikeEntity(m *model.LikeModel) *entity.Like {
	if m == nil {
		return nil
	}

	return &entity.Like{
		ID:        m.ID,
		PostID:    m.PostID,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func ToLikeModel(e *entity.Like) *model.LikeModel {
	if e == nil {
		return nil
	}

	return &model.LikeModel{
		ID:        e.ID,
		PostID:    e.PostID,
		UserID:    e.UserID,
		CreatedAt: e.CreatedAt,
	}
}

// ToUserProfile projects a users row. The display name is "First Last".
func ToUserProfile(m *model.UserModel) *entity.UserProfile {
	if m == nil {
		return nil
	}

	return &entity.UserProfile{
		ID:              m.ID,
		Username:        m.Username,
		DisplayName:     strings.TrimSpace(m.FirstName + " " + m.LastName),
		ProfileImageRef: m.ProfileImageRef,
	}
}
