package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/repo/persistent"

	"github.com/google/uuid"
)

type CommentUseCase interface {
	AddComment(ctx context.Context, postID, authorID, text string) (*entity.Comment, error)
	// DeleteComment is allowed for the comment's author and the post's owner.
	DeleteComment(ctx context.Context, commentID, requesterID string) error
}

type commentUseCase struct {
	store     persistent.Store
	publisher EventPublisher
	now       func() time.Time
	logger    *logger.Logger
}

func NewCommentUseCase(store persistent.Store, publisher EventPublisher, logger *logger.Logger) CommentUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &commentUseCase{
		store:     store,
		publisher: publisher,
		now:       utcNow,
		logger:    logger,
	}
}

func (uc *commentUseCase) AddComment(ctx context.Context, postID, authorID, text string) (*entity.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", entity.ErrInvalid)
	}

	post, err := uc.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		ID:        uuid.New().String(),
		PostID:    post.ID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: uc.now(),
	}
	if err := uc.store.InsertComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	event := entity.CommentEvent{
		CommentID: comment.ID,
		PostID:    post.ID,
		AuthorID:  authorID,
		PostOwner: post.AuthorID,
		Timestamp: comment.CreatedAt,
	}
	if err := uc.publisher.Publish(ctx, entity.EventCommentAdded, event, 5); err != nil {
		uc.logger.Warn("[RABBITMQ] Failed to publish %s: %v", entity.EventCommentAdded, err)
	}

	return comment, nil
}

func (uc *commentUseCase) DeleteComment(ctx context.Context, commentID, requesterID string) error {
	comment, err := uc.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}

	if comment.AuthorID != requesterID {
		post, err := uc.store.GetPost(ctx, comment.PostID)
		switch {
		case errors.Is(err, entity.ErrNotFound):
			return fmt.Errorf("%w: only the comment author can delete it", entity.ErrForbidden)
		case err != nil:
			return err
		case post.AuthorID != requesterID:
			return fmt.Errorf("%w: only the comment or post author can delete it", entity.ErrForbidden)
		}
	}

	if err := uc.store.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}
