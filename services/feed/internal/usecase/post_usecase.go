package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/repo/persistent"

	"github.com/google/uuid"
)

const maxTitleLength = 255

type PostUseCase interface {
	CreatePost(ctx context.Context, authorID, title, body string, image *entity.ImageUpload) (*entity.Post, error)
	EditPost(ctx context.Context, postID, requesterID string, edit entity.PostEdit) (*entity.Post, error)
	DeletePost(ctx context.Context, postID, requesterID string) error
	ToggleLike(ctx context.Context, postID, userID string) (*entity.ToggleResult, error)
}

type postUseCase struct {
	store     persistent.Store
	profiles  ProfileResolver
	counters  CounterUseCase
	files     FileStore
	publisher EventPublisher
	now       func() time.Time
	logger    *logger.Logger
}

func NewPostUseCase(
	store persistent.Store,
	profiles ProfileResolver,
	counters CounterUseCase,
	files FileStore,
	publisher EventPublisher,
	logger *logger.Logger,
) PostUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &postUseCase{
		store:     store,
		profiles:  profiles,
		counters:  counters,
		files:     files,
		publisher: publisher,
		now:       utcNow,
		logger:    logger,
	}
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", entity.ErrInvalid)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", fmt.Errorf("%w: title is longer than %d characters", entity.ErrInvalid, maxTitleLength)
	}
	return title, nil
}

func normalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: body is required", entity.ErrInvalid)
	}
	return body, nil
}

func (uc *postUseCase) CreatePost(ctx context.Context, authorID, title, body string, image *entity.ImageUpload) (*entity.Post, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	body, err = normalizeBody(body)
	if err != nil {
		return nil, err
	}

	author, err := uc.profiles.GetProfile(ctx, authorID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", entity.ErrUserNotFound, authorID)
		}
		return nil, err
	}

	var imageRef string
	if image != nil {
		imageRef, err = uc.files.StoreImage(ctx, *image)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
	}

	now := uc.now()
	post := &entity.Post{
		ID:                uuid.New().String(),
		Title:             title,
		Body:              body,
		AuthorID:          author.ID,
		AuthorDisplayName: author.Name(),
		ImageRef:          imageRef,
		CreatedAt:         now,
		LastModifiedAt:    now,
	}

	if err := uc.store.InsertPost(ctx, post); err != nil {
		if imageRef != "" {
			uc.deleteImage(imageRef)
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	uc.publish(ctx, entity.EventPostCreated, entity.PostEvent{
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Title:     post.Title,
		Timestamp: now,
	}, 3)

	return post, nil
}

func (uc *postUseCase) ownedPost(ctx context.Context, postID, requesterID string) (*entity.Post, error) {
	post, err := uc.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != requesterID {
		return nil, fmt.Errorf("%w: only the author can change this post", entity.ErrForbidden)
	}
	return post, nil
}

func (uc *postUseCase) EditPost(ctx context.Context, postID, requesterID string, edit entity.PostEdit) (*entity.Post, error) {
	post, err := uc.ownedPost(ctx, postID, requesterID)
	if err != nil {
		return nil, err
	}

	patch := entity.PostPatch{LastModifiedAt: uc.now()}
	if edit.Title != nil {
		title, err := normalizeTitle(*edit.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if edit.Body != nil {
		body, err := normalizeBody(*edit.Body)
		if err != nil {
			return nil, err
		}
		patch.Body = &body
	}

	var newRef string
	switch {
	case edit.Image != nil:
		newRef, err = uc.files.StoreImage(ctx, *edit.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		patch.ImageRef = &newRef
	case edit.RemoveImage:
		patch.ImageRef = &newRef
	}

	updated, err := uc.store.UpdatePost(ctx, postID, patch)
	if err != nil {
		if newRef != "" {
			uc.deleteImage(newRef)
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	if patch.ImageRef != nil && post.ImageRef != "" && post.ImageRef != newRef {
		uc.deleteImage(post.ImageRef)
	}

	return updated, nil
}

func (uc *postUseCase) DeletePost(ctx context.Context, postID, requesterID string) error {
	post, err := uc.ownedPost(ctx, postID, requesterID)
	if err != nil {
		return err
	}

	err = uc.store.WithTx(ctx, func(tx persistent.Store) error {
		if _, err := tx.DeleteComments(ctx, persistent.CommentFilter{PostID: postID}); err != nil {
			return err
		}
		if _, err := tx.DeleteLikes(ctx, persistent.LikeFilter{PostID: postID}); err != nil {
			return err
		}
		return tx.DeletePost(ctx, postID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if post.ImageRef != "" {
		uc.deleteImage(post.ImageRef)
	}

	uc.publish(ctx, entity.EventPostDeleted, entity.PostEvent{
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Timestamp: uc.now(),
	}, 3)

	return nil
}

func (uc *postUseCase) ToggleLike(ctx context.Context, postID, userID string) (*entity.ToggleResult, error) {
	post, err := uc.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	var liked bool
	_, err = uc.store.GetLike(ctx, postID, userID)
	switch {
	case err == nil:
		liked = false
		err = uc.store.DeleteLike(ctx, postID, userID)
		switch {
		case err == nil:
			if err := uc.counters.ApplyLikeDelta(ctx, postID, -1); err != nil {
				return nil, err
			}
		case errors.Is(err, entity.ErrNotFound):
			// Removed by a concurrent toggle, or by an earlier attempt whose
			// reply was lost.
			uc.counters.MarkDirty(postID, "unlike raced")
		default:
			uc.counters.Repair(ctx, postID, "unlike failed")
			return nil, fmt.Errorf("failed to unlike post: %w", err)
		}

	case errors.Is(err, entity.ErrNotFound):
		liked = true
		like := &entity.Like{
			ID:        uuid.New().String(),
			PostID:    postID,
			UserID:    userID,
			CreatedAt: uc.now(),
		}
		err = uc.store.InsertLike(ctx, like)
		switch {
		case err == nil:
			if err := uc.counters.ApplyLikeDelta(ctx, postID, 1); err != nil {
				return nil, err
			}
			if post.AuthorID != userID {
				uc.publish(ctx, entity.EventPostLiked, entity.LikeEvent{
					PostID:    postID,
					UserID:    userID,
					AuthorID:  post.AuthorID,
					Timestamp: like.CreatedAt,
				}, 5)
			}
		case errors.Is(err, entity.ErrConflict):
			// Inserted by a concurrent toggle, or by an earlier attempt whose
			// reply was lost.
			uc.counters.MarkDirty(postID, "like raced")
		default:
			uc.counters.Repair(ctx, postID, "like failed")
			return nil, fmt.Errorf("failed to like post: %w", err)
		}

	default:
		return nil, err
	}

	current, err := uc.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	return &entity.ToggleResult{Liked: liked, LikeCount: current.LikeCount}, nil
}

// deleteImage is best-effort; a leaked object is only logged.
func (uc *postUseCase) deleteImage(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.files.DeleteImage(ctx, ref); err != nil && !errors.Is(err, entity.ErrNotFound) {
		uc.logger.Warn("Failed to delete image %s: %v", ref, err)
	}
}

func (uc *postUseCase) publish(ctx context.Context, routingKey string, payload interface{}, priority int) {
	if err := uc.publisher.Publish(ctx, routingKey, payload, priority); err != nil {
		uc.logger.Warn("[RABBITMQ] Failed to publish %s: %v", routingKey, err)
	}
}
