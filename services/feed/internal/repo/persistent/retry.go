package persistent

import (
	"context"
	"errors"
	"time"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/entity"
)

// retryingStore retries a call once after backoff when it fails with
// entity.ErrStorageUnavailable. Transactions are retried as a whole; the
// store handed to the transaction body does not retry on its own.
//
// InsertLike, DeleteLike and IncrementLikeCount pass straight through: a
// failed reply does not say whether the write committed, and repeating it
// would double the effect. Callers repair the counter instead.
type retryingStore struct {
	inner   Store
	backoff time.Duration
	logger  *logger.Logger
}

func NewRetryingStore(inner Store, backoff time.Duration, log *logger.Logger) Store {
	return &retryingStore{inner: inner, backoff: backoff, logger: log}
}

func (s *retryingStore) do(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, entity.ErrStorageUnavailable) {
		return err
	}

	s.logger.Warn("[STORE] %s failed, retrying in %s: %v", op, s.backoff, err)

	timer := time.NewTimer(s.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return err
	case <-timer.C:
	}

	if err := fn(); err != nil {
		if errors.Is(err, entity.ErrStorageUnavailable) {
			s.logger.Error("[STORE] %s failed after retry: %v", op, err)
		}
		return err
	}
	return nil
}

func (s *retryingStore) GetPost(ctx context.Context, id string) (post *entity.Post, err error) {
	err = s.do(ctx, "GetPost", func() error {
		post, err = s.inner.GetPost(ctx, id)
		return err
	})
	return post, err
}

func (s *retryingStore) FindPosts(ctx context.Context, filter PostFilter, skip, limit int) (posts []*entity.Post, err error) {
	err = s.do(ctx, "FindPosts", func() error {
		posts, err = s.inner.FindPosts(ctx, filter, skip, limit)
		return err
	})
	return posts, err
}

func (s *retryingStore) GetPostsByIDs(ctx context.Context, ids []string) (posts map[string]*entity.Post, err error) {
	err = s.do(ctx, "GetPostsByIDs", func() error {
		posts, err = s.inner.GetPostsByIDs(ctx, ids)
		return err
	})
	return posts, err
}

func (s *retryingStore) InsertPost(ctx context.Context, post *entity.Post) error {
	return s.do(ctx, "InsertPost", func() error {
		return s.inner.InsertPost(ctx, post)
	})
}

func (s *retryingStore) UpdatePost(ctx context.Context, id string, patch entity.PostPatch) (post *entity.Post, err error) {
	err = s.do(ctx, "UpdatePost", func() error {
		post, err = s.inner.UpdatePost(ctx, id, patch)
		return err
	})
	return post, err
}

func (s *retryingStore) DeletePost(ctx context.Context, id string) error {
	return s.do(ctx, "DeletePost", func() error {
		return s.inner.DeletePost(ctx, id)
	})
}

func (s *retryingStore) CountPosts(ctx context.Context, filter PostFilter) (count int64, err error) {
	err = s.do(ctx, "CountPosts", func() error {
		count, err = s.inner.CountPosts(ctx, filter)
		return err
	})
	return count, err
}

func (s *retryingStore) GetComment(ctx context.Context, id string) (comment *entity.Comment, err error) {
	err = s.do(ctx, "GetComment", func() error {
		comment, err = s.inner.GetComment(ctx, id)
		return err
	})
	return comment, err
}

func (s *retryingStore) FindComments(ctx context.Context, filter CommentFilter, skip, limit int) (comments []*entity.Comment, err error) {
	err = s.do(ctx, "FindComments", func() error {
		comments, err = s.inner.FindComments(ctx, filter, skip, limit)
		return err
	})
	return comments, err
}

func (s *retryingStore) InsertComment(ctx context.Context, comment *entity.Comment) error {
	return s.do(ctx, "InsertComment", func() error {
		return s.inner.InsertComment(ctx, comment)
	})
}

func (s *retryingStore) DeleteComment(ctx context.Context, id string) error {
	return s.do(ctx, "DeleteComment", func() error {
		return s.inner.DeleteComment(ctx, id)
	})
}

func (s *retryingStore) DeleteComments(ctx context.Context, filter CommentFilter) (n int64, err error) {
	err = s.do(ctx, "DeleteComments", func() error {
		n, err = s.inner.DeleteComments(ctx, filter)
		return err
	})
	return n, err
}

func (s *retryingStore) CountComments(ctx context.Context, filter CommentFilter) (count int64, err error) {
	err = s.do(ctx, "CountComments", func() error {
		count, err = s.inner.CountComments(ctx, filter)
		return err
	})
	return count, err
}

func (s *retryingStore) CountCommentsByPost(ctx context.Context, postIDs []string) (counts map[string]int64, err error) {
	err = s.do(ctx, "CountCommentsByPost", func() error {
		counts, err = s.inner.CountCommentsByPost(ctx, postIDs)
		return err
	})
	return counts, err
}

func (s *retryingStore) GetLike(ctx context.Context, postID, userID string) (like *entity.Like, err error) {
	err = s.do(ctx, "GetLike", func() error {
		like, err = s.inner.GetLike(ctx, postID, userID)
		return err
	})
	return like, err
}

func (s *retryingStore) FindLikes(ctx context.Context, filter LikeFilter, skip, limit int) (likes []*entity.Like, err error) {
	err = s.do(ctx, "FindLikes", func() error {
		likes, err = s.inner.FindLikes(ctx, filter, skip, limit)
		return err
	})
	return likes, err
}

func (s *retryingStore) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (liked map[string]bool, err error) {
	err = s.do(ctx, "LikedPostIDs", func() error {
		liked, err = s.inner.LikedPostIDs(ctx, userID, postIDs)
		return err
	})
	return liked, err
}

func (s *retryingStore) InsertLike(ctx context.Context, like *entity.Like) error {
	return s.inner.InsertLike(ctx, like)
}

func (s *retryingStore) DeleteLike(ctx context.Context, postID, userID string) error {
	return s.inner.DeleteLike(ctx, postID, userID)
}

func (s *retryingStore) DeleteLikes(ctx context.Context, filter LikeFilter) (n int64, err error) {
	err = s.do(ctx, "DeleteLikes", func() error {
		n, err = s.inner.DeleteLikes(ctx, filter)
		return err
	})
	return n, err
}

func (s *retryingStore) CountLikes(ctx context.Context, filter LikeFilter) (count int64, err error) {
	err = s.do(ctx, "CountLikes", func() error {
		count, err = s.inner.CountLikes(ctx, filter)
		return err
	})
	return count, err
}

func (s *retryingStore) GetProfile(ctx context.Context, id string) (profile *entity.UserProfile, err error) {
	err = s.do(ctx, "GetProfile", func() error {
		profile, err = s.inner.GetProfile(ctx, id)
		return err
	})
	return profile, err
}

func (s *retryingStore) GetProfileByUsername(ctx context.Context, username string) (profile *entity.UserProfile, err error) {
	err = s.do(ctx, "GetProfileByUsername", func() error {
		profile, err = s.inner.GetProfileByUsername(ctx, username)
		return err
	})
	return profile, err
}

func (s *retryingStore) GetProfiles(ctx context.Context, ids []string) (profiles map[string]*entity.UserProfile, err error) {
	err = s.do(ctx, "GetProfiles", func() error {
		profiles, err = s.inner.GetProfiles(ctx, ids)
		return err
	})
	return profiles, err
}

func (s *retryingStore) IncrementLikeCount(ctx context.Context, postID string, delta int64) error {
	return s.inner.IncrementLikeCount(ctx, postID, delta)
}

func (s *retryingStore) RecountLikes(ctx context.Context, postID string) (count int64, err error) {
	err = s.do(ctx, "RecountLikes", func() error {
		count, err = s.inner.RecountLikes(ctx, postID)
		return err
	})
	return count, err
}

func (s *retryingStore) ListPostIDs(ctx context.Context, afterID string, limit int) (ids []string, err error) {
	err = s.do(ctx, "ListPostIDs", func() error {
		ids, err = s.inner.ListPostIDs(ctx, afterID, limit)
		return err
	})
	return ids, err
}

func (s *retryingStore) DeleteOrphans(ctx context.Context) (comments int64, likes int64, err error) {
	err = s.do(ctx, "DeleteOrphans", func() error {
		comments, likes, err = s.inner.DeleteOrphans(ctx)
		return err
	})
	return comments, likes, err
}

func (s *retryingStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.do(ctx, "WithTx", func() error {
		return s.inner.WithTx(ctx, fn)
	})
}
