package usecase

import (
	"context"
	"errors"
	"fmt"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/repo/persistent"
)

type FeedUseCase interface {
	GetPostDetail(ctx context.Context, postID, viewerID string) (*entity.PostDetail, error)
	GetGlobalFeed(ctx context.Context, viewerID string, pageIndex, pageSize int) (*entity.FeedPage, error)
	GetAuthorFeed(ctx context.Context, username string, pageIndex, pageSize int, requesterID string) (*entity.AuthorFeed, error)
	GetLikedFeed(ctx context.Context, userID string, pageIndex, pageSize int) (*entity.FeedPage, error)
	ListComments(ctx context.Context, postID string, pageIndex, pageSize int) (*entity.CommentPage, error)
	GetPostForEdit(ctx context.Context, postID, requesterID string) (*entity.EditView, error)
}

type feedUseCase struct {
	store       persistent.Store
	profiles    ProfileResolver
	counters    CounterUseCase
	maxPageSize int
	logger      *logger.Logger
}

func NewFeedUseCase(
	store persistent.Store,
	profiles ProfileResolver,
	counters CounterUseCase,
	maxPageSize int,
	logger *logger.Logger,
) FeedUseCase {
	return &feedUseCase{
		store:       store,
		profiles:    profiles,
		counters:    counters,
		maxPageSize: maxPageSize,
		logger:      logger,
	}
}

func (uc *feedUseCase) validatePage(pageIndex, pageSize int) error {
	if pageIndex < 0 {
		return fmt.Errorf("%w: pageIndex must be >= 0", entity.ErrInvalid)
	}
	if pageSize < 1 || pageSize > uc.maxPageSize {
		return fmt.Errorf("%w: pageSize must be between 1 and %d", entity.ErrInvalid, uc.maxPageSize)
	}
	return nil
}

// trimPage drops the extra row fetched past pageSize and reports whether
// there was one.
func trimPage[T any](rows []T, pageSize int) ([]T, bool) {
	if len(rows) > pageSize {
		return rows[:pageSize], true
	}
	return rows, false
}

// authorView falls back to the snapshot name when the profile is gone.
func authorView(post *entity.Post, profile *entity.UserProfile) *entity.UserProfile {
	if profile != nil {
		return profile
	}
	return &entity.UserProfile{ID: post.AuthorID, DisplayName: post.AuthorDisplayName}
}

func (uc *feedUseCase) GetPostDetail(ctx context.Context, postID, viewerID string) (*entity.PostDetail, error) {
	post, err := uc.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	liked := false
	if viewerID != "" {
		_, err := uc.store.GetLike(ctx, postID, viewerID)
		switch {
		case err == nil:
			liked = true
		case !errors.Is(err, entity.ErrNotFound):
			return nil, err
		}
	}

	commentCount, err := uc.counters.CommentCount(ctx, postID)
	if err != nil {
		return nil, err
	}

	var profile *entity.UserProfile
	profile, err = uc.profiles.GetProfile(ctx, post.AuthorID)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		return nil, err
	}

	return &entity.PostDetail{
		Post:         post,
		Author:       authorView(post, profile),
		CommentCount: commentCount,
		LikeCount:    post.LikeCount,
		LikeStatus:   liked,
	}, nil
}

// composeItems joins comment counts, author profiles and the viewer's likes
// onto a page of posts. The number of store calls does not depend on the page size.
func (uc *feedUseCase) composeItems(ctx context.Context, posts []*entity.Post, viewerID string) ([]*entity.PostDetail, error) {
	items := make([]*entity.PostDetail, 0, len(posts))
	if len(posts) == 0 {
		return items, nil
	}

	postIDs := make([]string, len(posts))
	authorIDs := make([]string, 0, len(posts))
	seenAuthors := make(map[string]struct{}, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
		if _, ok := seenAuthors[p.AuthorID]; !ok {
			seenAuthors[p.AuthorID] = struct{}{}
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}

	commentCounts, err := uc.counters.CommentCounts(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	profiles, err := uc.profiles.GetProfiles(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	liked := map[string]bool{}
	if viewerID != "" {
		liked, err = uc.store.LikedPostIDs(ctx, viewerID, postIDs)
		if err != nil {
			return nil, err
		}
	}

	for _, p := range posts {
		items = append(items, &entity.PostDetail{
			Post:         p,
			Author:       authorView(p, profiles[p.AuthorID]),
			CommentCount: commentCounts[p.ID],
			LikeCount:    p.LikeCount,
			LikeStatus:   liked[p.ID],
		})
	}
	return items, nil
}

func (uc *feedUseCase) postsPage(ctx context.Context, filter persistent.PostFilter, viewerID string, pageIndex, pageSize int) (*entity.FeedPage, error) {
	if err := uc.validatePage(pageIndex, pageSize); err != nil {
		return nil, err
	}

	posts, err := uc.store.FindPosts(ctx, filter, pageIndex*pageSize, pageSize+1)
	if err != nil {
		return nil, err
	}
	posts, more := trimPage(posts, pageSize)

	items, err := uc.composeItems(ctx, posts, viewerID)
	if err != nil {
		return nil, err
	}

	return &entity.FeedPage{
		Items:     items,
		PageIndex: pageIndex,
		PageSize:  pageSize,
		HasMore:   more,
	}, nil
}

func (uc *feedUseCase) GetGlobalFeed(ctx context.Context, viewerID string, pageIndex, pageSize int) (*entity.FeedPage, error) {
	return uc.postsPage(ctx, persistent.PostFilter{}, viewerID, pageIndex, pageSize)
}

func (uc *feedUseCase) GetAuthorFeed(ctx context.Context, username string, pageIndex, pageSize int, requesterID string) (*entity.AuthorFeed, error) {
	if err := uc.validatePage(pageIndex, pageSize); err != nil {
		return nil, err
	}

	author, err := uc.profiles.GetProfileByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", entity.ErrUserNotFound, username)
		}
		return nil, err
	}

	page, err := uc.postsPage(ctx, persistent.PostFilter{AuthorID: author.ID}, requesterID, pageIndex, pageSize)
	if err != nil {
		return nil, err
	}

	return &entity.AuthorFeed{
		Author:    author,
		Page:      page,
		IsOwnFeed: requesterID != "" && requesterID == author.ID,
	}, nil
}

func (uc *feedUseCase) GetLikedFeed(ctx context.Context, userID string, pageIndex, pageSize int) (*entity.FeedPage, error) {
	if err := uc.validatePage(pageIndex, pageSize); err != nil {
		return nil, err
	}

	filter := persistent.LikeFilter{UserID: userID}
	likes, err := uc.store.FindLikes(ctx, filter, pageIndex*pageSize, pageSize+1)
	if err != nil {
		return nil, err
	}
	likes, more := trimPage(likes, pageSize)

	postIDs := make([]string, len(likes))
	for i, l := range likes {
		postIDs[i] = l.PostID
	}
	byID, err := uc.store.GetPostsByIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	// Keep the like order; skip likes whose post is gone.
	posts := make([]*entity.Post, 0, len(likes))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}

	items, err := uc.composeItems(ctx, posts, userID)
	if err != nil {
		return nil, err
	}

	return &entity.FeedPage{
		Items:     items,
		PageIndex: pageIndex,
		PageSize:  pageSize,
		HasMore:   more,
	}, nil
}

func (uc *feedUseCase) ListComments(ctx context.Context, postID string, pageIndex, pageSize int) (*entity.CommentPage, error) {
	if err := uc.validatePage(pageIndex, pageSize); err != nil {
		return nil, err
	}

	if _, err := uc.store.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	filter := persistent.CommentFilter{PostID: postID}
	comments, err := uc.store.FindComments(ctx, filter, pageIndex*pageSize, pageSize+1)
	if err != nil {
		return nil, err
	}
	comments, more := trimPage(comments, pageSize)

	authorIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.AuthorID)
	}
	profiles, err := uc.profiles.GetProfiles(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	items := make([]*entity.CommentView, len(comments))
	for i, c := range comments {
		author := profiles[c.AuthorID]
		if author == nil {
			author = &entity.UserProfile{ID: c.AuthorID}
		}
		items[i] = &entity.CommentView{Comment: c, Author: author}
	}

	return &entity.CommentPage{
		Items:     items,
		PageIndex: pageIndex,
		PageSize:  pageSize,
		HasMore:   more,
	}, nil
}

func (uc *feedUseCase) GetPostForEdit(ctx context.Context, postID, requesterID string) (*entity.EditView, error) {
	post, err := uc.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != requesterID {
		return nil, fmt.Errorf("%w: only the author can edit this post", entity.ErrForbidden)
	}

	return &entity.EditView{
		PostID:   post.ID,
		Title:    post.Title,
		Body:     post.Body,
		ImageRef: post.ImageRef,
	}, nil
}
