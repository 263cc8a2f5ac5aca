package persistent

import (
	"context"
	"fmt"

	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter selects posts. The zero value matches every post.
type PostFilter struct {
	AuthorID string
}

type CommentFilter struct {
	PostID   string
	AuthorID string
}

type LikeFilter struct {
	PostID string
	UserID string
}

// Store is typed access to the post, comment, like and user relations.
//
// Posts are always returned newest first with ties broken by id ascending.
// Comments are returned oldest first, likes most recent first.
// Lookups of a missing id and updates or deletes that touch no row fail with
// entity.ErrNotFound. Connectivity loss surfaces as entity.ErrStorageUnavailable
// and unique index violations as entity.ErrConflict.
type Store interface {
	GetPost(ctx context.Context, id string) (*entity.Post, error)
	FindPosts(ctx context.Context, filter PostFilter, skip, limit int) ([]*entity.Post, error)
	GetPostsByIDs(ctx context.Context, ids []string) (map[string]*entity.Post, error)
	InsertPost(ctx context.Context, post *entity.Post) error
	UpdatePost(ctx context.Context, id string, patch entity.PostPatch) (*entity.Post, error)
	DeletePost(ctx context.Context, id string) error
	CountPosts(ctx context.Context, filter PostFilter) (int64, error)

	GetComment(ctx context.Context, id string) (*entity.Comment, error)
	FindComments(ctx context.Context, filter CommentFilter, skip, limit int) ([]*entity.Comment, error)
	InsertComment(ctx context.Context, comment *entity.Comment) error
	DeleteComment(ctx context.Context, id string) error
	DeleteComments(ctx context.Context, filter CommentFilter) (int64, error)
	CountComments(ctx context.Context, filter CommentFilter) (int64, error)
	CountCommentsByPost(ctx context.Context, postIDs []string) (map[string]int64, error)

	GetLike(ctx context.Context, postID, userID string) (*entity.Like, error)
	FindLikes(ctx context.Context, filter LikeFilter, skip, limit int) ([]*entity.Like, error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	InsertLike(ctx context.Context, like *entity.Like) error
	DeleteLike(ctx context.Context, postID, userID string) error
	DeleteLikes(ctx context.Context, filter LikeFilter) (int64, error)
	CountLikes(ctx context.Context, filter LikeFilter) (int64, error)

	GetProfile(ctx context.Context, id string) (*entity.UserProfile, error)
	GetProfileByUsername(ctx context.Context, username string) (*entity.UserProfile, error)
	GetProfiles(ctx context.Context, ids []string) (map[string]*entity.UserProfile, error)

	// IncrementLikeCount adds delta to the cached like count in one statement.
	IncrementLikeCount(ctx context.Context, postID string, delta int64) error
	// RecountLikes overwrites the cached like count with the number of like rows.
	RecountLikes(ctx context.Context, postID string) (int64, error)
	// ListPostIDs pages through post ids in ascending order after afterID.
	ListPostIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	// DeleteOrphans removes comments and likes whose post no longer exists.
	DeleteOrphans(ctx context.Context) (comments int64, likes int64, err error)

	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// AutoMigrate creates the schema for backends not managed by goose.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.UserModel{},
		&model.PostModel{},
		&model.CommentModel{},
		&model.LikeModel{},
	)
}

func (r *gormStore) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	if !validID(id) {
		return nil, entity.ErrNotFound
	}

	var postModel model.PostModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&postModel).Error; err != nil {
		return nil, translateError(err)
	}
	return ToPostEntity(&postModel), nil
}

func (r *gormStore) FindPosts(ctx context.Context, filter PostFilter, skip, limit int) ([]*entity.Post, error) {
	query := r.db.WithContext(ctx).Model(&model.PostModel{})
	if filter.AuthorID != "" {
		if !validID(filter.AuthorID) {
			return []*entity.Post{}, nil
		}
		query = query.Where("author_id = ?", filter.AuthorID)
	}

	var postModels []model.PostModel
	err := query.
		Order("created_at DESC").
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&postModels).Error
	if err != nil {
		return nil, translateError(err)
	}

	posts := make([]*entity.Post, len(postModels))
	for i := range postModels {
		posts[i] = ToPostEntity(&postModels[i])
	}
	return posts, nil
}

func (r *gormStore) GetPostsByIDs(ctx context.Context, ids []string) (map[string]*entity.Post, error) {
	result := make(map[string]*entity.Post, len(ids))
	ids = validIDs(ids)
	if len(ids) == 0 {
		return result, nil
	}

	var postModels []model.PostModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&postModels).Error; err != nil {
		return nil, translateError(err)
	}
	for i := range postModels {
		result[postModels[i].ID] = ToPostEntity(&postModels[i])
	}
	return result, nil
}

func (r *gormStore) InsertPost(ctx context.Context, post *entity.Post) error {
	postModel := ToPostModel(post)
	if err := r.db.WithContext(ctx).Create(postModel).Error; err != nil {
		return translateError(err)
	}
	post.ID = postModel.ID
	post.CreatedAt = postModel.CreatedAt
	return nil
}

func (r *gormStore) UpdatePost(ctx context.Context, id string, patch entity.PostPatch) (*entity.Post, error) {
	if !validID(id) {
		return nil, entity.ErrNotFound
	}

	updates := map[string]interface{}{
		"last_modified_at": patch.LastModifiedAt,
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Body != nil {
		updates["body"] = *patch.Body
	}
	if patch.ImageRef != nil {
		updates["image_ref"] = *patch.ImageRef
	}

	result := r.db.WithContext(ctx).Model(&model.PostModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, entity.ErrNotFound
	}

	return r.GetPost(ctx, id)
}

func (r *gormStore) DeletePost(ctx context.Context, id string) error {
	if !validID(id) {
		return entity.ErrNotFound
	}

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PostModel{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *gormStore) CountPosts(ctx context.Context, filter PostFilter) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.PostModel{})
	if filter.AuthorID != "" {
		if !validID(filter.AuthorID) {
			return 0, nil
		}
		query = query.Where("author_id = ?", filter.AuthorID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func (r *gormStore) GetComment(ctx context.Context, id string) (*entity.Comment, error) {
	if !validID(id) {
		return nil, entity.ErrNotFound
	}

	var commentModel model.CommentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&commentModel).Error; err != nil {
		return nil, translateError(err)
	}
	return ToCommentEntity(&commentModel), nil
}

// commentScope returns nil when the filter can match nothing.
func (r *gormStore) commentScope(ctx context.Context, filter CommentFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.CommentModel{})
	if filter.PostID != "" {
		if !validID(filter.PostID) {
			return nil
		}
		query = query.Where("post_id = ?", filter.PostID)
	}
	if filter.AuthorID != "" {
		if !validID(filter.AuthorID) {
			return nil
		}
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	return query
}

func (r *gormStore) FindComments(ctx context.Context, filter CommentFilter, skip, limit int) ([]*entity.Comment, error) {
	query := r.commentScope(ctx, filter)
	if query == nil {
		return []*entity.Comment{}, nil
	}

	var commentModels []model.CommentModel
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&commentModels).Error
	if err != nil {
		return nil, translateError(err)
	}

	comments := make([]*entity.Comment, len(commentModels))
	for i := range commentModels {
		comments[i] = ToCommentEntity(&commentModels[i])
	}
	return comments, nil
}

func (r *gormStore) InsertComment(ctx context.Context, comment *entity.Comment) error {
	commentModel := ToCommentModel(comment)
	if err := r.db.WithContext(ctx).Create(commentModel).Error; err != nil {
		return translateError(err)
	}
	comment.ID = commentModel.ID
	comment.CreatedAt = commentModel.CreatedAt
	return nil
}

func (r *gormStore) DeleteComment(ctx context.Context, id string) error {
	if !validID(id) {
		return entity.ErrNotFound
	}

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.CommentModel{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *gormStore) DeleteComments(ctx context.Context, filter CommentFilter) (int64, error) {
	if filter == (CommentFilter{}) {
		return 0, fmt.Errorf("%w: refusing to delete every comment", entity.ErrInvalid)
	}
	query := r.commentScope(ctx, filter)
	if query == nil {
		return 0, nil
	}

	result := query.Delete(&model.CommentModel{})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *gormStore) CountComments(ctx context.Context, filter CommentFilter) (int64, error) {
	query := r.commentScope(ctx, filter)
	if query == nil {
		return 0, nil
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func (r *gormStore) CountCommentsByPost(ctx context.Context, postIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(postIDs))
	for _, id := range postIDs {
		counts[id] = 0
	}

	ids := validIDs(postIDs)
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		PostID string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.CommentModel{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}

	for _, row := range rows {
		counts[row.PostID] = row.Total
	}
	return counts, nil
}

func (r *gormStore) GetLike(ctx context.Context, postID, userID string) (*entity.Like, error) {
	if !validID(postID) || !validID(userID) {
		return nil, entity.ErrNotFound
	}

	var likeModel model.LikeModel
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&likeModel).Error
	if err != nil {
		return nil, translateError(err)
	}
	return ToLikeEntity(&likeModel), nil
}

func (r *gormStore) likeScope(ctx context.Context, filter LikeFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.LikeModel{})
	if filter.PostID != "" {
		if !validID(filter.PostID) {
			return nil
		}
		query = query.Where("post_id = ?", filter.PostID)
	}
	if filter.UserID != "" {
		if !validID(filter.UserID) {
			return nil
		}
		query = query.Where("user_id = ?", filter.UserID)
	}
	return query
}

func (r *gormStore) FindLikes(ctx context.Context, filter LikeFilter, skip, limit int) ([]*entity.Like, error) {
	query := r.likeScope(ctx, filter)
	if query == nil {
		return []*entity.Like{}, nil
	}

	var likeModels []model.LikeModel
	err := query.
		Order("created_at DESC").
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&likeModels).Error
	if err != nil {
		return nil, translateError(err)
	}

	likes := make([]*entity.Like, len(likeModels))
	for i := range likeModels {
		likes[i] = ToLikeEntity(&likeModels[i])
	}
	return likes, nil
}

func (r *gormStore) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool)
	ids := validIDs(postIDs)
	if !validID(userID) || len(ids) == 0 {
		return liked, nil
	}

	var found []string
	err := r.db.WithContext(ctx).
		Model(&model.LikeModel{}).
		Where("user_id = ? AND post_id IN ?", userID, ids).
		Pluck("post_id", &found).Error
	if err != nil {
		return nil, translateError(err)
	}

	for _, id := range found {
		liked[id] = true
	}
	return liked, nil
}

func (r *gormStore) InsertLike(ctx context.Context, like *entity.Like) error {
	likeModel := ToLikeModel(like)
	if err := r.db.WithContext(ctx).Create(likeModel).Error; err != nil {
		return translateError(err)
	}
	like.ID = likeModel.ID
	like.CreatedAt = likeModel.CreatedAt
	return nil
}

func (r *gormStore) DeleteLike(ctx context.Context, postID, userID string) error {
	if !validID(postID) || !validID(userID) {
		return entity.ErrNotFound
	}

	result := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&model.LikeModel{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *gormStore) DeleteLikes(ctx context.Context, filter LikeFilter) (int64, error) {
	if filter == (LikeFilter{}) {
		return 0, fmt.Errorf("%w: refusing to delete every like", entity.ErrInvalid)
	}
	query := r.likeScope(ctx, filter)
	if query == nil {
		return 0, nil
	}

	result := query.Delete(&model.LikeModel{})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *gormStore) CountLikes(ctx context.Context, filter LikeFilter) (int64, error) {
	query := r.likeScope(ctx, filter)
	if query == nil {
		return 0, nil
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func (r *gormStore) GetProfile(ctx context.Context, id string) (*entity.UserProfile, error) {
	if !validID(id) {
		return nil, entity.ErrNotFound
	}

	var userModel model.UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&userModel).Error; err != nil {
		return nil, translateError(err)
	}
	return ToUserProfile(&userModel), nil
}

func (r *gormStore) GetProfileByUsername(ctx context.Context, username string) (*entity.UserProfile, error) {
	var userModel model.UserModel
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&userModel).Error; err != nil {
		return nil, translateError(err)
	}
	return ToUserProfile(&userModel), nil
}

func (r *gormStore) GetProfiles(ctx context.Context, ids []string) (map[string]*entity.UserProfile, error) {
	profiles := make(map[string]*entity.UserProfile, len(ids))
	ids = validIDs(ids)
	if len(ids) == 0 {
		return profiles, nil
	}

	var userModels []model.UserModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&userModels).Error; err != nil {
		return nil, translateError(err)
	}
	for i := range userModels {
		profiles[userModels[i].ID] = ToUserProfile(&userModels[i])
	}
	return profiles, nil
}

func (r *gormStore) IncrementLikeCount(ctx context.Context, postID string, delta int64) error {
	if !validID(postID) {
		return entity.ErrNotFound
	}

	result := r.db.WithContext(ctx).
		Model(&model.PostModel{}).
		Where("id = ?", postID).
		UpdateColumn("like_count", clause.Expr{SQL: "like_count + ?", Vars: []interface{}{delta}})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *gormStore) RecountLikes(ctx context.Context, postID string) (int64, error) {
	if !validID(postID) {
		return 0, entity.ErrNotFound
	}

	result := r.db.WithContext(ctx).Exec(
		"UPDATE posts SET like_count = (SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) WHERE id = ?",
		postID,
	)
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, entity.ErrNotFound
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PostModel{}).
		Where("id = ?", postID).
		Select("like_count").
		Scan(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

func (r *gormStore) ListPostIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	query := r.db.WithContext(ctx).Model(&model.PostModel{})
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}

	var ids []string
	if err := query.Order("id ASC").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}

func (r *gormStore) DeleteOrphans(ctx context.Context) (int64, int64, error) {
	comments := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM posts WHERE posts.id = comments.post_id)").
		Delete(&model.CommentModel{})
	if comments.Error != nil {
		return 0, 0, translateError(comments.Error)
	}

	likes := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM posts WHERE posts.id = likes.post_id)").
		Delete(&model.LikeModel{})
	if likes.Error != nil {
		return comments.RowsAffected, 0, translateError(likes.Error)
	}

	return comments.RowsAffected, likes.RowsAffected, nil
}

func (r *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return translateError(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	}))
}
