package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/repo/persistent"

	"github.com/google/uuid"
)

type likeKey struct {
	postID string
	userID string
}

type state struct {
	posts    map[string]entity.Post
	comments map[string]entity.Comment
	likes    map[likeKey]entity.Like
	users    map[string]persistent.NewUser
}

func newState() *state {
	return &state{
		posts:    make(map[string]entity.Post),
		comments: make(map[string]entity.Comment),
		likes:    make(map[likeKey]entity.Like),
		users:    make(map[string]persistent.NewUser),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.posts {
		c.posts[k] = v
	}
	for k, v := range st.comments {
		c.comments[k] = v
	}
	for k, v := range st.likes {
		c.likes[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	return c
}

// Store keeps every relation in process memory. Each call holds the mutex
// for its own duration only; WithTx works on a copy that is swapped in on
// success, holding the write lock for the whole transaction.
type Store struct {
	mu   sync.RWMutex
	st   *state
	inTx bool
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		st: newState(),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

var (
	_ persistent.Store      = (*Store)(nil)
	_ persistent.UserWriter = (*Store)(nil)
)

func (s *Store) read() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) CreateUser(ctx context.Context, user persistent.NewUser) (string, error) {
	defer s.write()()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	for _, existing := range s.st.users {
		if existing.Username == user.Username || existing.ID == user.ID {
			return "", fmt.Errorf("%w: user %s exists", entity.ErrConflict, user.Username)
		}
	}
	s.st.users[user.ID] = user
	return user.ID, nil
}

// sortPosts orders newest first, ties by id ascending.
func sortPosts(posts []*entity.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
}

func page[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *Store) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	defer s.read()()

	post, ok := s.st.posts[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &post, nil
}

func (s *Store) FindPosts(ctx context.Context, filter persistent.PostFilter, skip, limit int) ([]*entity.Post, error) {
	defer s.read()()

	posts := make([]*entity.Post, 0, len(s.st.posts))
	for _, p := range s.st.posts {
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		post := p
		posts = append(posts, &post)
	}
	sortPosts(posts)
	return page(posts, skip, limit), nil
}

func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) (map[string]*entity.Post, error) {
	defer s.read()()

	result := make(map[string]*entity.Post, len(ids))
	for _, id := range ids {
		if p, ok := s.st.posts[id]; ok {
			post := p
			result[id] = &post
		}
	}
	return result, nil
}

func (s *Store) InsertPost(ctx context.Context, post *entity.Post) error {
	defer s.write()()

	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	if _, ok := s.st.posts[post.ID]; ok {
		return fmt.Errorf("%w: post %s exists", entity.ErrConflict, post.ID)
	}
	s.st.posts[post.ID] = *post
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch entity.PostPatch) (*entity.Post, error) {
	defer s.write()()

	post, ok := s.st.posts[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	if patch.Title != nil {
		post.Title = *patch.Title
	}
	if patch.Body != nil {
		post.Body = *patch.Body
	}
	if patch.ImageRef != nil {
		post.ImageRef = *patch.ImageRef
	}
	post.LastModifiedAt = patch.LastModifiedAt
	s.st.posts[id] = post
	return &post, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	defer s.write()()

	if _, ok := s.st.posts[id]; !ok {
		return entity.ErrNotFound
	}
	delete(s.st.posts, id)
	return nil
}

func (s *Store) CountPosts(ctx context.Context, filter persistent.PostFilter) (int64, error) {
	defer s.read()()

	var count int64
	for _, p := range s.st.posts {
		if filter.AuthorID == "" || p.AuthorID == filter.AuthorID {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*entity.Comment, error) {
	defer s.read()()

	comment, ok := s.st.comments[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &comment, nil
}

func matchComment(c entity.Comment, filter persistent.CommentFilter) bool {
	return (filter.PostID == "" || c.PostID == filter.PostID) &&
		(filter.AuthorID == "" || c.AuthorID == filter.AuthorID)
}

func (s *Store) FindComments(ctx context.Context, filter persistent.CommentFilter, skip, limit int) ([]*entity.Comment, error) {
	defer s.read()()

	comments := make([]*entity.Comment, 0)
	for _, c := range s.st.comments {
		if !matchComment(c, filter) {
			continue
		}
		comment := c
		comments = append(comments, &comment)
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	return page(comments, skip, limit), nil
}

func (s *Store) InsertComment(ctx context.Context, comment *entity.Comment) error {
	defer s.write()()

	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = s.now()
	}
	if _, ok := s.st.comments[comment.ID]; ok {
		return fmt.Errorf("%w: comment %s exists", entity.ErrConflict, comment.ID)
	}
	s.st.comments[comment.ID] = *comment
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	defer s.write()()

	if _, ok := s.st.comments[id]; !ok {
		return entity.ErrNotFound
	}
	delete(s.st.comments, id)
	return nil
}

func (s *Store) DeleteComments(ctx context.Context, filter persistent.CommentFilter) (int64, error) {
	if filter == (persistent.CommentFilter{}) {
		return 0, fmt.Errorf("%w: refusing to delete every comment", entity.ErrInvalid)
	}
	defer s.write()()

	var n int64
	for id, c := range s.st.comments {
		if matchComment(c, filter) {
			delete(s.st.comments, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountComments(ctx context.Context, filter persistent.CommentFilter) (int64, error) {
	defer s.read()()

	var n int64
	for _, c := range s.st.comments {
		if matchComment(c, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountCommentsByPost(ctx context.Context, postIDs []string) (map[string]int64, error) {
	defer s.read()()

	counts := make(map[string]int64, len(postIDs))
	for _, id := range postIDs {
		counts[id] = 0
	}
	for _, c := range s.st.comments {
		if _, ok := counts[c.PostID]; ok {
			counts[c.PostID]++
		}
	}
	return counts, nil
}

func (s *Store) GetLike(ctx context.Context, postID, userID string) (*entity.Like, error) {
	defer s.read()()

	like, ok := s.st.likes[likeKey{postID, userID}]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &like, nil
}

func matchLike(l entity.Like, filter persistent.LikeFilter) bool {
	return (filter.PostID == "" || l.PostID == filter.PostID) &&
		(filter.UserID == "" || l.UserID == filter.UserID)
}

func (s *Store) FindLikes(ctx context.Context, filter persistent.LikeFilter, skip, limit int) ([]*entity.Like, error) {
	defer s.read()()

	likes := make([]*entity.Like, 0)
	for _, l := range s.st.likes {
		if !matchLike(l, filter) {
			continue
		}
		like := l
		likes = append(likes, &like)
	}
	sort.Slice(likes, func(i, j int) bool {
		if !likes[i].CreatedAt.Equal(likes[j].CreatedAt) {
			return likes[i].CreatedAt.After(likes[j].CreatedAt)
		}
		return likes[i].ID < likes[j].ID
	})
	return page(likes, skip, limit), nil
}

func (s *Store) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	defer s.read()()

	liked := make(map[string]bool)
	for _, id := range postIDs {
		if _, ok := s.st.likes[likeKey{id, userID}]; ok {
			liked[id] = true
		}
	}
	return liked, nil
}

func (s *Store) InsertLike(ctx context.Context, like *entity.Like) error {
	defer s.write()()

	key := likeKey{like.PostID, like.UserID}
	if _, ok := s.st.likes[key]; ok {
		return fmt.Errorf("%w: like (%s, %s) exists", entity.ErrConflict, like.PostID, like.UserID)
	}
	if like.ID == "" {
		like.ID = uuid.New().String()
	}
	if like.CreatedAt.IsZero() {
		like.CreatedAt = s.now()
	}
	s.st.likes[key] = *like
	return nil
}

func (s *Store) DeleteLike(ctx context.Context, postID, userID string) error {
	defer s.write()()

	key := likeKey{postID, userID}
	if _, ok := s.st.likes[key]; !ok {
		return entity.ErrNotFound
	}
	delete(s.st.likes, key)
	return nil
}

func (s *Store) DeleteLikes(ctx context.Context, filter persistent.LikeFilter) (int64, error) {
	if filter == (persistent.LikeFilter{}) {
		return 0, fmt.Errorf("%w: refusing to delete every like", entity.ErrInvalid)
	}
	defer s.write()()

	var n int64
	for key, l := range s.st.likes {
		if matchLike(l, filter) {
			delete(s.st.likes, key)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountLikes(ctx context.Context, filter persistent.LikeFilter) (int64, error) {
	defer s.read()()

	var n int64
	for _, l := range s.st.likes {
		if matchLike(l, filter) {
			n++
		}
	}
	return n, nil
}

func toProfile(u persistent.NewUser) *entity.UserProfile {
	return &entity.UserProfile{
		ID:              u.ID,
		Username:        u.Username,
		DisplayName:     strings.TrimSpace(u.FirstName + " " + u.LastName),
		ProfileImageRef: u.ProfileImageRef,
	}
}

func (s *Store) GetProfile(ctx context.Context, id string) (*entity.UserProfile, error) {
	defer s.read()()

	user, ok := s.st.users[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return toProfile(user), nil
}

func (s *Store) GetProfileByUsername(ctx context.Context, username string) (*entity.UserProfile, error) {
	defer s.read()()

	for _, user := range s.st.users {
		if user.Username == username {
			return toProfile(user), nil
		}
	}
	return nil, entity.ErrNotFound
}

func (s *Store) GetProfiles(ctx context.Context, ids []string) (map[string]*entity.UserProfile, error) {
	defer s.read()()

	profiles := make(map[string]*entity.UserProfile, len(ids))
	for _, id := range ids {
		if user, ok := s.st.users[id]; ok {
			profiles[id] = toProfile(user)
		}
	}
	return profiles, nil
}

func (s *Store) IncrementLikeCount(ctx context.Context, postID string, delta int64) error {
	defer s.write()()

	post, ok := s.st.posts[postID]
	if !ok {
		return entity.ErrNotFound
	}
	post.LikeCount += delta
	s.st.posts[postID] = post
	return nil
}

func (s *Store) RecountLikes(ctx context.Context, postID string) (int64, error) {
	defer s.write()()

	post, ok := s.st.posts[postID]
	if !ok {
		return 0, entity.ErrNotFound
	}
	var count int64
	for key := range s.st.likes {
		if key.postID == postID {
			count++
		}
	}
	post.LikeCount = count
	s.st.posts[postID] = post
	return count, nil
}

func (s *Store) ListPostIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	defer s.read()()

	ids := make([]string, 0)
	for id := range s.st.posts {
		if afterID == "" || id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return page(ids, 0, limit), nil
}

func (s *Store) DeleteOrphans(ctx context.Context) (int64, int64, error) {
	defer s.write()()

	var comments, likes int64
	for id, c := range s.st.comments {
		if _, ok := s.st.posts[c.PostID]; !ok {
			delete(s.st.comments, id)
			comments++
		}
	}
	for key := range s.st.likes {
		if _, ok := s.st.posts[key.postID]; !ok {
			delete(s.st.likes, key)
			likes++
		}
	}
	return comments, likes, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx persistent.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{st: s.st.clone(), inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}
