package usecase

import (
	"bytes"
	"context"
	"testing"

	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func image(name string) *entity.ImageUpload {
	return &entity.ImageUpload{
		Filename:    name,
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("png bytes")),
	}
}

func TestCreatePost_SnapshotsDisplayName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "ada", "Ada", "Lovelace")
	bare := f.user(t, "anon", "", "")

	post, err := f.posts.CreatePost(ctx, author, "  Engines  ", " notes ", image("diagram.png"))
	require.NoError(t, err)
	assert.Equal(t, "Engines", post.Title)
	assert.Equal(t, "notes", post.Body)
	assert.Equal(t, "Ada Lovelace", post.AuthorDisplayName)
	assert.NotEmpty(t, post.ImageRef)
	assert.Equal(t, post.CreatedAt, post.LastModifiedAt)
	assert.Equal(t, 1, f.files.Len())
	assert.Contains(t, f.events.keys(), entity.EventPostCreated)

	post, err = f.posts.CreatePost(ctx, bare, "t", "b", nil)
	require.NoError(t, err)
	assert.Equal(t, "anon", post.AuthorDisplayName)
}

func TestCreatePost_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "ada", "Ada", "Lovelace")

	_, err := f.posts.CreatePost(ctx, author, "   ", "body", nil)
	assert.ErrorIs(t, err, entity.ErrInvalid)

	_, err = f.posts.CreatePost(ctx, author, "title", "\n\t", nil)
	assert.ErrorIs(t, err, entity.ErrInvalid)

	long := make([]byte, maxTitleLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = f.posts.CreatePost(ctx, author, string(long), "body", nil)
	assert.ErrorIs(t, err, entity.ErrInvalid)

	_, err = f.posts.CreatePost(ctx, "unknown", "title", "body", nil)
	assert.ErrorIs(t, err, entity.ErrUserNotFound)
}

func TestEditPost_OnlyOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "ada", "Ada", "Lovelace")
	other := f.user(t, "grace", "Grace", "Hopper")
	post := f.post(t, author, "draft")

	_, err := f.posts.EditPost(ctx, post.ID, other, entity.PostEdit{Title: strPtr("hijacked")})
	assert.ErrorIs(t, err, entity.ErrForbidden)

	unchanged, err := f.store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", unchanged.Title)

	updated, err := f.posts.EditPost(ctx, post.ID, author, entity.PostEdit{Title: strPtr("final")})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, "body of draft", updated.Body)
	assert.True(t, updated.LastModifiedAt.After(post.LastModifiedAt))
	assert.Equal(t, post.CreatedAt, updated.CreatedAt)

	_, err = f.posts.EditPost(ctx, post.ID, author, entity.PostEdit{Body: strPtr("  ")})
	assert.ErrorIs(t, err, entity.ErrInvalid)

	_, err = f.posts.EditPost(ctx, "missing", author, entity.PostEdit{Title: strPtr("x")})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestEditPost_ReplacesAndRemovesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "ada", "Ada", "Lovelace")

	post, err := f.posts.CreatePost(ctx, author, "pic", "body", image("a.png"))
	require.NoError(t, err)
	oldRef := post.ImageRef

	updated, err := f.posts.EditPost(ctx, post.ID, author, entity.PostEdit{Image: image("b.png")})
	require.NoError(t, err)
	assert.NotEqual(t, oldRef, updated.ImageRef)
	assert.Equal(t, 1, f.files.Len())

	_, _, err = f.files.ReadImage(ctx, oldRef)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	updated, err = f.posts.EditPost(ctx, post.ID, author, entity.PostEdit{RemoveImage: true})
	require.NoError(t, err)
	assert.Empty(t, updated.ImageRef)
	assert.Equal(t, 0, f.files.Len())
}

func TestDeletePost_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "ada", "Ada", "Lovelace")
	reader := f.user(t, "grace", "Grace", "Hopper")

	post, err := f.posts.CreatePost(ctx, author, "bye", "body", image("a.png"))
	require.NoError(t, err)
	other := f.post(t, author, "stays")

	for _, p := range []*entity.Post{post, other} {
		_, err := f.comments.AddComment(ctx, p.ID, reader, "nice")
		require.NoError(t, err)
		_, err = f.posts.ToggleLike(ctx, p.ID, reader)
		require.NoError(t, err)
	}

	assert.ErrorIs(t, f.posts.DeletePost(ctx, post.ID, reader), entity.ErrForbidden)
	require.NoError(t, f.posts.DeletePost(ctx, post.ID, author))

	_, err = f.store.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	comments, err := f.store.CountComments(ctx, persistent.CommentFilter{PostID: post.ID})
	require.NoError(t, err)
	assert.Zero(t, comments)
	likes, err := f.store.CountLikes(ctx, persistent.LikeFilter{PostID: post.ID})
	require.NoError(t, err)
	assert.Zero(t, likes)

	comments, err = f.store.CountComments(ctx, persistent.CommentFilter{PostID: other.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), comments)

	assert.Equal(t, 0, f.files.Len())
	assert.Contains(t, f.events.keys(), entity.EventPostDeleted)

	assert.ErrorIs(t, f.posts.DeletePost(ctx, post.ID, author), entity.ErrNotFound)
}

func TestToggleLike_TwiceIsIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "ada", "Ada", "Lovelace")
	reader := f.user(t, "grace", "Grace", "Hopper")
	post := f.post(t, author, "hello")

	result, err := f.posts.ToggleLike(ctx, post.ID, reader)
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, int64(1), result.LikeCount)

	result, err = f.posts.ToggleLike(ctx, post.ID, reader)
	require.NoError(t, err)
	assert.False(t, result.Liked)
	assert.Equal(t, int64(0), result.LikeCount)

	_, err = f.store.GetLike(ctx, post.ID, reader)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestToggleLike_Events(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "ada", "Ada", "Lovelace")
	reader := f.user(t, "grace", "Grace", "Hopper")
	post := f.post(t, author, "hello")

	_, err := f.posts.ToggleLike(ctx, post.ID, author)
	require.NoError(t, err)
	assert.NotContains(t, f.events.keys(), entity.EventPostLiked)

	_, err = f.posts.ToggleLike(ctx, post.ID, reader)
	require.NoError(t, err)
	assert.Contains(t, f.events.keys(), entity.EventPostLiked)
}

func TestToggleLike_MissingPost(t *testing.T) {
	f := newFixture(t)
	reader := f.user(t, "grace", "Grace", "Hopper")

	_, err := f.posts.ToggleLike(context.Background(), "missing", reader)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
