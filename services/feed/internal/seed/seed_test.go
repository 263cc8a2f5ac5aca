package seed

import (
	"context"
	"io"
	"testing"
	"time"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/repo/cache"
	"blogfeed/services/feed/internal/repo/filestore"
	"blogfeed/services/feed/internal/repo/inmemory"
	"blogfeed/services/feed/internal/repo/persistent"
	"blogfeed/services/feed/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSeeder(store *inmemory.Store) *Seeder {
	log := logger.NewWithWriter(io.Discard, io.Discard)
	counters := usecase.NewCounterUseCase(store, cache.NewMemoryDirtySet(), cache.NewMemoryLocker(), nil, time.Minute, log)
	posts := usecase.NewPostUseCase(store, store, counters, filestore.NewMemoryStore(), nil, log)
	comments := usecase.NewCommentUseCase(store, nil, log)
	return NewSeeder(store, store, posts, comments, Options{}, log)
}

func TestSeeder_Run(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()

	users, err := newTestSeeder(store).Run(ctx)
	require.NoError(t, err)
	require.Len(t, users, len(testUsers))

	total, err := store.CountPosts(ctx, persistent.PostFilter{})
	require.NoError(t, err)
	assert.Greater(t, total, int64(0))

	posts, err := store.FindPosts(ctx, persistent.PostFilter{}, 0, int(total))
	require.NoError(t, err)
	for _, post := range posts {
		likes, err := store.CountLikes(ctx, persistent.LikeFilter{PostID: post.ID})
		require.NoError(t, err)
		assert.Equal(t, likes, post.LikeCount, "post %s", post.ID)
	}

	comments, err := store.CountComments(ctx, persistent.CommentFilter{})
	require.NoError(t, err)
	assert.Greater(t, comments, int64(0))
}

func TestSeeder_RunTwiceReusesUsers(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	seeder := newTestSeeder(store)

	first, err := seeder.Run(ctx)
	require.NoError(t, err)
	before, err := store.CountPosts(ctx, persistent.PostFilter{})
	require.NoError(t, err)

	second, err := seeder.Run(ctx)
	require.NoError(t, err)
	after, err := store.CountPosts(ctx, persistent.PostFilter{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, after)
}
