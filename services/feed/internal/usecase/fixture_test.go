package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/entity"
	"blogfeed/services/feed/internal/repo/cache"
	"blogfeed/services/feed/internal/repo/filestore"
	"blogfeed/services/feed/internal/repo/inmemory"
	"blogfeed/services/feed/internal/repo/persistent"

	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	RoutingKey string
	Payload    interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload interface{}, priority int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{RoutingKey: routingKey, Payload: payload})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.events))
	for i, e := range p.events {
		keys[i] = e.RoutingKey
	}
	return keys
}

// stepClock advances one second per call unless frozen.
type stepClock struct {
	mu     sync.Mutex
	t      time.Time
	frozen bool
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.frozen {
		c.t = c.t.Add(time.Second)
	}
	return c.t
}

func (c *stepClock) Freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

type fixture struct {
	store    *inmemory.Store
	dirty    *cache.MemoryDirtySet
	locker   *cache.MemoryLocker
	files    *filestore.MemoryStore
	events   *recordingPublisher
	clock    *stepClock
	counters CounterUseCase
	feed     FeedUseCase
	posts    PostUseCase
	comments CommentUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil)
}

// newFixtureWithStore wires the usecases over wrap(store) when wrap is set,
// which lets tests inject storage failures.
func newFixtureWithStore(t *testing.T, wrap func(persistent.Store) persistent.Store) *fixture {
	t.Helper()

	f := &fixture{
		store:  inmemory.NewStore(),
		dirty:  cache.NewMemoryDirtySet(),
		locker: cache.NewMemoryLocker(),
		files:  filestore.NewMemoryStore(),
		events: &recordingPublisher{},
		clock:  newStepClock(),
	}

	var store persistent.Store = f.store
	if wrap != nil {
		store = wrap(store)
	}

	log := logger.New()
	f.counters = NewCounterUseCase(store, f.dirty, f.locker, f.events, time.Minute, log)
	f.feed = NewFeedUseCase(store, store, f.counters, 100, log)

	posts := NewPostUseCase(store, store, f.counters, f.files, f.events, log).(*postUseCase)
	posts.now = f.clock.Now
	f.posts = posts

	comments := NewCommentUseCase(store, f.events, log).(*commentUseCase)
	comments.now = f.clock.Now
	f.comments = comments

	return f
}

func (f *fixture) user(t *testing.T, username, first, last string) string {
	t.Helper()
	id, err := f.store.CreateUser(context.Background(), persistent.NewUser{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: first,
		LastName:  last,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) post(t *testing.T, authorID, title string) *entity.Post {
	t.Helper()
	post, err := f.posts.CreatePost(context.Background(), authorID, title, "body of "+title, nil)
	require.NoError(t, err)
	return post
}

func (f *fixture) likeCount(t *testing.T, postID string) (cached int64, actual int64) {
	t.Helper()
	ctx := context.Background()
	post, err := f.store.GetPost(ctx, postID)
	require.NoError(t, err)
	actual, err = f.store.CountLikes(ctx, persistent.LikeFilter{PostID: postID})
	require.NoError(t, err)
	return post.LikeCount, actual
}

// flakyStore fails selected counter operations with a storage outage.
type flakyStore struct {
	persistent.Store

	mu             sync.Mutex
	incrementFails int
	recountFails   int
}

func (s *flakyStore) IncrementLikeCount(ctx context.Context, postID string, delta int64) error {
	s.mu.Lock()
	fail := s.incrementFails > 0
	if fail {
		s.incrementFails--
	}
	s.mu.Unlock()
	if fail {
		return entity.ErrStorageUnavailable
	}
	return s.Store.IncrementLikeCount(ctx, postID, delta)
}

func (s *flakyStore) RecountLikes(ctx context.Context, postID string) (int64, error) {
	s.mu.Lock()
	fail := s.recountFails > 0
	if fail {
		s.recountFails--
	}
	s.mu.Unlock()
	if fail {
		return 0, entity.ErrStorageUnavailable
	}
	return s.Store.RecountLikes(ctx, postID)
}

// lostReplyStore commits selected like writes and then reports an outage,
// as when the connection drops before the reply arrives.
type lostReplyStore struct {
	persistent.Store

	mu         sync.Mutex
	increments int
	inserts    int
}

func (s *lostReplyStore) take(n *int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *n > 0 {
		*n--
		return true
	}
	return false
}

func (s *lostReplyStore) IncrementLikeCount(ctx context.Context, postID string, delta int64) error {
	if err := s.Store.IncrementLikeCount(ctx, postID, delta); err != nil {
		return err
	}
	if s.take(&s.increments) {
		return entity.ErrStorageUnavailable
	}
	return nil
}

func (s *lostReplyStore) InsertLike(ctx context.Context, like *entity.Like) error {
	if err := s.Store.InsertLike(ctx, like); err != nil {
		return err
	}
	if s.take(&s.inserts) {
		return entity.ErrStorageUnavailable
	}
	return nil
}
