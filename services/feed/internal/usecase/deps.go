package usecase

import (
	"context"
	"io"
	"time"

	"blogfeed/services/feed/internal/entity"
)

// FileStore holds post images. Refs are opaque to callers.
type FileStore interface {
	StoreImage(ctx context.Context, upload entity.ImageUpload) (string, error)
	ReadImage(ctx context.Context, ref string) (io.ReadCloser, string, error)
	DeleteImage(ctx context.Context, ref string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}, priority int) error
}

// DirtySet records posts whose cached like count needs a recount.
type DirtySet interface {
	Add(ctx context.Context, postIDs ...string) error
	Drain(ctx context.Context) ([]string, error)
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// ProfileResolver reads profiles owned by the identity service.
type ProfileResolver interface {
	GetProfile(ctx context.Context, id string) (*entity.UserProfile, error)
	GetProfileByUsername(ctx context.Context, username string) (*entity.UserProfile, error)
	GetProfiles(ctx context.Context, ids []string) (map[string]*entity.UserProfile, error)
}

type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, routingKey string, payload interface{}, priority int) error {
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
