package app

import (
	"blogfeed/pkg/cache"
	"blogfeed/pkg/config"
	"blogfeed/pkg/logger"
	"blogfeed/pkg/queue"
	"blogfeed/pkg/s3"
	repocache "blogfeed/services/feed/internal/repo/cache"
	"blogfeed/services/feed/internal/repo/filestore"
	"blogfeed/services/feed/internal/repo/persistent"
	"blogfeed/services/feed/internal/usecase"

	"github.com/redis/go-redis/v9"
)

// Backends are the external systems behind the usecases. Redis and RabbitMQ
// are optional; storage and the file store are not.
type Backends struct {
	Storage     *Storage
	RedisClient *redis.Client
	QueueClient *queue.Client
	Publisher   usecase.EventPublisher
	Files       usecase.FileStore
}

func OpenBackends(cfg *config.Config, log *logger.Logger) (*Backends, error) {
	storage, err := OpenStorage(cfg, log)
	if err != nil {
		log.Error("Failed to open storage: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v (counters fall back to process-local tracking)", err)
		redisClient = nil
	}

	files, err := newFileStore(cfg, log)
	if err != nil {
		log.Error("Failed to create S3 client: %v", err)
		storage.Close(log)
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, err
	}

	queueClient, publisher := newPublisher(cfg, log)

	return &Backends{
		Storage:     storage,
		RedisClient: redisClient,
		QueueClient: queueClient,
		Publisher:   publisher,
		Files:       files,
	}, nil
}

func (b *Backends) UseCases(cfg *config.Config, log *logger.Logger) *UseCases {
	return NewUseCases(cfg, log, b.Storage.Store, b.RedisClient, b.Publisher, b.Files)
}

func (b *Backends) Close(log *logger.Logger) {
	if b.QueueClient != nil {
		if err := b.QueueClient.Close(); err != nil {
			log.Error("Error closing RabbitMQ: %v", err)
		}
	}
	if b.RedisClient != nil {
		if err := b.RedisClient.Close(); err != nil {
			log.Error("Error closing Redis: %v", err)
		}
	}
	b.Storage.Close(log)
}

type UseCases struct {
	Counters usecase.CounterUseCase
	Feed     usecase.FeedUseCase
	Posts    usecase.PostUseCase
	Comments usecase.CommentUseCase
}

// NewUseCases wires the usecase layer. A nil redisClient falls back to
// process-local dirty tracking and locking.
func NewUseCases(
	cfg *config.Config,
	log *logger.Logger,
	store persistent.Store,
	redisClient *redis.Client,
	publisher usecase.EventPublisher,
	files usecase.FileStore,
) *UseCases {
	var (
		dirty  usecase.DirtySet
		locker usecase.Locker
	)
	if redisClient != nil {
		dirty = repocache.NewRedisDirtySet(redisClient)
		locker = repocache.NewRedisLocker(redisClient)
	} else {
		dirty = repocache.NewMemoryDirtySet()
		locker = repocache.NewMemoryLocker()
	}

	counters := usecase.NewCounterUseCase(store, dirty, locker, publisher, 2*cfg.SweepInterval, log)

	return &UseCases{
		Counters: counters,
		Feed:     usecase.NewFeedUseCase(store, store, counters, cfg.MaxPageSize, log),
		Posts:    usecase.NewPostUseCase(store, store, counters, files, publisher, log),
		Comments: usecase.NewCommentUseCase(store, publisher, log),
	}
}

// newPublisher returns the RabbitMQ client, or a no-op publisher when the
// broker is unreachable.
func newPublisher(cfg *config.Config, log *logger.Logger) (*queue.Client, usecase.EventPublisher) {
	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		return nil, usecase.NopPublisher{}
	}
	return queueClient, queueClient
}

// newFileStore uses S3 when credentials or an endpoint are configured.
func newFileStore(cfg *config.Config, log *logger.Logger) (usecase.FileStore, error) {
	if cfg.AWSEndpoint == "" && cfg.AWSAccessKeyID == "" {
		log.Warn("[STORE] No S3 configuration, keeping images in memory")
		return filestore.NewMemoryStore(), nil
	}

	s3Client, err := s3.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return filestore.NewS3Store(s3Client), nil
}
