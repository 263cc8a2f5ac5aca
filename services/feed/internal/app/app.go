package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogfeed/pkg/config"
	"blogfeed/pkg/jwt"
	"blogfeed/pkg/logger"
	"blogfeed/pkg/queue"
	"blogfeed/services/feed/internal/seed"
)

type App struct {
	cfg        *config.Config
	log        *logger.Logger
	backends   *Backends
	jwtService *jwt.Service
	httpServer *http.Server

	// stops the sweeper and the recount consumer
	cancel context.CancelFunc
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()

	backends, err := OpenBackends(cfg, log)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:        cfg,
		log:        log,
		backends:   backends,
		jwtService: jwt.NewService(cfg.JWTSecret),
	}, nil
}

func (a *App) Run() error {
	uc := a.backends.UseCases(a.cfg, a.log)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	storage := a.backends.Storage
	if storage.Driver() == DriverMemory {
		seeder := seed.NewSeeder(storage.Users, storage.Store, uc.Posts, uc.Comments, seed.Options{}, a.log)
		if _, err := seeder.Run(ctx); err != nil {
			a.log.Error("Failed to seed in-memory store: %v", err)
		}
	}

	go uc.Counters.RunSweeper(ctx, a.cfg.SweepInterval)

	if a.backends.QueueClient != nil {
		err := a.backends.QueueClient.Consume(ctx, queue.RecountQueueName, func(body []byte) error {
			return uc.Counters.HandleRecountTask(ctx, body)
		})
		if err != nil {
			a.log.Error("[RABBITMQ] Failed to start recount consumer: %v", err)
		}
	}

	r := NewRouter(a.cfg, a.log, uc, a.backends.Files, a.jwtService, a.backends.RedisClient)

	a.httpServer = &http.Server{
		Addr:    ":" + a.cfg.ServerPort,
		Handler: r,
	}

	go func() {
		a.log.Info("Feed service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func (a *App) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down feed service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var shutdownErr error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.log.Error("Server forced to shutdown: %v", err)
			shutdownErr = err
		}
	}

	if a.cancel != nil {
		a.cancel()
	}

	a.backends.Close(a.log)

	a.log.Info("Feed service exited")
	return shutdownErr
}
