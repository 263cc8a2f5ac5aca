package main

import (
	"context"
	"flag"
	"fmt"

	"blogfeed/pkg/config"
	"blogfeed/pkg/jwt"
	"blogfeed/pkg/logger"
	app "blogfeed/services/feed/internal/app"
	"blogfeed/services/feed/internal/seed"
)

func main() {
	var fetchImages bool
	flag.BoolVar(&fetchImages, "images", false, "Attach pictures from cataas.com to seeded posts")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	if cfg.DBDriver == app.DriverMemory {
		log.Error("Seeding DB_DRIVER=memory is pointless; the service seeds itself in that mode")
		return
	}

	backends, err := app.OpenBackends(cfg, log)
	if err != nil {
		panic(err)
	}
	defer backends.Close(log)

	uc := backends.UseCases(cfg, log)
	seeder := seed.NewSeeder(
		backends.Storage.Users,
		backends.Storage.Store,
		uc.Posts,
		uc.Comments,
		seed.Options{FetchImages: fetchImages},
		log,
	)

	users, err := seeder.Run(context.Background())
	if err != nil {
		log.Error("Failed to seed database: %v", err)
		panic(err)
	}

	jwtService := jwt.NewService(cfg.JWTSecret)
	fmt.Printf("Seeded users (password %q):\n", seed.DefaultPassword)
	for _, u := range users {
		token, err := jwtService.GenerateToken(u.ID, u.Username)
		if err != nil {
			log.Error("Failed to issue token for %s: %v", u.Username, err)
			continue
		}
		fmt.Printf("  %-10s %s\n    Bearer %s\n", u.Username, u.ID, token)
	}

	log.Info("Database seeded successfully!")
}
