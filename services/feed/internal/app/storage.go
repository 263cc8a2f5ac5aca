package app

import (
	"fmt"

	"blogfeed/pkg/config"
	"blogfeed/pkg/database"
	"blogfeed/pkg/logger"
	"blogfeed/services/feed/internal/repo/inmemory"
	"blogfeed/services/feed/internal/repo/persistent"

	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Storage is the opened storage adapter for the configured DB_DRIVER.
type Storage struct {
	Store persistent.Store
	Users persistent.UserWriter

	driver string
	db     *gorm.DB
}

// OpenStorage connects the configured driver. Postgres schemas come from
// goose migrations; sqlite is auto-migrated on open.
func OpenStorage(cfg *config.Config, log *logger.Logger) (*Storage, error) {
	switch cfg.DBDriver {
	case DriverMemory:
		store := inmemory.NewStore()
		log.Warn("[STORE] Using in-memory storage, data is lost on exit")
		return &Storage{
			Store:  persistent.NewRetryingStore(store, cfg.StorageRetryBackoff, log),
			Users:  store,
			driver: DriverMemory,
		}, nil

	case DriverSQLite:
		db, err := database.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := persistent.AutoMigrate(db); err != nil {
			closeDB(db, log)
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
		return newGormStorage(DriverSQLite, db, cfg, log), nil

	case DriverPostgres, "":
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			return nil, err
		}
		return newGormStorage(DriverPostgres, db, cfg, log), nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func newGormStorage(driver string, db *gorm.DB, cfg *config.Config, log *logger.Logger) *Storage {
	return &Storage{
		Store:  persistent.NewRetryingStore(persistent.NewStore(db), cfg.StorageRetryBackoff, log),
		Users:  persistent.NewUserWriter(db),
		driver: driver,
		db:     db,
	}
}

func (s *Storage) Driver() string {
	return s.driver
}

func (s *Storage) Close(log *logger.Logger) {
	if s.db != nil {
		closeDB(s.db, log)
	}
}

func closeDB(db *gorm.DB, log *logger.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("Error closing database: %v", err)
	}
}
