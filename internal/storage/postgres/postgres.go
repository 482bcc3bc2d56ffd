// Package postgres implements the storage.Backend interface on PostgreSQL.
// Writes go through the queue-based GORM backend.
package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/drivetrain/internal/config"
	"github.com/OCAP2/drivetrain/internal/database"
	"github.com/OCAP2/drivetrain/internal/storage/gormstore"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
// If DB is nil, Init connects using Config.
type Dependencies struct {
	DB            *gorm.DB
	Config        config.DBConfig
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// Backend is the Postgres recording backend.
type Backend struct {
	*gormstore.Backend
	deps Dependencies
}

// New creates a new Postgres storage backend. Init must be called before use.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init connects if needed, then migrates and starts the DB writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.deps.Config)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
		b.deps.Logger.Info("Connected to Postgres", "host", b.deps.Config.Host, "database", b.deps.Config.Database)
	}

	b.Backend = gormstore.New(gormstore.Dependencies{
		DB:            b.deps.DB,
		Logger:        b.deps.Logger,
		FlushInterval: b.deps.FlushInterval,
	})
	return b.Backend.Init()
}

// Close stops the writer and flushes queued rows. Safe to call without Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
