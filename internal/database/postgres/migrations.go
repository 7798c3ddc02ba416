package postgres

import (
	"context"
	"embed"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func (p *Pool) migrator() database.Migrator {
	return database.Migrator{
		DB:  p.db,
		FS:  migrationsFS,
		Dir: "migrations",
		CreateTable: `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version VARCHAR(255) PRIMARY KEY,
				applied_at TIMESTAMPTZ DEFAULT NOW()
			)
		`,
		Record: "INSERT INTO schema_migrations (version) VALUES ($1)",
	}
}

// Migrate applies all pending migrations automatically on startup
func (p *Pool) Migrate(ctx context.Context) error {
	return p.migrator().Migrate(ctx)
}

// MigrationsApplied returns the list of applied migrations
func (p *Pool) MigrationsApplied(ctx context.Context) ([]string, error) {
	return p.migrator().Applied(ctx)
}
