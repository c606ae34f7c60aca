package persistence

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the embedded goose migrations rooted at their directory.
func Migrations() (fs.FS, error) {
	return fs.Sub(migrationFiles, "migrations")
}

// RunMigrations applies pending migrations with goose. The pool is borrowed
// through database/sql for the duration of the run.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		return ErrNotConfigured
	}

	fsys, err := Migrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("applied migration",
			zap.String("file", r.Source.Path),
			zap.Int64("version", r.Source.Version),
			zap.Duration("took", r.Duration))
	}
	logger.Info("migrations up to date", zap.Int("applied", len(results)))
	return nil
}
