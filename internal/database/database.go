// Package database is the build journal: one row per build and one per
// source outcome, kept in SQLite.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // Required by the library implementation.
)

type Database struct {
	db  *sql.DB
	log *slog.Logger
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

func New(ctx context.Context, dbPath string, log *slog.Logger) (*Database, error) {
	dbFile, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open DB file: %w", err)
	}

	if err = migrateUp(ctx, dbFile, dbPath, log); err != nil {
		if closeErr := dbFile.Close(); closeErr != nil {
			log.ErrorContext(ctx, "Failed to close DB file",
				"error", closeErr,
				"dbPath", dbPath)
		}
		return nil, err
	}

	return &Database{db: dbFile, log: log}, nil
}

func migrateUp(ctx context.Context, dbFile *sql.DB, dbPath string, log *slog.Logger) error {
	dbInstance, err := sqlite3.WithInstance(dbFile, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create DB instance: %w", err)
	}

	srcInstance, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create source instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcInstance, "sqlite3", dbInstance)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	migrateErr := m.Up()

	version, dirty, versionErr := m.Version()
	fields := []any{
		"dbPath", dbPath,
	}

	if versionErr == nil {
		fields = append(fields, "version", version, "dirty", dirty)
	} else if !errors.Is(versionErr, migrate.ErrNilVersion) {
		log.WarnContext(ctx, "Failed to fetch migration version",
			"error", versionErr,
			"dbPath", dbPath)
	}

	if migrateErr != nil {
		if !errors.Is(migrateErr, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", migrateErr)
		}

		log.InfoContext(ctx, "No migrations to apply", fields...)
	} else {
		log.InfoContext(ctx, "DB is migrated", fields...)
	}

	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}
