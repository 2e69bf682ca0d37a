package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"invoice-backend/internal/shared/telemetry"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations brings the invoices schema up to the newest embedded version
// and logs the version it moved from and to. A nil database is a no-op so the
// memory backend shares the same startup path.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: dialect: %w", err)
	}

	from, err := goose.GetDBVersionContext(ctx, database)
	if err != nil {
		return fmt.Errorf("migrate: read version: %w", err)
	}
	if err := goose.UpContext(ctx, database, migrationsDir); err != nil {
		return fmt.Errorf("migrate: up from version %d: %w", from, err)
	}
	to, err := goose.GetDBVersionContext(ctx, database)
	if err != nil {
		return fmt.Errorf("migrate: read version: %w", err)
	}

	telemetry.Info("db.migrated", map[string]any{"from_version": from, "to_version": to})
	return nil
}

// gooseLogger sends goose progress lines to the structured log at debug level.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	telemetry.Debug("db.goose", map[string]any{"detail": strings.TrimSpace(fmt.Sprintf(format, v...))})
}

// Fatalf is only reached from goose's own command paths. It panics rather than
// exiting so deferred cleanup still runs.
func (gooseLogger) Fatalf(format string, v ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	telemetry.Error("db.goose_fatal", map[string]any{"detail": msg})
	panic("goose: " + msg)
}
