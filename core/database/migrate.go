package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	coreconfig "github.com/serikovn/nexpr-update/core/config"
	"github.com/serikovn/nexpr-update/core/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations waits for Postgres and applies every embedded up migration.
func RunMigrations(cfg coreconfig.DatabaseConfig) error {
	ctx := logger.Background()
	if err := waitReady(ctx, cfg, readyTimeout); err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate",
			slog.String("status", "not_ready"), slog.String("err", err.Error()))
		return err
	}

	files := upMigrations(migrationsFS)
	if preview, truncated := logger.SummarizeStrings(files, 6); preview != "" {
		logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "migrate.resolve",
			slog.Int("files_total", len(files)),
			slog.String("files_preview", preview),
			slog.Bool("files_truncated", truncated))
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, URL(cfg))
	if err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate",
			slog.String("status", "init_failed"), slog.String("err", err.Error()))
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	return apply(ctx, m, files)
}

func apply(ctx context.Context, m *migrate.Migrate, files []string) error {
	from, _, _ := m.Version()
	start := time.Now()
	err := m.Up()
	took := logger.Took(start)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "migrate.apply",
			slog.Uint64("from_ver", uint64(from)),
			slog.Duration("duration", took),
			slog.String("err", err.Error()))
		return fmt.Errorf("apply migrations: %w", err)
	}
	to, _, _ := m.Version()
	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "migrate.summary",
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", appliedBetween(files, uint64(from), uint64(to))),
		slog.Duration("duration", took))
	return nil
}

// upMigrations lists the embedded *.up.sql files in version order.
func upMigrations(fsys fs.FS) []string {
	names, err := fs.Glob(fsys, "migrations/*.up.sql")
	if err != nil {
		return nil
	}
	for i, n := range names {
		names[i] = path.Base(n)
	}
	slices.Sort(names)
	return names
}

func versionOf(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween counts files with a version in (from, to].
func appliedBetween(files []string, from, to uint64) int {
	n := 0
	for _, f := range files {
		if v := versionOf(f); v > from && v <= to {
			n++
		}
	}
	return n
}
