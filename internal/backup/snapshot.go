// Package backup copies the stored collections to object storage on a schedule.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/serikovn/nexpr-update/core/logger"
	"github.com/serikovn/nexpr-update/internal/storage"
)

// KeyPrefix is the object key prefix every snapshot is written under.
const KeyPrefix = "snapshots"

// Uploader stores one object.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) error
}

// Snapshotter reads named collections from a backend and uploads them.
type Snapshotter struct {
	backend  storage.Backend
	uploader Uploader
	names    []string
	now      func() time.Time
}

// NewSnapshotter copies the named collections of backend through uploader.
func NewSnapshotter(backend storage.Backend, uploader Uploader, names ...string) *Snapshotter {
	return &Snapshotter{backend: backend, uploader: uploader, names: names, now: time.Now}
}

// Report summarizes one snapshot run.
type Report struct {
	Stamp    string
	Uploaded []string
	Skipped  []string
}

// Run uploads every collection that exists. A collection that has never been
// written is skipped. The first failure aborts the run; objects already
// uploaded stay in place.
func (s *Snapshotter) Run(ctx context.Context) (Report, error) {
	rep := Report{Stamp: Stamp(s.now())}
	if s.backend == nil || s.uploader == nil {
		return rep, errors.New("backup: backend and uploader are required")
	}
	start := time.Now()
	for _, name := range s.names {
		data, found, err := s.backend.Read(ctx, name)
		if err != nil {
			return rep, fmt.Errorf("read %s: %w", name, err)
		}
		if !found {
			rep.Skipped = append(rep.Skipped, name)
			continue
		}
		key := ObjectKey(rep.Stamp, name)
		if err := s.uploader.Upload(ctx, key, data); err != nil {
			return rep, fmt.Errorf("upload %s: %w", key, err)
		}
		rep.Uploaded = append(rep.Uploaded, name)
	}
	logger.LogEvent(ctx, logger.Backup, slog.LevelInfo, "snapshot.done",
		slog.String("stamp", rep.Stamp),
		slog.Int("count", len(rep.Uploaded)),
		slog.Int("skipped", len(rep.Skipped)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return rep, nil
}

// Stamp formats t as the UTC directory name of a snapshot.
func Stamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// ObjectKey returns snapshots/<stamp>/<collection>.json. A ".json" suffix
// already present on the collection name is not repeated.
func ObjectKey(stamp, name string) string {
	base := strings.TrimSuffix(path.Base(name), ".json")
	return path.Join(KeyPrefix, stamp, base+".json")
}
