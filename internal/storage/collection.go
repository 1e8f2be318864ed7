package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/serikovn/nexpr-update/core/logger"
)

// Collection is a typed JSON document with load-everything/save-everything semantics.
type Collection[T any] struct {
	backend Backend
	name    string
	empty   func() T
}

// NewCollection binds a document name to a backend. empty builds the value
// used (and persisted) when the document does not exist yet.
func NewCollection[T any](backend Backend, name string, empty func() T) *Collection[T] {
	return &Collection[T]{backend: backend, name: name, empty: empty}
}

// Name returns the document name.
func (c *Collection[T]) Name() string { return c.name }

// Load returns the whole collection. On first run the empty value is saved
// and returned; this is not an error.
func (c *Collection[T]) Load(ctx context.Context) (T, error) {
	start := time.Now()
	data, found, err := c.backend.Read(ctx, c.name)
	if err != nil {
		var zero T
		logger.Error(ctx, "storage", "collection.load",
			slog.String("status", "fail"),
			slog.String("collection", c.name),
			slog.String("err", err.Error()),
		)
		return zero, err
	}
	if !found {
		v := c.empty()
		if err := c.Save(ctx, v); err != nil {
			return v, err
		}
		logger.Info(ctx, "storage", "collection.bootstrap",
			slog.String("status", "ok"),
			slog.String("collection", c.name),
		)
		return v, nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("storage: decode %s: %w", c.name, err)
	}
	logger.Debug(ctx, "storage", "collection.load",
		slog.String("status", "ok"),
		slog.String("collection", c.name),
		slog.Duration("duration", logger.Took(start)),
	)
	return v, nil
}

// Save overwrites the whole collection.
func (c *Collection[T]) Save(ctx context.Context, v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", c.name, err)
	}
	if err := c.backend.Write(ctx, c.name, data); err != nil {
		logger.Error(ctx, "storage", "collection.save",
			slog.String("status", "fail"),
			slog.String("collection", c.name),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}
