// Package storage persists whole JSON documents ("collections") by name.
//
// Backends only read and write opaque documents. Load/Save semantics,
// including first-run bootstrap, live in Collection.
package storage

import (
	"context"
	"errors"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// Backend reads and overwrites named documents.
//
// Read reports found=false when no document exists yet. Write replaces the
// previous document entirely. Backends do not coordinate read-modify-write
// sequences across callers: concurrent writers race and the last one wins.
type Backend interface {
	Read(ctx context.Context, name string) (data []byte, found bool, err error)
	Write(ctx context.Context, name string, data []byte) error
}
