package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/serikovn/nexpr-update/core/config"
)

// Open builds the backend selected by cfg.Driver. db is required for the
// postgres driver and ignored otherwise.
func Open(cfg coreconfig.StorageConfig, db *sqlx.DB) (Backend, error) {
	if cfg.Driver == coreconfig.StorageFile || cfg.Driver == "" {
		return NewFileBackend(cfg.Dir)
	}
	return OpenExisting(cfg, db)
}

// OpenExisting is Open for readers: the file driver does not create its
// directory, so a missing one reads as missing documents.
func OpenExisting(cfg coreconfig.StorageConfig, db *sqlx.DB) (Backend, error) {
	switch cfg.Driver {
	case coreconfig.StorageFile, "":
		dir := cfg.Dir
		if dir == "" {
			dir = "."
		}
		return &FileBackend{dir: dir}, nil
	case coreconfig.StoragePostgres:
		if db == nil {
			return nil, fmt.Errorf("storage: postgres driver requires a database connection")
		}
		return NewPostgresBackend(db), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
}
