// Package bootstrap brings up process-wide infrastructure before the bot starts.
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/serikovn/nexpr-update/core/config"
	coredatabase "github.com/serikovn/nexpr-update/core/database"
	"github.com/serikovn/nexpr-update/core/logger"
)

// Options control the bootstrap pipeline. Nil hooks fall back to the real
// logger and database implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(coreconfig.DatabaseConfig) error
}

func (o Options) withDefaults() Options {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	return o
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
// DB is nil unless the postgres storage driver is selected.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger and, for the postgres storage driver, connects
// to the database and brings its schema up to date.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	opts = opts.withDefaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}
	if opts.Config.Storage.Driver != coreconfig.StoragePostgres {
		return &Result{}, nil
	}

	db, err := opts.Connect(opts.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database: %w", err)
	}
	if err := opts.Migrate(opts.Config.Database); err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("bootstrap: migrations: %w", err)
	}
	return &Result{DB: db}, nil
}
