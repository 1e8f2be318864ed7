// Package app assembles the Night Express bot from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/serikovn/nexpr-update/core/bootstrap"
	"github.com/serikovn/nexpr-update/core/cmd"
	coreconfig "github.com/serikovn/nexpr-update/core/config"
	"github.com/serikovn/nexpr-update/core/logger"
	tg "github.com/serikovn/nexpr-update/core/telegram"
	tghelpers "github.com/serikovn/nexpr-update/core/telegram/helpers"
	"github.com/serikovn/nexpr-update/internal/backup"
	"github.com/serikovn/nexpr-update/internal/disruption"
	"github.com/serikovn/nexpr-update/internal/express"
	"github.com/serikovn/nexpr-update/internal/storage"
	"github.com/serikovn/nexpr-update/internal/telegrambot"
	"github.com/serikovn/nexpr-update/internal/wizard"
)

var _ telegrambot.Service = (*express.Service)(nil)

// Stores groups the three persisted collections.
type Stores struct {
	Backend     storage.Backend
	Problems    *disruption.ProblemStore
	Subscribers *disruption.SubscriberStore
	Users       *disruption.UserRegistry
}

// OpenStores binds the collections named in cfg to the configured backend.
func OpenStores(cfg *coreconfig.Config, db *sqlx.DB) (*Stores, error) {
	backend, err := storage.Open(cfg.Storage, db)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Backend:     backend,
		Problems:    disruption.NewProblemStore(backend, cfg.Storage.ProblemsFile),
		Subscribers: disruption.NewSubscriberStore(backend, cfg.Storage.SubscribersFile),
		Users:       disruption.NewUserRegistry(backend, cfg.Storage.UsersFile),
	}, nil
}

// App owns the long-lived pieces of a running bot.
type App struct {
	cfg       *coreconfig.Config
	db        *sqlx.DB
	stores    *Stores
	service   *express.Service
	messenger *telegrambot.Messenger
	scheduler *backup.Scheduler
}

// New wires the service and its stores. db is nil for the file driver.
func New(cfg *coreconfig.Config, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	stores, err := OpenStores(cfg, db)
	if err != nil {
		return nil, err
	}
	loc := tghelpers.LoadLocation(cfg.Timezone)
	messenger := &telegrambot.Messenger{}
	a := &App{
		cfg:       cfg,
		db:        db,
		stores:    stores,
		messenger: messenger,
		service: express.New(express.Options{
			Problems:    stores.Problems,
			Subscribers: stores.Subscribers,
			Users:       stores.Users,
			Sessions:    wizard.NewMemorySessions(),
			Admins:      cfg.Telegram,
			Messenger:   messenger,
			Location:    loc,
		}),
	}
	if cfg.Backup.Schedule != "" {
		uploader, err := backup.NewMinioUploader(cfg.Backup.Minio)
		if err != nil {
			return nil, err
		}
		snap := backup.NewSnapshotter(stores.Backend, uploader,
			cfg.Storage.ProblemsFile, cfg.Storage.SubscribersFile, cfg.Storage.UsersFile)
		a.scheduler, err = backup.NewScheduler(cfg.Backup.Schedule, loc, &bucketRunner{uploader: uploader, snap: snap})
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Bootstrap satisfies cmd.Options.Bootstrap.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()
	res, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	a, err := New(cfg, res.DB)
	if err != nil {
		if res.DB != nil {
			_ = res.DB.Close()
		}
		return nil, fmt.Errorf("app: %w", err)
	}
	return a, nil
}

// TelegramRunOptions satisfies cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return telegrambot.RunOptions(telegrambot.Options{
		Config:    a.cfg,
		Service:   a.service,
		Messenger: a.messenger,
		OnStart:   a.start,
		OnStop:    a.stop,
	})
}

func (a *App) start(ctx context.Context, _ tg.Runtime) error {
	if a.scheduler != nil {
		a.scheduler.Start()
	}
	logger.Info(ctx, "app", "storage.ready",
		slog.String("driver", a.cfg.Storage.Driver),
		slog.Bool("backup", a.scheduler != nil),
	)
	return nil
}

func (a *App) stop(ctx context.Context, _ tg.Runtime) error {
	var errs []error
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("backup scheduler: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// bucketRunner makes sure the bucket exists before the first snapshot.
type bucketRunner struct {
	uploader *backup.MinioUploader
	snap     *backup.Snapshotter
	ready    bool
}

func (r *bucketRunner) Run(ctx context.Context) (backup.Report, error) {
	if !r.ready {
		if err := r.uploader.EnsureBucket(ctx); err != nil {
			return backup.Report{}, err
		}
		r.ready = true
	}
	return r.snap.Run(ctx)
}
