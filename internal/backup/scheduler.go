package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/serikovn/nexpr-update/core/logger"
)

// specParser accepts standard 5-field expressions and descriptors like @daily.
var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Runner is a job the scheduler triggers.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler triggers a Runner on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	runner  Runner
	timeout time.Duration
}

// ValidateSpec reports whether spec is a schedule the scheduler understands.
func ValidateSpec(spec string) error {
	if _, err := specParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	return nil
}

// NewScheduler registers runner under spec. Runs that overlap a still
// running snapshot are skipped.
func NewScheduler(spec string, loc *time.Location, runner Runner) (*Scheduler, error) {
	if err := ValidateSpec(spec); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		spec:    spec,
		runner:  runner,
		timeout: 5 * time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("schedule backup: %w", err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.runner.Run(ctx); err != nil {
		logger.LogEvent(ctx, logger.Backup, slog.LevelError, "snapshot.failed",
			slog.String("schedule", s.spec),
			slog.String("error", err.Error()),
		)
	}
}

// Start begins the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.LogEvent(logger.Background(), logger.Backup, slog.LevelInfo, "scheduler.started",
		slog.String("schedule", s.spec),
	)
}

// Stop halts the schedule and waits for a running snapshot until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
