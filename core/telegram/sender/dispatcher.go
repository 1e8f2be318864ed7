// Package sender runs outbound Telegram calls on a small worker pool with
// bounded retries.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/serikovn/nexpr-update/core/logger"
	"github.com/serikovn/nexpr-update/core/telegram/netutil"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the dispatcher. A single worker keeps jobs in submission
// order.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls in the background.
type Dispatcher struct {
	opts Options
	jobs chan job
	wg   sync.WaitGroup
	errs atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the workers. Zero options get defaults.
func NewDispatcher(opts Options) *Dispatcher {
	d := &Dispatcher{opts: opts.withDefaults()}
	d.jobs = make(chan job, d.opts.QueueSize)
	d.wg.Add(d.opts.Workers)
	for range d.opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run. It never blocks: a full queue is reported as
// ErrQueueFull. run may be called more than once when retries are enabled.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs not yet picked by a worker.
func (d *Dispatcher) Pending() int {
	return len(d.jobs)
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close rejects new jobs and waits for the queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	runCtx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	logger.Debug(j.ctx, component, "send.start", attrs...)

	limit := d.opts.MaxRetries + 1
	attempt := 0
	var err error
	for attempt < limit {
		if err = runCtx.Err(); err != nil {
			break
		}
		attempt++
		if err = j.run(); err == nil {
			if attempt > 1 {
				logger.Info(j.ctx, component, "send.retry.success",
					append(attrs, slog.Int("attempt", attempt), slog.Duration("elapsed", time.Since(start)))...)
			}
			logger.Debug(j.ctx, component, "send.success", append(attrs, slog.Duration("elapsed", time.Since(start)))...)
			return
		}
		delay, retry := d.backoff(err, attempt)
		if !retry || attempt == limit {
			break
		}
		logger.Debug(j.ctx, component, "send.retry.backoff",
			append(attrs, slog.Int("attempt", attempt), slog.Duration("delay", delay))...)
		if werr := sleep(runCtx, delay); werr != nil {
			err = werr
			break
		}
	}

	d.errs.Add(1)
	logger.Error(j.ctx, component, "send.fail", append(attrs,
		slog.String("error", Redact(err)),
		slog.String("error_kind", Classify(err)),
		slog.Int("attempts", attempt),
		slog.Duration("elapsed", time.Since(start)),
	)...)
}

// backoff reports how long to wait before retrying err. Flood control errors
// wait as long as Telegram asks; transient network errors back off linearly.
func (d *Dispatcher) backoff(err error, attempt int) (time.Duration, bool) {
	if wait, ok := floodWait(err); ok {
		return wait, true
	}
	if netutil.ShouldRetry(err) {
		return d.opts.RetryBackoff * time.Duration(attempt), true
	}
	return 0, false
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
