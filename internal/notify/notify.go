// Package notify broadcasts one text to many recipients, best effort.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/serikovn/nexpr-update/core/logger"
)

// Deliverer sends text to a single recipient chat.
type Deliverer interface {
	Deliver(ctx context.Context, recipient int64, text string) error
}

// Failure records one recipient that could not be reached.
type Failure struct {
	Recipient int64
	Reason    string
}

// Result summarises a broadcast. Recipients is the intended audience size;
// Sent counts confirmed deliveries.
type Result struct {
	ID         uuid.UUID
	Kind       string
	Recipients int
	Sent       int
	Failed     []Failure
}

// Broadcast delivers text to every recipient in order, one attempt each,
// waiting for each delivery before the next. A failed delivery is logged
// and skipped; it never stops the loop.
func Broadcast(ctx context.Context, d Deliverer, kind string, recipients []int64, text string) Result {
	res := Result{
		ID:         uuid.New(),
		Kind:       kind,
		Recipients: len(recipients),
	}
	start := time.Now()

	for _, id := range recipients {
		if err := d.Deliver(ctx, id, text); err != nil {
			res.Failed = append(res.Failed, Failure{Recipient: id, Reason: err.Error()})
			logger.Warn(ctx, "service.notify", "broadcast.deliver",
				slog.String("status", "fail"),
				slog.String("broadcast_id", res.ID.String()),
				slog.String("kind", kind),
				slog.Int64("recipient", id),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			continue
		}
		res.Sent++
	}

	status := "ok"
	if len(res.Failed) > 0 {
		status = "partial"
	}
	logger.Info(ctx, "service.notify", "broadcast.done",
		slog.String("status", status),
		slog.String("broadcast_id", res.ID.String()),
		slog.String("kind", kind),
		slog.Int("recipients", res.Recipients),
		slog.Int("sent", res.Sent),
		slog.Int("failed", len(res.Failed)),
		slog.Duration("duration", logger.Took(start)),
	)
	return res
}

// Exclude returns ids without every occurrence of skip.
func Exclude(ids []int64, skip int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != skip {
			out = append(out, id)
		}
	}
	return out
}
