package helpers

import (
	"context"
	"sync/atomic"

	"github.com/serikovn/nexpr-update/core/logger"

	tele "gopkg.in/telebot.v4"
)

// RIDKey holds the update's correlation id.
const RIDKey = "rid"

const (
	contextKey  = "logger_ctx"
	countersKey = "reply_counters"
)

type countersCtxKey struct{}

// Counters tracks the replies produced while handling one update.
type Counters struct {
	messages atomic.Int32
	kb       atomic.Bool
}

// Record counts one outgoing message; kb marks that it carried a keyboard.
// Safe on a nil receiver.
func (n *Counters) Record(kb bool) {
	if n == nil {
		return
	}
	n.messages.Add(1)
	if kb {
		n.kb.Store(true)
	}
}

// Snapshot returns the message count and whether any keyboard was sent.
func (n *Counters) Snapshot() (int, bool) {
	if n == nil {
		return 0, false
	}
	return int(n.messages.Load()), n.kb.Load()
}

// AttachCounters binds n to the update and to its stored context.
func AttachCounters(c tele.Context, n *Counters) {
	if c == nil || n == nil {
		return
	}
	c.Set(countersKey, n)
	if ctx, ok := ContextFrom(c); ok {
		StoreContext(c, context.WithValue(ctx, countersCtxKey{}, n))
	}
}

// CountersOf returns the counters bound to the update, if any.
func CountersOf(c tele.Context) *Counters {
	if c == nil {
		return nil
	}
	n, _ := c.Get(countersKey).(*Counters)
	return n
}

// CountersFrom returns the counters carried by ctx, or nil.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	n, _ := ctx.Value(countersCtxKey{}).(*Counters)
	return n
}

// WithCounters copies the update's counters into ctx.
func WithCounters(c tele.Context, ctx context.Context) context.Context {
	if n := CountersOf(c); n != nil {
		return context.WithValue(ctx, countersCtxKey{}, n)
	}
	return ctx
}

// StoreContext attaches reusable context to tele.Context for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom telegram context if previously stored by middleware.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	if v := c.Get(contextKey); v != nil {
		if ctx, ok := v.(context.Context); ok {
			return ctx, true
		}
	}
	return nil, false
}

// BuildContext constructs a context.Context from tele.Context,
// enriching it with RID and update/user/chat metadata for consistent service logging.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}

	upd := c.Update()
	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}

	rid, _ := c.Get(RIDKey).(string)
	if rid == "" {
		rid = logger.BuildRID(upd.ID, chatID, userID)
		c.Set(RIDKey, rid)
	}

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	ctx = WithCounters(c, ctx)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler enriches stored context with handler metadata for downstream logs.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
