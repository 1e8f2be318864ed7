package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/serikovn/nexpr-update/core/logger"
	"github.com/serikovn/nexpr-update/core/telegram/callbacks"
	tghelpers "github.com/serikovn/nexpr-update/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// StartKey holds when LoggerMiddleware first saw the update.
const StartKey = "update_start"

// seenUpdates remembers the last few update ids so an update passing through
// the middleware on more than one branch is logged once.
type seenUpdates struct {
	mu   sync.Mutex
	ring [256]int
	next int
	set  map[int]struct{}
}

func (s *seenUpdates) firstTime(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set == nil {
		s.set = make(map[int]struct{}, len(s.ring))
	}
	if _, ok := s.set[id]; ok {
		return false
	}
	delete(s.set, s.ring[s.next])
	s.ring[s.next] = id
	s.next = (s.next + 1) % len(s.ring)
	s.set[id] = struct{}{}
	return true
}

var received seenUpdates

// LoggerMiddleware stamps the update's start and stores its logging context
// for handlers. Receipt is logged at debug level, sampled.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		if c.Get(StartKey) == nil {
			c.Set(StartKey, time.Now())
		}
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() && received.firstTime(upd.ID) {
			logger.LogEvent(ctx, nil, slog.LevelDebug, "update.received", receiptAttrs(c, upd)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if ch := c.Chat(); ch != nil {
		attrs = append(attrs, slog.String("chat_type", string(ch.Type)))
	}
	if u := c.Sender(); u != nil && u.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
	}
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.Parse(upd.Callback)
		attrs = append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			slog.String("payload", logger.SanitizeLimit(payload, 256)),
		)
	case upd.Message != nil:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
		if m := upd.Message; m.Photo != nil || m.Video != nil {
			attrs = append(attrs, slog.Bool("media", true))
		}
	}
	return attrs
}
