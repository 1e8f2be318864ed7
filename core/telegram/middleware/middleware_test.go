package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/serikovn/nexpr-update/core/logger"
	tghelpers "github.com/serikovn/nexpr-update/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the middleware touches.
type fakeContext struct {
	tele.Context
	user  *tele.User
	upd   tele.Update
	store map[string]interface{}
	sent  []interface{}
}

func newFakeContext(userID int64) *fakeContext {
	msg := &tele.Message{Chat: &tele.Chat{ID: userID}, Sender: &tele.User{ID: userID}}
	return &fakeContext{
		user:  &tele.User{ID: userID},
		upd:   tele.Update{ID: 1, Message: msg},
		store: map[string]interface{}{},
	}
}

func (f *fakeContext) Sender() *tele.User         { return f.user }
func (f *fakeContext) Chat() *tele.Chat           { return f.upd.Message.Chat }
func (f *fakeContext) Update() tele.Update        { return f.upd }
func (f *fakeContext) Callback() *tele.Callback   { return f.upd.Callback }
func (f *fakeContext) Text() string               { return f.upd.Message.Text }
func (f *fakeContext) Get(key string) interface{} { return f.store[key] }
func (f *fakeContext) Set(key string, v interface{}) {
	f.store[key] = v
}
func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

type allowList map[int64]bool

func (a allowList) IsAdmin(id int64) bool    { return a[id] }
func (a allowList) InProgress(id int64) bool { return a[id] }

func TestAdminOnlyMiddleware(t *testing.T) {
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{
		Admins:   allowList{1: true},
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	_ = h(newFakeContext(1))
	_ = h(newFakeContext(2))
	if calls != 1 || rejected != 1 {
		t.Fatalf("calls = %d, rejected = %d", calls, rejected)
	}

	closed := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { calls++; return nil })
	_ = closed(newFakeContext(1))
	if calls != 1 {
		t.Fatal("without a checker nobody is admin")
	}
}

func TestInSessionDropsIdleUsers(t *testing.T) {
	calls := 0
	h := InSession(allowList{5: true})(func(tele.Context) error { calls++; return nil })
	_ = h(newFakeContext(5))
	_ = h(newFakeContext(6))
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Unix(0, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
		Now:       func() time.Time { return now },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	c := newFakeContext(7)
	_ = h(c)
	_ = h(c)
	now = now.Add(2 * time.Second)
	_ = h(c)
	if calls != 2 || limited != 1 {
		t.Fatalf("calls = %d, limited = %d", calls, limited)
	}

	cb := newFakeContext(7)
	cb.upd = tele.Update{ID: 2, Callback: &tele.Callback{Data: "direction_A"}, Message: cb.upd.Message}
	_ = h(cb)
	_ = h(cb)
	if calls != 4 {
		t.Fatalf("callbacks must bypass the limit, calls = %d", calls)
	}
}

func TestMessageMetricsMiddlewareCountsReplies(t *testing.T) {
	c := newFakeContext(3)
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("one")
		return c.Send("two", &tele.ReplyMarkup{})
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	msgs, kb := GetCounters(c)
	if msgs != 2 || !kb {
		t.Fatalf("counters = %d, %v", msgs, kb)
	}
}

func TestRecoverMiddlewareSwallowsPanics(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	if err := h(newFakeContext(1)); err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestLoggerMiddlewareStoresContext(t *testing.T) {
	c := newFakeContext(42)
	var seen context.Context
	h := LoggerMiddleware(func(c tele.Context) error {
		seen, _ = tghelpers.ContextFrom(c)
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if _, ok := c.Get(StartKey).(time.Time); !ok {
		t.Fatal("start time not stamped")
	}
	if seen == nil || logger.RIDFrom(seen) == "" {
		t.Fatal("logging context not stored")
	}
	if logger.UserIDFrom(seen) != 42 || logger.ChatIDFrom(seen) != 42 {
		t.Fatalf("meta = %d/%d", logger.UserIDFrom(seen), logger.ChatIDFrom(seen))
	}
}

func TestSeenUpdatesForgetsOldest(t *testing.T) {
	var s seenUpdates
	if !s.firstTime(1) || s.firstTime(1) {
		t.Fatal("duplicate id not detected")
	}
	for i := 2; i <= len(s.ring)+1; i++ {
		s.firstTime(i)
	}
	if !s.firstTime(1) {
		t.Fatal("oldest id should have been evicted")
	}
}
