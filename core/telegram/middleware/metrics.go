package middleware

import (
	tghelpers "github.com/serikovn/nexpr-update/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// countingContext counts every successful outgoing message of an update.
type countingContext struct {
	tele.Context
	counters *tghelpers.Counters
}

func (m countingContext) count(err error, opts []interface{}) error {
	if err == nil {
		m.counters.Record(withMarkup(opts))
	}
	return err
}

func (m countingContext) Send(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Send(what, opts...), opts)
}

func (m countingContext) Reply(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Reply(what, opts...), opts)
}

func (m countingContext) Edit(what interface{}, opts ...interface{}) error {
	return m.count(m.Context.Edit(what, opts...), opts)
}

func withMarkup(opts []interface{}) bool {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok && so != nil && so.ReplyMarkup != nil {
			return true
		}
		if rm, ok := o.(*tele.ReplyMarkup); ok && rm != nil {
			return true
		}
	}
	return false
}

// MessageMetricsMiddleware attaches per-update reply counters. Messages sent
// through the context, or by services holding its context.Context, are counted.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &tghelpers.Counters{}
		tghelpers.AttachCounters(c, n)
		return next(countingContext{Context: c, counters: n})
	}
}

// GetCounters returns how many messages the update produced and whether any carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	return tghelpers.CountersOf(c).Snapshot()
}
