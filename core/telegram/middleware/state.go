package middleware

import (
	"log/slog"

	"github.com/serikovn/nexpr-update/core/logger"
	tghelpers "github.com/serikovn/nexpr-update/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// SessionChecker reports whether a user has an open conversation.
type SessionChecker interface {
	InProgress(userID int64) bool
}

// InSession passes updates only from users with an open conversation and
// drops the rest silently.
func InSession(sessions SessionChecker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil && sessions != nil && sessions.InProgress(user.ID) {
				return next(c)
			}
			logger.Debug(tghelpers.BuildContext(c), "tg", "session.skip",
				slog.String("status", "skip"),
				slog.String("reason", "no_session"),
			)
			return nil
		}
	}
}
