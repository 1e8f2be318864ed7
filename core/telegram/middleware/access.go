package middleware

import (
	"log/slog"

	"github.com/serikovn/nexpr-update/core/logger"
	tghelpers "github.com/serikovn/nexpr-update/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminChecker decides whether a Telegram user is an administrator.
type AdminChecker interface {
	IsAdmin(id int64) bool
}

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	Admins   AdminChecker
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware lets only allow-listed users reach downstream handlers.
// Without a checker every user is rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user != nil && opts.Admins != nil && opts.Admins.IsAdmin(user.ID) {
				return next(c)
			}
			logger.Info(tghelpers.BuildContext(c), "tg", "access.denied",
				slog.String("status", "skip"),
				slog.String("reason", "not_admin"),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
