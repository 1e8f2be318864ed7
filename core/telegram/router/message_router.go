package router

import (
	"strings"

	tg "github.com/serikovn/nexpr-update/core/telegram"
	"github.com/serikovn/nexpr-update/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is a conversation manager: it knows who is mid-conversation and
// consumes their text and media messages.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes builds handlers for text, photo and video messages. Text from a
// user with an open conversation goes to the FSM first; media only ever
// reaches the FSM.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		text := c.Text()

		if fsmMgr != nil && c.Sender() != nil && fsmMgr.InProgress(c.Sender().ID) {
			return serve(c, "fsm", func() error {
				return fsmMgr.ManagerHandler(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && strings.HasPrefix(text, "/") && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return serve(c, name, func() error {
					return cmd.Handler(c)
				})
			}
			if fb := reg.TextFallback(); fb != nil {
				return serve(c, "fallback", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return serve(c, "unknown_text", func() error {
				return opts.UnknownText(c)
			})
		}

		summarize(c, "unknown_text", "skip", nil)
		return nil
	}

	routes := []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}}
	if fsmMgr == nil {
		return routes
	}

	media := func(c tele.Context) error {
		return serve(c, "fsm_media", func() error {
			return fsmMgr.ManagerHandler(c)
		})
	}
	media = middleware.InSession(fsmMgr)(media)
	media = middleware.RecoverMiddleware(middleware.LoggerMiddleware(media))
	for _, ep := range []string{tele.OnPhoto, tele.OnVideo} {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: media})
	}
	return routes
}
