package express

import (
	"context"
	"log/slog"

	"github.com/serikovn/nexpr-update/core/logger"
	"github.com/serikovn/nexpr-update/core/telegram/callbacks"
)

// Callback actions. Payloads travel as "<action>_<route name>".
const (
	ActionDirection   = "direction"
	ActionRemove      = "remove"
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Button is one inline control: a label and its callback payload.
type Button struct {
	Text string
	Data string
}

// Menu is a grid of buttons, one slice per row.
type Menu [][]Button

func routeMenu(action string, label func(string) string, names []string) Menu {
	menu := make(Menu, 0, len(names))
	for _, n := range names {
		menu = append(menu, []Button{{Text: label(n), Data: callbacks.Join(action, n)}})
	}
	return menu
}

// SubscriptionMenu is the single toggle shown under a route's detail text.
// It always offers the opposite of the current state.
func SubscriptionMenu(route string, subscribed bool) Menu {
	if subscribed {
		return Menu{{{Text: labelUnsubscribe, Data: callbacks.Join(ActionUnsubscribe, route)}}}
	}
	return Menu{{{Text: labelSubscribe, Data: callbacks.Join(ActionSubscribe, route)}}}
}

// nameFits reports whether every button built for route stays within
// Telegram's callback data limit.
func nameFits(route string) bool {
	for _, action := range []string{ActionDirection, ActionRemove, ActionSubscribe, ActionUnsubscribe} {
		if !callbacks.Fits(callbacks.Join(action, route)) {
			return false
		}
	}
	return true
}

// warnOversized logs buttons whose data Telegram will refuse. Long route
// names are not truncated: the payload must stay an exact route name.
func warnOversized(ctx context.Context, menu Menu) {
	for _, row := range menu {
		for _, b := range row {
			if callbacks.Fits(b.Data) {
				continue
			}
			logger.Warn(ctx, component, "menu.callback_too_long",
				slog.String("route", logger.SanitizeLimit(b.Text, 128)),
				slog.Int("bytes", len(b.Data)),
				slog.Int("limit", callbacks.MaxDataLen),
			)
		}
	}
}
