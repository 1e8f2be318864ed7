package telegrambot

import (
	"context"
	"errors"

	coreconfig "github.com/serikovn/nexpr-update/core/config"
	tg "github.com/serikovn/nexpr-update/core/telegram"
	"github.com/serikovn/nexpr-update/core/telegram/router"
	"github.com/serikovn/nexpr-update/core/telegram/sender"
)

// Options wires the Telegram side of the bot.
type Options struct {
	Config    *coreconfig.Config
	Service   Service
	Messenger *Messenger

	OnStart func(ctx context.Context, rt tg.Runtime) error
	OnStop  func(ctx context.Context, rt tg.Runtime) error
}

// RunOptions registers the bot's commands, callbacks and message routes and
// returns the options for tg.RunTelegram. Replies go through a single sender
// worker so an album always lands before its caption text.
func RunOptions(opts Options) (tg.RunOptions, error) {
	if opts.Config == nil || opts.Service == nil || opts.Messenger == nil {
		return tg.RunOptions{}, errors.New("telegrambot: config, service and messenger are required")
	}

	reg := tg.NewRegistry()
	h := NewHandlers(opts.Service, opts.Messenger)
	if err := h.Register(reg); err != nil {
		return tg.RunOptions{}, err
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		Admins:        opts.Config.Telegram,
		OnAdminReject: h.Deny,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(h, reg, router.TextOptions{})...)

	messenger := opts.Messenger
	onStart := opts.OnStart
	return tg.RunOptions{
		Config:   opts.Config,
		Registry: reg,
		DispatcherOptions: sender.Options{
			Workers:    1,
			MaxRetries: 2,
		},
		Middlewares: tg.DefaultMiddlewares(opts.Config, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			messenger.Bind(rt.Bot)
			if onStart != nil {
				return onStart(ctx, rt)
			}
			return nil
		},
		OnStop: opts.OnStop,
	}, nil
}
