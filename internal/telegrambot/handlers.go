package telegrambot

import (
	"context"
	"errors"
	"strings"

	tg "github.com/serikovn/nexpr-update/core/telegram"
	"github.com/serikovn/nexpr-update/core/telegram/callbacks"
	"github.com/serikovn/nexpr-update/core/telegram/commands"
	tghelpers "github.com/serikovn/nexpr-update/core/telegram/helpers"
	"github.com/serikovn/nexpr-update/internal/disruption"
	"github.com/serikovn/nexpr-update/internal/express"
	"github.com/serikovn/nexpr-update/internal/notify"

	tele "gopkg.in/telebot.v4"
)

// Service is the behaviour the handlers drive; *express.Service implements it.
type Service interface {
	InProgress(userID int64) bool
	Start(ctx context.Context, p express.Peer) error
	ShowRoute(ctx context.Context, p express.Peer, route string) (string, error)
	SetSubscription(ctx context.Context, p express.Peer, route string, want bool) (express.Toggle, error)
	BeginAdd(ctx context.Context, p express.Peer) error
	HandleText(ctx context.Context, p express.Peer, text string) error
	HandleMedia(ctx context.Context, p express.Peer, ref disruption.MediaRef) error
	RemoveMenu(ctx context.Context, p express.Peer) error
	Remove(ctx context.Context, p express.Peer, route string) error
	List(ctx context.Context, p express.Peer) error
	Resolve(ctx context.Context, p express.Peer, route string) (notify.Result, error)
}

// MenuEditor swaps the inline keyboard of an already sent message.
type MenuEditor interface {
	EditMenu(ctx context.Context, msg tele.Editable, menu express.Menu) error
}

// Handlers adapts telebot updates to Service calls.
type Handlers struct {
	svc    Service
	editor MenuEditor
}

// NewHandlers builds the update handlers.
func NewHandlers(svc Service, editor MenuEditor) *Handlers {
	return &Handlers{svc: svc, editor: editor}
}

// Register adds every command and callback action to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{Handler: h.start, Description: "Текущие задержки Ночного Экспресса"})
	reg.RegisterCommand("/add", commands.Command{Handler: h.add, Description: "Добавить проблему", AdminOnly: true})
	reg.RegisterCommand("/remove", commands.Command{Handler: h.removeMenu, Description: "Удалить проблему", AdminOnly: true})
	reg.RegisterCommand("/list", commands.Command{Handler: h.list, Description: "Список проблем", AdminOnly: true})
	reg.RegisterCommand("/resolve", commands.Command{Handler: h.resolve, Description: "Отметить проблему устранённой", AdminOnly: true})

	for action, fn := range map[string]tele.HandlerFunc{
		express.ActionDirection:   h.direction,
		express.ActionRemove:      h.remove,
		express.ActionSubscribe:   h.toggle(true),
		express.ActionUnsubscribe: h.toggle(false),
	} {
		if err := reg.RegisterCallback(action, fn); err != nil {
			return err
		}
	}
	return nil
}

// Deny answers a non-admin who invoked an admin-only command.
func (h *Handlers) Deny(c tele.Context) error {
	return tghelpers.SendText(c, express.ForbiddenText)
}

// InProgress reports whether the user has an open add wizard.
func (h *Handlers) InProgress(userID int64) bool {
	return h.svc.InProgress(userID)
}

// ManagerHandler feeds text, photo and video messages into the add wizard.
func (h *Handlers) ManagerHandler(c tele.Context) error {
	ctx, p := h.scope(c)
	msg := c.Message()
	switch {
	case msg != nil && msg.Photo != nil:
		return h.svc.HandleMedia(ctx, p, disruption.MediaRef{Type: disruption.MediaPhoto, File: msg.Photo.FileID})
	case msg != nil && msg.Video != nil:
		return h.svc.HandleMedia(ctx, p, disruption.MediaRef{Type: disruption.MediaVideo, File: msg.Video.FileID})
	}
	return h.svc.HandleText(ctx, p, c.Text())
}

func (h *Handlers) start(c tele.Context) error {
	ctx, p := h.scope(c)
	return h.svc.Start(ctx, p)
}

func (h *Handlers) add(c tele.Context) error {
	ctx, p := h.scope(c)
	return quiet(h.svc.BeginAdd(ctx, p))
}

func (h *Handlers) removeMenu(c tele.Context) error {
	ctx, p := h.scope(c)
	return quiet(h.svc.RemoveMenu(ctx, p))
}

func (h *Handlers) list(c tele.Context) error {
	ctx, p := h.scope(c)
	return quiet(h.svc.List(ctx, p))
}

func (h *Handlers) resolve(c tele.Context) error {
	ctx, p := h.scope(c)
	var route string
	if msg := c.Message(); msg != nil {
		route = strings.TrimSpace(msg.Payload)
	}
	_, err := h.svc.Resolve(ctx, p, route)
	return quiet(err)
}

func (h *Handlers) direction(c tele.Context) error {
	ctx, p := h.scope(c)
	notice, err := h.svc.ShowRoute(ctx, p, callbacks.Payload(c))
	if notice != "" {
		_ = tghelpers.Alert(c, notice)
	}
	return err
}

func (h *Handlers) remove(c tele.Context) error {
	ctx, p := h.scope(c)
	return quiet(h.svc.Remove(ctx, p, callbacks.Payload(c)))
}

func (h *Handlers) toggle(want bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, p := h.scope(c)
		res, err := h.svc.SetSubscription(ctx, p, callbacks.Payload(c), want)
		if err != nil {
			return err
		}
		if res.Menu != nil && c.Message() != nil {
			if err := h.editor.EditMenu(ctx, c.Message(), res.Menu); err != nil {
				_ = tghelpers.Toast(c, res.Notice)
				return err
			}
		}
		return tghelpers.Toast(c, res.Notice)
	}
}

// scope returns the update's logging context and the caller.
func (h *Handlers) scope(c tele.Context) (context.Context, express.Peer) {
	var p express.Peer
	if u := c.Sender(); u != nil {
		p.UserID = u.ID
	}
	if chat := c.Chat(); chat != nil {
		p.ChatID = chat.ID
	} else {
		p.ChatID = p.UserID
	}
	return tghelpers.BuildContext(c), p
}

// quiet drops ErrForbidden: the user has already been told.
func quiet(err error) error {
	if errors.Is(err, express.ErrForbidden) {
		return nil
	}
	return err
}
