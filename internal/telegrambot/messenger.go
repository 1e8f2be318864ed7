// Package telegrambot connects the Night Express service to Telegram through
// telebot: it registers commands and callbacks and delivers replies.
package telegrambot

import (
	"context"
	"errors"
	"sync/atomic"

	tghelpers "github.com/serikovn/nexpr-update/core/telegram/helpers"
	"github.com/serikovn/nexpr-update/core/telegram/keyboard"
	"github.com/serikovn/nexpr-update/core/telegram/sender"
	"github.com/serikovn/nexpr-update/internal/disruption"
	"github.com/serikovn/nexpr-update/internal/express"

	tele "gopkg.in/telebot.v4"
)

// albumLimit is the largest media group Telegram accepts.
const albumLimit = 10

var errNotBound = errors.New("telegrambot: bot not started")

// Messenger implements express.Messenger on top of a *tele.Bot. The bot is
// bound once the runtime has created it.
type Messenger struct {
	bot atomic.Pointer[tele.Bot]
}

// Bind sets the bot used for all outgoing calls.
func (m *Messenger) Bind(b *tele.Bot) {
	m.bot.Store(b)
}

func (m *Messenger) current() (*tele.Bot, error) {
	b := m.bot.Load()
	if b == nil {
		return nil, errNotBound
	}
	return b, nil
}

// Send queues a text reply with an optional inline menu.
func (m *Messenger) Send(ctx context.Context, chatID int64, text string, menu express.Menu) error {
	b, err := m.current()
	if err != nil {
		return err
	}
	markup := Markup(menu)
	tghelpers.CountersFrom(ctx).Record(markup != nil)
	return tghelpers.Dispatch(ctx, "send.text", "sendMessage", func() error {
		_, err := b.Send(tele.ChatID(chatID), text, &tele.SendOptions{ReplyMarkup: markup})
		return err
	})
}

// SendAlbum queues the media as groups of at most ten. A lone item is sent
// as a plain photo or video since media groups need at least two.
func (m *Messenger) SendAlbum(ctx context.Context, chatID int64, media []disruption.MediaRef) error {
	b, err := m.current()
	if err != nil {
		return err
	}
	to := tele.ChatID(chatID)
	for _, chunk := range albumChunks(media) {
		tghelpers.CountersFrom(ctx).Record(false)
		if len(chunk) == 1 {
			item := inputMedia(chunk[0])
			err = tghelpers.Dispatch(ctx, "send.media", "send"+mediaEndpoint(chunk[0]), func() error {
				_, err := b.Send(to, item)
				return err
			})
		} else {
			album := toAlbum(chunk)
			err = tghelpers.Dispatch(ctx, "send.album", "sendMediaGroup", func() error {
				_, err := b.SendAlbum(to, album)
				return err
			})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Deliver sends one broadcast message synchronously, one attempt. The
// returned error carries a redacted, classified reason.
func (m *Messenger) Deliver(ctx context.Context, recipient int64, text string) error {
	b, err := m.current()
	if err != nil {
		return err
	}
	if _, err := b.Send(tele.ChatID(recipient), text); err != nil {
		return errors.New(sender.Describe(err))
	}
	return nil
}

// EditMenu replaces the inline keyboard of msg in place.
func (m *Messenger) EditMenu(ctx context.Context, msg tele.Editable, menu express.Menu) error {
	b, err := m.current()
	if err != nil {
		return err
	}
	markup := Markup(menu)
	tghelpers.CountersFrom(ctx).Record(markup != nil)
	_, err = b.EditReplyMarkup(msg, markup)
	return err
}

// Markup converts a service menu into an inline keyboard; nil for no rows.
func Markup(menu express.Menu) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(menu))
	for _, row := range menu {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, btn := range row {
			r = append(r, keyboard.InlineBtn{Text: btn.Text, Data: btn.Data})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}

func albumChunks(media []disruption.MediaRef) [][]disruption.MediaRef {
	var chunks [][]disruption.MediaRef
	for i := 0; i < len(media); i += albumLimit {
		chunks = append(chunks, media[i:min(i+albumLimit, len(media))])
	}
	return chunks
}

func fileOf(ref disruption.MediaRef) tele.File {
	if ref.IsLink() {
		return tele.FromURL(ref.File)
	}
	return tele.File{FileID: ref.File}
}

func inputMedia(ref disruption.MediaRef) tele.Inputtable {
	if ref.Type == disruption.MediaVideo {
		return &tele.Video{File: fileOf(ref)}
	}
	return &tele.Photo{File: fileOf(ref)}
}

func mediaEndpoint(ref disruption.MediaRef) string {
	if ref.Type == disruption.MediaVideo {
		return "Video"
	}
	return "Photo"
}

func toAlbum(media []disruption.MediaRef) tele.Album {
	album := make(tele.Album, 0, len(media))
	for _, ref := range media {
		album = append(album, inputMedia(ref))
	}
	return album
}
