// Package callbacks encodes inline button payloads as "<action>_<payload>".
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Separator joins an action and its payload.
const Separator = "_"

// MaxDataLen is the Telegram limit for callback_data, in bytes.
const MaxDataLen = 64

// Join builds raw callback data for action and payload.
func Join(action, payload string) string {
	return action + Separator + payload
}

// Split cuts data at the first separator. Payloads may contain the
// separator themselves. ok is false when there is no action.
func Split(data string) (action, payload string, ok bool) {
	data = strings.TrimPrefix(data, "\f")
	action, payload, ok = strings.Cut(data, Separator)
	if !ok || action == "" {
		return "", "", false
	}
	return action, payload, true
}

// Fits reports whether data is short enough to be accepted by Telegram.
func Fits(data string) bool {
	return len(data) <= MaxDataLen
}

// Parse returns the action and payload of a callback. Buttons created with a
// telebot unique keep it as the action and Data as the payload.
func Parse(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	action, payload, ok := Split(cb.Data)
	if !ok {
		return strings.TrimSpace(cb.Data), ""
	}
	return action, payload
}

// Action returns the action of the current callback, if any.
func Action(c tele.Context) string {
	a, _ := Parse(c.Callback())
	return a
}

// Payload returns the payload of the current callback, if any.
func Payload(c tele.Context) string {
	_, p := Parse(c.Callback())
	return p
}
