// Package commands describes slash commands registered with the bot.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is a slash command handler and its menu entry.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are rejected for everyone outside the admin list
	// and never appear in the public command menu.
	AdminOnly bool
	Hidden    bool
	Aliases   []string
}

// Public reports whether the command belongs in the Telegram command menu.
func (c Command) Public() bool {
	return !c.AdminOnly && !c.Hidden
}
