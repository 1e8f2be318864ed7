// Package state keeps per-user conversation sessions for Telegram bots.
// It is domain-agnostic: the session value type is chosen by the caller.
package state
