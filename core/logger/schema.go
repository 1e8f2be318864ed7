package logger

import (
	"log/slog"
	"strings"
)

// Outcomes outside this set are dropped from the line.
var knownOutcome = map[string]bool{
	"ok": true, "fail": true, "partial": true, "cancelled": true, "rate_limited": true,
}

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	}
	return "ERROR"
}

func normalizeEnum(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// keyOrder lists the keys written first, in this order. Remaining keys follow
// alphabetically.
var keyOrder = []string{
	// envelope
	"ts", "level", "component", "event", "status", "rid", "rid_full", "ts_unix_nano",
	// update
	"update_id", "user_id", "chat_id", "chat_type", "handler", "cb_key", "outcome",
	"duration_ms", "messages", "kb",
	// domain
	"route", "step", "media", "subscribed", "changed",
	"broadcast_id", "kind", "recipients", "sent", "failed", "recipient",
	"collection", "count", "stamp", "bucket", "key", "bytes",
	"payload", "username", "mode", "listen", "public_url", "db", "host", "port",
	// failure
	"reason", "err", "err_code", "cause", "attempts",
}

func defaultOrder() []string {
	return append([]string(nil), keyOrder...)
}
