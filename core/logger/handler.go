package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type lineFormat int

const (
	formatJSON lineFormat = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

type lineWriter interface {
	Write(p []byte) error
}

type handlerOptions struct {
	level  slog.Leveler
	out    lineWriter
	format lineFormat
	order  []string
}

// lineHandler is a slog.Handler that renders each record as one JSON object
// or one key=value line with a stable key order.
type lineHandler struct {
	opts   *handlerOptions
	preset []slog.Attr
	prefix string
}

func newLineHandler(opts *handlerOptions) *lineHandler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if opts.order == nil {
		opts.order = defaultOrder()
	}
	return &lineHandler{opts: opts}
}

func (h *lineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.opts.level.Level()
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.preset = slices.Concat(h.preset, h.scoped(attrs))
	return &c
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = joinKey(h.prefix, name)
	return &c
}

// scoped applies the current group prefix to attrs.
func (h *lineHandler) scoped(attrs []slog.Attr) []slog.Attr {
	if h.prefix == "" {
		return attrs
	}
	return []slog.Attr{{Key: h.prefix, Value: slog.GroupValue(attrs...)}}
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.opts.out == nil {
		return fmt.Errorf("logger: no output")
	}
	rec := record{}
	ts := r.Time.UTC()
	rec["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	rec["level"] = levelName(r.Level)
	if h.opts.format == formatJSON {
		rec["ts_unix_nano"] = ts.UnixNano()
	}
	for _, a := range h.preset {
		rec.add("", a)
	}
	var own []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		own = append(own, a)
		return true
	})
	for _, a := range h.scoped(own) {
		rec.add("", a)
	}
	rec.fromContext(ctx)
	rec.finish(r.Message, h.opts.format == formatJSON)

	line, err := rec.encode(h.opts.format, h.opts.order)
	if err != nil {
		return err
	}
	return h.opts.out.Write(append(line, '\n'))
}

// record holds the fields of one line.
type record map[string]any

func (rec record) add(prefix string, a slog.Attr) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			rec.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if d, ok := asDuration(v); ok {
		rec[msKey(key)] = RoundMS(d).Milliseconds()
		return
	}
	if val, ok := plain(v); ok {
		rec[key] = val
	}
}

func (rec record) setDefault(key string, v any) {
	if _, ok := rec[key]; !ok {
		rec[key] = v
	}
}

func (rec record) text(key string) string {
	switch v := rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (rec record) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	if rid := RIDFrom(ctx); rid != "" {
		rec.setDefault("rid", rid)
	}
	if m, ok := metaFrom(ctx); ok {
		if m.updateID != 0 {
			rec.setDefault("update_id", int64(m.updateID))
		}
		if m.userID != 0 {
			rec.setDefault("user_id", m.userID)
		}
		if m.chatID != 0 {
			rec.setDefault("chat_id", m.chatID)
		}
	}
	if h := HandlerFrom(ctx); h != "" {
		rec.setDefault("handler", h)
	}
}

// finish fills the envelope defaults and normalizes enumerated fields.
func (rec record) finish(msg string, keepFullRID bool) {
	if rec.text("event") == "" {
		if msg == "" {
			msg = "unknown"
		}
		rec["event"] = msg
	}
	if rec.text("component") == "" {
		rec["component"] = "app"
	}
	if rid := rec.text("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			if keepFullRID {
				rec.setDefault("rid_full", rid)
			}
			rec["rid"] = short
		}
	}
	if s := normalizeEnum(rec.text("status")); s != "" {
		rec["status"] = s
	}
	if _, ok := rec["outcome"]; ok {
		if o := normalizeEnum(rec.text("outcome")); knownOutcome[o] {
			rec["outcome"] = o
		} else {
			delete(rec, "outcome")
		}
	}
	for k, v := range rec {
		if v == nil || v == "" {
			delete(rec, k)
		}
	}
}

// keys returns the ordered keys first, then the rest sorted.
func (rec record) keys(order []string) []string {
	out := make([]string, 0, len(rec))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := rec[k]; ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range rec {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

func (rec record) encode(f lineFormat, order []string) ([]byte, error) {
	var buf bytes.Buffer
	keys := rec.keys(order)
	if f == formatJSON {
		buf.WriteByte('{')
		for i, k := range keys {
			v, err := json.Marshal(rec[k])
			if err != nil {
				return nil, fmt.Errorf("logger: encode %s: %w", k, err)
			}
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.Quote(k))
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(kvValue(rec[k]))
	}
	return buf.Bytes(), nil
}

func kvValue(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func asDuration(v slog.Value) (time.Duration, bool) {
	if v.Kind() == slog.KindDuration {
		return v.Duration(), true
	}
	if v.Kind() == slog.KindAny {
		d, ok := v.Any().(time.Duration)
		return d, ok
	}
	return 0, false
}

// msKey renames a duration key so the unit is visible: duration becomes
// duration_ms, x_duration becomes x_duration_ms.
func msKey(key string) string {
	if strings.HasSuffix(key, "_ms") {
		return key
	}
	return key + "_ms"
}

func plain(v slog.Value) (any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return v.Bool(), true
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return int64(u), true
		}
		return v.Uint64(), true
	case slog.KindFloat64:
		return v.Float64(), true
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return nil, false
	case error:
		return x.Error(), true
	case fmt.Stringer:
		return x.String(), true
	case string:
		return strings.TrimSpace(x), true
	default:
		return fmt.Sprint(x), true
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}
