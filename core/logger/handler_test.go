package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func capture(t *testing.T, f lineFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	s := newSink([]io.Writer{buf}, 16)
	h := newLineHandler(&handlerOptions{level: slog.LevelDebug, out: s, format: f})
	return slog.New(h), func() string {
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		return strings.TrimSpace(buf.String())
	}
}

func TestKVLineOrderAndContext(t *testing.T) {
	log, read := capture(t, formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", "app"), slog.LevelInfo, "test.event",
		slog.String("status", "OK"),
		slog.String("route", "Москва Сочи"),
	)
	line := read()
	tokens := strings.Fields(line)
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %q, want prefix %q in %s", i, tokens[i], prefix, line)
		}
	}
	if !strings.Contains(line, `route="Москва Сочи"`) {
		t.Fatalf("spaces must be quoted: %s", line)
	}
}

func TestJSONLineCompactsRID(t *testing.T) {
	log, read := capture(t, formatJSON)
	ctx := WithRID(Background(), BuildRID(12, 34, 56))
	LogEvent(ctx, log, slog.LevelError, "service.failed",
		slog.Any("err", errors.New("boom")),
		slog.Duration("duration", 1500*time.Microsecond),
		slog.String("outcome", "exploded"),
	)
	line := read()
	for _, part := range []string{
		`{"ts":`, `"level":"ERROR"`, `"component":"app"`, `"event":"service.failed"`,
		`"rid":"c.y.1k"`, `"rid_full":"12:34:56"`, `"duration_ms":2`, `"err":"boom"`, `"ts_unix_nano":`,
	} {
		if !strings.Contains(line, part) {
			t.Fatalf("missing %s in %s", part, line)
		}
	}
	if strings.Contains(line, "outcome") {
		t.Fatalf("unknown outcome must be dropped: %s", line)
	}
}

func TestGroupsAndLevels(t *testing.T) {
	log, read := capture(t, formatKV)
	log.WithGroup("db").With("host", "pg").Info("", slog.Int("port", 5432))
	log.Log(context.Background(), slog.LevelWarn+1, "odd")
	lines := strings.Split(read(), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "db.host=pg") || !strings.Contains(lines[0], "db.port=5432") || !strings.Contains(lines[0], "event=unknown") {
		t.Fatalf("group line = %s", lines[0])
	}
	if !strings.Contains(lines[1], "level=WARN") || !strings.Contains(lines[1], "event=odd") {
		t.Fatalf("level line = %s", lines[1])
	}
}

func TestSinkFlushAndClose(t *testing.T) {
	buf := &bytes.Buffer{}
	s := newSink([]io.Writer{buf}, 1)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Write([]byte("x\n"))
		}()
	}
	wg.Wait()
	if err := s.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := strings.Count(buf.String(), "x"); got != 20 {
		t.Fatalf("lines = %d", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Write([]byte("late")); !errors.Is(err, errSinkClosed) {
		t.Fatalf("write after close = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestCompactRID(t *testing.T) {
	cases := map[string]string{
		"123:456:789": "3f.co.lx",
		"-1:0:35":     "-1.0.z",
		"rid-123":     "rid-123",
		"1:x:2":       "1:x:2",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Fatalf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}
