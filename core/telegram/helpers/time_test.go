package helpers

import (
	"testing"
	"time"
)

func TestFormatDateRUUsesLocation(t *testing.T) {
	// 22:30 UTC is already the next day in Moscow.
	ts := time.Date(2025, time.September, 6, 22, 30, 0, 0, time.UTC)
	got := FormatDateRU(ts, LoadLocation("Europe/Moscow"))
	if got != "7 сентября 2025 г." {
		t.Fatalf("FormatDateRU = %q", got)
	}
}

func TestFormatDateRUNilLocation(t *testing.T) {
	ts := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := FormatDateRU(ts, nil); got != "1 января 2026 г." {
		t.Fatalf("FormatDateRU = %q", got)
	}
}

func TestLoadLocationUnknownFallsBackToUTC(t *testing.T) {
	if loc := LoadLocation("Mars/Olympus_Mons"); loc != time.UTC {
		t.Fatalf("loc = %v, want UTC", loc)
	}
}
