package helpers

import (
	"fmt"
	"time"
)

var genitiveMonthsRU = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// LoadLocation resolves an IANA zone name. Europe/Moscow falls back to a
// fixed UTC+3 zone when the host has no tzdata.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	if name == "Europe/Moscow" {
		return time.FixedZone("MSK", 3*60*60)
	}
	return time.UTC
}

// FormatDateRU renders t in loc as a Russian long date, e.g. "7 сентября 2025 г.".
func FormatDateRU(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%d %s %d г.", t.Day(), genitiveMonthsRU[t.Month()-1], t.Year())
}
