// Package ledger holds the pure temporal rules of the debt/credit ledger:
// virtual-day bucketing, day aggregation, streak walking, credit multipliers
// and period boundaries. Nothing here touches storage.
package ledger

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultRolloverHour = 4
	dayKeyLayout        = "2006-01-02"
)

// DayKey is a sortable YYYY-MM-DD virtual day.
type DayKey string

// VirtualDay assigns t to a day whose boundary is rolloverHour instead of
// midnight, so a drink at 01:30 belongs to the previous evening.
func VirtualDay(t time.Time, rolloverHour int) DayKey {
	y, m, d := t.Date()
	if t.Hour() < rolloverHour {
		d--
	}
	return DayKey(time.Date(y, m, d, 12, 0, 0, 0, time.UTC).Format(dayKeyLayout))
}

func ParseDayKey(value string) (DayKey, error) {
	value = strings.TrimSpace(value)
	if _, err := time.Parse(dayKeyLayout, value); err != nil {
		return "", fmt.Errorf("invalid day %q (expected YYYY-MM-DD)", value)
	}
	return DayKey(value), nil
}

func (k DayKey) String() string { return string(k) }

func (k DayKey) date() time.Time {
	t, err := time.Parse(dayKeyLayout, string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (k DayKey) AddDays(n int) DayKey {
	return DayKey(k.date().AddDate(0, 0, n).Format(dayKeyLayout))
}

func (k DayKey) Prev() DayKey { return k.AddDays(-1) }
func (k DayKey) Next() DayKey { return k.AddDays(1) }

func (k DayKey) Before(other DayKey) bool { return k < other }
func (k DayKey) After(other DayKey) bool  { return k > other }

// Start returns the instant the virtual day begins in loc.
func (k DayKey) Start(loc *time.Location, rolloverHour int) time.Time {
	d := k.date()
	return time.Date(d.Year(), d.Month(), d.Day(), rolloverHour, 0, 0, 0, loc)
}

// End returns the last millisecond of the virtual day in loc.
func (k DayKey) End(loc *time.Location, rolloverHour int) time.Time {
	return k.Next().Start(loc, rolloverHour).Add(-time.Millisecond)
}
