package ledger

import (
	"fmt"
	"time"

	"github.com/saadjs/kcaldebt/internal/model"
)

// Epoch is the period start used by permanent mode: all history is visible.
var Epoch = time.UnixMilli(0)

// WeekStart returns Monday 00:00 of t's week in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// MonthStart returns the first of t's month at 00:00 in t's location.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// CanonicalStart is the start of the period containing now for automatic modes.
func CanonicalStart(mode model.PeriodMode, now time.Time) (time.Time, error) {
	switch mode {
	case model.PeriodWeekly:
		return WeekStart(now), nil
	case model.PeriodMonthly:
		return MonthStart(now), nil
	case model.PeriodPermanent:
		return Epoch, nil
	case model.PeriodCustom:
		return time.Time{}, fmt.Errorf("custom periods have no canonical start")
	}
	return time.Time{}, fmt.Errorf("unknown period mode %q", mode)
}

// CustomEnded reports whether a custom period's end has passed.
func CustomEnded(state model.PeriodState, now time.Time) bool {
	return state.Mode == model.PeriodCustom && state.PeriodEnd != nil && now.After(*state.PeriodEnd)
}
