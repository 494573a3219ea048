package ledger_test

import (
	"testing"
	"time"

	"github.com/saadjs/kcaldebt/internal/ledger"
)

func TestVirtualDayRollover(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("test", 2*60*60)
	for hour := 0; hour < 24; hour++ {
		ts := time.Date(2026, 3, 1, hour, 30, 0, 0, loc)
		got := ledger.VirtualDay(ts, ledger.DefaultRolloverHour)
		want := ledger.DayKey("2026-03-01")
		if hour < 4 {
			want = "2026-02-28"
		}
		if got != want {
			t.Fatalf("hour %d: expected %s, got %s", hour, want, got)
		}
	}
}

func TestVirtualDayCustomRolloverAndYearBoundary(t *testing.T) {
	t.Parallel()
	ts := time.Date(2026, 1, 1, 5, 59, 0, 0, time.UTC)
	if got := ledger.VirtualDay(ts, 6); got != "2025-12-31" {
		t.Fatalf("expected 2025-12-31, got %s", got)
	}
	if got := ledger.VirtualDay(ts, 0); got != "2026-01-01" {
		t.Fatalf("expected 2026-01-01 with midnight rollover, got %s", got)
	}
}

func TestDayKeyArithmetic(t *testing.T) {
	t.Parallel()
	day, err := ledger.ParseDayKey("2024-03-01")
	if err != nil {
		t.Fatalf("parse day: %v", err)
	}
	if got := day.Prev(); got != "2024-02-29" {
		t.Fatalf("expected leap day, got %s", got)
	}
	if got := day.Next(); got != "2024-03-02" {
		t.Fatalf("expected 2024-03-02, got %s", got)
	}
	if !day.Prev().Before(day) || !day.Next().After(day) {
		t.Fatalf("ordering broken around %s", day)
	}
	start := day.Start(time.UTC, 4)
	if !start.Equal(time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day start %s", start)
	}
	if ledger.VirtualDay(day.End(time.UTC, 4), 4) != day {
		t.Fatalf("day end should still belong to %s", day)
	}
	if _, err := ledger.ParseDayKey("2024-13-01"); err == nil {
		t.Fatalf("expected invalid day error")
	}
}
