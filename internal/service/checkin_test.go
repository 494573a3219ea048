package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/service"
)

func TestSaveCheckInUpsertsByVirtualDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(5))

	first, err := h.engine.SaveCheckIn(ctx, service.CheckInInput{Timestamp: day(0), IsDryDay: true})
	if err != nil {
		t.Fatalf("save check-in: %v", err)
	}

	// 02:00 the next calendar morning still belongs to day 0.
	lateNight := time.Date(2026, 2, 3, 2, 0, 0, 0, time.UTC)
	second, err := h.engine.SaveCheckIn(ctx, service.CheckInInput{Timestamp: lateNight, IsDryDay: false, Conditions: map[string]bool{"Social": true}})
	if err != nil {
		t.Fatalf("save check-in: %v", err)
	}
	if second != first {
		t.Fatalf("expected upsert into check-in %d, got %d", first, second)
	}

	placeholder, err := h.engine.SaveCheckIn(ctx, service.CheckInInput{Timestamp: day(0), IsDryDay: true, Placeholder: true})
	if err != nil {
		t.Fatalf("save placeholder: %v", err)
	}
	if placeholder != first {
		t.Fatalf("expected placeholder to resolve to the saved check-in")
	}

	items, err := h.engine.ListCheckIns(ctx, 7)
	if err != nil {
		t.Fatalf("list check-ins: %v", err)
	}
	if len(items) != 1 || items[0].Day != ledger.DayKey("2026-02-02") {
		t.Fatalf("unexpected check-ins %+v", items)
	}
	got := items[0].CheckIn
	if got.IsDryDay || !got.IsSaved || !got.Conditions["social"] {
		t.Fatalf("expected saved drank check-in with conditions, got %+v", got)
	}
}

func TestPlaceholderIsReplacedBySavedCheckIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(5))

	id, err := h.engine.SaveCheckIn(ctx, service.CheckInInput{Timestamp: day(1), Placeholder: true})
	if err != nil {
		t.Fatalf("save placeholder: %v", err)
	}
	weight := 80.2
	saved, err := h.engine.SaveCheckIn(ctx, service.CheckInInput{Timestamp: day(1), IsDryDay: true, Weight: &weight})
	if err != nil {
		t.Fatalf("save check-in: %v", err)
	}
	if saved != id {
		t.Fatalf("expected placeholder row %d to be reused, got %d", id, saved)
	}
	items, _ := h.engine.ListCheckIns(ctx, 7)
	if len(items) != 1 || !items[0].CheckIn.IsSaved || !items[0].CheckIn.IsDryDay || *items[0].CheckIn.Weight != 80.2 {
		t.Fatalf("unexpected check-ins %+v", items)
	}
}

func TestBalanceReportForCurrentPeriod(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(2))
	if _, err := h.engine.EnsurePeriodState(ctx); err != nil {
		t.Fatalf("ensure period state: %v", err)
	}
	h.drink(t, 0)
	h.run(t, 0)
	h.run(t, 1)

	report, err := h.engine.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if report.Entries != 3 || !approx(report.Debt, -369.7) || !approx(report.Credit, 2*runBase) {
		t.Fatalf("unexpected totals %+v", report)
	}
	if !approx(report.Balance, 2*runBase-369.7) {
		t.Fatalf("unexpected balance %.1f", report.Balance)
	}
	if len(report.Days) != 2 || report.Days[0].Day != ledger.DayKey("2026-02-03") {
		t.Fatalf("expected newest day first, got %+v", report.Days)
	}
	if report.Days[1].Outcome != ledger.OutcomeFailure {
		t.Fatalf("expected day 0 to be unresolved, got %s", report.Days[1].Outcome)
	}
	if report.Streak != 1 || report.Multiplier != 1.0 {
		t.Fatalf("unexpected streak %d x%.1f", report.Streak, report.Multiplier)
	}
}

func TestDryCheckInRefusedOnDrinkingDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(5))
	h.drink(t, 0)

	_, err := h.engine.SaveCheckIn(ctx, service.CheckInInput{Timestamp: day(0), IsDryDay: true})
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected a dry claim on a drinking day to be refused, got %v", err)
	}
	ref := day(0)
	streak, err := h.engine.CurrentStreak(ctx, &ref)
	if err != nil {
		t.Fatalf("current streak: %v", err)
	}
	if streak != 0 {
		t.Fatalf("expected the unpaid drink to keep the streak at 0, got %d", streak)
	}
	if _, err := h.engine.SaveCheckIn(ctx, service.CheckInInput{Timestamp: day(0)}); err != nil {
		t.Fatalf("expected a drank check-in to be accepted: %v", err)
	}
}

func TestDrinkTurnsDryCheckInToDrank(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(5))
	h.dry(t, 0)
	h.dry(t, 1)
	h.drink(t, 1)

	items, err := h.engine.ListCheckIns(ctx, 7)
	if err != nil {
		t.Fatalf("list check-ins: %v", err)
	}
	for _, item := range items {
		if item.Day == ledger.DayKey("2026-02-03") && item.CheckIn.IsDryDay {
			t.Fatalf("expected day 1 check-in to flip to drank, got %+v", item.CheckIn)
		}
	}
	ref := day(1)
	streak, err := h.engine.CurrentStreak(ctx, &ref)
	if err != nil {
		t.Fatalf("current streak: %v", err)
	}
	if streak != 0 {
		t.Fatalf("expected the drink to break the streak, got %d", streak)
	}

	// Moving a drink onto a dry day flips that day too.
	other := h.drink(t, 3)
	if _, err := h.engine.UpdateDebt(ctx, other.ID, service.DebtInput{Timestamp: day(0), VolumeMl: 330, StrengthPct: 5}); err != nil {
		t.Fatalf("update debt: %v", err)
	}
	items, _ = h.engine.ListCheckIns(ctx, 7)
	for _, item := range items {
		if item.CheckIn.IsDryDay {
			t.Fatalf("expected no dry check-in left, got %+v", item)
		}
	}
}
