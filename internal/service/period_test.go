package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/service"
)

func liveSum(t *testing.T, h *harness) (float64, int) {
	t.Helper()
	entries, err := h.store.ListEntries(context.Background())
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	total := 0.0
	for _, e := range entries {
		total += e.KCal
	}
	return total, len(entries)
}

func archiveSum(t *testing.T, h *harness) (float64, []model.PeriodArchive) {
	t.Helper()
	archives, err := h.store.ListArchives(context.Background())
	if err != nil {
		t.Fatalf("list archives: %v", err)
	}
	total := 0.0
	for _, a := range archives {
		total += a.TotalBalance
	}
	return total, archives
}

func assertNoOverlap(t *testing.T, archives []model.PeriodArchive) {
	t.Helper()
	for i, a := range archives {
		for _, b := range archives[i+1:] {
			if a.Overlaps(b.StartDate, b.EndDate) {
				t.Fatalf("archives %s and %s overlap", a.ID, b.ID)
			}
		}
	}
}

func TestWeeklyRolloverArchivesPreviousWeek(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(2))

	state, err := h.engine.EnsurePeriodState(ctx)
	if err != nil {
		t.Fatalf("ensure period state: %v", err)
	}
	weekOne := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	weekTwo := weekOne.AddDate(0, 0, 7)
	if state.Mode != model.PeriodWeekly || !state.PeriodStart.Equal(weekOne) {
		t.Fatalf("unexpected initial state %+v", state)
	}

	h.drink(t, 0)
	h.run(t, 1)
	h.drink(t, 2)
	h.clock.Set(day(8))
	h.drink(t, 7)

	res, err := h.engine.CheckPeriodRollover(ctx)
	if err != nil {
		t.Fatalf("check rollover: %v", err)
	}
	if !res.RolledOver || res.Skipped || res.Archive == nil {
		t.Fatalf("expected a rollover with a new archive, got %+v", res)
	}
	if !res.Archive.StartDate.Equal(weekOne) || !res.Archive.EndDate.Equal(weekTwo.Add(-time.Millisecond)) {
		t.Fatalf("unexpected archive bounds %s..%s", res.Archive.StartDate, res.Archive.EndDate)
	}
	if len(res.Archive.Entries) != 3 || !approx(res.Archive.TotalBalance, -402.8) {
		t.Fatalf("unexpected archive contents: %d entries, total %.1f", len(res.Archive.Entries), res.Archive.TotalBalance)
	}
	if !res.State.PeriodStart.Equal(weekTwo) {
		t.Fatalf("expected period start %s, got %s", weekTwo, res.State.PeriodStart)
	}

	live, n := liveSum(t, h)
	archived, archives := archiveSum(t, h)
	if n != 1 || !approx(live+archived, -772.5) {
		t.Fatalf("balance not conserved: live %.1f (%d entries) + archived %.1f", live, n, archived)
	}

	again, err := h.engine.CheckPeriodRollover(ctx)
	if err != nil {
		t.Fatalf("second rollover check: %v", err)
	}
	if again.RolledOver {
		t.Fatalf("expected no second rollover")
	}

	manual, err := h.engine.ArchiveAndReset(ctx, weekOne, weekTwo, model.PeriodWeekly)
	if err != nil {
		t.Fatalf("archive and reset: %v", err)
	}
	if !manual.Skipped || manual.Archive != nil || !manual.State.PeriodStart.Equal(weekTwo) {
		t.Fatalf("expected duplicate archive to be skipped, got %+v", manual)
	}
	_, archives = archiveSum(t, h)
	if len(archives) != 1 {
		t.Fatalf("expected a single archive, found %d", len(archives))
	}

	// Archived history still feeds the streak.
	ref := day(1)
	streak, err := h.engine.CurrentStreak(ctx, &ref)
	if err != nil {
		t.Fatalf("current streak: %v", err)
	}
	if streak != 1 {
		t.Fatalf("expected streak 1 across the archive, got %d", streak)
	}
}

func TestBackdatedEntryIsAbsorbedIntoArchive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(2))
	if _, err := h.engine.EnsurePeriodState(ctx); err != nil {
		t.Fatalf("ensure period state: %v", err)
	}
	h.drink(t, 0)
	h.clock.Set(day(8))
	if _, err := h.engine.CheckPeriodRollover(ctx); err != nil {
		t.Fatalf("check rollover: %v", err)
	}

	h.drink(t, 3)

	live, n := liveSum(t, h)
	archived, archives := archiveSum(t, h)
	if n != 0 || live != 0 {
		t.Fatalf("expected backdated entry to leave the live log, found %d", n)
	}
	if len(archives) != 1 || len(archives[0].Entries) != 2 || !approx(archived, -739.4) {
		t.Fatalf("expected archive to absorb the entry, got %+v", archives)
	}
	assertNoOverlap(t, archives)
}

func TestSwitchToPermanentRestoresArchives(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(2))
	if _, err := h.engine.EnsurePeriodState(ctx); err != nil {
		t.Fatalf("ensure period state: %v", err)
	}
	first := h.drink(t, 0)
	h.run(t, 1)
	h.clock.Set(day(8))
	if _, err := h.engine.CheckPeriodRollover(ctx); err != nil {
		t.Fatalf("check rollover: %v", err)
	}
	latest := h.drink(t, 7)
	before, _ := liveSum(t, h)
	archived, _ := archiveSum(t, h)

	res, err := h.engine.SwitchPeriodMode(ctx, model.PeriodPermanent, nil)
	if err != nil {
		t.Fatalf("switch to permanent: %v", err)
	}
	if res.Restored != 2 || res.State.Mode != model.PeriodPermanent || res.State.PeriodStart.UnixMilli() != 0 {
		t.Fatalf("unexpected switch result %+v", res)
	}

	after, n := liveSum(t, h)
	if n != 3 || !approx(after, before+archived) {
		t.Fatalf("expected all history live: %d entries, %.1f vs %.1f", n, after, before+archived)
	}
	_, archives := archiveSum(t, h)
	if len(archives) != 0 {
		t.Fatalf("expected archives to be cleared, found %d", len(archives))
	}
	entries, _ := h.store.ListEntries(ctx)
	for _, e := range entries {
		if e.ID == first.ID {
			t.Fatalf("restored entry kept its original id %d", e.ID)
		}
		if e.ID != latest.ID && e.ID <= latest.ID {
			t.Fatalf("restored entry got a reused id %d", e.ID)
		}
	}

	roll, err := h.engine.CheckPeriodRollover(ctx)
	if err != nil || roll.RolledOver {
		t.Fatalf("permanent mode never rolls over (rolled=%v, err=%v)", roll.RolledOver, err)
	}
}

func TestCustomPeriodEndsWithoutArchiving(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(5))
	h.drink(t, 1)

	res, err := h.engine.SwitchPeriodMode(ctx, model.PeriodCustom, &service.CustomBounds{Start: day(0), End: day(3), Label: "dry february"})
	if err != nil {
		t.Fatalf("switch to custom: %v", err)
	}
	if res.State.Label != "dry february" || res.State.PeriodEnd == nil {
		t.Fatalf("unexpected custom state %+v", res.State)
	}

	roll, err := h.engine.CheckPeriodRollover(ctx)
	if err != nil {
		t.Fatalf("check rollover: %v", err)
	}
	if !roll.CustomEnded || roll.RolledOver || roll.Archive != nil {
		t.Fatalf("expected ended custom period without archive, got %+v", roll)
	}
	if _, archives := archiveSum(t, h); len(archives) != 0 {
		t.Fatalf("expected no automatic archive")
	}

	state, err := h.engine.ExtendCustomPeriod(ctx, day(10))
	if err != nil {
		t.Fatalf("extend custom period: %v", err)
	}
	if !state.PeriodEnd.Equal(day(10)) {
		t.Fatalf("expected new end %s, got %s", day(10), state.PeriodEnd)
	}
	roll, _ = h.engine.CheckPeriodRollover(ctx)
	if roll.CustomEnded {
		t.Fatalf("extended period should be running")
	}
	if _, err := h.engine.ExtendCustomPeriod(ctx, day(4)); !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected shorter extension to be rejected, got %v", err)
	}

	archive, err := h.engine.ArchiveAndReset(ctx, day(0), day(5), model.PeriodCustom)
	if err != nil {
		t.Fatalf("manual archive: %v", err)
	}
	if archive.Archive == nil || archive.Moved != 1 || archive.Archive.Mode != model.PeriodCustom {
		t.Fatalf("unexpected manual archive %+v", archive)
	}
}

func TestSwitchPeriodModeValidation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(5))

	tests := []struct {
		name   string
		mode   model.PeriodMode
		bounds *service.CustomBounds
	}{
		{name: "unknown mode", mode: "yearly"},
		{name: "custom without bounds", mode: model.PeriodCustom},
		{name: "custom end before start", mode: model.PeriodCustom, bounds: &service.CustomBounds{Start: day(3), End: day(1), Label: "x"}},
		{name: "custom without label", mode: model.PeriodCustom, bounds: &service.CustomBounds{Start: day(0), End: day(1)}},
		{name: "bounds on weekly", mode: model.PeriodWeekly, bounds: &service.CustomBounds{Start: day(0), End: day(1), Label: "x"}},
	}
	for _, tc := range tests {
		if _, err := h.engine.SwitchPeriodMode(ctx, tc.mode, tc.bounds); !errors.Is(err, service.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", tc.name, err)
		}
	}
	if _, err := h.engine.ExtendCustomPeriod(ctx, day(9)); !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected extending a weekly period to fail, got %v", err)
	}
	if _, err := h.engine.ArchiveAndReset(ctx, day(3), day(1), model.PeriodWeekly); !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected reversed archive bounds to fail, got %v", err)
	}

	res, err := h.engine.SwitchPeriodMode(ctx, model.PeriodMonthly, nil)
	if err != nil {
		t.Fatalf("switch to monthly: %v", err)
	}
	if !res.State.PeriodStart.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected monthly start %s", res.State.PeriodStart)
	}
}

func TestRepeatedArchivesNeverOverlap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(1))
	if _, err := h.engine.EnsurePeriodState(ctx); err != nil {
		t.Fatalf("ensure period state: %v", err)
	}
	total := 0.0
	for week := 0; week < 4; week++ {
		h.clock.Set(day(week*7 + 2))
		total += h.drink(t, week*7+1).KCal
		total += h.run(t, week*7+2).KCal
		h.clock.Set(day(week*7 + 8))
		if _, err := h.engine.CheckPeriodRollover(ctx); err != nil {
			t.Fatalf("week %d rollover: %v", week, err)
		}
	}

	archived, archives := archiveSum(t, h)
	live, _ := liveSum(t, h)
	if len(archives) != 4 {
		t.Fatalf("expected 4 archives, got %d", len(archives))
	}
	assertNoOverlap(t, archives)
	if !approx(archived+live, total) {
		t.Fatalf("balance not conserved: %.1f + %.1f != %.1f", archived, live, total)
	}
}

func TestGetArchiveByIDOrPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(2))
	if _, err := h.engine.EnsurePeriodState(ctx); err != nil {
		t.Fatalf("ensure period state: %v", err)
	}
	h.drink(t, 1)
	h.clock.Set(day(8))

	res, err := h.engine.CheckPeriodRollover(ctx)
	if err != nil || res.Archive == nil {
		t.Fatalf("expected an archive, got %+v (%v)", res, err)
	}
	got, err := h.engine.GetArchive(ctx, res.Archive.ID)
	if err != nil {
		t.Fatalf("get archive: %v", err)
	}
	if len(got.Entries) != 1 || !approx(got.TotalBalance, -369.7) {
		t.Fatalf("unexpected archive %+v", got)
	}
	if _, err := h.engine.GetArchive(ctx, "missing"); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.engine.GetArchive(ctx, " "); !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty id, got %v", err)
	}
}

func TestMonthlyRolloverAfterWeeklyArchiveStartsAfterIt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(2))
	if _, err := h.engine.EnsurePeriodState(ctx); err != nil {
		t.Fatalf("ensure period state: %v", err)
	}
	h.drink(t, 0)
	h.clock.Set(day(8))
	if _, err := h.engine.CheckPeriodRollover(ctx); err != nil {
		t.Fatalf("weekly rollover: %v", err)
	}
	weekTwo := time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)

	h.clock.Set(day(10))
	h.drink(t, 9)
	res, err := h.engine.SwitchPeriodMode(ctx, model.PeriodMonthly, nil)
	if err != nil {
		t.Fatalf("switch to monthly: %v", err)
	}
	if !res.State.PeriodStart.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected monthly start %s", res.State.PeriodStart)
	}

	h.clock.Set(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	roll, err := h.engine.CheckPeriodRollover(ctx)
	if err != nil {
		t.Fatalf("monthly rollover: %v", err)
	}
	if !roll.RolledOver || roll.Skipped || roll.Archive == nil {
		t.Fatalf("expected February to be archived, got %+v", roll)
	}
	if !roll.Archive.StartDate.Equal(weekTwo) || len(roll.Archive.Entries) != 1 {
		t.Fatalf("expected archive from %s with 1 entry, got %s with %d", weekTwo, roll.Archive.StartDate, len(roll.Archive.Entries))
	}

	_, n := liveSum(t, h)
	_, archives := archiveSum(t, h)
	if n != 0 || len(archives) != 2 {
		t.Fatalf("expected 0 live entries and 2 archives, got %d and %d", n, len(archives))
	}
	assertNoOverlap(t, archives)
}

func TestArchivingCustomPeriodClearsPassedEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, day(5))
	h.drink(t, 1)
	if _, err := h.engine.SwitchPeriodMode(ctx, model.PeriodCustom, &service.CustomBounds{Start: day(0), End: day(3), Label: "sprint"}); err != nil {
		t.Fatalf("switch to custom: %v", err)
	}

	res, err := h.engine.ArchiveAndReset(ctx, day(0), day(4), model.PeriodCustom)
	if err != nil {
		t.Fatalf("archive and reset: %v", err)
	}
	if res.State.PeriodEnd != nil || res.State.Label != "sprint" {
		t.Fatalf("expected an open-ended restarted period, got %+v", res.State)
	}
	roll, err := h.engine.CheckPeriodRollover(ctx)
	if err != nil {
		t.Fatalf("check rollover: %v", err)
	}
	if roll.CustomEnded {
		t.Fatalf("restarted period must not report ended")
	}

	if _, err := h.engine.ExtendCustomPeriod(ctx, day(2)); !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected an end before the new start to be rejected, got %v", err)
	}
	state, err := h.engine.ExtendCustomPeriod(ctx, day(12))
	if err != nil {
		t.Fatalf("set end: %v", err)
	}
	if state.PeriodEnd == nil || !state.PeriodEnd.Equal(day(12)) {
		t.Fatalf("expected end %s, got %+v", day(12), state.PeriodEnd)
	}
}
