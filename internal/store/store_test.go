package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/store"
	"github.com/saadjs/kcaldebt/internal/testutil"
)

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	sqldb, _ := testutil.NewTestDB(t)
	return store.NewSQLStore(sqldb, time.UTC)
}

var base = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

func drinkEntry(ts time.Time, kcal float64) model.LogEntry {
	return model.LogEntry{Timestamp: ts, KCal: kcal, Drink: &model.Drink{VolumeMl: 500, StrengthPct: 5, Count: 1, Style: "IPA", Rating: 4}}
}

func workoutEntry(ts time.Time, kcal float64) model.LogEntry {
	return model.LogEntry{Timestamp: ts, KCal: kcal, Workout: &model.Workout{Activity: "running", DurationMin: 30, Annotation: "tempo"}}
}

func TestEntryCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	debtID, err := s.InsertEntry(ctx, drinkEntry(base, -140))
	if err != nil {
		t.Fatalf("insert debt: %v", err)
	}
	creditID, err := s.InsertEntry(ctx, workoutEntry(base.Add(-time.Hour), 300))
	if err != nil {
		t.Fatalf("insert credit: %v", err)
	}

	all, err := s.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(all) != 2 || all[0].ID != creditID || all[1].ID != debtID {
		t.Fatalf("expected entries ordered by timestamp, got %+v", all)
	}
	if all[0].Workout == nil || all[0].Workout.Annotation != "tempo" || all[0].Drink != nil {
		t.Fatalf("unexpected credit variant %+v", all[0])
	}
	if all[1].Drink == nil || all[1].Drink.Style != "IPA" || !all[1].Timestamp.Equal(base) {
		t.Fatalf("unexpected debt variant %+v", all[1])
	}

	got, err := s.GetEntry(ctx, creditID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	got.KCal = 330
	got.Workout.Annotation = "tempo [streak bonus x1.1]"
	if err := s.UpdateEntry(ctx, got); err != nil {
		t.Fatalf("update entry: %v", err)
	}
	got, _ = s.GetEntry(ctx, creditID)
	if got.KCal != 330 || got.Workout.Annotation != "tempo [streak bonus x1.1]" {
		t.Fatalf("update not persisted: %+v", got)
	}

	between, err := s.ListEntriesBetween(ctx, base, base)
	if err != nil {
		t.Fatalf("list between: %v", err)
	}
	if len(between) != 1 || between[0].ID != debtID {
		t.Fatalf("expected inclusive range to return the debt, got %+v", between)
	}

	if err := s.DeleteEntry(ctx, debtID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if err := s.DeleteEntry(ctx, debtID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := s.GetEntry(ctx, debtID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.InsertEntry(ctx, drinkEntry(base, -100))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.DeleteEntries(ctx, []int64{first}); err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	second, err := s.InsertEntry(ctx, drinkEntry(base, -100))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if second <= first {
		t.Fatalf("expected fresh id after delete, got %d then %d", first, second)
	}
}

func TestCheckInRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	weight := 81.5
	id, err := s.InsertCheckIn(ctx, model.CheckIn{
		Timestamp:  base,
		IsDryDay:   true,
		Conditions: map[string]bool{"slept_well": true, "stressed": false},
		Weight:     &weight,
		IsSaved:    true,
	})
	if err != nil {
		t.Fatalf("insert check-in: %v", err)
	}
	items, err := s.ListCheckIns(ctx)
	if err != nil {
		t.Fatalf("list check-ins: %v", err)
	}
	if len(items) != 1 || items[0].ID != id || !items[0].IsDryDay || !items[0].IsSaved {
		t.Fatalf("unexpected check-ins %+v", items)
	}
	if items[0].Weight == nil || *items[0].Weight != 81.5 || !items[0].Conditions["slept_well"] {
		t.Fatalf("unexpected check-in details %+v", items[0])
	}

	items[0].IsDryDay = false
	items[0].Weight = nil
	if err := s.UpdateCheckIn(ctx, items[0]); err != nil {
		t.Fatalf("update check-in: %v", err)
	}
	items, _ = s.ListCheckInsBetween(ctx, base.Add(-time.Minute), base.Add(time.Minute))
	if len(items) != 1 || items[0].IsDryDay || items[0].Weight != nil {
		t.Fatalf("update not persisted: %+v", items)
	}
}

func TestArchiveInsertGuardsAndSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	snapshotEntry := drinkEntry(base, -140)
	snapshotEntry.ID = 42
	archive := model.PeriodArchive{
		ID:           "a-1",
		StartDate:    base.AddDate(0, 0, -7),
		EndDate:      base.Add(time.Hour),
		Mode:         model.PeriodWeekly,
		TotalBalance: -140,
		Entries:      []model.LogEntry{snapshotEntry},
	}
	if err := s.InsertArchive(ctx, archive); err != nil {
		t.Fatalf("insert archive: %v", err)
	}

	dup := archive
	dup.ID = "a-2"
	dup.EndDate = base.AddDate(0, 0, 1)
	if err := s.InsertArchive(ctx, dup); !errors.Is(err, store.ErrInconsistentArchive) {
		t.Fatalf("expected duplicate start to be rejected, got %v", err)
	}
	overlap := model.PeriodArchive{ID: "a-3", StartDate: base, EndDate: base.AddDate(0, 0, 3), Mode: model.PeriodWeekly}
	if err := s.InsertArchive(ctx, overlap); !errors.Is(err, store.ErrInconsistentArchive) {
		t.Fatalf("expected overlap to be rejected, got %v", err)
	}
	next := model.PeriodArchive{ID: "a-4", StartDate: archive.EndDate.Add(time.Millisecond), EndDate: base.AddDate(0, 0, 3), Mode: model.PeriodWeekly}
	if err := s.InsertArchive(ctx, next); err != nil {
		t.Fatalf("expected adjacent archive to be accepted: %v", err)
	}

	got, err := s.GetArchive(ctx, "a-1")
	if err != nil {
		t.Fatalf("get archive: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].ID != 42 || got.Entries[0].Drink == nil || got.Entries[0].Drink.Style != "IPA" {
		t.Fatalf("unexpected snapshot %+v", got.Entries)
	}

	got.TotalBalance = 0
	got.Entries = nil
	if err := s.UpdateArchive(ctx, got); err != nil {
		t.Fatalf("update archive: %v", err)
	}
	all, err := s.ListArchives(ctx)
	if err != nil {
		t.Fatalf("list archives: %v", err)
	}
	if len(all) != 2 || all[0].ID != "a-1" || len(all[0].Entries) != 0 || all[0].TotalBalance != 0 {
		t.Fatalf("unexpected archives after update %+v", all)
	}

	if err := s.DeleteAllArchives(ctx); err != nil {
		t.Fatalf("delete archives: %v", err)
	}
	if _, err := s.GetArchive(ctx, "a-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected archive to be gone, got %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.InsertEntry(ctx, drinkEntry(base, -100)); err != nil {
			return err
		}
		return tx.WithTx(ctx, func(inner store.Store) error {
			if err := inner.SetState(ctx, "period_mode", "monthly"); err != nil {
				return err
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	entries, err := s.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected rollback, found %d entries", len(entries))
	}
	if _, ok, _ := s.GetState(ctx, "period_mode"); ok {
		t.Fatalf("expected state write to roll back")
	}
}

func TestPeriodStateRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	if _, ok, err := store.LoadPeriodState(ctx, s, time.UTC); err != nil || ok {
		t.Fatalf("expected no state on first run (ok=%v, err=%v)", ok, err)
	}

	end := base.AddDate(0, 1, 0)
	want := model.PeriodState{Mode: model.PeriodCustom, PeriodStart: base, PeriodEnd: &end, Label: "dry march"}
	if err := store.SavePeriodState(ctx, s, want); err != nil {
		t.Fatalf("save state: %v", err)
	}
	got, ok, err := store.LoadPeriodState(ctx, s, time.UTC)
	if err != nil || !ok {
		t.Fatalf("load state: ok=%v err=%v", ok, err)
	}
	if got.Mode != want.Mode || !got.PeriodStart.Equal(base) || got.PeriodEnd == nil || !got.PeriodEnd.Equal(end) || got.Label != "dry march" {
		t.Fatalf("unexpected state %+v", got)
	}

	if err := store.SavePeriodState(ctx, s, model.PeriodState{Mode: model.PeriodWeekly, PeriodStart: base}); err != nil {
		t.Fatalf("save weekly state: %v", err)
	}
	got, _, _ = store.LoadPeriodState(ctx, s, time.UTC)
	if got.PeriodEnd != nil || got.Label != "" {
		t.Fatalf("expected custom fields to be cleared, got %+v", got)
	}
}
