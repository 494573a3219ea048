package service_test

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/service"
	"github.com/saadjs/kcaldebt/internal/store"
	"github.com/saadjs/kcaldebt/internal/testutil"
)

// base is Monday 2026-02-02 12:00 UTC; day(n) is n days later at noon.
var base = time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return base.AddDate(0, 0, n)
}

var testProfile = model.Profile{WeightKg: 70, HeightCm: 175, Age: 30, Gender: "male"}

const (
	// running for 30 minutes with testProfile
	runBase  = 336.6
	runX11   = 370.3
	runX12   = 403.9
	halfHour = 30
)

type harness struct {
	db     *sql.DB
	engine *service.Engine
	store  *store.SQLStore
	clock  *testutil.StubClock
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	sqldb, _ := testutil.NewTestDB(t)
	st := store.NewSQLStore(sqldb, time.UTC)
	clock := testutil.NewStubClock(now)
	engine := newEngine(t, st, clock)
	return &harness{db: sqldb, engine: engine, store: st, clock: clock}
}

func newEngine(t *testing.T, st store.Store, clock service.Clock) *service.Engine {
	t.Helper()
	engine, err := service.NewEngine(service.Options{
		Store:        st,
		Clock:        clock,
		IDs:          testutil.NewStubIDGenerator(),
		Profile:      testProfile,
		RolloverHour: 4,
		Location:     time.UTC,
		DefaultMode:  model.PeriodWeekly,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func (h *harness) run(t *testing.T, n int) service.RecordResult {
	t.Helper()
	res, err := h.engine.RecordCredit(context.Background(), service.CreditInput{Timestamp: day(n), Activity: "running", DurationMin: halfHour})
	if err != nil {
		t.Fatalf("record credit on day %d: %v", n, err)
	}
	return res
}

// drink records 2 x 660 ml at 5%, which is 369.7 kcal of debt.
func (h *harness) drink(t *testing.T, n int) service.RecordResult {
	t.Helper()
	res, err := h.engine.RecordDebt(context.Background(), service.DebtInput{Timestamp: day(n), VolumeMl: 660, StrengthPct: 5, Count: 2})
	if err != nil {
		t.Fatalf("record debt on day %d: %v", n, err)
	}
	return res
}

func (h *harness) dry(t *testing.T, n int) {
	t.Helper()
	if _, err := h.engine.SaveCheckIn(context.Background(), service.CheckInInput{Timestamp: day(n), IsDryDay: true}); err != nil {
		t.Fatalf("save check-in on day %d: %v", n, err)
	}
}

func (h *harness) entry(t *testing.T, id int64) model.LogEntry {
	t.Helper()
	e, err := h.store.GetEntry(context.Background(), id)
	if err != nil {
		t.Fatalf("get entry %d: %v", id, err)
	}
	return e
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// failingStore fails every UpdateEntry, including inside transactions.
type failingStore struct {
	store.Store
}

var errDiskFull = errors.New("disk full")

func (f failingStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return f.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(failingStore{Store: tx})
	})
}

func (f failingStore) UpdateEntry(context.Context, model.LogEntry) error {
	return errDiskFull
}

// commitFailingStore runs every transaction and then reports a failed commit.
type commitFailingStore struct {
	store.Store
}

func (f commitFailingStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if err := f.Store.WithTx(ctx, fn); err != nil {
		return err
	}
	return errors.New("commit: database is locked")
}
