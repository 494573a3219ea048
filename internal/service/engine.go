// Package service runs every mutation of the ledger together with its
// retroactive recalculation, and owns the period state.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/store"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces archive and cascade run ids.
type IDGenerator interface {
	New() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// Logger provides structured logging. The args follow slog conventions:
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards all output.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// Recalculator is the single entry point for retroactive correction of
// stored credit amounts and archive snapshots.
type Recalculator interface {
	Recalculate(ctx context.Context, changed time.Time) (CascadeReport, error)
}

type Options struct {
	Store        store.Store
	Clock        Clock
	IDs          IDGenerator
	Logger       Logger
	Profile      model.Profile
	RolloverHour int
	Location     *time.Location
	// DefaultMode seeds the period state on first run.
	DefaultMode model.PeriodMode
}

// Engine serializes mutations; each mutation and its cascade share one transaction.
type Engine struct {
	mu sync.Mutex

	store       store.Store
	clock       Clock
	ids         IDGenerator
	log         Logger
	profile     model.Profile
	rollover    int
	loc         *time.Location
	defaultMode model.PeriodMode
}

var _ Recalculator = (*Engine)(nil)

func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("engine store is required")
	}
	if opts.RolloverHour < 0 || opts.RolloverHour > 23 {
		return nil, fmt.Errorf("rollover hour must be between 0 and 23")
	}
	e := &Engine{
		store:       opts.Store,
		clock:       opts.Clock,
		ids:         opts.IDs,
		log:         opts.Logger,
		profile:     opts.Profile,
		rollover:    opts.RolloverHour,
		loc:         opts.Location,
		defaultMode: opts.DefaultMode,
	}
	if e.clock == nil {
		e.clock = RealClock{}
	}
	if e.ids == nil {
		e.ids = UUIDGenerator{}
	}
	if e.log == nil {
		e.log = NopLogger{}
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.defaultMode == "" {
		e.defaultMode = model.PeriodWeekly
	}
	if e.defaultMode == model.PeriodCustom {
		return nil, fmt.Errorf("default period mode cannot be custom")
	}
	return e, nil
}

func (e *Engine) RolloverHour() int { return e.rollover }

func (e *Engine) now() time.Time {
	return e.clock.Now().In(e.loc)
}

func (e *Engine) day(t time.Time) ledger.DayKey {
	return ledger.VirtualDay(t.In(e.loc), e.rollover)
}

// mutate runs fn under the engine lock inside one store transaction. A failed
// commit surfaces as ErrStorage like any other write.
func (e *Engine) mutate(ctx context.Context, fn func(tx store.Store) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return storageErr(e.store.WithTx(ctx, fn))
}

// history is the full ledger view: live entries plus every archived snapshot.
type history struct {
	live     []model.LogEntry
	archives []model.PeriodArchive
	checkIns []model.CheckIn
}

func loadHistory(ctx context.Context, s store.Store) (history, error) {
	live, err := s.ListEntries(ctx)
	if err != nil {
		return history{}, err
	}
	archives, err := s.ListArchives(ctx)
	if err != nil {
		return history{}, err
	}
	checkIns, err := s.ListCheckIns(ctx)
	if err != nil {
		return history{}, err
	}
	return history{live: live, archives: archives, checkIns: checkIns}, nil
}

func (h history) entries() []model.LogEntry {
	n := len(h.live)
	for _, a := range h.archives {
		n += len(a.Entries)
	}
	out := make([]model.LogEntry, 0, n)
	out = append(out, h.live...)
	for _, a := range h.archives {
		out = append(out, a.Entries...)
	}
	return out
}

func (e *Engine) aggregate(h history) *ledger.Aggregation {
	return ledger.Aggregate(h.entries(), h.checkIns, e.rollover, e.now())
}

// settleDay prices the credits of day against the streak as of day. The
// day's own credits feed that streak, so the multiplier starts at the top tier
// and steps down until the streak it produces sustains it. agg is left holding
// the settled amounts; a second call on the same history changes nothing.
func (e *Engine) settleDay(agg *ledger.Aggregation, day ledger.DayKey, credits []*model.LogEntry) (float64, []float64, error) {
	bases := make([]float64, len(credits))
	current := 0.0
	for i, c := range credits {
		base, err := ledger.BaseBurn(c.Workout.Activity, c.Workout.DurationMin, e.profile)
		if err != nil {
			return 0, nil, fmt.Errorf("credit entry %d: %w", c.ID, err)
		}
		bases[i] = base
		current += c.KCal
	}

	multiplier := ledger.MaxMultiplier
	amounts := make([]float64, len(credits))
	for {
		total := 0.0
		for i, base := range bases {
			amounts[i] = ledger.Price(base, multiplier)
			total += amounts[i]
		}
		agg.Adjust(day, total-current)
		current = total

		streak, err := ledger.Streak(agg, day, e.rollover)
		if err != nil {
			return 0, nil, fmt.Errorf("streak for %s: %w", day, err)
		}
		next := ledger.Multiplier(streak)
		if next >= multiplier {
			return multiplier, amounts, nil
		}
		multiplier = next
	}
}
