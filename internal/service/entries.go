package service

import (
	"context"
	"strings"
	"time"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/store"
)

const (
	maxDrinkVolumeMl = 5000
	maxDrinkCount    = 50
	maxWorkoutMin    = 24 * 60
)

type DebtInput struct {
	// Timestamp defaults to now when zero.
	Timestamp     time.Time
	VolumeMl      float64
	StrengthPct   float64
	CarbsPer100ml float64
	Style         string
	Brewery       string
	Rating        int
	Count         int
}

type CreditInput struct {
	Timestamp   time.Time
	Activity    string
	DurationMin float64
	Annotation  string
}

type RecordResult struct {
	ID         int64
	KCal       float64
	Multiplier float64
}

type DeleteResult struct {
	Timestamp time.Time
}

func (e *Engine) normalizeTimestamp(ts time.Time) (time.Time, error) {
	now := e.now()
	if ts.IsZero() {
		return now, nil
	}
	if ts.UnixMilli() <= 0 {
		return time.Time{}, invalidf("timestamp %s is before 1970", ts.Format(time.RFC3339))
	}
	if ts.After(now) {
		return time.Time{}, invalidf("timestamp %s is in the future", ts.Format(time.RFC3339))
	}
	return ts.In(e.loc).Truncate(time.Millisecond), nil
}

func (e *Engine) normalizeDebtInput(in DebtInput) (model.LogEntry, error) {
	ts, err := e.normalizeTimestamp(in.Timestamp)
	if err != nil {
		return model.LogEntry{}, err
	}
	if in.VolumeMl <= 0 || in.VolumeMl > maxDrinkVolumeMl {
		return model.LogEntry{}, invalidf("volume must be > 0 and <= %d ml", maxDrinkVolumeMl)
	}
	if in.StrengthPct < 0 || in.StrengthPct > 100 {
		return model.LogEntry{}, invalidf("strength must be between 0 and 100 percent")
	}
	if in.CarbsPer100ml < 0 || in.CarbsPer100ml > 100 {
		return model.LogEntry{}, invalidf("carbs must be between 0 and 100 g per 100 ml")
	}
	if in.Rating < 0 || in.Rating > 5 {
		return model.LogEntry{}, invalidf("rating must be between 0 and 5")
	}
	if in.Count == 0 {
		in.Count = 1
	}
	if in.Count < 1 || in.Count > maxDrinkCount {
		return model.LogEntry{}, invalidf("count must be between 1 and %d", maxDrinkCount)
	}
	d := &model.Drink{
		VolumeMl:      in.VolumeMl,
		StrengthPct:   in.StrengthPct,
		CarbsPer100ml: in.CarbsPer100ml,
		Style:         strings.TrimSpace(in.Style),
		Brewery:       strings.TrimSpace(in.Brewery),
		Rating:        in.Rating,
		Count:         in.Count,
	}
	kcal := ledger.DrinkCalories(*d)
	if kcal <= 0 {
		return model.LogEntry{}, invalidf("drink has no calories (strength and carbs are both zero)")
	}
	return model.LogEntry{Timestamp: ts, KCal: -kcal, Drink: d}, nil
}

func (e *Engine) normalizeCreditInput(in CreditInput) (model.LogEntry, error) {
	ts, err := e.normalizeTimestamp(in.Timestamp)
	if err != nil {
		return model.LogEntry{}, err
	}
	activity := ledger.NormalizeActivity(in.Activity)
	if _, ok := ledger.ActivityMET(activity); !ok {
		return model.LogEntry{}, invalidf("unknown activity %q (see activities)", in.Activity)
	}
	if in.DurationMin <= 0 || in.DurationMin > maxWorkoutMin {
		return model.LogEntry{}, invalidf("duration must be > 0 and <= %d minutes", maxWorkoutMin)
	}
	base, err := ledger.BaseBurn(activity, in.DurationMin, e.profile)
	if err != nil {
		return model.LogEntry{}, invalidf("%v", err)
	}
	return model.LogEntry{
		Timestamp: ts,
		KCal:      base,
		Workout: &model.Workout{
			Activity:    activity,
			DurationMin: in.DurationMin,
			Annotation:  ledger.StripBonusTag(in.Annotation),
		},
	}, nil
}

func (e *Engine) RecordDebt(ctx context.Context, in DebtInput) (RecordResult, error) {
	entry, err := e.normalizeDebtInput(in)
	if err != nil {
		return RecordResult{}, err
	}
	var res RecordResult
	err = e.mutate(ctx, func(tx store.Store) error {
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return storageErr(err)
		}
		if _, err := e.clearDryCheckIns(ctx, tx, e.day(entry.Timestamp)); err != nil {
			return err
		}
		res = RecordResult{ID: id, KCal: entry.KCal, Multiplier: 1}
		_, err = e.recalculate(ctx, tx, entry.Timestamp)
		return err
	})
	if err != nil {
		return RecordResult{}, err
	}
	e.log.Debug("debt recorded", "id", res.ID, "kcal", res.KCal)
	return res, nil
}

// RecordCredit stores a workout at its base burn and lets the cascade apply
// the multiplier of the streak as of the workout's virtual day.
func (e *Engine) RecordCredit(ctx context.Context, in CreditInput) (RecordResult, error) {
	entry, err := e.normalizeCreditInput(in)
	if err != nil {
		return RecordResult{}, err
	}
	var res RecordResult
	err = e.mutate(ctx, func(tx store.Store) error {
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return storageErr(err)
		}
		res = RecordResult{ID: id, KCal: entry.KCal, Multiplier: 1}
		report, err := e.recalculate(ctx, tx, entry.Timestamp)
		if err != nil {
			return err
		}
		res.applyCorrections(report)
		return nil
	})
	if err != nil {
		return RecordResult{}, err
	}
	e.log.Debug("credit recorded", "id", res.ID, "kcal", res.KCal, "multiplier", res.Multiplier)
	return res, nil
}

func (r *RecordResult) applyCorrections(report CascadeReport) {
	for _, c := range report.Corrections {
		if c.EntryID == r.ID && !c.Archived {
			r.KCal = c.NewKCal
			r.Multiplier = c.Multiplier
		}
	}
}

// UpdateDebt replaces a drink entry. The cascade starts at the earlier of the
// old and new timestamps.
func (e *Engine) UpdateDebt(ctx context.Context, id int64, in DebtInput) (RecordResult, error) {
	entry, err := e.normalizeDebtInput(in)
	if err != nil {
		return RecordResult{}, err
	}
	var res RecordResult
	err = e.mutate(ctx, func(tx store.Store) error {
		existing, err := tx.GetEntry(ctx, id)
		if err != nil {
			return storageErr(err)
		}
		if !existing.IsDebt() {
			return invalidf("entry %d is not a drink", id)
		}
		entry.ID = id
		if err := tx.UpdateEntry(ctx, entry); err != nil {
			return storageErr(err)
		}
		if _, err := e.clearDryCheckIns(ctx, tx, e.day(entry.Timestamp)); err != nil {
			return err
		}
		res = RecordResult{ID: id, KCal: entry.KCal, Multiplier: 1}
		_, err = e.recalculate(ctx, tx, earliest(existing.Timestamp, entry.Timestamp))
		return err
	})
	if err != nil {
		return RecordResult{}, err
	}
	return res, nil
}

func (e *Engine) UpdateCredit(ctx context.Context, id int64, in CreditInput) (RecordResult, error) {
	entry, err := e.normalizeCreditInput(in)
	if err != nil {
		return RecordResult{}, err
	}
	var res RecordResult
	err = e.mutate(ctx, func(tx store.Store) error {
		existing, err := tx.GetEntry(ctx, id)
		if err != nil {
			return storageErr(err)
		}
		if !existing.IsCredit() {
			return invalidf("entry %d is not a workout", id)
		}
		if strings.TrimSpace(in.Annotation) == "" {
			entry.Workout.Annotation = ledger.StripBonusTag(existing.Workout.Annotation)
		}
		entry.ID = id
		if err := tx.UpdateEntry(ctx, entry); err != nil {
			return storageErr(err)
		}
		res = RecordResult{ID: id, KCal: entry.KCal, Multiplier: 1}
		report, err := e.recalculate(ctx, tx, earliest(existing.Timestamp, entry.Timestamp))
		if err != nil {
			return err
		}
		res.applyCorrections(report)
		return nil
	})
	if err != nil {
		return RecordResult{}, err
	}
	return res, nil
}

// DeleteEntry removes a live entry and recalculates from its timestamp.
// Entries already moved into an archive are not deletable.
func (e *Engine) DeleteEntry(ctx context.Context, id int64) (DeleteResult, error) {
	var res DeleteResult
	err := e.mutate(ctx, func(tx store.Store) error {
		existing, err := tx.GetEntry(ctx, id)
		if err != nil {
			return storageErr(err)
		}
		if err := tx.DeleteEntry(ctx, id); err != nil {
			return storageErr(err)
		}
		res.Timestamp = existing.Timestamp
		_, err = e.recalculate(ctx, tx, existing.Timestamp)
		return err
	})
	if err != nil {
		return DeleteResult{}, err
	}
	e.log.Debug("entry deleted", "id", id)
	return res, nil
}

type EntryFilter struct {
	// Day restricts the listing to one virtual day when set.
	Day       ledger.DayKey
	Kind      model.EntryKind
	Limit     int
	AllPeriod bool
}

// ListEntries returns live entries of the current period (or all live
// entries with AllPeriod), newest first.
func (e *Engine) ListEntries(ctx context.Context, f EntryFilter) ([]model.LogEntry, error) {
	if f.Kind != "" && f.Kind != model.KindDebt && f.Kind != model.KindCredit {
		return nil, invalidf("kind must be debt or credit")
	}
	if f.Limit < 0 {
		return nil, invalidf("limit must be >= 0")
	}
	var (
		entries []model.LogEntry
		err     error
	)
	if f.Day != "" {
		entries, err = e.store.ListEntriesBetween(ctx, f.Day.Start(e.loc, e.rollover), f.Day.End(e.loc, e.rollover))
	} else {
		entries, err = e.store.ListEntries(ctx)
	}
	if err != nil {
		return nil, storageErr(err)
	}

	from := ledger.Epoch
	if !f.AllPeriod && f.Day == "" {
		state, err := e.PeriodState(ctx)
		if err != nil {
			return nil, err
		}
		from = state.PeriodStart
	}
	out := make([]model.LogEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if entry.Timestamp.Before(from) {
			continue
		}
		if f.Kind != "" && entry.Kind() != f.Kind {
			continue
		}
		out = append(out, entry)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (e *Engine) GetEntry(ctx context.Context, id int64) (model.LogEntry, error) {
	entry, err := e.store.GetEntry(ctx, id)
	if err != nil {
		return model.LogEntry{}, storageErr(err)
	}
	return entry, nil
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
