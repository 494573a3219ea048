package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/store"
)

type CheckInInput struct {
	Timestamp  time.Time
	IsDryDay   bool
	Conditions map[string]bool
	Weight     *float64
	// Placeholder marks a check-in the user has not confirmed yet.
	Placeholder bool
}

// SaveCheckIn upserts the check-in for the input's virtual day. A saved
// check-in replaces a placeholder; a placeholder never replaces a saved one.
// A dry check-in is refused on a day that already holds a drink.
func (e *Engine) SaveCheckIn(ctx context.Context, in CheckInInput) (int64, error) {
	checkIn, err := e.normalizeCheckInInput(in)
	if err != nil {
		return 0, err
	}
	ts := checkIn.Timestamp
	day := e.day(ts)

	var id int64
	err = e.mutate(ctx, func(tx store.Store) error {
		if checkIn.IsDryDay {
			drank, err := e.dayHasDebt(ctx, tx, day)
			if err != nil {
				return err
			}
			if drank {
				return invalidf("%s has a drink logged; it cannot be a dry day", day)
			}
		}
		var err error
		id, err = e.upsertCheckIn(ctx, tx, checkIn)
		if err != nil {
			return err
		}
		_, err = e.recalculate(ctx, tx, ts)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.log.Debug("check-in saved", "id", id, "day", day, "dry", checkIn.IsDryDay)
	return id, nil
}

func (e *Engine) normalizeCheckInInput(in CheckInInput) (model.CheckIn, error) {
	ts, err := e.normalizeTimestamp(in.Timestamp)
	if err != nil {
		return model.CheckIn{}, err
	}
	if in.Weight != nil && (*in.Weight <= 0 || *in.Weight > 500) {
		return model.CheckIn{}, invalidf("weight must be > 0 and <= 500 kg")
	}
	conditions := make(map[string]bool, len(in.Conditions))
	for k, v := range in.Conditions {
		k = strings.TrimSpace(strings.ToLower(k))
		if k == "" {
			return model.CheckIn{}, invalidf("condition name is required")
		}
		conditions[k] = v
	}
	return model.CheckIn{
		Timestamp:  ts,
		IsDryDay:   in.IsDryDay,
		Conditions: conditions,
		Weight:     in.Weight,
		IsSaved:    !in.Placeholder,
	}, nil
}

// upsertCheckIn writes checkIn over the day's current check-in, if any, and
// returns the id that now stands for the day.
func (e *Engine) upsertCheckIn(ctx context.Context, tx store.Store, checkIn model.CheckIn) (int64, error) {
	day := e.day(checkIn.Timestamp)
	existing, err := tx.ListCheckInsBetween(ctx, day.Start(e.loc, e.rollover), day.End(e.loc, e.rollover))
	if err != nil {
		return 0, storageErr(err)
	}
	current, ok := winningCheckIn(existing)
	if !ok {
		id, err := tx.InsertCheckIn(ctx, checkIn)
		if err != nil {
			return 0, storageErr(err)
		}
		return id, nil
	}
	if current.IsSaved && !checkIn.IsSaved {
		return current.ID, nil
	}
	checkIn.ID = current.ID
	if err := tx.UpdateCheckIn(ctx, checkIn); err != nil {
		return 0, storageErr(err)
	}
	return current.ID, nil
}

// dayHasDebt reports whether day holds a drink, live or archived.
func (e *Engine) dayHasDebt(ctx context.Context, tx store.Store, day ledger.DayKey) (bool, error) {
	start, end := day.Start(e.loc, e.rollover), day.End(e.loc, e.rollover)
	live, err := tx.ListEntriesBetween(ctx, start, end)
	if err != nil {
		return false, storageErr(err)
	}
	for _, entry := range live {
		if entry.IsDebt() {
			return true, nil
		}
	}
	archives, err := tx.ListArchives(ctx)
	if err != nil {
		return false, storageErr(err)
	}
	for _, a := range archives {
		if !a.Overlaps(start, end) {
			continue
		}
		for _, entry := range a.Entries {
			if entry.IsDebt() && e.day(entry.Timestamp) == day {
				return true, nil
			}
		}
	}
	return false, nil
}

// clearDryCheckIns turns every dry check-in of day into a drank one. Called
// whenever a drink lands on the day.
func (e *Engine) clearDryCheckIns(ctx context.Context, tx store.Store, day ledger.DayKey) (int, error) {
	items, err := tx.ListCheckInsBetween(ctx, day.Start(e.loc, e.rollover), day.End(e.loc, e.rollover))
	if err != nil {
		return 0, storageErr(err)
	}
	cleared := 0
	for _, c := range items {
		if !c.IsDryDay {
			continue
		}
		c.IsDryDay = false
		if err := tx.UpdateCheckIn(ctx, c); err != nil {
			return cleared, storageErr(err)
		}
		cleared++
	}
	if cleared > 0 {
		e.log.Info("dry check-in switched to drank", "day", day, "count", cleared)
	}
	return cleared, nil
}

// winningCheckIn applies the aggregator's dedup rule: saved beats placeholder,
// then the higher id.
func winningCheckIn(items []model.CheckIn) (model.CheckIn, bool) {
	if len(items) == 0 {
		return model.CheckIn{}, false
	}
	best := items[0]
	for _, c := range items[1:] {
		if ledger.PreferCheckIn(c, best) {
			best = c
		}
	}
	return best, true
}

type DayCheckIn struct {
	Day     ledger.DayKey
	CheckIn model.CheckIn
}

// ListCheckIns returns the effective check-in per virtual day for the last
// days days (today included), newest first.
func (e *Engine) ListCheckIns(ctx context.Context, days int) ([]DayCheckIn, error) {
	if days <= 0 {
		return nil, invalidf("days must be > 0")
	}
	today := e.day(e.now())
	first := today.AddDays(-(days - 1))
	items, err := e.store.ListCheckInsBetween(ctx, first.Start(e.loc, e.rollover), today.End(e.loc, e.rollover))
	if err != nil {
		return nil, storageErr(err)
	}
	byDay := make(map[ledger.DayKey][]model.CheckIn)
	for _, c := range items {
		d := e.day(c.Timestamp)
		byDay[d] = append(byDay[d], c)
	}
	out := make([]DayCheckIn, 0, len(byDay))
	for d, group := range byDay {
		best, _ := winningCheckIn(group)
		out = append(out, DayCheckIn{Day: d, CheckIn: best})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day) })
	return out, nil
}
