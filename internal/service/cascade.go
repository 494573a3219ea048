package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/store"
)

// correctionThreshold is the smallest kcal drift worth rewriting.
const correctionThreshold = 0.1

type Correction struct {
	EntryID    int64
	Day        ledger.DayKey
	OldKCal    float64
	NewKCal    float64
	Multiplier float64
	Archived   bool
}

type CascadeReport struct {
	RunID           string
	From            ledger.DayKey
	Through         ledger.DayKey
	DaysWalked      int
	Corrections     []Correction
	ArchivesUpdated int
	Absorbed        int
}

// Recalculate runs the cascade on its own, e.g. after an external edit.
func (e *Engine) Recalculate(ctx context.Context, changed time.Time) (CascadeReport, error) {
	var report CascadeReport
	err := e.mutate(ctx, func(tx store.Store) error {
		var err error
		report, err = e.recalculate(ctx, tx, changed)
		return err
	})
	return report, err
}

// RecalculateAll runs the cascade from the earliest recorded timestamp.
func (e *Engine) RecalculateAll(ctx context.Context) (CascadeReport, error) {
	var report CascadeReport
	err := e.mutate(ctx, func(tx store.Store) error {
		h, err := loadHistory(ctx, tx)
		if err != nil {
			return recalcErr(err)
		}
		report, err = e.recalculate(ctx, tx, earliestTimestamp(h, e.now()))
		return err
	})
	return report, err
}

// creditRef points at a credit entry either in the live log or inside an
// archive snapshot.
type creditRef struct {
	live    int
	archive int
	index   int
}

// recalculate corrects every credit from the virtual day of changed through
// today, then resyncs archives. It must run inside tx.
func (e *Engine) recalculate(ctx context.Context, tx store.Store, changed time.Time) (CascadeReport, error) {
	report := CascadeReport{RunID: e.ids.New()}
	h, err := loadHistory(ctx, tx)
	if err != nil {
		return report, recalcErr(err)
	}
	agg := e.aggregate(h)

	credits := make(map[ledger.DayKey][]creditRef)
	for i, entry := range h.live {
		if entry.IsCredit() {
			d := e.day(entry.Timestamp)
			credits[d] = append(credits[d], creditRef{live: i, archive: -1})
		}
	}
	for ai, a := range h.archives {
		for i, entry := range a.Entries {
			if entry.IsCredit() {
				d := e.day(entry.Timestamp)
				credits[d] = append(credits[d], creditRef{live: -1, archive: ai, index: i})
			}
		}
	}

	report.From = e.day(changed)
	report.Through = e.day(e.now())
	dirtyArchives := make(map[int]bool)

	for day := report.From; !day.After(report.Through); day = day.Next() {
		report.DaysWalked++
		refs := credits[day]
		if len(refs) == 0 {
			continue
		}
		entries := make([]*model.LogEntry, 0, len(refs))
		for _, ref := range refs {
			entries = append(entries, h.entryAt(ref))
		}
		multiplier, amounts, err := e.settleDay(agg, day, entries)
		if err != nil {
			return report, fmt.Errorf("%w: %w", ErrRecalculation, err)
		}
		for i, ref := range refs {
			entry := entries[i]
			kcal := amounts[i]
			annotation := ledger.Annotate(entry.Workout.Annotation, multiplier)
			if math.Abs(kcal-entry.KCal) <= correctionThreshold && annotation == entry.Workout.Annotation {
				continue
			}

			report.Corrections = append(report.Corrections, Correction{
				EntryID:    entry.ID,
				Day:        day,
				OldKCal:    entry.KCal,
				NewKCal:    kcal,
				Multiplier: multiplier,
				Archived:   ref.archive >= 0,
			})
			entry.KCal = kcal
			entry.Workout.Annotation = annotation
			if ref.archive >= 0 {
				dirtyArchives[ref.archive] = true
			} else if err := tx.UpdateEntry(ctx, *entry); err != nil {
				return report, recalcErr(err)
			}
		}
	}

	for i := range h.archives {
		a := &h.archives[i]
		if !dirtyArchives[i] && a.EndDate.Before(changed) {
			continue
		}
		updated, absorbed, err := e.resyncArchive(ctx, tx, a, dirtyArchives[i])
		if err != nil {
			return report, recalcErr(err)
		}
		report.Absorbed += absorbed
		if updated {
			report.ArchivesUpdated++
		}
	}

	e.log.Info("recalculation finished",
		"run", report.RunID,
		"from", report.From,
		"through", report.Through,
		"days", report.DaysWalked,
		"corrections", len(report.Corrections),
		"archives", report.ArchivesUpdated,
		"absorbed", report.Absorbed,
	)
	return report, nil
}

func (h history) entryAt(ref creditRef) *model.LogEntry {
	if ref.archive >= 0 {
		return &h.archives[ref.archive].Entries[ref.index]
	}
	return &h.live[ref.live]
}

// resyncArchive pulls any live entries inside the archive's range into its
// snapshot and recomputes the total. It writes only when something changed.
func (e *Engine) resyncArchive(ctx context.Context, tx store.Store, a *model.PeriodArchive, dirty bool) (bool, int, error) {
	stray, err := tx.ListEntriesBetween(ctx, a.StartDate, a.EndDate)
	if err != nil {
		return false, 0, err
	}
	if len(stray) > 0 {
		ids := make([]int64, 0, len(stray))
		for _, entry := range stray {
			ids = append(ids, entry.ID)
			a.Entries = append(a.Entries, entry)
		}
		sortEntries(a.Entries)
		if err := tx.DeleteEntries(ctx, ids); err != nil {
			return false, 0, err
		}
	}

	total := sumKCal(a.Entries)
	if !dirty && len(stray) == 0 && total == a.TotalBalance {
		return false, 0, nil
	}
	a.TotalBalance = total
	if err := tx.UpdateArchive(ctx, *a); err != nil {
		return false, 0, err
	}
	return true, len(stray), nil
}

func sumKCal(entries []model.LogEntry) float64 {
	total := 0.0
	for _, entry := range entries {
		total += entry.KCal
	}
	return math.Round(total*10) / 10
}

func sortEntries(entries []model.LogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}
