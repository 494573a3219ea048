package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/store"
)

const exportVersion = 1

type ExportDrink struct {
	VolumeMl      float64 `json:"volume_ml"`
	StrengthPct   float64 `json:"strength_pct"`
	CarbsPer100ml float64 `json:"carbs_per_100ml,omitempty"`
	Style         string  `json:"style,omitempty"`
	Brewery       string  `json:"brewery,omitempty"`
	Rating        int     `json:"rating,omitempty"`
	Count         int     `json:"count"`
}

type ExportWorkout struct {
	Activity    string  `json:"activity"`
	DurationMin float64 `json:"duration_min"`
	Annotation  string  `json:"annotation,omitempty"`
}

type ExportEntry struct {
	ID        int64          `json:"id,omitempty"`
	Timestamp string         `json:"timestamp"`
	KCal      float64        `json:"kcal"`
	Drink     *ExportDrink   `json:"drink,omitempty"`
	Workout   *ExportWorkout `json:"workout,omitempty"`
}

type ExportCheckIn struct {
	Timestamp  string          `json:"timestamp"`
	IsDryDay   bool            `json:"is_dry_day"`
	Conditions map[string]bool `json:"conditions,omitempty"`
	Weight     *float64        `json:"weight,omitempty"`
	IsSaved    bool            `json:"is_saved"`
}

type ExportArchive struct {
	ID           string        `json:"id"`
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	Mode         string        `json:"mode"`
	TotalBalance float64       `json:"total_balance"`
	Entries      []ExportEntry `json:"entries"`
}

type ExportPeriod struct {
	Mode  string `json:"mode"`
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
	Label string `json:"label,omitempty"`
}

type ExportData struct {
	Version    int             `json:"version"`
	ExportedAt string          `json:"exported_at"`
	Period     ExportPeriod    `json:"period"`
	Entries    []ExportEntry   `json:"entries"`
	CheckIns   []ExportCheckIn `json:"check_ins"`
	Archives   []ExportArchive `json:"archives"`
}

type ImportReport struct {
	DryRun          bool `json:"dry_run"`
	EntriesImported int  `json:"entries_imported"`
	EntriesSkipped  int  `json:"entries_skipped"`
	CheckIns        int  `json:"check_ins"`
	Corrections     int  `json:"corrections"`
}

// Export snapshots the whole ledger. Archived entries stay inside their archive.
func (e *Engine) Export(ctx context.Context) (*ExportData, error) {
	state, err := e.PeriodState(ctx)
	if err != nil {
		return nil, err
	}
	h, err := loadHistory(ctx, e.store)
	if err != nil {
		return nil, storageErr(err)
	}
	out := &ExportData{
		Version:    exportVersion,
		ExportedAt: e.now().Format(time.RFC3339),
		Period: ExportPeriod{
			Mode:  string(state.Mode),
			Start: state.PeriodStart.Format(time.RFC3339Nano),
			Label: state.Label,
		},
		Entries:  exportEntries(h.live),
		CheckIns: make([]ExportCheckIn, 0, len(h.checkIns)),
		Archives: make([]ExportArchive, 0, len(h.archives)),
	}
	if state.PeriodEnd != nil {
		out.Period.End = state.PeriodEnd.Format(time.RFC3339Nano)
	}
	for _, c := range h.checkIns {
		out.CheckIns = append(out.CheckIns, ExportCheckIn{
			Timestamp:  c.Timestamp.Format(time.RFC3339Nano),
			IsDryDay:   c.IsDryDay,
			Conditions: c.Conditions,
			Weight:     c.Weight,
			IsSaved:    c.IsSaved,
		})
	}
	for _, a := range h.archives {
		out.Archives = append(out.Archives, ExportArchive{
			ID:           a.ID,
			StartDate:    a.StartDate.Format(time.RFC3339Nano),
			EndDate:      a.EndDate.Format(time.RFC3339Nano),
			Mode:         string(a.Mode),
			TotalBalance: a.TotalBalance,
			Entries:      exportEntries(a.Entries),
		})
	}
	return out, nil
}

func exportEntries(entries []model.LogEntry) []ExportEntry {
	out := make([]ExportEntry, 0, len(entries))
	for _, entry := range entries {
		item := ExportEntry{ID: entry.ID, Timestamp: entry.Timestamp.Format(time.RFC3339Nano), KCal: entry.KCal}
		if d := entry.Drink; d != nil {
			item.Drink = &ExportDrink{
				VolumeMl:      d.VolumeMl,
				StrengthPct:   d.StrengthPct,
				CarbsPer100ml: d.CarbsPer100ml,
				Style:         d.Style,
				Brewery:       d.Brewery,
				Rating:        d.Rating,
				Count:         d.Count,
			}
		}
		if w := entry.Workout; w != nil {
			item.Workout = &ExportWorkout{Activity: w.Activity, DurationMin: w.DurationMin, Annotation: w.Annotation}
		}
		out = append(out, item)
	}
	return out
}

// Import appends the live and archived entries and the check-ins of data to
// the ledger, skipping entries that already exist. Stored kcal values are
// recomputed: drinks from their details, workouts by the cascade, which runs
// once from the earliest imported timestamp. Archives themselves are not
// recreated; their entries land in the live log and are absorbed again by
// any local archive covering them.
func (e *Engine) Import(ctx context.Context, data *ExportData, dryRun bool) (ImportReport, error) {
	if data == nil {
		return ImportReport{}, invalidf("import data is required")
	}
	if data.Version != exportVersion {
		return ImportReport{}, invalidf("unsupported export version %d", data.Version)
	}

	all := append([]ExportEntry{}, data.Entries...)
	for _, a := range data.Archives {
		all = append(all, a.Entries...)
	}
	entries := make([]model.LogEntry, 0, len(all))
	for i, item := range all {
		entry, err := e.importEntry(item)
		if err != nil {
			return ImportReport{}, fmt.Errorf("entry %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	checkIns := make([]model.CheckIn, 0, len(data.CheckIns))
	for i, item := range data.CheckIns {
		ts, err := parseExportTime(item.Timestamp)
		if err != nil {
			return ImportReport{}, fmt.Errorf("check-in %d: %w", i+1, err)
		}
		c, err := e.normalizeCheckInInput(CheckInInput{
			Timestamp:   ts,
			IsDryDay:    item.IsDryDay,
			Conditions:  item.Conditions,
			Weight:      item.Weight,
			Placeholder: !item.IsSaved,
		})
		if err != nil {
			return ImportReport{}, fmt.Errorf("check-in %d: %w", i+1, err)
		}
		checkIns = append(checkIns, c)
	}

	report := ImportReport{DryRun: dryRun}
	err := e.mutate(ctx, func(tx store.Store) error {
		h, err := loadHistory(ctx, tx)
		if err != nil {
			return storageErr(err)
		}
		seen := make(map[string]bool)
		for _, entry := range h.entries() {
			seen[entryIdentity(entry)] = true
		}
		earliestChange := e.now()
		touched := make(map[ledger.DayKey]bool)
		for _, entry := range entries {
			key := entryIdentity(entry)
			if seen[key] {
				report.EntriesSkipped++
				continue
			}
			seen[key] = true
			report.EntriesImported++
			earliestChange = earliest(earliestChange, entry.Timestamp)
			if dryRun {
				continue
			}
			if _, err := tx.InsertEntry(ctx, entry); err != nil {
				return storageErr(err)
			}
			if entry.IsDebt() {
				touched[e.day(entry.Timestamp)] = true
			}
		}
		for _, c := range checkIns {
			report.CheckIns++
			earliestChange = earliest(earliestChange, c.Timestamp)
			if dryRun {
				continue
			}
			if _, err := e.upsertCheckIn(ctx, tx, c); err != nil {
				return err
			}
			if c.IsDryDay {
				touched[e.day(c.Timestamp)] = true
			}
		}
		// A drink outranks a dry claim for the same day, whichever side was imported.
		for day := range touched {
			drank, err := e.dayHasDebt(ctx, tx, day)
			if err != nil {
				return err
			}
			if !drank {
				continue
			}
			if _, err := e.clearDryCheckIns(ctx, tx, day); err != nil {
				return err
			}
		}
		if dryRun || (report.EntriesImported == 0 && report.CheckIns == 0) {
			return nil
		}
		cr, err := e.recalculate(ctx, tx, earliestChange)
		if err != nil {
			return err
		}
		report.Corrections = len(cr.Corrections)
		return nil
	})
	if err != nil {
		return ImportReport{}, err
	}
	e.log.Info("ledger imported", "entries", report.EntriesImported, "skipped", report.EntriesSkipped, "check_ins", report.CheckIns, "dry_run", dryRun)
	return report, nil
}

func (e *Engine) importEntry(item ExportEntry) (model.LogEntry, error) {
	ts, err := parseExportTime(item.Timestamp)
	if err != nil {
		return model.LogEntry{}, err
	}
	switch {
	case item.Drink != nil && item.Workout != nil:
		return model.LogEntry{}, invalidf("entry cannot be both drink and workout")
	case item.Drink != nil:
		d := item.Drink
		return e.normalizeDebtInput(DebtInput{
			Timestamp:     ts,
			VolumeMl:      d.VolumeMl,
			StrengthPct:   d.StrengthPct,
			CarbsPer100ml: d.CarbsPer100ml,
			Style:         d.Style,
			Brewery:       d.Brewery,
			Rating:        d.Rating,
			Count:         d.Count,
		})
	case item.Workout != nil:
		w := item.Workout
		entry, err := e.normalizeCreditInput(CreditInput{
			Timestamp:   ts,
			Activity:    w.Activity,
			DurationMin: w.DurationMin,
			Annotation:  w.Annotation,
		})
		if err != nil {
			return model.LogEntry{}, err
		}
		base, err := ledger.BaseBurn(entry.Workout.Activity, entry.Workout.DurationMin, e.profile)
		if err != nil {
			return model.LogEntry{}, invalidf("%v", err)
		}
		entry.KCal = base
		return entry, nil
	}
	return model.LogEntry{}, invalidf("entry has neither drink nor workout details")
}

// entryIdentity ignores ids and derived kcal so a re-import of the same
// export is a no-op.
func entryIdentity(entry model.LogEntry) string {
	ts := entry.Timestamp.UnixMilli()
	if w := entry.Workout; w != nil {
		return fmt.Sprintf("credit|%d|%s|%g", ts, w.Activity, w.DurationMin)
	}
	d := entry.Drink
	return fmt.Sprintf("debt|%d|%g|%g|%g|%d", ts, d.VolumeMl, d.StrengthPct, d.CarbsPer100ml, d.Count)
}

func parseExportTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, invalidf("timestamp is required")
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, invalidf("invalid timestamp %q (expected RFC3339)", value)
	}
	return t, nil
}
