package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/store"
)

type CustomBounds struct {
	Start time.Time
	End   time.Time
	Label string
}

type RolloverResult struct {
	RolledOver  bool
	CustomEnded bool
	Archive     *model.PeriodArchive
	// Skipped is set when an archive for the closing range already existed.
	Skipped bool
	State   model.PeriodState
}

type ArchiveResult struct {
	Archive *model.PeriodArchive
	Skipped bool
	Moved   int
	State   model.PeriodState
}

type SwitchResult struct {
	State    model.PeriodState
	Restored int
}

func (e *Engine) initialState() model.PeriodState {
	start, err := ledger.CanonicalStart(e.defaultMode, e.now())
	if err != nil {
		start = ledger.Epoch
	}
	return model.PeriodState{Mode: e.defaultMode, PeriodStart: start}
}

// PeriodState returns the persisted state, or the first-run default without writing it.
func (e *Engine) PeriodState(ctx context.Context) (model.PeriodState, error) {
	state, ok, err := store.LoadPeriodState(ctx, e.store, e.loc)
	if err != nil {
		return model.PeriodState{}, storageErr(err)
	}
	if !ok {
		return e.initialState(), nil
	}
	return state, nil
}

// EnsurePeriodState persists the first-run default if no state exists yet.
func (e *Engine) EnsurePeriodState(ctx context.Context) (model.PeriodState, error) {
	var state model.PeriodState
	err := e.mutate(ctx, func(tx store.Store) error {
		var err error
		state, err = e.loadOrInitState(ctx, tx)
		return err
	})
	return state, err
}

func (e *Engine) loadOrInitState(ctx context.Context, tx store.Store) (model.PeriodState, error) {
	state, ok, err := store.LoadPeriodState(ctx, tx, e.loc)
	if err != nil {
		return model.PeriodState{}, storageErr(err)
	}
	if ok {
		return state, nil
	}
	state = e.initialState()
	if err := store.SavePeriodState(ctx, tx, state); err != nil {
		return model.PeriodState{}, storageErr(err)
	}
	e.log.Info("period state initialized", "mode", state.Mode, "start", state.PeriodStart)
	return state, nil
}

// CheckPeriodRollover archives the closed weekly or monthly period when the
// canonical start has moved. Custom periods only report that they ended.
func (e *Engine) CheckPeriodRollover(ctx context.Context) (RolloverResult, error) {
	var res RolloverResult
	err := e.mutate(ctx, func(tx store.Store) error {
		state, err := e.loadOrInitState(ctx, tx)
		if err != nil {
			return err
		}
		res.State = state
		now := e.now()

		switch state.Mode {
		case model.PeriodWeekly, model.PeriodMonthly:
			next, err := ledger.CanonicalStart(state.Mode, now)
			if err != nil {
				return invalidf("%v", err)
			}
			if !next.After(state.PeriodStart) {
				return nil
			}
			ar, err := e.archiveAndReset(ctx, tx, state, next, state.Mode)
			if err != nil {
				return err
			}
			res.RolledOver = true
			res.Archive = ar.Archive
			res.Skipped = ar.Skipped
			res.State = ar.State
		case model.PeriodCustom:
			res.CustomEnded = ledger.CustomEnded(state, now)
		case model.PeriodPermanent:
		}
		return nil
	})
	if err != nil {
		return RolloverResult{}, err
	}
	return res, nil
}

// ArchiveAndReset moves every entry before nextStart into a new archive
// labelled with mode and advances the period start to nextStart.
func (e *Engine) ArchiveAndReset(ctx context.Context, currentStart, nextStart time.Time, mode model.PeriodMode) (ArchiveResult, error) {
	if _, err := model.ParsePeriodMode(string(mode)); err != nil {
		return ArchiveResult{}, invalidf("%v", err)
	}
	if !nextStart.After(currentStart) {
		return ArchiveResult{}, invalidf("next period start must be after the current start")
	}
	if nextStart.After(e.now()) {
		return ArchiveResult{}, invalidf("next period start cannot be in the future")
	}
	var res ArchiveResult
	err := e.mutate(ctx, func(tx store.Store) error {
		state, err := e.loadOrInitState(ctx, tx)
		if err != nil {
			return err
		}
		state.PeriodStart = currentStart.In(e.loc)
		res, err = e.archiveAndReset(ctx, tx, state, nextStart.In(e.loc), mode)
		return err
	})
	if err != nil {
		return ArchiveResult{}, err
	}
	return res, nil
}

// archiveAndReset is the single write path for automatic and manual rollovers.
func (e *Engine) archiveAndReset(ctx context.Context, tx store.Store, state model.PeriodState, nextStart time.Time, mode model.PeriodMode) (ArchiveResult, error) {
	end := nextStart.Add(-time.Millisecond)
	entries, err := tx.ListEntriesBetween(ctx, ledger.Epoch, end)
	if err != nil {
		return ArchiveResult{}, storageErr(err)
	}

	start := state.PeriodStart
	if len(entries) > 0 && entries[0].Timestamp.Before(start) {
		start = entries[0].Timestamp
	}
	// A mode switch can move the period start back inside an existing archive.
	// The new archive begins where the latest earlier one ended; entries left
	// before that point belong to the earlier range and stay live until the
	// cascade absorbs them.
	archives, err := tx.ListArchives(ctx)
	if err != nil {
		return ArchiveResult{}, storageErr(err)
	}
	for _, a := range archives {
		if a.EndDate.Before(end) && !a.EndDate.Before(start) {
			start = a.EndDate.Add(time.Millisecond)
		}
	}
	kept := entries[:0]
	for _, entry := range entries {
		if !entry.Timestamp.Before(start) {
			kept = append(kept, entry)
		}
	}
	entries = kept
	archive := model.PeriodArchive{
		ID:           e.ids.New(),
		StartDate:    start,
		EndDate:      end,
		Mode:         mode,
		TotalBalance: sumKCal(entries),
		Entries:      entries,
	}

	res := ArchiveResult{}
	switch err := tx.InsertArchive(ctx, archive); {
	case errors.Is(err, store.ErrInconsistentArchive):
		e.log.Warn("archive creation skipped", "start", start, "end", end, "err", err)
		res.Skipped = true
	case err != nil:
		return ArchiveResult{}, storageErr(err)
	default:
		ids := make([]int64, 0, len(entries))
		for _, entry := range entries {
			ids = append(ids, entry.ID)
		}
		if err := tx.DeleteEntries(ctx, ids); err != nil {
			return ArchiveResult{}, storageErr(err)
		}
		res.Archive = &archive
		res.Moved = len(entries)
		e.log.Info("period archived", "id", archive.ID, "mode", mode, "entries", len(entries), "balance", archive.TotalBalance)
	}

	state.PeriodStart = nextStart
	if state.Mode == model.PeriodCustom {
		// The old end has passed; the restarted period runs until extended.
		state.PeriodEnd = nil
	}
	if err := store.SavePeriodState(ctx, tx, state); err != nil {
		return ArchiveResult{}, storageErr(err)
	}
	res.State = state
	return res, nil
}

// SwitchPeriodMode changes the accounting window. Switching to permanent
// restores every archive into the live log under new ids.
func (e *Engine) SwitchPeriodMode(ctx context.Context, mode model.PeriodMode, bounds *CustomBounds) (SwitchResult, error) {
	mode, err := model.ParsePeriodMode(string(mode))
	if err != nil {
		return SwitchResult{}, invalidf("%v", err)
	}
	next := model.PeriodState{Mode: mode}
	switch mode {
	case model.PeriodWeekly, model.PeriodMonthly, model.PeriodPermanent:
		if bounds != nil {
			return SwitchResult{}, invalidf("custom bounds are only valid for custom mode")
		}
		next.PeriodStart, _ = ledger.CanonicalStart(mode, e.now())
	case model.PeriodCustom:
		if bounds == nil {
			return SwitchResult{}, invalidf("custom mode requires a start, an end and a label")
		}
		label := strings.TrimSpace(bounds.Label)
		if label == "" {
			return SwitchResult{}, invalidf("custom period label is required")
		}
		if !bounds.End.After(bounds.Start) {
			return SwitchResult{}, invalidf("custom period end must be after its start")
		}
		end := bounds.End.In(e.loc)
		next.PeriodStart = bounds.Start.In(e.loc)
		next.PeriodEnd = &end
		next.Label = label
	}

	var res SwitchResult
	err = e.mutate(ctx, func(tx store.Store) error {
		if mode == model.PeriodPermanent {
			restored, err := e.restoreArchives(ctx, tx)
			if err != nil {
				return err
			}
			res.Restored = restored
		}
		if err := store.SavePeriodState(ctx, tx, next); err != nil {
			return storageErr(err)
		}
		res.State = next
		return nil
	})
	if err != nil {
		return SwitchResult{}, err
	}
	e.log.Info("period mode switched", "mode", mode, "start", next.PeriodStart, "restored", res.Restored)
	return res, nil
}

func (e *Engine) restoreArchives(ctx context.Context, tx store.Store) (int, error) {
	archives, err := tx.ListArchives(ctx)
	if err != nil {
		return 0, storageErr(err)
	}
	restored := 0
	for _, a := range archives {
		for _, entry := range a.Entries {
			fresh := entry.Clone()
			fresh.ID = 0
			if _, err := tx.InsertEntry(ctx, fresh); err != nil {
				return 0, storageErr(err)
			}
			restored++
		}
	}
	if err := tx.DeleteAllArchives(ctx); err != nil {
		return 0, storageErr(err)
	}
	return restored, nil
}

// ExtendCustomPeriod moves the end of the active custom period later, or sets
// it when a restarted custom period has none.
func (e *Engine) ExtendCustomPeriod(ctx context.Context, newEnd time.Time) (model.PeriodState, error) {
	var state model.PeriodState
	err := e.mutate(ctx, func(tx store.Store) error {
		current, err := e.loadOrInitState(ctx, tx)
		if err != nil {
			return err
		}
		if current.Mode != model.PeriodCustom {
			return invalidf("only a custom period can be extended")
		}
		if current.PeriodEnd != nil && !newEnd.After(*current.PeriodEnd) {
			return invalidf("new end must be after the current end %s", current.PeriodEnd.Format(time.RFC3339))
		}
		if !newEnd.After(current.PeriodStart) {
			return invalidf("new end must be after the period start %s", current.PeriodStart.Format(time.RFC3339))
		}
		end := newEnd.In(e.loc)
		current.PeriodEnd = &end
		if err := store.SavePeriodState(ctx, tx, current); err != nil {
			return storageErr(err)
		}
		state = current
		return nil
	})
	if err != nil {
		return model.PeriodState{}, err
	}
	return state, nil
}

func (e *Engine) ListArchives(ctx context.Context) ([]model.PeriodArchive, error) {
	archives, err := e.store.ListArchives(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return archives, nil
}

// GetArchive accepts a full id or a unique prefix.
func (e *Engine) GetArchive(ctx context.Context, id string) (model.PeriodArchive, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.PeriodArchive{}, invalidf("archive id is required")
	}
	archives, err := e.ListArchives(ctx)
	if err != nil {
		return model.PeriodArchive{}, err
	}
	for _, a := range archives {
		if a.ID == id {
			return a, nil
		}
	}
	var match *model.PeriodArchive
	for i := range archives {
		if strings.HasPrefix(archives[i].ID, id) {
			if match != nil {
				return model.PeriodArchive{}, invalidf("archive id prefix %q is ambiguous", id)
			}
			match = &archives[i]
		}
	}
	if match == nil {
		return model.PeriodArchive{}, ErrNotFound
	}
	return *match, nil
}
