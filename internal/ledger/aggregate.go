package ledger

import (
	"time"

	"github.com/saadjs/kcaldebt/internal/model"
)

// CheckState is the three-valued outcome of a day's check-in.
type CheckState int

const (
	CheckAbsent CheckState = iota
	CheckDry
	CheckDrank
)

func (s CheckState) String() string {
	switch s {
	case CheckAbsent:
		return "absent"
	case CheckDry:
		return "dry"
	case CheckDrank:
		return "drank"
	}
	return "unknown"
}

// Aggregation is the per-virtual-day view of the whole history.
type Aggregation struct {
	Days     map[DayKey]*model.DayAggregate
	Checks   map[DayKey]CheckState
	Earliest time.Time

	// winning check-in per day, used only for deduplication
	checkins map[DayKey]model.CheckIn
}

// Aggregate buckets entries and check-ins by virtual day. Balance is the sum
// of the stored KCal values; Earliest defaults to now when both inputs are empty.
func Aggregate(entries []model.LogEntry, checkIns []model.CheckIn, rolloverHour int, now time.Time) *Aggregation {
	agg := &Aggregation{
		Days:     make(map[DayKey]*model.DayAggregate, len(entries)),
		Checks:   make(map[DayKey]CheckState, len(checkIns)),
		checkins: make(map[DayKey]model.CheckIn, len(checkIns)),
	}
	seen := false
	track := func(t time.Time) {
		if !seen || t.Before(agg.Earliest) {
			agg.Earliest = t
			seen = true
		}
	}

	for _, e := range entries {
		day := VirtualDay(e.Timestamp, rolloverHour)
		d, ok := agg.Days[day]
		if !ok {
			d = &model.DayAggregate{}
			agg.Days[day] = d
		}
		switch e.Kind() {
		case model.KindDebt:
			d.HasDebtEvent = true
		case model.KindCredit:
			d.HasCreditEvent = true
		}
		d.Balance += e.KCal
		track(e.Timestamp)
	}

	for _, c := range checkIns {
		day := VirtualDay(c.Timestamp, rolloverHour)
		if prev, ok := agg.checkins[day]; ok && !PreferCheckIn(c, prev) {
			track(c.Timestamp)
			continue
		}
		agg.checkins[day] = c
		if c.IsDryDay {
			agg.Checks[day] = CheckDry
		} else {
			agg.Checks[day] = CheckDrank
		}
		track(c.Timestamp)
	}

	if !seen {
		agg.Earliest = now
	}
	return agg
}

// PreferCheckIn reports whether candidate should replace current for the same
// day: saved beats placeholder, then the higher ID wins.
func PreferCheckIn(candidate, current model.CheckIn) bool {
	if candidate.IsSaved != current.IsSaved {
		return candidate.IsSaved
	}
	return candidate.ID > current.ID
}

func (a *Aggregation) Check(day DayKey) CheckState {
	return a.Checks[day]
}

// Day returns the aggregate for day, or the zero aggregate when nothing was logged.
func (a *Aggregation) Day(day DayKey) model.DayAggregate {
	if d, ok := a.Days[day]; ok {
		return *d
	}
	return model.DayAggregate{}
}

func (a *Aggregation) hasEntries(day DayKey) bool {
	_, ok := a.Days[day]
	return ok
}

// Recorded reports whether the day has any log entry or check-in.
func (a *Aggregation) Recorded(day DayKey) bool {
	if a.hasEntries(day) {
		return true
	}
	_, ok := a.Checks[day]
	return ok
}

// Adjust shifts a day's balance in place, creating the day if needed.
func (a *Aggregation) Adjust(day DayKey, delta float64) {
	d, ok := a.Days[day]
	if !ok {
		d = &model.DayAggregate{HasCreditEvent: true}
		a.Days[day] = d
	}
	d.Balance += delta
}
