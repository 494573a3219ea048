package model

import (
	"fmt"
	"time"
)

type EntryKind string

const (
	KindDebt   EntryKind = "debt"
	KindCredit EntryKind = "credit"
)

// LogEntry is one debt (drink) or credit (workout) event. Exactly one of
// Drink or Workout is set; Kind is derived from which one.
type LogEntry struct {
	ID        int64
	Timestamp time.Time
	KCal      float64
	Drink     *Drink
	Workout   *Workout
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Drink struct {
	VolumeMl      float64
	StrengthPct   float64
	CarbsPer100ml float64
	Style         string
	Brewery       string
	Rating        int
	Count         int
}

type Workout struct {
	Activity    string
	DurationMin float64
	Annotation  string
}

func (e LogEntry) Kind() EntryKind {
	if e.Workout != nil {
		return KindCredit
	}
	return KindDebt
}

func (e LogEntry) Validate() error {
	switch {
	case e.Drink == nil && e.Workout == nil:
		return fmt.Errorf("entry has neither drink nor workout details")
	case e.Drink != nil && e.Workout != nil:
		return fmt.Errorf("entry cannot be both drink and workout")
	}
	return nil
}

func (e LogEntry) IsDebt() bool   { return e.Kind() == KindDebt }
func (e LogEntry) IsCredit() bool { return e.Kind() == KindCredit }

// Clone returns a deep copy so snapshots never alias live records.
func (e LogEntry) Clone() LogEntry {
	out := e
	if e.Drink != nil {
		d := *e.Drink
		out.Drink = &d
	}
	if e.Workout != nil {
		w := *e.Workout
		out.Workout = &w
	}
	return out
}

type CheckIn struct {
	ID         int64
	Timestamp  time.Time
	IsDryDay   bool
	Conditions map[string]bool
	Weight     *float64
	IsSaved    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type DayAggregate struct {
	HasDebtEvent   bool
	HasCreditEvent bool
	Balance        float64
}

type PeriodMode string

const (
	PeriodWeekly    PeriodMode = "weekly"
	PeriodMonthly   PeriodMode = "monthly"
	PeriodCustom    PeriodMode = "custom"
	PeriodPermanent PeriodMode = "permanent"
)

func ParsePeriodMode(s string) (PeriodMode, error) {
	switch m := PeriodMode(s); m {
	case PeriodWeekly, PeriodMonthly, PeriodCustom, PeriodPermanent:
		return m, nil
	}
	return "", fmt.Errorf("invalid period mode %q (use weekly, monthly, custom or permanent)", s)
}

type PeriodState struct {
	Mode        PeriodMode
	PeriodStart time.Time
	PeriodEnd   *time.Time
	Label       string
}

type PeriodArchive struct {
	ID           string
	StartDate    time.Time
	EndDate      time.Time
	Mode         PeriodMode
	TotalBalance float64
	Entries      []LogEntry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Contains reports whether t falls inside the inclusive archive range.
func (a PeriodArchive) Contains(t time.Time) bool {
	return !t.Before(a.StartDate) && !t.After(a.EndDate)
}

func (a PeriodArchive) Overlaps(start, end time.Time) bool {
	return !end.Before(a.StartDate) && !start.After(a.EndDate)
}

type Profile struct {
	WeightKg float64
	HeightCm float64
	Age      int
	Gender   string
}
