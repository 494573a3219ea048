package ledger

import (
	"errors"
	"fmt"
)

const (
	// BalanceEpsilon absorbs float rounding when a debt is exactly offset.
	BalanceEpsilon = -0.1
	// MaxStreakWalk bounds the backward walk; hitting it is a bug, not a long streak.
	MaxStreakWalk = 3650
)

var ErrWalkLimit = errors.New("streak walk exceeded iteration limit")

type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeSuccess
	OutcomeRescue
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailure:
		return "failure"
	case OutcomeSuccess:
		return "success"
	case OutcomeRescue:
		return "rescue"
	}
	return "unknown"
}

// Succeeded reports whether day counts toward the streak on its own data.
func (a *Aggregation) Succeeded(day DayKey) bool {
	d := a.Day(day)
	switch a.Check(day) {
	case CheckDry:
		return true
	case CheckDrank:
		return d.HasDebtEvent && d.Balance >= BalanceEpsilon
	case CheckAbsent:
		if d.HasDebtEvent {
			return d.Balance >= BalanceEpsilon
		}
		return a.hasEntries(day)
	}
	return false
}

// Classify judges a single day. A day with nothing recorded is a rescue when
// the day before it succeeded independently, otherwise a failure.
func (a *Aggregation) Classify(day DayKey) Outcome {
	if a.Succeeded(day) {
		return OutcomeSuccess
	}
	if a.Check(day) == CheckAbsent && !a.Day(day).HasDebtEvent && !a.Recorded(day) && a.Succeeded(day.Prev()) {
		return OutcomeRescue
	}
	return OutcomeFailure
}

// Anchor is the first day the walk judges: the reference day when it has
// data, otherwise the day before (today is not judged until something is logged).
func (a *Aggregation) Anchor(reference DayKey) DayKey {
	if a.Recorded(reference) {
		return reference
	}
	return reference.Prev()
}

// Streak walks backward from the anchor of reference counting success days.
// Rescue days are skipped; the first failure, or a day before the earliest
// record, ends the walk.
func Streak(agg *Aggregation, reference DayKey, rolloverHour int) (int, error) {
	earliest := VirtualDay(agg.Earliest, rolloverHour)
	day := agg.Anchor(reference)
	streak := 0
	for i := 0; ; i++ {
		if day.Before(earliest) {
			return streak, nil
		}
		if i >= MaxStreakWalk {
			return streak, fmt.Errorf("%w: reference %s, stopped at %s", ErrWalkLimit, reference, day)
		}
		switch agg.Classify(day) {
		case OutcomeSuccess:
			streak++
		case OutcomeRescue:
		case OutcomeFailure:
			return streak, nil
		}
		day = day.Prev()
	}
}
