package ledger_test

import (
	"time"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/model"
)

// base is a Monday; day(n) is n days later at noon.
var base = time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return base.AddDate(0, 0, n)
}

func key(n int) ledger.DayKey {
	return ledger.VirtualDay(day(n), ledger.DefaultRolloverHour)
}

func debt(n int, kcal float64) model.LogEntry {
	return model.LogEntry{
		Timestamp: day(n),
		KCal:      -kcal,
		Drink:     &model.Drink{VolumeMl: 500, StrengthPct: 5, Count: 1},
	}
}

func credit(n int, kcal float64) model.LogEntry {
	return model.LogEntry{
		Timestamp: day(n),
		KCal:      kcal,
		Workout:   &model.Workout{Activity: "running", DurationMin: 30},
	}
}

func checkIn(n int, dry bool) model.CheckIn {
	return model.CheckIn{Timestamp: day(n), IsDryDay: dry, IsSaved: true}
}

func streakAt(entries []model.LogEntry, checks []model.CheckIn, ref int) (int, error) {
	agg := ledger.Aggregate(entries, checks, ledger.DefaultRolloverHour, day(ref))
	return ledger.Streak(agg, key(ref), ledger.DefaultRolloverHour)
}
