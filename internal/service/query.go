package service

import (
	"context"
	"time"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/model"
)

// CurrentStreak is the streak as of ref (now when nil), anchored on ref's
// virtual day when it has data and on the day before otherwise.
func (e *Engine) CurrentStreak(ctx context.Context, ref *time.Time) (int, error) {
	reference := e.now()
	if ref != nil {
		reference = ref.In(e.loc)
	}
	h, err := loadHistory(ctx, e.store)
	if err != nil {
		return 0, storageErr(err)
	}
	return ledger.Streak(e.aggregate(h), e.day(reference), e.rollover)
}

type DayBalance struct {
	Day     ledger.DayKey
	Debt    float64
	Credit  float64
	Balance float64
	Check   ledger.CheckState
	Outcome ledger.Outcome
}

type BalanceReport struct {
	State      model.PeriodState
	Debt       float64
	Credit     float64
	Balance    float64
	Entries    int
	Streak     int
	Multiplier float64
	Archived   float64
	Days       []DayBalance
}

// Balance summarizes the live entries of the current period, newest day first.
func (e *Engine) Balance(ctx context.Context) (BalanceReport, error) {
	state, err := e.PeriodState(ctx)
	if err != nil {
		return BalanceReport{}, err
	}
	h, err := loadHistory(ctx, e.store)
	if err != nil {
		return BalanceReport{}, storageErr(err)
	}
	agg := e.aggregate(h)
	streak, err := ledger.Streak(agg, e.day(e.now()), e.rollover)
	if err != nil {
		return BalanceReport{}, err
	}

	report := BalanceReport{State: state, Streak: streak, Multiplier: ledger.Multiplier(streak)}
	days := map[ledger.DayKey]*DayBalance{}
	order := []ledger.DayKey{}
	for _, entry := range h.live {
		if entry.Timestamp.Before(state.PeriodStart) {
			continue
		}
		report.Entries++
		d := e.day(entry.Timestamp)
		db, ok := days[d]
		if !ok {
			db = &DayBalance{Day: d, Check: agg.Check(d), Outcome: agg.Classify(d)}
			days[d] = db
			order = append(order, d)
		}
		if entry.IsDebt() {
			report.Debt += entry.KCal
			db.Debt += entry.KCal
		} else {
			report.Credit += entry.KCal
			db.Credit += entry.KCal
		}
		db.Balance += entry.KCal
	}
	for _, a := range h.archives {
		report.Archived += a.TotalBalance
	}
	report.Balance = report.Debt + report.Credit
	for i := len(order) - 1; i >= 0; i-- {
		report.Days = append(report.Days, *days[order[i]])
	}
	return report, nil
}
