package ledger

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/saadjs/kcaldebt/internal/model"
)

const (
	ethanolDensity     = 0.789 // g/ml
	kcalPerGramAlcohol = 7.1
	kcalPerGramCarbs   = 4.0
	minutesPerDay      = 1440.0
)

// activityMETs are metabolic equivalents per activity key.
var activityMETs = map[string]float64{
	"cycling":  7.5,
	"dancing":  5.0,
	"football": 7.0,
	"hiit":     8.0,
	"hiking":   6.0,
	"rowing":   7.0,
	"running":  9.8,
	"strength": 5.0,
	"swimming": 8.0,
	"tennis":   7.3,
	"walking":  3.5,
	"yoga":     2.5,
}

func NormalizeActivity(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func ActivityMET(key string) (float64, bool) {
	met, ok := activityMETs[NormalizeActivity(key)]
	return met, ok
}

// Activities lists the known activity keys in alphabetical order.
func Activities() []string {
	keys := make([]string, 0, len(activityMETs))
	for k := range activityMETs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(p model.Profile) float64 {
	base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	switch strings.ToLower(strings.TrimSpace(p.Gender)) {
	case "male", "m":
		return base + 5
	case "female", "f":
		return base - 161
	default:
		return base - 78
	}
}

// BaseBurn is the un-multiplied credit for a workout: MET x minutes x resting kcal/min.
func BaseBurn(activity string, durationMin float64, p model.Profile) (float64, error) {
	met, ok := ActivityMET(activity)
	if !ok {
		return 0, fmt.Errorf("unknown activity %q", activity)
	}
	if durationMin <= 0 {
		return 0, fmt.Errorf("duration must be > 0")
	}
	rate := BMR(p) / minutesPerDay
	if rate <= 0 {
		return 0, fmt.Errorf("profile yields non-positive burn rate")
	}
	return round1(met * durationMin * rate), nil
}

// DrinkCalories returns the positive kcal content of a drink record.
func DrinkCalories(d model.Drink) float64 {
	count := d.Count
	if count < 1 {
		count = 1
	}
	alcohol := d.VolumeMl * d.StrengthPct / 100 * ethanolDensity * kcalPerGramAlcohol
	carbs := d.VolumeMl / 100 * d.CarbsPer100ml * kcalPerGramCarbs
	return round1(float64(count) * (alcohol + carbs))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
