package ledger_test

import (
	"math"
	"testing"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/model"
)

func TestMultiplierBreakpoints(t *testing.T) {
	t.Parallel()
	tests := []struct {
		streak int
		want   float64
	}{
		{0, 1.0}, {2, 1.0}, {3, 1.1}, {6, 1.1}, {7, 1.2}, {13, 1.2}, {14, 1.3}, {400, 1.3},
	}
	for _, tc := range tests {
		if got := ledger.Multiplier(tc.streak); got != tc.want {
			t.Fatalf("multiplier(%d): expected %.1f, got %.1f", tc.streak, tc.want, got)
		}
	}
	if ledger.Multiplier(400) != ledger.MaxMultiplier {
		t.Fatalf("expected the top tier to be %.1f", ledger.MaxMultiplier)
	}
	prev := ledger.Multiplier(0)
	for s := 1; s < 30; s++ {
		cur := ledger.Multiplier(s)
		if cur < prev {
			t.Fatalf("multiplier decreased at %d", s)
		}
		prev = cur
	}
}

func TestBaseBurn(t *testing.T) {
	t.Parallel()
	p := model.Profile{WeightKg: 70, HeightCm: 175, Age: 30, Gender: "male"}
	got, err := ledger.BaseBurn("Running", 30, p)
	if err != nil {
		t.Fatalf("base burn: %v", err)
	}
	if got != 336.6 {
		t.Fatalf("expected 336.6 kcal, got %.2f", got)
	}

	if _, err := ledger.BaseBurn("teleporting", 30, p); err == nil {
		t.Fatalf("expected unknown activity error")
	}
	if _, err := ledger.BaseBurn("running", 0, p); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestDrinkCalories(t *testing.T) {
	t.Parallel()
	pint := model.Drink{VolumeMl: 500, StrengthPct: 5, Count: 1}
	if got := ledger.DrinkCalories(pint); got != 140.0 {
		t.Fatalf("expected 140.0 kcal, got %.2f", got)
	}
	pint.CarbsPer100ml = 3.5
	pint.Count = 2
	if got := ledger.DrinkCalories(pint); math.Abs(got-420.1) > 0.05 {
		t.Fatalf("expected ~420.1 kcal, got %.2f", got)
	}
}

func TestAnnotateBonusTag(t *testing.T) {
	t.Parallel()
	got := ledger.Annotate("evening run", 1.2)
	if got != "evening run [streak bonus x1.2]" {
		t.Fatalf("unexpected annotation %q", got)
	}
	if again := ledger.Annotate(got, 1.2); again != got {
		t.Fatalf("annotate is not idempotent: %q", again)
	}
	if down := ledger.Annotate(got, 1.0); down != "evening run" {
		t.Fatalf("expected tag to be stripped, got %q", down)
	}
	if up := ledger.Annotate(got, 1.3); up != "evening run [streak bonus x1.3]" {
		t.Fatalf("expected tag to be replaced, got %q", up)
	}
	if bare := ledger.Annotate("", 1.1); bare != "[streak bonus x1.1]" {
		t.Fatalf("unexpected bare annotation %q", bare)
	}
}
