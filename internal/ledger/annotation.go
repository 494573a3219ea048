package ledger

import (
	"fmt"
	"regexp"
	"strings"
)

var bonusTagPattern = regexp.MustCompile(`\s*\[streak bonus x\d+(?:\.\d+)?\]`)

// BonusTag is the machine-written marker appended to a workout annotation.
func BonusTag(multiplier float64) string {
	return fmt.Sprintf("[streak bonus x%.1f]", multiplier)
}

func StripBonusTag(annotation string) string {
	return strings.TrimSpace(bonusTagPattern.ReplaceAllString(annotation, ""))
}

// Annotate rewrites annotation so it carries exactly one tag for multiplier,
// or none when the multiplier is 1.0 or lower.
func Annotate(annotation string, multiplier float64) string {
	base := StripBonusTag(annotation)
	if multiplier <= 1.0 {
		return base
	}
	if base == "" {
		return BonusTag(multiplier)
	}
	return base + " " + BonusTag(multiplier)
}

// CreditFor applies the streak multiplier to a base burn.
func CreditFor(base float64, streak int) (float64, float64) {
	m := Multiplier(streak)
	return Price(base, m), m
}
