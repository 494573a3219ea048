package ledger

// MaxMultiplier is the top reward tier.
const MaxMultiplier = 1.3

// Multiplier maps a streak length to the credit reward tier.
func Multiplier(streak int) float64 {
	switch {
	case streak >= 14:
		return 1.3
	case streak >= 7:
		return 1.2
	case streak >= 3:
		return 1.1
	default:
		return 1.0
	}
}

// Price applies multiplier to a base burn with the rounding every stored amount uses.
func Price(base, multiplier float64) float64 {
	return round1(base * multiplier)
}
