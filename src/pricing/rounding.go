package pricing

import (
	"fmt"
	"math"
)

// RoundingMode selects the sticker-price rounding rule.
type RoundingMode string

const (
	// RoundDown99 rounds down to the nearest .99 below the computed value.
	// This is the canonical store policy.
	RoundDown99 RoundingMode = "down99"
	// RoundStore applies the tiered bin-price table: exact under $5,
	// nearest .49/.99 under $20, nearest $0.50 above.
	RoundStore RoundingMode = "store"
)

const centEpsilon = 0.01

// Round applies the mode to a computed price. Both modes are idempotent:
// rounding an already-rounded price returns it unchanged.
func (m RoundingMode) Round(price float64) float64 {
	switch m {
	case RoundStore:
		return roundStorePrice(price)
	default:
		return roundDownTo99(price)
	}
}

func (m RoundingMode) describe(price float64) string {
	switch m {
	case RoundStore:
		return fmt.Sprintf("Store rounding table applied: $%.2f", price)
	default:
		return fmt.Sprintf("Rounded DOWN to nearest .99: $%.2f", price)
	}
}

// roundDownTo99 returns the nearest x.99 at or below price. Prices under a
// dollar become $0.99.
func roundDownTo99(price float64) float64 {
	dollars := math.Floor(price)
	cents := price - dollars

	if math.Abs(cents-0.99) < centEpsilon {
		return dollars + 0.99
	}
	if dollars == 0 {
		return 0.99
	}
	return (dollars - 1) + 0.99
}

// roundStorePrice applies the tiered rounding table used on bin stickers.
func roundStorePrice(price float64) float64 {
	if price <= 0 {
		return 0
	}
	if price < 5 {
		return math.Round(price*100) / 100
	}
	if price < 20 {
		return roundTo4999(price)
	}
	// A .49/.99 ending just above $20 comes from the tier below crossing
	// the boundary; leave it alone so the table stays idempotent.
	cents := price - math.Floor(price)
	if math.Abs(cents-0.49) < centEpsilon || math.Abs(cents-0.99) < centEpsilon {
		return price
	}
	return math.Round(price/0.5) * 0.5
}

// roundTo4999 snaps a price to the nearest .49 or .99. Prices already on a
// .49/.99 boundary are left alone.
func roundTo4999(price float64) float64 {
	dollars := math.Floor(price)
	cents := price - dollars

	if math.Abs(cents-0.49) < centEpsilon || math.Abs(cents-0.99) < centEpsilon {
		return price
	}
	switch {
	case cents < 0.25:
		return dollars + 0.49
	case cents < 0.75:
		return dollars + 0.99
	default:
		return dollars + 1 + 0.49
	}
}
