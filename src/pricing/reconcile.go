package pricing

import (
	"fmt"
	"math"
)

// Strategy selects how the Discogs and eBay signals are combined. The
// historical handlers disagreed on this; the store settled on the strict
// minimum as the canonical rule and kept the others selectable.
type Strategy string

const (
	// StrategyMinimum takes the lower of the two signals. Canonical.
	StrategyMinimum Strategy = "minimum"
	// StrategyWeighted averages the signals with configurable weights.
	StrategyWeighted Strategy = "weighted"
	// StrategyConditionMedian prefers the eBay signal outright and only
	// falls back to Discogs when eBay has nothing.
	StrategyConditionMedian Strategy = "condition-median"
)

// conditionSampleThreshold is the minimum number of condition-matched
// listings required before the condition median is trusted over the
// all-listings median.
const conditionSampleThreshold = 3

// DefaultFallbackPrice is quoted when every lookup fails; the register
// must always have a sellable price.
const DefaultFallbackPrice = 19.99

// DefaultMinimumFloor is the lowest sticker price the store will quote.
const DefaultMinimumFloor = 1.99

// PriceSource names where the chosen price came from.
type PriceSource string

const (
	SourceDiscogs  PriceSource = "discogs"
	SourceEbay     PriceSource = "ebay"
	SourceCombined PriceSource = "combined"
	SourceFallback PriceSource = "fallback"
)

// ReconcilerConfig holds the pricing policy knobs. Zero values fall back
// to the canonical policy (minimum strategy, .99 round-down, $1.99 floor).
type ReconcilerConfig struct {
	Strategy      Strategy
	Rounding      RoundingMode
	MinimumFloor  float64
	FallbackPrice float64
	// MarkupFactor scales the chosen price before rounding when the store
	// rounding table is active, e.g. 0.9 for the quick-sale discount.
	// Zero or one means no markup.
	MarkupFactor float64
	// Weights for StrategyWeighted. Must sum to 1 to keep the average an
	// average; normalised defensively if they don't.
	DiscogsWeight float64
	EbayWeight    float64
}

func (c ReconcilerConfig) withDefaults() ReconcilerConfig {
	if c.Strategy == "" {
		c.Strategy = StrategyMinimum
	}
	if c.Rounding == "" {
		c.Rounding = RoundDown99
	}
	if c.MinimumFloor == 0 {
		c.MinimumFloor = DefaultMinimumFloor
	}
	if c.FallbackPrice == 0 {
		c.FallbackPrice = DefaultFallbackPrice
	}
	if c.DiscogsWeight == 0 && c.EbayWeight == 0 {
		c.DiscogsWeight, c.EbayWeight = 0.4, 0.6
	}
	return c
}

// PriceEstimate is the computed artifact of one estimate request. It is
// ephemeral; the caller decides whether to write RoundedPrice onto an
// inventory record.
type PriceEstimate struct {
	DiscogsPrice        *float64    `json:"discogs_price"`
	EbayMedianPrice     *float64    `json:"ebay_median_price"`
	EbayConditionMedian *float64    `json:"ebay_condition_median_price"`
	ChosenPrice         float64     `json:"chosen_price"`
	Source              PriceSource `json:"price_source"`
	RoundedPrice        float64     `json:"rounded_price"`
	MinimumApplied      bool        `json:"minimum_price_applied"`
	Trace               []string    `json:"calculation"`

	// eBay display payload, carried through for the endpoint layer.
	Listings []Listing   `json:"ebay_listings"`
	Summary  EbaySummary `json:"ebay_summary"`
}

// EbaySummary is the aggregate block shown next to the listings.
type EbaySummary struct {
	TotalListings     int         `json:"total_listings"`
	ConditionListings int         `json:"condition_listings"`
	MedianPrice       *float64    `json:"median_price"`
	PriceRange        *PriceRange `json:"price_range"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Reconcile combines the Discogs signal (nil when the lookup failed) with
// the eBay lookup result into a single estimate, applying the configured
// strategy, rounding policy and minimum floor. It never fails: with no
// usable signal the fallback price is quoted.
func Reconcile(discogsPrice *float64, ebay EbayResult, grade ConditionGrade, cfg ReconcilerConfig) PriceEstimate {
	cfg = cfg.withDefaults()

	est := PriceEstimate{
		DiscogsPrice: discogsPrice,
		Listings:     ebay.Listings,
		Summary: EbaySummary{
			TotalListings:     ebay.AllCount,
			ConditionListings: ebay.ConditionCount,
		},
	}
	if ebay.AllCount > 0 {
		m := round2(ebay.MedianAll)
		est.EbayMedianPrice = &m
		est.Summary.MedianPrice = &m
		est.Summary.PriceRange = &PriceRange{Min: round2(ebay.PriceMin), Max: round2(ebay.PriceMax)}
	}
	if ebay.ConditionCount > 0 {
		m := round2(ebay.MedianCondition)
		est.EbayConditionMedian = &m
	}

	if discogsPrice != nil {
		est.trace("Discogs price: $%.2f", *discogsPrice)
	} else {
		est.trace("Discogs: no price available")
	}

	ebayPrice, ebayOK := chooseEbaySignal(&est, ebay, grade)

	chosen, source := applyStrategy(&est, cfg, discogsPrice, ebayPrice, ebayOK)
	est.Source = source
	est.ChosenPrice = round2(chosen)

	price := est.ChosenPrice
	if cfg.MarkupFactor > 0 && cfg.MarkupFactor != 1 {
		price = round2(price * cfg.MarkupFactor)
		est.trace("Markup factor %.2f applied: $%.2f", cfg.MarkupFactor, price)
	}

	rounded := cfg.Rounding.Round(price)
	est.trace("%s", cfg.Rounding.describe(rounded))

	if rounded < cfg.MinimumFloor {
		rounded = cfg.MinimumFloor
		est.MinimumApplied = true
		est.trace("Minimum price $%.2f applied", cfg.MinimumFloor)
	}
	est.RoundedPrice = round2(rounded)
	return est
}

// chooseEbaySignal picks between the condition-matched and all-listings
// medians, recording the decision in the trace.
func chooseEbaySignal(est *PriceEstimate, ebay EbayResult, grade ConditionGrade) (float64, bool) {
	switch {
	case ebay.ConditionCount >= conditionSampleThreshold:
		est.trace("eBay condition median (%s, n=%d): $%.2f",
			grade.Abbreviation(), ebay.ConditionCount, ebay.MedianCondition)
		return ebay.MedianCondition, true
	case ebay.AllCount > 0:
		if ebay.ConditionCount > 0 {
			est.trace("eBay condition sample too small (n=%d < %d), using all-listings median: $%.2f",
				ebay.ConditionCount, conditionSampleThreshold, ebay.MedianAll)
		} else {
			est.trace("eBay all-listings median (n=%d): $%.2f", ebay.AllCount, ebay.MedianAll)
		}
		return ebay.MedianAll, true
	default:
		est.trace("eBay: no vinyl listings found")
		return 0, false
	}
}

func applyStrategy(est *PriceEstimate, cfg ReconcilerConfig, discogs *float64, ebayPrice float64, ebayOK bool) (float64, PriceSource) {
	switch {
	case discogs != nil && ebayOK:
		switch cfg.Strategy {
		case StrategyWeighted:
			wd, we := cfg.DiscogsWeight, cfg.EbayWeight
			if sum := wd + we; sum != 1 && sum > 0 {
				wd, we = wd/sum, we/sum
			}
			combined := *discogs*wd + ebayPrice*we
			est.trace("Weighted average: Discogs $%.2f x %.1f + eBay $%.2f x %.1f = $%.2f",
				*discogs, wd, ebayPrice, we, combined)
			return combined, SourceCombined
		case StrategyConditionMedian:
			est.trace("Condition-median strategy: using eBay $%.2f over Discogs $%.2f", ebayPrice, *discogs)
			return ebayPrice, SourceEbay
		default:
			if ebayPrice <= *discogs {
				est.trace("Minimum of Discogs $%.2f and eBay $%.2f: eBay wins", *discogs, ebayPrice)
				return ebayPrice, SourceEbay
			}
			est.trace("Minimum of Discogs $%.2f and eBay $%.2f: Discogs wins", *discogs, ebayPrice)
			return *discogs, SourceDiscogs
		}
	case discogs != nil:
		est.trace("Discogs only: $%.2f", *discogs)
		return *discogs, SourceDiscogs
	case ebayOK:
		est.trace("eBay only: $%.2f", ebayPrice)
		return ebayPrice, SourceEbay
	default:
		est.trace("No data found, using fallback: $%.2f", cfg.FallbackPrice)
		return cfg.FallbackPrice, SourceFallback
	}
}

func (e *PriceEstimate) trace(format string, args ...any) {
	e.Trace = append(e.Trace, fmt.Sprintf(format, args...))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
