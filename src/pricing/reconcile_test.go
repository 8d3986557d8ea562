package pricing

import (
	"strings"
	"testing"
)

func fptr(v float64) *float64 { return &v }

// ebayResultWithCondition builds a result where n listings match the
// requested condition and share the given median.
func ebayResultWithCondition(medianCond float64, condCount int, medianAll float64, allCount int) EbayResult {
	return EbayResult{
		MedianAll:       medianAll,
		MedianCondition: medianCond,
		AllCount:        allCount,
		ConditionCount:  condCount,
		PriceMin:        medianAll / 2,
		PriceMax:        medianAll * 2,
	}
}

// Scenario: discogs 22.50 vs eBay condition median 18.00 (n=5) under the
// minimum strategy -> eBay wins, .99 round-down gives 17.99.
func TestReconcileMinimumPrefersLowerSignal(t *testing.T) {
	ebay := ebayResultWithCondition(18.00, 5, 21.00, 12)
	est := Reconcile(fptr(22.50), ebay, VeryGoodPlus, ReconcilerConfig{})

	if est.Source != SourceEbay {
		t.Errorf("source = %s, want %s", est.Source, SourceEbay)
	}
	if !close2(est.ChosenPrice, 18.00) {
		t.Errorf("chosen = %v, want 18.00", est.ChosenPrice)
	}
	if !close2(est.RoundedPrice, 17.99) {
		t.Errorf("rounded = %v, want 17.99", est.RoundedPrice)
	}
	if est.MinimumApplied {
		t.Error("minimum floor should not have been applied")
	}
}

// Scenario: no signals at all -> fallback 19.99.
func TestReconcileFallback(t *testing.T) {
	est := Reconcile(nil, EbayResult{}, VeryGood, ReconcilerConfig{})

	if est.Source != SourceFallback {
		t.Errorf("source = %s, want %s", est.Source, SourceFallback)
	}
	if !close2(est.RoundedPrice, 19.99) {
		t.Errorf("rounded = %v, want 19.99", est.RoundedPrice)
	}
	if !traceContains(est.Trace, "fallback") {
		t.Errorf("trace should mention fallback: %v", est.Trace)
	}
}

// Scenario: discogs 0.50 with no eBay data and the default $1.99 floor.
func TestReconcileMinimumFloor(t *testing.T) {
	est := Reconcile(fptr(0.50), EbayResult{}, Good, ReconcilerConfig{})

	if !close2(est.RoundedPrice, 1.99) {
		t.Errorf("rounded = %v, want 1.99", est.RoundedPrice)
	}
	if !est.MinimumApplied {
		t.Error("minimum floor flag not set")
	}
	if est.Source != SourceDiscogs {
		t.Errorf("source = %s, want %s", est.Source, SourceDiscogs)
	}
}

// Scenario: only two condition-matched listings is below the n>=3
// threshold; the all-listings median must be used and the trace must say so.
func TestReconcileConditionSampleTooSmall(t *testing.T) {
	ebay := ebayResultWithCondition(40.00, 2, 24.00, 10)
	est := Reconcile(nil, ebay, NearMint, ReconcilerConfig{})

	if !close2(est.ChosenPrice, 24.00) {
		t.Errorf("chosen = %v, want the all-listings median 24.00", est.ChosenPrice)
	}
	if !traceContains(est.Trace, "too small") {
		t.Errorf("trace should record the threshold decision: %v", est.Trace)
	}
}

func TestReconcileWeightedStrategy(t *testing.T) {
	ebay := ebayResultWithCondition(20.00, 4, 22.00, 9)
	est := Reconcile(fptr(30.00), ebay, Mint, ReconcilerConfig{
		Strategy:      StrategyWeighted,
		DiscogsWeight: 0.5,
		EbayWeight:    0.5,
	})

	if est.Source != SourceCombined {
		t.Errorf("source = %s, want %s", est.Source, SourceCombined)
	}
	// (30*0.5 + 20*0.5) = 25.00, rounded down to 24.99.
	if !close2(est.ChosenPrice, 25.00) {
		t.Errorf("chosen = %v, want 25.00", est.ChosenPrice)
	}
	if !close2(est.RoundedPrice, 24.99) {
		t.Errorf("rounded = %v, want 24.99", est.RoundedPrice)
	}
}

func TestReconcileConditionMedianStrategy(t *testing.T) {
	ebay := ebayResultWithCondition(15.00, 6, 18.00, 11)
	est := Reconcile(fptr(12.00), ebay, VeryGood, ReconcilerConfig{Strategy: StrategyConditionMedian})

	if est.Source != SourceEbay {
		t.Errorf("source = %s, want %s", est.Source, SourceEbay)
	}
	if !close2(est.ChosenPrice, 15.00) {
		t.Errorf("chosen = %v, want 15.00", est.ChosenPrice)
	}
}

func TestReconcileFloorAlwaysHolds(t *testing.T) {
	cfg := ReconcilerConfig{MinimumFloor: 4.99}
	for _, p := range []float64{0.01, 0.99, 2.50, 4.98, 5.01, 19.99} {
		est := Reconcile(fptr(p), EbayResult{}, Good, cfg)
		if est.RoundedPrice < cfg.MinimumFloor {
			t.Errorf("price %v: rounded %v below floor %v", p, est.RoundedPrice, cfg.MinimumFloor)
		}
	}
}

func TestReconcileTraceOrder(t *testing.T) {
	ebay := ebayResultWithCondition(18.00, 5, 21.00, 12)
	est := Reconcile(fptr(22.50), ebay, VeryGoodPlus, ReconcilerConfig{})

	if len(est.Trace) < 4 {
		t.Fatalf("trace too short: %v", est.Trace)
	}
	if !strings.Contains(est.Trace[0], "Discogs price") {
		t.Errorf("trace should open with the raw Discogs price: %v", est.Trace[0])
	}
	if !strings.Contains(est.Trace[len(est.Trace)-1], ".99") {
		t.Errorf("trace should end with the rounding step: %v", est.Trace[len(est.Trace)-1])
	}
}

func traceContains(trace []string, needle string) bool {
	for _, line := range trace {
		if strings.Contains(strings.ToLower(line), strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
