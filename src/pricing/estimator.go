package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pigstyle/records/backend/src/logger"
)

// PriceQuery is one estimate request. Ephemeral, never persisted.
type PriceQuery struct {
	Artist           string
	Title            string
	Condition        ConditionGrade
	DiscogsReleaseID string
	GenreHint        string
}

// Estimator runs the full price-advice pipeline: both marketplace lookups
// in parallel, then reconciliation into a single sellable price. Lookup
// failures degrade to the fallback price; the only error ever returned is
// ErrInvalidQuery, which is the caller's to reject.
type Estimator struct {
	discogs *DiscogsClient
	ebay    *EbayClient
	cfg     ReconcilerConfig
	timeout time.Duration
}

func NewEstimator(discogs *DiscogsClient, ebay *EbayClient, cfg ReconcilerConfig) *Estimator {
	return &Estimator{
		discogs: discogs,
		ebay:    ebay,
		cfg:     cfg,
		timeout: 10 * time.Second,
	}
}

// SetTimeout overrides the per-lookup timeout. Used by tests.
func (e *Estimator) SetTimeout(d time.Duration) { e.timeout = d }

// Estimate computes a PriceEstimate for the query. The two lookups are
// independent and run concurrently, each under its own timeout.
func (e *Estimator) Estimate(ctx context.Context, q PriceQuery) (PriceEstimate, error) {
	if strings.TrimSpace(q.Artist) == "" && strings.TrimSpace(q.Title) == "" && q.DiscogsReleaseID == "" {
		return PriceEstimate{}, fmt.Errorf("%w: artist/title or discogs release id required", ErrInvalidQuery)
	}

	var (
		wg         sync.WaitGroup
		discogsVal float64
		discogsErr error
		discogsHit bool
		ebayResult EbayResult
		ebayErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		releaseID := q.DiscogsReleaseID
		if releaseID == "" {
			id, err := e.discogs.FindReleaseID(lookupCtx, q.Artist, q.Title)
			if err != nil {
				discogsErr = err
				return
			}
			releaseID = id
		}
		price, err := e.discogs.PriceSuggestion(lookupCtx, releaseID, q.Condition)
		if err != nil {
			discogsErr = err
			return
		}
		discogsVal, discogsHit = price, true
	}()
	go func() {
		defer wg.Done()
		lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		ebayResult, ebayErr = e.ebay.Search(lookupCtx, q.Artist, q.Title, q.Condition)
	}()
	wg.Wait()

	var notes []string
	var discogsPrice *float64
	if discogsHit {
		discogsPrice = &discogsVal
	} else if discogsErr != nil {
		logger.L.Warn("discogs lookup failed", "artist", q.Artist, "title", q.Title, "error", discogsErr)
		notes = append(notes, "Discogs lookup unavailable: "+reason(discogsErr))
	}
	if ebayErr != nil {
		logger.L.Warn("ebay lookup failed", "artist", q.Artist, "title", q.Title, "error", ebayErr)
		notes = append(notes, "eBay lookup unavailable: "+reason(ebayErr))
		ebayResult = EbayResult{}
	}

	est := Reconcile(discogsPrice, ebayResult, q.Condition, e.cfg)
	if len(notes) > 0 {
		est.Trace = append(notes, est.Trace...)
	}

	logger.L.Info("price estimate computed",
		"artist", q.Artist, "title", q.Title, "condition", q.Condition.Abbreviation(),
		"source", est.Source, "chosen", est.ChosenPrice, "rounded", est.RoundedPrice)
	return est, nil
}

// reason condenses a lookup error to a single trace-friendly phrase.
func reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCredentialsMissing):
		return "credentials not configured"
	case errors.Is(err, ErrNoDataFound):
		return "no usable price data"
	default:
		return "upstream error"
	}
}
