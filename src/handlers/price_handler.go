package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pigstyle/records/backend/src/logger"
	"github.com/pigstyle/records/backend/src/pricing"
	"github.com/pigstyle/records/backend/src/utils"
)

// PriceEstimator is the slice of the pricing pipeline the handler needs;
// tests substitute a stub.
type PriceEstimator interface {
	Estimate(ctx context.Context, q pricing.PriceQuery) (pricing.PriceEstimate, error)
}

type PriceHandler struct {
	estimator    PriceEstimator
	minimumPrice float64
}

func NewPriceHandler(estimator PriceEstimator, minimumPrice float64) *PriceHandler {
	return &PriceHandler{
		estimator:    estimator,
		minimumPrice: minimumPrice,
	}
}

type priceEstimateRequest struct {
	Artist           string `json:"artist"`
	Title            string `json:"title"`
	Condition        string `json:"condition"`
	DiscogsReleaseID string `json:"discogs_release_id"`
	Genre            string `json:"genre"`
}

// priceEstimateResponse is the wire shape the intake screen renders.
// estimated_price and price both carry the final sticker price; the
// original pre-rounding figure rides along for the operator to see.
type priceEstimateResponse struct {
	Success                bool                `json:"success"`
	Status                 string              `json:"status"`
	EstimatedPrice         float64             `json:"estimated_price"`
	OriginalEstimatedPrice float64             `json:"original_estimated_price"`
	RoundedPrice           float64             `json:"rounded_price"`
	MinimumPrice           float64             `json:"minimum_price"`
	Price                  float64             `json:"price"`
	PriceSource            pricing.PriceSource `json:"price_source"`
	Source                 pricing.PriceSource `json:"source"`
	Calculation            []string            `json:"calculation"`
	EbaySummary            pricing.EbaySummary `json:"ebay_summary"`
	EbayListings           []pricing.Listing   `json:"ebay_listings"`
	EbayListingsCount      int                 `json:"ebay_listings_count"`
	ConditionListingsCount int                 `json:"condition_listings_count"`
}

func (h *PriceHandler) HandlePriceEstimate(w http.ResponseWriter, r *http.Request) {
	var req priceEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// VG is the working assumption for ungraded intake copies.
	grade := pricing.VeryGood
	if req.Condition != "" {
		var err error
		grade, err = pricing.ParseCondition(req.Condition)
		if err != nil {
			utils.SendJSONError(w, "Unknown condition grade: "+req.Condition, http.StatusBadRequest)
			return
		}
	}

	est, err := h.estimator.Estimate(r.Context(), pricing.PriceQuery{
		Artist:           req.Artist,
		Title:            req.Title,
		Condition:        grade,
		DiscogsReleaseID: req.DiscogsReleaseID,
		GenreHint:        req.Genre,
	})
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidQuery) {
			utils.SendJSONError(w, "Artist/title or Discogs release id required", http.StatusBadRequest)
			return
		}
		logger.L.Error("Price estimate failed", "artist", req.Artist, "title", req.Title, "error", err)
		utils.SendJSONError(w, "Price estimate failed", http.StatusInternalServerError)
		return
	}

	listings := est.Listings
	if listings == nil {
		listings = []pricing.Listing{}
	}
	calculation := est.Trace
	if calculation == nil {
		calculation = []string{}
	}

	utils.WriteJSON(w, http.StatusOK, priceEstimateResponse{
		Success:                true,
		Status:                 "success",
		EstimatedPrice:         est.RoundedPrice,
		OriginalEstimatedPrice: est.ChosenPrice,
		RoundedPrice:           est.RoundedPrice,
		MinimumPrice:           h.minimumPrice,
		Price:                  est.RoundedPrice,
		PriceSource:            est.Source,
		Source:                 est.Source,
		Calculation:            calculation,
		EbaySummary:            est.Summary,
		EbayListings:           listings,
		EbayListingsCount:      est.Summary.TotalListings,
		ConditionListingsCount: est.Summary.ConditionListings,
	})
}
