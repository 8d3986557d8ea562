package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pigstyle/records/backend/src/logger"
	"github.com/pigstyle/records/backend/src/pricing"
	"github.com/pigstyle/records/backend/src/utils"
)

// CatalogSearcher is the slice of the Discogs client the proxy needs.
type CatalogSearcher interface {
	Search(ctx context.Context, query string) ([]pricing.CatalogResult, error)
}

// DiscogsHandler proxies catalog searches so the Discogs token never
// reaches the frontend.
type DiscogsHandler struct {
	discogs CatalogSearcher
}

func NewDiscogsHandler(discogs CatalogSearcher) *DiscogsHandler {
	return &DiscogsHandler{discogs: discogs}
}

func (h *DiscogsHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		utils.SendJSONError(w, "Query parameter 'q' is required", http.StatusBadRequest)
		return
	}

	results, err := h.discogs.Search(r.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, pricing.ErrCredentialsMissing):
			utils.SendJSONError(w, "Discogs integration not configured", http.StatusServiceUnavailable)
		case errors.Is(err, pricing.ErrNoDataFound):
			utils.WriteJSON(w, http.StatusOK, []pricing.CatalogResult{})
		default:
			logger.L.Error("Discogs search failed", "query", query, "error", err)
			utils.SendJSONError(w, "Discogs search failed", http.StatusBadGateway)
		}
		return
	}
	if results == nil {
		results = []pricing.CatalogResult{}
	}
	utils.WriteJSON(w, http.StatusOK, results)
}
