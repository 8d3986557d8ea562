package handlers

import (
	"net/http"

	"github.com/pigstyle/records/backend/src/models"
	"github.com/pigstyle/records/backend/src/services"
	"github.com/pigstyle/records/backend/src/utils"
)

type ConsignmentHandler struct {
	records *services.RecordService
}

func NewConsignmentHandler(records *services.RecordService) *ConsignmentHandler {
	return &ConsignmentHandler{records: records}
}

// HandleSummaries reports per-consignor inventory and payout totals. Staff
// only; consignors use HandleMyRecords.
func (h *ConsignmentHandler) HandleSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.records.ConsignmentSummaries()
	if err != nil {
		utils.SendJSONError(w, "Failed to compute consignment summaries", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []models.ConsignorSummary{}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"commission_rate": h.records.CommissionRate(),
		"consignors":      summaries,
	})
}

// HandleMyRecords lets a consignor see their own inventory and sale
// history.
func (h *ConsignmentHandler) HandleMyRecords(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	records, err := models.ListRecords(h.records.DB(), models.RecordFilter{ConsignorID: userID})
	if err != nil {
		utils.SendJSONError(w, "Failed to list records", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.Record{}
	}

	sales := []models.Sale{}
	for _, rec := range records {
		if rec.SoldAt == nil {
			continue
		}
		recSales, err := models.ListSalesForRecord(h.records.DB(), rec.ID)
		if err != nil {
			utils.SendJSONError(w, "Failed to list sales", http.StatusInternalServerError)
			return
		}
		sales = append(sales, recSales...)
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"sales":   sales,
	})
}
