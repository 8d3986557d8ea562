package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pigstyle/records/backend/src/logger"
	"github.com/pigstyle/records/backend/src/services"
	"github.com/pigstyle/records/backend/src/utils"
)

type CheckoutHandler struct {
	checkout *services.CheckoutService
}

func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// HandleProcessPayment finalizes a sale once the register has a completed
// payment: records move to sold, sale rows are written, consignors get
// notified.
func (h *CheckoutHandler) HandleProcessPayment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PaymentID string  `json:"payment_id"`
		RecordIDs []int64 `json:"record_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(payload.RecordIDs) == 0 {
		utils.SendJSONError(w, "record_ids are required", http.StatusBadRequest)
		return
	}

	result, err := h.checkout.ProcessPayment(r.Context(), payload.PaymentID, payload.RecordIDs)
	if err != nil {
		logger.L.Error("Checkout failed", "paymentID", payload.PaymentID, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}
