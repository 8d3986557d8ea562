package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/pigstyle/records/backend/src/logger"
	"github.com/pigstyle/records/backend/src/services"
	"github.com/pigstyle/records/backend/src/utils"
)

type SquareHandler struct {
	square *services.SquareService
}

func NewSquareHandler(square *services.SquareService) *SquareHandler {
	return &SquareHandler{square: square}
}

func (h *SquareHandler) HandleListTerminals(w http.ResponseWriter, r *http.Request) {
	devices, err := h.square.ListDevices(r.Context())
	if err != nil {
		logger.L.Error("Square device list failed", "error", err)
		utils.SendJSONError(w, "Failed to list terminals", http.StatusBadGateway)
		return
	}
	if devices == nil {
		devices = []services.SquareDeviceCode{}
	}
	utils.WriteJSON(w, http.StatusOK, devices)
}

func (h *SquareHandler) HandleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DeviceID string  `json:"device_id"`
		Amount   float64 `json:"amount"`
		Note     string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.DeviceID == "" || payload.Amount <= 0 {
		utils.SendJSONError(w, "device_id and a positive amount are required", http.StatusBadRequest)
		return
	}

	referenceID := uuid.NewString()
	checkout, err := h.square.CreateTerminalCheckout(r.Context(), payload.DeviceID, payload.Amount, payload.Note, referenceID)
	if err != nil {
		logger.L.Error("Square checkout create failed", "deviceID", payload.DeviceID, "error", err)
		utils.SendJSONError(w, "Failed to create terminal checkout", http.StatusBadGateway)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, checkout)
}

func (h *SquareHandler) HandleCheckoutStatus(w http.ResponseWriter, r *http.Request) {
	checkoutID := r.PathValue("id")
	checkout, err := h.square.GetTerminalCheckout(r.Context(), checkoutID)
	if err != nil {
		logger.L.Error("Square checkout status failed", "checkoutID", checkoutID, "error", err)
		utils.SendJSONError(w, "Failed to fetch checkout status", http.StatusBadGateway)
		return
	}
	utils.WriteJSON(w, http.StatusOK, checkout)
}

func (h *SquareHandler) HandleCancelCheckout(w http.ResponseWriter, r *http.Request) {
	checkoutID := r.PathValue("id")
	checkout, err := h.square.CancelTerminalCheckout(r.Context(), checkoutID)
	if err != nil {
		logger.L.Error("Square checkout cancel failed", "checkoutID", checkoutID, "error", err)
		utils.SendJSONError(w, "Failed to cancel checkout", http.StatusBadGateway)
		return
	}
	utils.WriteJSON(w, http.StatusOK, checkout)
}

func (h *SquareHandler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := r.PathValue("id")
	payment, err := h.square.GetPayment(r.Context(), paymentID)
	if err != nil {
		logger.L.Error("Square payment lookup failed", "paymentID", paymentID, "error", err)
		utils.SendJSONError(w, "Failed to fetch payment", http.StatusBadGateway)
		return
	}
	utils.WriteJSON(w, http.StatusOK, payment)
}

// HandleWebhook verifies the Square signature and acknowledges the event.
// Payment state is pulled on demand by the register polling checkout
// status, so the webhook only has to be accepted, not acted on.
func (h *SquareHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		utils.SendJSONError(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("x-square-hmacsha256-signature")
	if !h.square.VerifyWebhookSignature(signature, body) {
		logger.L.Warn("Square webhook signature verification failed", "remoteAddr", r.RemoteAddr)
		utils.SendJSONError(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event struct {
		Type    string `json:"type"`
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		utils.SendJSONError(w, "Invalid event payload", http.StatusBadRequest)
		return
	}

	logger.L.Info("Square webhook received", "type", event.Type, "eventID", event.EventID)
	w.WriteHeader(http.StatusOK)
}
