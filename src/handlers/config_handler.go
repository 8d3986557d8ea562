package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pigstyle/records/backend/src/logger"
	"github.com/pigstyle/records/backend/src/models"
	"github.com/pigstyle/records/backend/src/services"
	"github.com/pigstyle/records/backend/src/utils"
)

// ConfigHandler exposes the runtime store settings table. Only known keys
// are writable so a typo cannot create a dead setting.
type ConfigHandler struct {
	records *services.RecordService
}

func NewConfigHandler(records *services.RecordService) *ConfigHandler {
	return &ConfigHandler{records: records}
}

var writableConfigKeys = map[string]func(string) error{
	models.ConfigMinStorePrice: func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return errors.New("must be a positive number")
		}
		return nil
	},
	models.ConfigCommissionRate: func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return errors.New("must be a fraction between 0 and 1")
		}
		return nil
	},
}

func (h *ConfigHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	values, err := models.AllConfigValues(h.records.DB())
	if err != nil {
		utils.SendJSONError(w, "Failed to read store config", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, values)
}

func (h *ConfigHandler) HandleGetKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := models.GetConfigValue(h.records.DB(), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Unknown config key", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, "Failed to read store config", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (h *ConfigHandler) HandleSetKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	validate, ok := writableConfigKeys[key]
	if !ok {
		utils.SendJSONError(w, "Unknown or read-only config key", http.StatusBadRequest)
		return
	}

	var payload struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate(payload.Value); err != nil {
		utils.SendJSONError(w, key+": "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := models.SetConfigValue(h.records.DB(), key, payload.Value); err != nil {
		logger.L.Error("Failed to write store config", "key", key, "error", err)
		utils.SendJSONError(w, "Failed to write store config", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Store config updated", "key", key, "value", payload.Value)
	utils.WriteJSON(w, http.StatusOK, map[string]string{"key": key, "value": payload.Value})
}
