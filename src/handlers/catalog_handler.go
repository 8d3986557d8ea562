package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pigstyle/records/backend/src/logger"
	"github.com/pigstyle/records/backend/src/models"
	"github.com/pigstyle/records/backend/src/services"
	"github.com/pigstyle/records/backend/src/utils"
)

// CatalogHandler serves the lookup tables: genres, statuses, and the
// Discogs-to-store genre mappings.
type CatalogHandler struct {
	records *services.RecordService
}

func NewCatalogHandler(records *services.RecordService) *CatalogHandler {
	return &CatalogHandler{records: records}
}

func (h *CatalogHandler) HandleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := models.ListGenres(h.records.DB())
	if err != nil {
		utils.SendJSONError(w, "Failed to list genres", http.StatusInternalServerError)
		return
	}
	if genres == nil {
		genres = []models.Genre{}
	}
	utils.WriteJSON(w, http.StatusOK, genres)
}

func (h *CatalogHandler) HandleCreateGenre(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		utils.SendJSONError(w, "Genre name is required", http.StatusBadRequest)
		return
	}

	genre := &models.Genre{Name: payload.Name}
	if err := models.CreateGenre(h.records.DB(), genre); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			utils.SendJSONError(w, "Genre already exists", http.StatusConflict)
			return
		}
		logger.L.Error("Failed to create genre", "name", payload.Name, "error", err)
		utils.SendJSONError(w, "Failed to create genre", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, genre)
}

func (h *CatalogHandler) HandleListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := models.ListStatuses(h.records.DB())
	if err != nil {
		utils.SendJSONError(w, "Failed to list statuses", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, statuses)
}

func (h *CatalogHandler) HandleListGenreMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := models.ListGenreMappings(h.records.DB())
	if err != nil {
		utils.SendJSONError(w, "Failed to list genre mappings", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, mappings)
}

func (h *CatalogHandler) HandleSaveGenreMapping(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DiscogsGenre string `json:"discogs_genre"`
		GenreID      int64  `json:"genre_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.DiscogsGenre == "" || payload.GenreID == 0 {
		utils.SendJSONError(w, "discogs_genre and genre_id are required", http.StatusBadRequest)
		return
	}
	if err := models.SaveGenreMapping(h.records.DB(), payload.DiscogsGenre, payload.GenreID); err != nil {
		logger.L.Error("Failed to save genre mapping", "discogsGenre", payload.DiscogsGenre, "error", err)
		utils.SendJSONError(w, "Failed to save genre mapping", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Mapping saved"})
}
