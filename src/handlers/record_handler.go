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

type RecordHandler struct {
	records *services.RecordService
}

func NewRecordHandler(records *services.RecordService) *RecordHandler {
	return &RecordHandler{records: records}
}

type recordPayload struct {
	Artist        string  `json:"artist"`
	Title         string  `json:"title"`
	GenreID       *int64  `json:"genre_id"`
	Status        string  `json:"status"`
	Condition     string  `json:"condition"`
	Price         float64 `json:"price"`
	Barcode       *string `json:"barcode"`
	CatalogNumber string  `json:"catalog_number"`
	Year          string  `json:"year"`
	ImageURL      string  `json:"image_url"`
	DiscogsID     string  `json:"discogs_id"`
	DiscogsGenre  string  `json:"discogs_genre"`
	ConsignorID   *int64  `json:"consignor_id"`
}

func (h *RecordHandler) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Artist == "" || payload.Title == "" {
		utils.SendJSONError(w, "Artist and title are required", http.StatusBadRequest)
		return
	}

	statusName := payload.Status
	if statusName == "" {
		statusName = services.StatusIntake
	}
	statusID, err := h.records.StatusID(statusName)
	if err != nil {
		utils.SendJSONError(w, "Unknown status: "+statusName, http.StatusBadRequest)
		return
	}

	genreID := payload.GenreID
	if genreID == nil && payload.DiscogsGenre != "" {
		genreID = h.records.ResolveGenre(payload.DiscogsGenre)
	}

	rec := &models.Record{
		Artist:        payload.Artist,
		Title:         payload.Title,
		GenreID:       genreID,
		StatusID:      statusID,
		Condition:     payload.Condition,
		Price:         payload.Price,
		Barcode:       payload.Barcode,
		CatalogNumber: payload.CatalogNumber,
		Year:          payload.Year,
		ImageURL:      payload.ImageURL,
		DiscogsID:     payload.DiscogsID,
		DiscogsGenre:  payload.DiscogsGenre,
		ConsignorID:   payload.ConsignorID,
	}
	if err := models.CreateRecord(h.records.DB(), rec); err != nil {
		logger.L.Error("Failed to create record", "artist", payload.Artist, "title", payload.Title, "error", err)
		utils.SendJSONError(w, "Failed to create record", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Record created", "id", rec.ID, "artist", rec.Artist, "title", rec.Title)
	utils.WriteJSON(w, http.StatusCreated, rec)
}

func (h *RecordHandler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.RecordFilter{
		Search: q.Get("q"),
	}
	if statusName := q.Get("status"); statusName != "" {
		statusID, err := h.records.StatusID(statusName)
		if err != nil {
			utils.SendJSONError(w, "Unknown status: "+statusName, http.StatusBadRequest)
			return
		}
		filter.StatusID = statusID
	}
	filter.GenreID, _ = strconv.ParseInt(q.Get("genre_id"), 10, 64)
	filter.ConsignorID, _ = strconv.ParseInt(q.Get("consignor_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	// Consignors only ever see their own inventory.
	if role, _ := GetUserRoleFromContext(r.Context()); role == models.RoleConsignor {
		userID, _ := GetUserIDFromContext(r.Context())
		filter.ConsignorID = userID
	}

	records, err := models.ListRecords(h.records.DB(), filter)
	if err != nil {
		logger.L.Error("Failed to list records", "error", err)
		utils.SendJSONError(w, "Failed to list records", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	utils.WriteJSON(w, http.StatusOK, records)
}

func (h *RecordHandler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid record id", http.StatusBadRequest)
		return
	}
	rec, err := models.GetRecordByID(h.records.DB(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Record not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, "Failed to fetch record", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler) HandleGetRecordByBarcode(w http.ResponseWriter, r *http.Request) {
	barcode := r.PathValue("barcode")
	if barcode == "" {
		utils.SendJSONError(w, "Barcode required", http.StatusBadRequest)
		return
	}
	rec, err := models.GetRecordByBarcode(h.records.DB(), barcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "No record with that barcode", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, "Failed to fetch record", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler) HandleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid record id", http.StatusBadRequest)
		return
	}
	rec, err := models.GetRecordByID(h.records.DB(), id)
	if err != nil {
		utils.SendJSONError(w, "Record not found", http.StatusNotFound)
		return
	}

	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Artist != "" {
		rec.Artist = payload.Artist
	}
	if payload.Title != "" {
		rec.Title = payload.Title
	}
	if payload.GenreID != nil {
		rec.GenreID = payload.GenreID
	}
	if payload.Status != "" {
		statusID, err := h.records.StatusID(payload.Status)
		if err != nil {
			utils.SendJSONError(w, "Unknown status: "+payload.Status, http.StatusBadRequest)
			return
		}
		rec.StatusID = statusID
	}
	if payload.Condition != "" {
		rec.Condition = payload.Condition
	}
	if payload.Price > 0 {
		rec.Price = payload.Price
	}
	if payload.Barcode != nil {
		rec.Barcode = payload.Barcode
	}
	if payload.CatalogNumber != "" {
		rec.CatalogNumber = payload.CatalogNumber
	}
	if payload.Year != "" {
		rec.Year = payload.Year
	}
	if payload.ImageURL != "" {
		rec.ImageURL = payload.ImageURL
	}
	if payload.DiscogsID != "" {
		rec.DiscogsID = payload.DiscogsID
	}
	if payload.DiscogsGenre != "" {
		rec.DiscogsGenre = payload.DiscogsGenre
	}
	if payload.ConsignorID != nil {
		rec.ConsignorID = payload.ConsignorID
	}

	if err := models.UpdateRecord(h.records.DB(), rec); err != nil {
		logger.L.Error("Failed to update record", "id", id, "error", err)
		utils.SendJSONError(w, "Failed to update record", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid record id", http.StatusBadRequest)
		return
	}
	if err := models.DeleteRecord(h.records.DB(), id); err != nil {
		utils.SendJSONError(w, "Failed to delete record", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Record deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordHandler) HandleRandomRecords(w http.ResponseWriter, r *http.Request) {
	n, _ := strconv.Atoi(r.URL.Query().Get("count"))
	if n <= 0 || n > 50 {
		n = 10
	}
	statusID, err := h.records.StatusID(services.StatusOnFloor)
	if err != nil {
		utils.SendJSONError(w, "Failed to fetch records", http.StatusInternalServerError)
		return
	}
	records, err := models.RandomRecords(h.records.DB(), n, statusID)
	if err != nil {
		utils.SendJSONError(w, "Failed to fetch records", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	utils.WriteJSON(w, http.StatusOK, records)
}

func (h *RecordHandler) HandleCountRecords(w http.ResponseWriter, r *http.Request) {
	n, err := models.CountRecords(h.records.DB())
	if err != nil {
		utils.SendJSONError(w, "Failed to count records", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// HandleBulkStatus moves a batch of records to a new lifecycle state, e.g.
// a crate of priced records going out to the floor.
func (h *RecordHandler) HandleBulkStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RecordIDs []int64 `json:"record_ids"`
		Status    string  `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(payload.RecordIDs) == 0 || payload.Status == "" {
		utils.SendJSONError(w, "record_ids and status are required", http.StatusBadRequest)
		return
	}
	statusID, err := h.records.StatusID(payload.Status)
	if err != nil {
		utils.SendJSONError(w, "Unknown status: "+payload.Status, http.StatusBadRequest)
		return
	}

	updated, err := models.UpdateRecordsStatus(h.records.DB(), payload.RecordIDs, statusID)
	if err != nil {
		logger.L.Error("Bulk status update failed", "status", payload.Status, "error", err)
		utils.SendJSONError(w, "Failed to update records", http.StatusInternalServerError)
		return
	}
	logger.L.Info("Bulk status update", "status", payload.Status, "updated", updated)
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *RecordHandler) HandleRecordsWithoutBarcodes(w http.ResponseWriter, r *http.Request) {
	records, err := models.RecordsWithoutBarcodes(h.records.DB())
	if err != nil {
		utils.SendJSONError(w, "Failed to fetch records", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	utils.WriteJSON(w, http.StatusOK, records)
}

func (h *RecordHandler) HandleAssignBarcode(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RecordID int64  `json:"record_id"`
		Barcode  string `json:"barcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.RecordID == 0 || payload.Barcode == "" {
		utils.SendJSONError(w, "record_id and barcode are required", http.StatusBadRequest)
		return
	}
	if err := models.AssignBarcode(h.records.DB(), payload.RecordID, payload.Barcode); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Barcode assigned"})
}
