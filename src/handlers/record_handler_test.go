package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/pigstyle/records/backend/src/database"
	"github.com/pigstyle/records/backend/src/models"
	"github.com/pigstyle/records/backend/src/services"
)

func newRecordFixture(t *testing.T) *RecordHandler {
	t.Helper()
	database.InitDB(t.TempDir() + "/store.db")
	return NewRecordHandler(services.NewRecordService(database.DB))
}

func createViaHandler(t *testing.T, h *RecordHandler, body string) models.Record {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/records", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.HandleCreateRecord(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	var rec models.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestCreateAndGetRecord(t *testing.T) {
	h := newRecordFixture(t)

	rec := createViaHandler(t, h,
		`{"artist":"Nina Simone","title":"Pastel Blues","condition":"VG+","price":22.99,"year":"1965"}`)
	if rec.ID == 0 || rec.Artist != "Nina Simone" {
		t.Fatalf("created record = %+v", rec)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/records/"+strconv.FormatInt(rec.ID, 10), nil)
	req.SetPathValue("id", strconv.FormatInt(rec.ID, 10))
	rr := httptest.NewRecorder()
	h.HandleGetRecord(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/records/999", nil)
	req.SetPathValue("id", "999")
	rr = httptest.NewRecorder()
	h.HandleGetRecord(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing record status = %d, want 404", rr.Code)
	}
}

func TestCreateRecordRequiresArtistAndTitle(t *testing.T) {
	h := newRecordFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/records", strings.NewReader(`{"artist":"Solo"}`))
	rr := httptest.NewRecorder()
	h.HandleCreateRecord(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestBulkStatusHandler(t *testing.T) {
	h := newRecordFixture(t)
	a := createViaHandler(t, h, `{"artist":"X","title":"A","condition":"VG","price":5}`)
	b := createViaHandler(t, h, `{"artist":"X","title":"B","condition":"VG","price":5}`)

	body := `{"record_ids":[` + strconv.FormatInt(a.ID, 10) + `,` + strconv.FormatInt(b.ID, 10) + `],"status":"on_floor"}`
	req := httptest.NewRequest(http.MethodPost, "/api/records/status", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.HandleBulkStatus(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp map[string]int64
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["updated"] != 2 {
		t.Errorf("updated = %d, want 2", resp["updated"])
	}

	// Unknown status name rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/records/status",
		strings.NewReader(`{"record_ids":[1],"status":"vaporized"}`))
	rr = httptest.NewRecorder()
	h.HandleBulkStatus(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown status = %d, want 400", rr.Code)
	}
}

func TestBarcodeAssignAndLookup(t *testing.T) {
	h := newRecordFixture(t)
	rec := createViaHandler(t, h, `{"artist":"X","title":"A","condition":"VG","price":5}`)

	body := `{"record_id":` + strconv.FormatInt(rec.ID, 10) + `,"barcode":"PS0001"}`
	req := httptest.NewRequest(http.MethodPost, "/api/barcodes/assign", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.HandleAssignBarcode(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("assign status = %d, body %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/records/barcode/PS0001", nil)
	req.SetPathValue("barcode", "PS0001")
	rr = httptest.NewRecorder()
	h.HandleGetRecordByBarcode(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", rr.Code)
	}
	var got models.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != rec.ID {
		t.Errorf("barcode lookup returned record %d, want %d", got.ID, rec.ID)
	}
}

func TestConfigHandlerRoundTrip(t *testing.T) {
	database.InitDB(t.TempDir() + "/store.db")
	h := NewConfigHandler(services.NewRecordService(database.DB))

	req := httptest.NewRequest(http.MethodPut, "/api/config/MIN_STORE_PRICE", strings.NewReader(`{"value":"2.99"}`))
	req.SetPathValue("key", "MIN_STORE_PRICE")
	rr := httptest.NewRecorder()
	h.HandleSetKey(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("set status = %d, body %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/config/MIN_STORE_PRICE", nil)
	req.SetPathValue("key", "MIN_STORE_PRICE")
	rr = httptest.NewRecorder()
	h.HandleGetKey(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["value"] != "2.99" {
		t.Errorf("value = %q, want 2.99", resp["value"])
	}

	// Unknown keys are not writable.
	req = httptest.NewRequest(http.MethodPut, "/api/config/WHATEVER", strings.NewReader(`{"value":"x"}`))
	req.SetPathValue("key", "WHATEVER")
	rr = httptest.NewRecorder()
	h.HandleSetKey(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown key status = %d, want 400", rr.Code)
	}

	// Invalid values are rejected.
	req = httptest.NewRequest(http.MethodPut, "/api/config/COMMISSION_RATE", strings.NewReader(`{"value":"1.5"}`))
	req.SetPathValue("key", "COMMISSION_RATE")
	rr = httptest.NewRecorder()
	h.HandleSetKey(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid value status = %d, want 400", rr.Code)
	}
}
