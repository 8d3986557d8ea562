package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Record is one inventory item: a physical record in a bin, on hold, or
// sold. Consignment records carry a consignor id and a payout split.
type Record struct {
	ID            int64      `json:"id"`
	Artist        string     `json:"artist"`
	Title         string     `json:"title"`
	GenreID       *int64     `json:"genre_id"`
	StatusID      int64      `json:"status_id"`
	Condition     string     `json:"condition"`
	Price         float64    `json:"price"`
	Barcode       *string    `json:"barcode"`
	CatalogNumber string     `json:"catalog_number"`
	Year          string     `json:"year"`
	ImageURL      string     `json:"image_url"`
	DiscogsID     string     `json:"discogs_id"`
	DiscogsGenre  string     `json:"discogs_genre"`
	ConsignorID   *int64     `json:"consignor_id"`
	SoldAt        *time.Time `json:"sold_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

const recordColumns = `id, artist, title, genre_id, status_id, condition, price, barcode,
	catalog_number, year, image_url, discogs_id, discogs_genre, consignor_id,
	sold_at, created_at, updated_at`

func scanRecord(scanner interface{ Scan(...any) error }) (*Record, error) {
	var r Record
	var genreID, consignorID sql.NullInt64
	var barcode, catNo, year, imageURL, discogsID, discogsGenre sql.NullString
	var soldAt sql.NullTime

	err := scanner.Scan(&r.ID, &r.Artist, &r.Title, &genreID, &r.StatusID, &r.Condition,
		&r.Price, &barcode, &catNo, &year, &imageURL, &discogsID, &discogsGenre,
		&consignorID, &soldAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if genreID.Valid {
		r.GenreID = &genreID.Int64
	}
	if consignorID.Valid {
		r.ConsignorID = &consignorID.Int64
	}
	if barcode.Valid && barcode.String != "" {
		r.Barcode = &barcode.String
	}
	r.CatalogNumber = catNo.String
	r.Year = year.String
	r.ImageURL = imageURL.String
	r.DiscogsID = discogsID.String
	r.DiscogsGenre = discogsGenre.String
	if soldAt.Valid {
		r.SoldAt = &soldAt.Time
	}
	return &r, nil
}

// CreateRecord inserts the record and sets its generated id.
func CreateRecord(db *sql.DB, r *Record) error {
	query := `
	INSERT INTO records (artist, title, genre_id, status_id, condition, price, barcode,
		catalog_number, year, image_url, discogs_id, discogs_genre, consignor_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := db.Exec(query, r.Artist, r.Title, r.GenreID, r.StatusID, r.Condition,
		r.Price, r.Barcode, r.CatalogNumber, r.Year, r.ImageURL, r.DiscogsID,
		r.DiscogsGenre, r.ConsignorID)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func GetRecordByID(db *sql.DB, id int64) (*Record, error) {
	row := db.QueryRow(`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	return scanRecord(row)
}

func GetRecordByBarcode(db *sql.DB, barcode string) (*Record, error) {
	row := db.QueryRow(`SELECT `+recordColumns+` FROM records WHERE barcode = ?`, barcode)
	return scanRecord(row)
}

// UpdateRecord rewrites every mutable field of the record.
func UpdateRecord(db *sql.DB, r *Record) error {
	query := `
	UPDATE records SET artist = ?, title = ?, genre_id = ?, status_id = ?, condition = ?,
		price = ?, barcode = ?, catalog_number = ?, year = ?, image_url = ?,
		discogs_id = ?, discogs_genre = ?, consignor_id = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`
	_, err := db.Exec(query, r.Artist, r.Title, r.GenreID, r.StatusID, r.Condition,
		r.Price, r.Barcode, r.CatalogNumber, r.Year, r.ImageURL, r.DiscogsID,
		r.DiscogsGenre, r.ConsignorID, r.ID)
	return err
}

func DeleteRecord(db *sql.DB, id int64) error {
	_, err := db.Exec(`DELETE FROM records WHERE id = ?`, id)
	return err
}

// RecordFilter narrows ListRecords. Zero values mean "no constraint".
type RecordFilter struct {
	StatusID    int64
	GenreID     int64
	ConsignorID int64
	Search      string
	Limit       int
	Offset      int
}

// ListRecords returns records matching the filter, newest first.
func ListRecords(db *sql.DB, f RecordFilter) ([]Record, error) {
	var conds []string
	var args []any
	if f.StatusID != 0 {
		conds = append(conds, "status_id = ?")
		args = append(args, f.StatusID)
	}
	if f.GenreID != 0 {
		conds = append(conds, "genre_id = ?")
		args = append(args, f.GenreID)
	}
	if f.ConsignorID != 0 {
		conds = append(conds, "consignor_id = ?")
		args = append(args, f.ConsignorID)
	}
	if f.Search != "" {
		conds = append(conds, "(artist LIKE ? OR title LIKE ? OR catalog_number LIKE ?)")
		needle := "%" + f.Search + "%"
		args = append(args, needle, needle, needle)
	}

	query := `SELECT ` + recordColumns + ` FROM records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// RandomRecords returns up to n records currently on the floor, for the
// storefront's discovery widget.
func RandomRecords(db *sql.DB, n int, statusID int64) ([]Record, error) {
	rows, err := db.Query(`SELECT `+recordColumns+` FROM records
		WHERE status_id = ? ORDER BY RANDOM() LIMIT ?`, statusID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func CountRecords(db *sql.DB) (int64, error) {
	var n int64
	err := db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// UpdateRecordsStatus moves a batch of records to a new status in one
// statement; records moving to a sold status get their sold_at stamped by
// MarkRecordSold instead.
func UpdateRecordsStatus(db *sql.DB, ids []int64, statusID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, statusID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := db.Exec(`UPDATE records SET status_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkRecordSold stamps the sale time and moves the record to the sold
// status.
func MarkRecordSold(db *sql.DB, id int64, soldStatusID int64) error {
	_, err := db.Exec(`UPDATE records SET status_id = ?, sold_at = CURRENT_TIMESTAMP,
		updated_at = CURRENT_TIMESTAMP WHERE id = ?`, soldStatusID, id)
	return err
}

// RecordsWithoutBarcodes lists records still waiting for a sticker.
func RecordsWithoutBarcodes(db *sql.DB) ([]Record, error) {
	rows, err := db.Query(`SELECT ` + recordColumns + ` FROM records
		WHERE barcode IS NULL OR barcode = '' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// AssignBarcode attaches a barcode to one record; fails if the barcode is
// already taken.
func AssignBarcode(db *sql.DB, recordID int64, barcode string) error {
	var existing int64
	err := db.QueryRow(`SELECT id FROM records WHERE barcode = ?`, barcode).Scan(&existing)
	if err == nil && existing != recordID {
		return fmt.Errorf("barcode %s already assigned to record %d", barcode, existing)
	}
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	_, err = db.Exec(`UPDATE records SET barcode = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		barcode, recordID)
	return err
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}
