package models

import (
	"database/sql"
	"time"
)

// Sale is the bookkeeping row written when a record sells. For consignment
// records the commission split is frozen at sale time so a later rate
// change never rewrites history.
type Sale struct {
	ID              int64     `json:"id"`
	RecordID        int64     `json:"record_id"`
	PaymentID       string    `json:"payment_id"`
	Amount          float64   `json:"amount"`
	CommissionRate  float64   `json:"commission_rate"`
	ConsignorPayout float64   `json:"consignor_payout"`
	CreatedAt       time.Time `json:"created_at"`
}

// ConsignorSummary aggregates a consignor's activity for the payout screen.
type ConsignorSummary struct {
	ConsignorID int64   `json:"consignor_id"`
	Username    string  `json:"username"`
	ActiveCount int64   `json:"active_count"`
	SoldCount   int64   `json:"sold_count"`
	GrossSales  float64 `json:"gross_sales"`
	PayoutOwed  float64 `json:"payout_owed"`
}

func InsertSale(db *sql.DB, s *Sale) error {
	res, err := db.Exec(`INSERT INTO sales (record_id, payment_id, amount, commission_rate, consignor_payout)
		VALUES (?, ?, ?, ?, ?)`, s.RecordID, s.PaymentID, s.Amount, s.CommissionRate, s.ConsignorPayout)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// ListSalesForRecord returns the sale history of one record, newest first.
func ListSalesForRecord(db *sql.DB, recordID int64) ([]Sale, error) {
	rows, err := db.Query(`SELECT id, record_id, payment_id, amount, commission_rate,
		consignor_payout, created_at FROM sales WHERE record_id = ? ORDER BY id DESC`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var s Sale
		var paymentID sql.NullString
		if err := rows.Scan(&s.ID, &s.RecordID, &paymentID, &s.Amount, &s.CommissionRate,
			&s.ConsignorPayout, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.PaymentID = paymentID.String
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// ConsignorSummaries computes per-consignor activity across all their
// records and sales.
func ConsignorSummaries(db *sql.DB, soldStatusID int64) ([]ConsignorSummary, error) {
	rows, err := db.Query(`
		SELECT u.id, u.username,
			COALESCE(SUM(CASE WHEN r.status_id != ? THEN 1 ELSE 0 END), 0) AS active_count,
			COALESCE(SUM(CASE WHEN r.status_id = ? THEN 1 ELSE 0 END), 0) AS sold_count,
			COALESCE((SELECT SUM(s.amount) FROM sales s
				JOIN records sr ON sr.id = s.record_id WHERE sr.consignor_id = u.id), 0),
			COALESCE((SELECT SUM(s.consignor_payout) FROM sales s
				JOIN records sr ON sr.id = s.record_id WHERE sr.consignor_id = u.id), 0)
		FROM users u
		LEFT JOIN records r ON r.consignor_id = u.id
		WHERE u.role = 'consignor'
		GROUP BY u.id, u.username
		ORDER BY u.username`, soldStatusID, soldStatusID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ConsignorSummary
	for rows.Next() {
		var cs ConsignorSummary
		if err := rows.Scan(&cs.ConsignorID, &cs.Username, &cs.ActiveCount, &cs.SoldCount,
			&cs.GrossSales, &cs.PayoutOwed); err != nil {
			return nil, err
		}
		summaries = append(summaries, cs)
	}
	return summaries, rows.Err()
}
