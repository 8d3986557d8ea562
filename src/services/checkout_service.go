package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pigstyle/records/backend/src/logger"
	"github.com/pigstyle/records/backend/src/models"
	"github.com/pigstyle/records/backend/src/utils"
)

// CheckoutService finalizes a sale after payment: marks records sold,
// writes sale rows with the consignment split frozen in, and notifies
// consignors.
type CheckoutService struct {
	records  *RecordService
	email    EmailService
	payments PaymentService
	spotify  *SpotifyService
}

func NewCheckoutService(records *RecordService, email EmailService, payments PaymentService, spotify *SpotifyService) *CheckoutService {
	return &CheckoutService{
		records:  records,
		email:    email,
		payments: payments,
		spotify:  spotify,
	}
}

type SoldItem struct {
	RecordID int64   `json:"record_id"`
	Artist   string  `json:"artist"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Payout   float64 `json:"consignor_payout"`
}

type CheckoutResult struct {
	PaymentID string     `json:"payment_id"`
	Items     []SoldItem `json:"items"`
	Total     float64    `json:"total"`
}

// ProcessPayment marks the given records sold against a completed payment.
// Payment verification runs when a payment service is configured; email
// and playlist sync are best-effort and never fail the sale.
func (c *CheckoutService) ProcessPayment(ctx context.Context, paymentID string, recordIDs []int64) (*CheckoutResult, error) {
	if len(recordIDs) == 0 {
		return nil, fmt.Errorf("no records in checkout")
	}

	if c.payments != nil && paymentID != "" {
		payment, err := c.payments.GetPayment(ctx, paymentID)
		if err != nil {
			return nil, fmt.Errorf("verifying payment %s: %w", paymentID, err)
		}
		if payment.Status != "COMPLETED" && payment.Status != "APPROVED" {
			return nil, fmt.Errorf("payment %s not completed (status %s)", paymentID, payment.Status)
		}
	}

	db := c.records.DB()
	soldID, err := c.records.StatusID(StatusSold)
	if err != nil {
		return nil, err
	}
	commission := c.records.CommissionRate()

	result := &CheckoutResult{PaymentID: paymentID}
	for _, id := range recordIDs {
		rec, err := models.GetRecordByID(db, id)
		if err != nil {
			return nil, fmt.Errorf("record %d not found: %w", id, err)
		}
		if rec.StatusID == soldID {
			return nil, fmt.Errorf("record %d already sold", id)
		}

		if err := models.MarkRecordSold(db, rec.ID, soldID); err != nil {
			return nil, fmt.Errorf("marking record %d sold: %w", rec.ID, err)
		}

		sale := &models.Sale{
			RecordID:  rec.ID,
			PaymentID: paymentID,
			Amount:    rec.Price,
		}
		if rec.ConsignorID != nil {
			sale.CommissionRate = commission
			sale.ConsignorPayout = utils.RoundFloat(rec.Price*(1-commission), 2)
		}
		if err := models.InsertSale(db, sale); err != nil {
			return nil, fmt.Errorf("recording sale for record %d: %w", rec.ID, err)
		}

		if rec.ConsignorID != nil {
			c.notifyConsignor(*rec.ConsignorID, rec, sale)
		}
		if c.spotify != nil && c.spotify.Configured() {
			if err := c.spotify.SyncRecord(ctx, rec.Artist, rec.Title); err != nil {
				logger.L.Warn("Spotify playlist sync failed", "recordID", rec.ID, "error", err)
			}
		}

		result.Items = append(result.Items, SoldItem{
			RecordID: rec.ID,
			Artist:   rec.Artist,
			Title:    rec.Title,
			Price:    rec.Price,
			Payout:   sale.ConsignorPayout,
		})
		result.Total += rec.Price
	}

	logger.L.Info("Checkout processed", "paymentID", paymentID, "items", len(result.Items), "total", result.Total)
	return result, nil
}

func (c *CheckoutService) notifyConsignor(consignorID int64, rec *models.Record, sale *models.Sale) {
	consignor, err := models.GetUserByID(c.records.DB(), consignorID)
	if err != nil {
		logger.L.Warn("Consignor lookup failed for sale notification", "consignorID", consignorID, "error", err)
		return
	}
	if consignor.Email == "" {
		logger.L.Warn("Consignor has no email, skipping sale notification", "consignorID", consignorID)
		return
	}

	notification := SaleNotification{
		Artist:         rec.Artist,
		Title:          rec.Title,
		SalePrice:      sale.Amount,
		Payout:         sale.ConsignorPayout,
		CommissionRate: sale.CommissionRate,
		SoldAt:         time.Now(),
	}
	if err := c.email.SendSaleNotification(consignor.Email, consignor.Username, notification); err != nil {
		logger.L.Warn("Sale notification email failed", "consignorID", consignorID, "error", err)
	}
}
