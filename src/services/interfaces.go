package services

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/pigstyle/records/backend/src/logger"
	"golang.org/x/net/publicsuffix"
)

// EmailService sends consignor notifications when their records sell.
type EmailService interface {
	SendSaleNotification(toEmail, consignorName string, sale SaleNotification) error
}

// SaleNotification carries everything the sale email needs.
type SaleNotification struct {
	Artist         string
	Title          string
	SalePrice      float64
	Payout         float64
	CommissionRate float64
	SoldAt         time.Time
}

// PaymentService is the slice of the Square client the checkout flow
// depends on; tests substitute a fake.
type PaymentService interface {
	GetPayment(ctx context.Context, paymentID string) (*SquarePayment, error)
}

// newUpstreamClient builds the HTTP client used for third-party APIs. The
// cookie jar keeps session cookies across redirects on providers that set
// them during OAuth handshakes.
func newUpstreamClient(timeout time.Duration) *http.Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}
	return &http.Client{
		Jar:     jar,
		Timeout: timeout,
	}
}
