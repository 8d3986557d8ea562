package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pigstyle/records/backend/src/logger"
)

const (
	squareProductionURL = "https://connect.squareup.com"
	squareSandboxURL    = "https://connect.squareupsandbox.com"
	squareAPIVersion    = "2024-01-18"
)

// SquareService talks to the Square Connect v2 API for Terminal checkouts
// and payment lookups.
type SquareService struct {
	httpClient   *http.Client
	baseURL      string
	accessToken  string
	locationID   string
	signatureKey string
	webhookURL   string
}

type SquareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type SquareTerminalCheckout struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	ReferenceID string      `json:"reference_id,omitempty"`
	Note        string      `json:"note,omitempty"`
	AmountMoney SquareMoney `json:"amount_money"`
	DeviceID    string      `json:"device_id,omitempty"`
	PaymentIDs  []string    `json:"payment_ids,omitempty"`
}

type SquarePayment struct {
	ID          string      `json:"id"`
	Status      string      `json:"status"`
	AmountMoney SquareMoney `json:"amount_money"`
	ReceiptURL  string      `json:"receipt_url,omitempty"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

type SquareDeviceCode struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DeviceID   string `json:"device_id"`
	Status     string `json:"status"`
	PairedAt   string `json:"paired_at,omitempty"`
	LocationID string `json:"location_id,omitempty"`
}

func NewSquareService(accessToken, environment, locationID, signatureKey, webhookURL string) *SquareService {
	baseURL := squareSandboxURL
	if environment == "production" {
		baseURL = squareProductionURL
	}
	return &SquareService{
		httpClient:   newUpstreamClient(15 * time.Second),
		baseURL:      baseURL,
		accessToken:  accessToken,
		locationID:   locationID,
		signatureKey: signatureKey,
		webhookURL:   webhookURL,
	}
}

// SetBaseURL points the client at a test server.
func (s *SquareService) SetBaseURL(u string) { s.baseURL = u }

func (s *SquareService) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Square-Version", squareAPIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("square request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.L.Warn("Square API returned non-OK status", "status", resp.StatusCode, "path", path, "body", string(respBody))
		return fmt.Errorf("square API status %d for %s %s", resp.StatusCode, method, path)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListDevices returns paired Terminal devices for the store location.
func (s *SquareService) ListDevices(ctx context.Context) ([]SquareDeviceCode, error) {
	var result struct {
		DeviceCodes []SquareDeviceCode `json:"device_codes"`
	}
	if err := s.do(ctx, http.MethodGet, "/v2/devices/codes?status=PAIRED", nil, &result); err != nil {
		return nil, err
	}
	return result.DeviceCodes, nil
}

// CreateTerminalCheckout pushes a checkout to the given Terminal. amount is
// in dollars; Square wants cents.
func (s *SquareService) CreateTerminalCheckout(ctx context.Context, deviceID string, amount float64, note, referenceID string) (*SquareTerminalCheckout, error) {
	body := map[string]any{
		"idempotency_key": uuid.NewString(),
		"checkout": map[string]any{
			"amount_money": SquareMoney{
				Amount:   int64(amount*100 + 0.5),
				Currency: "USD",
			},
			"device_options": map[string]any{
				"device_id": deviceID,
			},
			"reference_id": referenceID,
			"note":         note,
		},
	}

	var result struct {
		Checkout SquareTerminalCheckout `json:"checkout"`
	}
	if err := s.do(ctx, http.MethodPost, "/v2/terminals/checkouts", body, &result); err != nil {
		return nil, err
	}
	logger.L.Info("Square terminal checkout created", "checkoutID", result.Checkout.ID, "status", result.Checkout.Status)
	return &result.Checkout, nil
}

func (s *SquareService) GetTerminalCheckout(ctx context.Context, checkoutID string) (*SquareTerminalCheckout, error) {
	var result struct {
		Checkout SquareTerminalCheckout `json:"checkout"`
	}
	if err := s.do(ctx, http.MethodGet, "/v2/terminals/checkouts/"+checkoutID, nil, &result); err != nil {
		return nil, err
	}
	return &result.Checkout, nil
}

func (s *SquareService) CancelTerminalCheckout(ctx context.Context, checkoutID string) (*SquareTerminalCheckout, error) {
	var result struct {
		Checkout SquareTerminalCheckout `json:"checkout"`
	}
	if err := s.do(ctx, http.MethodPost, "/v2/terminals/checkouts/"+checkoutID+"/cancel", struct{}{}, &result); err != nil {
		return nil, err
	}
	logger.L.Info("Square terminal checkout cancelled", "checkoutID", checkoutID)
	return &result.Checkout, nil
}

func (s *SquareService) GetPayment(ctx context.Context, paymentID string) (*SquarePayment, error) {
	var result struct {
		Payment SquarePayment `json:"payment"`
	}
	if err := s.do(ctx, http.MethodGet, "/v2/payments/"+paymentID, nil, &result); err != nil {
		return nil, err
	}
	return &result.Payment, nil
}

// VerifyWebhookSignature checks the x-square-hmacsha256-signature header:
// base64(HMAC-SHA256(signatureKey, notificationURL + rawBody)).
func (s *SquareService) VerifyWebhookSignature(signature string, body []byte) bool {
	if s.signatureKey == "" {
		logger.L.Warn("Square webhook signature key not configured, rejecting webhook")
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.signatureKey))
	mac.Write([]byte(s.webhookURL))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
