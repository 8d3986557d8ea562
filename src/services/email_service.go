package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/pigstyle/records/backend/src/config"
	"github.com/pigstyle/records/backend/src/logger"
)

// NewEmailService picks a provider from config: mailgun, smtp, or mock.
// Incomplete provider config falls back to mock so a sale is never blocked
// on email delivery.
func NewEmailService() EmailService {
	if config.Cfg == nil {
		logger.L.Error("Configuration not loaded, email service defaulting to mock")
		return &MockEmailService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete, falling back to mock email service")
			return &MockEmailService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" {
			logger.L.Warn("SMTP configuration incomplete, falling back to mock email service")
			return &MockEmailService{}
		}
		return &SMTPEmailService{
			Server:      config.Cfg.SMTPServer,
			Port:        config.Cfg.SMTPPort,
			User:        config.Cfg.SMTPUser,
			Password:    config.Cfg.SMTPPassword,
			SenderEmail: config.Cfg.SenderEmail,
		}
	default:
		return &MockEmailService{}
	}
}

func saleSubject(sale SaleNotification) string {
	return fmt.Sprintf("Your record sold: %s - %s", sale.Artist, sale.Title)
}

func saleBody(consignorName string, sale SaleNotification) string {
	return fmt.Sprintf(`Hi %s,

Good news! Your record sold at PigStyle Records:

  %s - %s
  Sale price: $%.2f
  Your payout: $%.2f (store commission %.0f%%)
  Sold: %s

Your payout will be included in the next settlement. Stop by the shop or
reply to this email with any questions.

Thanks,
PigStyle Records`,
		consignorName, sale.Artist, sale.Title, sale.SalePrice, sale.Payout,
		sale.CommissionRate*100, sale.SoldAt.Format("Jan 2, 2006 3:04 PM"))
}

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunEmailService) SendSaleNotification(toEmail, consignorName string, sale SaleNotification) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := s.mg.NewMessage(from, saleSubject(sale), saleBody(consignorName, sale), toEmail)
	message.AddTag("consignment-sale")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send sale notification via Mailgun", "error", err, "to", toEmail, "mailgunResp", resp)
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	logger.L.Info("Sale notification sent via Mailgun", "to", toEmail, "id", id)
	return nil
}

type SMTPEmailService struct {
	Server      string
	Port        int
	User        string
	Password    string
	SenderEmail string
}

func (s *SMTPEmailService) SendSaleNotification(toEmail, consignorName string, sale SaleNotification) error {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n",
		s.SenderEmail, toEmail, saleSubject(sale))
	message := headers + "\r\n" + saleBody(consignorName, sale)

	auth := smtp.PlainAuth("", s.User, s.Password, s.Server)
	addr := fmt.Sprintf("%s:%d", s.Server, s.Port)
	if err := smtp.SendMail(addr, auth, s.SenderEmail, []string{toEmail}, []byte(message)); err != nil {
		logger.L.Error("Failed to send sale notification via SMTP", "error", err, "to", toEmail)
		return fmt.Errorf("smtp send failed: %w", err)
	}
	logger.L.Info("Sale notification sent via SMTP", "to", toEmail)
	return nil
}

type MockEmailService struct{}

func (m *MockEmailService) SendSaleNotification(toEmail, consignorName string, sale SaleNotification) error {
	logger.L.Info("MockEmailService: would send sale notification",
		"to", toEmail, "consignor", consignorName, "artist", sale.Artist,
		"title", sale.Title, "payout", sale.Payout)
	return nil
}
