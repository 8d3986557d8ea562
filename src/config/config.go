package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port              string
	DatabasePath      string
	LogLevel          string
	JWTSecret         string
	AccessTokenExpiry time.Duration

	// Discogs catalog / price suggestions
	DiscogsUserToken string
	DiscogsUserAgent string

	// eBay Browse API (client-credentials OAuth)
	EbayClientID     string
	EbayClientSecret string

	// Pricing policy
	MinStorePrice  float64
	FallbackPrice  float64
	PriceStrategy  string // minimum | weighted | condition-median
	RoundingMode   string // down99 | store
	MarkupFactor   float64
	CommissionRate float64 // store share of a consignment sale

	// Square Terminal
	SquareAccessToken         string
	SquareEnvironment         string // production | sandbox
	SquareLocationID          string
	SquareTerminalDeviceID    string
	SquareWebhookSignatureKey string
	SquareWebhookURL          string

	// Spotify playlist sync
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURL  string
	SpotifyPlaylistID   string

	// Consignor notifications
	EmailServiceProvider string
	SMTPServer           string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	MailgunDomain        string
	MailgunPrivateAPIKey string
	SenderEmail          string
	SenderName           string
}

var Cfg *AppConfig

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, relying on OS environment variables and defaults.")
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "change-me-to-a-real-32-byte-minimum-secret-value")
	if jwtSecret == "change-me-to-a-real-32-byte-minimum-secret-value" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET for production.")
	}

	Cfg = &AppConfig{
		Port:              getEnv("PORT", "8080"),
		DatabasePath:      getEnv("DATABASE_PATH", "./data/records.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		JWTSecret:         jwtSecret,
		AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 12*time.Hour),

		DiscogsUserToken: getEnv("DISCOGS_USER_TOKEN", ""),
		DiscogsUserAgent: getEnv("DISCOGS_USER_AGENT", "PigStyleRecords/1.0"),

		EbayClientID:     getEnv("EBAY_CLIENT_ID", ""),
		EbayClientSecret: getEnv("EBAY_CLIENT_SECRET", ""),

		MinStorePrice:  getEnvAsFloat("MIN_STORE_PRICE", 1.99),
		FallbackPrice:  getEnvAsFloat("FALLBACK_PRICE", 19.99),
		PriceStrategy:  getEnv("PRICE_STRATEGY", "minimum"),
		RoundingMode:   getEnv("ROUNDING_MODE", "down99"),
		MarkupFactor:   getEnvAsFloat("MARKUP_FACTOR", 0),
		CommissionRate: getEnvAsFloat("COMMISSION_RATE", 0.4),

		SquareAccessToken:         getEnv("SQUARE_ACCESS_TOKEN", ""),
		SquareEnvironment:         getEnv("SQUARE_ENVIRONMENT", "sandbox"),
		SquareLocationID:          getEnv("SQUARE_LOCATION_ID", ""),
		SquareTerminalDeviceID:    getEnv("SQUARE_TERMINAL_DEVICE_ID", ""),
		SquareWebhookSignatureKey: getEnv("SQUARE_WEBHOOK_SIGNATURE_KEY", ""),
		SquareWebhookURL:          getEnv("SQUARE_WEBHOOK_URL", ""),

		SpotifyClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),
		SpotifyRedirectURL:  getEnv("SPOTIFY_REDIRECT_URL", "http://localhost:8080/api/spotify/callback"),
		SpotifyPlaylistID:   getEnv("SPOTIFY_PLAYLIST_ID", ""),

		EmailServiceProvider: getEnv("EMAIL_SERVICE_PROVIDER", "mock"),
		SMTPServer:           getEnv("SMTP_SERVER", ""),
		SMTPPort:             getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", "noreply@pigstylemusic.com"),
		SenderName:           getEnv("SENDER_NAME", "PigStyle Records"),
	}

	if Cfg.EmailServiceProvider == "mailgun" && (Cfg.MailgunDomain == "" || Cfg.MailgunPrivateAPIKey == "") {
		log.Fatalf("FATAL: MAILGUN_DOMAIN and MAILGUN_PRIVATE_API_KEY are required when EMAIL_SERVICE_PROVIDER is 'mailgun'.")
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, Strategy=%s, Rounding=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.PriceStrategy, Cfg.RoundingMode)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid numeric value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
