package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pigstyle/records/backend/src/config"
	"github.com/pigstyle/records/backend/src/database"
	"github.com/pigstyle/records/backend/src/handlers"
	"github.com/pigstyle/records/backend/src/logger"
	"github.com/pigstyle/records/backend/src/pricing"
	"github.com/pigstyle/records/backend/src/security"
	"github.com/pigstyle/records/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("PigStyle Records backend starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	priceCache := cache.New(5*time.Minute, 10*time.Minute)
	tokenCache := cache.New(cache.NoExpiration, 0)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)

	discogsClient := pricing.NewDiscogsClient(config.Cfg.DiscogsUserToken, config.Cfg.DiscogsUserAgent, priceCache)
	ebayClient := pricing.NewEbayClient(config.Cfg.EbayClientID, config.Cfg.EbayClientSecret)
	estimator := pricing.NewEstimator(discogsClient, ebayClient, pricing.ReconcilerConfig{
		Strategy:      pricing.Strategy(config.Cfg.PriceStrategy),
		Rounding:      pricing.RoundingMode(config.Cfg.RoundingMode),
		MinimumFloor:  config.Cfg.MinStorePrice,
		FallbackPrice: config.Cfg.FallbackPrice,
		MarkupFactor:  config.Cfg.MarkupFactor,
	})

	recordService := services.NewRecordService(database.DB)
	emailService := services.NewEmailService()
	squareService := services.NewSquareService(
		config.Cfg.SquareAccessToken, config.Cfg.SquareEnvironment,
		config.Cfg.SquareLocationID, config.Cfg.SquareWebhookSignatureKey,
		config.Cfg.SquareWebhookURL,
	)
	spotifyService := services.NewSpotifyService(
		config.Cfg.SpotifyClientID, config.Cfg.SpotifyClientSecret,
		config.Cfg.SpotifyRedirectURL, config.Cfg.SpotifyPlaylistID,
		tokenCache,
	)

	var paymentService services.PaymentService
	if config.Cfg.SquareAccessToken != "" {
		paymentService = squareService
	} else {
		logger.L.Warn("Square access token not configured, checkout will skip payment verification")
	}
	checkoutService := services.NewCheckoutService(recordService, emailService, paymentService, spotifyService)

	userHandler := handlers.NewUserHandler(authService)
	priceHandler := handlers.NewPriceHandler(estimator, recordService.MinStorePrice())
	recordHandler := handlers.NewRecordHandler(recordService)
	catalogHandler := handlers.NewCatalogHandler(recordService)
	consignmentHandler := handlers.NewConsignmentHandler(recordService)
	configHandler := handlers.NewConfigHandler(recordService)
	discogsHandler := handlers.NewDiscogsHandler(discogsClient)
	squareHandler := handlers.NewSquareHandler(squareService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	spotifyHandler := handlers.NewSpotifyHandler(spotifyService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	auth := func(handler http.HandlerFunc) http.Handler {
		return userHandler.AuthMiddleware(handler)
	}
	staff := func(handler http.HandlerFunc) http.Handler {
		return userHandler.AuthMiddleware(handlers.RequireRole(handler, "employee"))
	}
	admin := func(handler http.HandlerFunc) http.Handler {
		return userHandler.AuthMiddleware(handlers.RequireRole(handler))
	}

	// Auth
	apiRouter.HandleFunc("POST /api/auth/login", userHandler.LoginUserHandler)
	apiRouter.Handle("POST /api/auth/logout", auth(userHandler.LogoutUserHandler))
	apiRouter.Handle("GET /api/auth/session", auth(userHandler.SessionHandler))
	apiRouter.Handle("POST /api/auth/register", admin(userHandler.RegisterUserHandler))
	apiRouter.Handle("GET /api/users", admin(userHandler.ListUsersHandler))
	apiRouter.Handle("POST /api/auth/change-password", auth(userHandler.ChangePasswordHandler))

	// Pricing
	apiRouter.Handle("POST /api/price-estimate", staff(priceHandler.HandlePriceEstimate))

	// Inventory
	apiRouter.Handle("POST /api/records", staff(recordHandler.HandleCreateRecord))
	apiRouter.Handle("GET /api/records", auth(recordHandler.HandleListRecords))
	apiRouter.Handle("GET /api/records/search", auth(recordHandler.HandleListRecords))
	apiRouter.Handle("GET /api/records/random", auth(recordHandler.HandleRandomRecords))
	apiRouter.Handle("GET /api/records/count", auth(recordHandler.HandleCountRecords))
	apiRouter.Handle("GET /api/records/no-barcode", staff(recordHandler.HandleRecordsWithoutBarcodes))
	apiRouter.Handle("POST /api/records/status", staff(recordHandler.HandleBulkStatus))
	apiRouter.Handle("GET /api/records/barcode/{barcode}", staff(recordHandler.HandleGetRecordByBarcode))
	apiRouter.Handle("GET /api/records/{id}", auth(recordHandler.HandleGetRecord))
	apiRouter.Handle("PUT /api/records/{id}", staff(recordHandler.HandleUpdateRecord))
	apiRouter.Handle("DELETE /api/records/{id}", admin(recordHandler.HandleDeleteRecord))
	apiRouter.Handle("POST /api/barcodes/assign", staff(recordHandler.HandleAssignBarcode))

	// Lookup tables
	apiRouter.Handle("GET /api/genres", auth(catalogHandler.HandleListGenres))
	apiRouter.Handle("POST /api/genres", staff(catalogHandler.HandleCreateGenre))
	apiRouter.Handle("GET /api/genres/mappings", staff(catalogHandler.HandleListGenreMappings))
	apiRouter.Handle("POST /api/genres/mappings", staff(catalogHandler.HandleSaveGenreMapping))
	apiRouter.Handle("GET /api/statuses", auth(catalogHandler.HandleListStatuses))

	// Consignment
	apiRouter.Handle("GET /api/consignment/summary", staff(consignmentHandler.HandleSummaries))
	apiRouter.Handle("GET /api/consignment/records", auth(consignmentHandler.HandleMyRecords))

	// Store config
	apiRouter.Handle("GET /api/config", staff(configHandler.HandleGetAll))
	apiRouter.Handle("GET /api/config/{key}", staff(configHandler.HandleGetKey))
	apiRouter.Handle("PUT /api/config/{key}", admin(configHandler.HandleSetKey))

	// Discogs catalog proxy
	apiRouter.Handle("GET /api/discogs/search", staff(discogsHandler.HandleSearch))

	// Square Terminal
	apiRouter.Handle("GET /api/square/terminals", staff(squareHandler.HandleListTerminals))
	apiRouter.Handle("POST /api/square/terminal/checkout", staff(squareHandler.HandleCreateCheckout))
	apiRouter.Handle("GET /api/square/terminal/checkout/{id}/status", staff(squareHandler.HandleCheckoutStatus))
	apiRouter.Handle("POST /api/square/terminal/checkout/{id}/cancel", staff(squareHandler.HandleCancelCheckout))
	apiRouter.Handle("GET /api/square/payment/{id}", staff(squareHandler.HandleGetPayment))
	apiRouter.HandleFunc("POST /api/square/webhook", squareHandler.HandleWebhook)

	// Checkout
	apiRouter.Handle("POST /api/checkout/process-payment", staff(checkoutHandler.HandleProcessPayment))

	// Spotify playlist sync
	apiRouter.Handle("GET /api/spotify/login", admin(spotifyHandler.HandleLogin))
	apiRouter.HandleFunc("GET /api/spotify/callback", spotifyHandler.HandleCallback)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "PigStyle Records backend is running"})
		} else if !strings.HasPrefix(r.URL.Path, "/api/") {
			logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
