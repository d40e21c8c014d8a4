package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firmahq/firma/internal/auth"
	"github.com/firmahq/firma/internal/background"
	"github.com/firmahq/firma/internal/config"
	"github.com/firmahq/firma/internal/database"
	"github.com/firmahq/firma/internal/handlers"
	middlewareCustom "github.com/firmahq/firma/internal/middleware"
	"github.com/firmahq/firma/internal/repositories"
	"github.com/firmahq/firma/internal/routes"
	"github.com/firmahq/firma/internal/services"
	"github.com/firmahq/firma/pkg/fingerprint"
	pkghttp "github.com/firmahq/firma/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	tokenExpiry         = 24 * time.Hour
	verificationCodeTTL = 10 * time.Minute
)

// Built-in moderation patterns; the external oracle replaces these when
// one is configured.
var blockedCommentPatterns = []string{
	`(?i)viagra`,
	`(?i)casino`,
	`(?i)\bcrypto\s*(giveaway|airdrop)\b`,
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	petitionRepo := repositories.NewPetitionRepository(db)
	signatureRepo := repositories.NewSignatureRepository(db)
	attemptRepo := repositories.NewAttemptRepository(db)
	ipRiskRepo := repositories.NewIPRiskRepository(db)
	verificationRepo := repositories.NewPhoneVerificationRepository(db)

	// Token manager for optional signer identity
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, tokenExpiry)

	// Rate limiting: fixed windows per identifier and action
	windowStore := services.NewInMemoryWindowStore()
	rateLimiter := services.NewRateLimitService(windowStore, map[services.RateLimitAction]services.ActionLimit{
		services.ActionSignPetition:   {MaxRequests: cfg.AntiFraud.SignMaxPerWindow, Window: cfg.AntiFraud.WindowDuration},
		services.ActionCreatePetition: {MaxRequests: cfg.AntiFraud.CreateMaxPerWindow, Window: cfg.AntiFraud.WindowDuration},
	}, logger)

	// IP risk scoring and the temporary block list
	ipRiskService := services.NewIPRiskService(ipRiskRepo, services.IPRiskConfig{
		BlockScoreThreshold: cfg.AntiFraud.BlockScoreThreshold,
		BlockDuration:       cfg.AntiFraud.BlockDuration,
		VPNRanges:           cfg.AntiFraud.VPNRanges,
	}, logger)

	// Attempt audit log
	tracker := services.NewAttemptTracker(attemptRepo, cfg.AntiFraud.AttemptRetention, logger)

	// Phone verification over SMS
	verificationService := services.NewVerificationService(
		verificationRepo,
		&services.LogSMSSender{Logger: logger},
		verificationCodeTTL,
		logger,
	)

	// Comment moderation
	moderator, err := services.NewPatternModerator(2, blockedCommentPatterns)
	if err != nil {
		logger.Error("failed to build comment moderator", slog.Any("error", err))
		os.Exit(1)
	}

	// Milestone notifications
	var notifier services.MilestoneNotifier = &services.LogMilestoneNotifier{Logger: logger}
	if cfg.Notify.Enabled {
		sesNotifier, err := services.NewSESMilestoneNotifier(cfg.Notify.AWSRegion, cfg.Notify.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize milestone notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	// Signature pipeline
	signatureService := services.NewSignatureService(
		petitionRepo,
		signatureRepo,
		tracker,
		attemptRepo,
		rateLimiter,
		ipRiskService,
		verificationService,
		moderator,
		notifier,
		fingerprint.New(cfg.AntiFraud.FingerprintSecret),
		services.SignatureConfig{
			BurstThreshold:      cfg.AntiFraud.BurstThreshold,
			BurstWindow:         cfg.AntiFraud.BurstWindow,
			BlockScoreThreshold: cfg.AntiFraud.BlockScoreThreshold,
			BlockDuration:       cfg.AntiFraud.BlockDuration,
		},
		logger,
	)

	petitionService := services.NewPetitionService(petitionRepo, attemptRepo, rateLimiter, logger)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(
		attemptRepo, ipRiskRepo, petitionRepo, windowStore, logger, cfg.AntiFraud.CleanupInterval)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	petitionHandler := handlers.NewPetitionHandler(petitionService, ipConfig)
	signatureHandler := handlers.NewSignatureHandler(signatureService, ipConfig)
	verificationHandler := handlers.NewVerificationHandler(verificationService)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, petitionHandler, signatureHandler, verificationHandler, tokenManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	// Let in-flight attempt writes land before exiting
	tracker.Wait()

	logger.Info("server stopped gracefully")
}
