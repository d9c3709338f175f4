package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hayzen-ai/hayzen-api/internal/auth"
	"github.com/hayzen-ai/hayzen-api/internal/background"
	"github.com/hayzen-ai/hayzen-api/internal/clients"
	"github.com/hayzen-ai/hayzen-api/internal/config"
	"github.com/hayzen-ai/hayzen-api/internal/database"
	"github.com/hayzen-ai/hayzen-api/internal/handlers"
	middlewareCustom "github.com/hayzen-ai/hayzen-api/internal/middleware"
	"github.com/hayzen-ai/hayzen-api/internal/otp"
	"github.com/hayzen-ai/hayzen-api/internal/repositories"
	"github.com/hayzen-ai/hayzen-api/internal/routes"
	"github.com/hayzen-ai/hayzen-api/internal/services"
	"github.com/hayzen-ai/hayzen-api/internal/session"
	pkglogger "github.com/hayzen-ai/hayzen-api/pkg/logger"
)

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
	userRepo := repositories.NewUserRepository(db)
	otpRepo := repositories.NewOTPRepository(db)
	chatRepo := repositories.NewChatRepository(db)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		cfg.Auth.ResetTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Core managers
	otpManager := otp.NewManager(otpRepo, otp.Config{
		TTL:          cfg.OTP.TTL,
		CooldownBase: cfg.OTP.CooldownBase,
	}, logger)
	sessionManager := session.NewManager(userRepo, tokenManager, cfg.Auth.RefreshInactivityLimit, logger)

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Upstream completion client
	openRouterClient := clients.NewOpenRouterClient(clients.OpenRouterConfig{
		APIKey:       cfg.AI.APIKey,
		BaseURL:      cfg.AI.BaseURL,
		DefaultModel: cfg.AI.DefaultModel,
		Referer:      cfg.AI.Referer,
		AppTitle:     cfg.AI.AppTitle,
		Timeout:      cfg.AI.Timeout,
	}, logger)

	// Initialize services
	authService := services.NewAuthService(userRepo, otpManager, sessionManager, emailService, tokenManager, logger, auditLogger)
	chatService := services.NewChatService(chatRepo, openRouterClient, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandler(chatService)

	// Background cleanup of expired codes
	cleanupManager := background.NewCleanupManager(otpRepo, logger, cfg.OTP.CleanupInterval)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(90 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, chatHandler, tokenManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
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

	logger.Info("server stopped gracefully")
}
