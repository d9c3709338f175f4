package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/hayzen-ai/hayzen-api/internal/auth"
	"github.com/hayzen-ai/hayzen-api/internal/handlers"
	"github.com/hayzen-ai/hayzen-api/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	tokenManager *auth.TokenManager,
) {
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())
	chatLimit := middleware.RateLimitByIP(middleware.DefaultChatRateLimit())

	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(authLimit)

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot", authHandler.ForgotPassword)
		r.Post("/reset", authHandler.ResetPassword)
		r.Post("/verify-otp", authHandler.VerifyOTP)
		r.Post("/resend-otp", authHandler.ResendOTP)
		r.Post("/auth/refresh", authHandler.Refresh)
	})

	// Protected routes - bearer access token required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))

		r.With(chatLimit).Post("/askAI", chatHandler.Ask)
		r.Get("/get-history", chatHandler.History)

		r.Post("/change-password", authHandler.ChangePassword)
		r.Post("/toggle-2fa", authHandler.Toggle2FA)
		r.Get("/get-user-status", authHandler.GetUserStatus)
		r.Post("/auth/logout", authHandler.Logout)
	})
}
