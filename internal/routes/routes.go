package routes

import (
	"github.com/firmahq/firma/internal/auth"
	"github.com/firmahq/firma/internal/handlers"
	"github.com/firmahq/firma/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	petitionHandler *handlers.PetitionHandler,
	signatureHandler *handlers.SignatureHandler,
	verificationHandler *handlers.VerificationHandler,
	tokenManager *auth.TokenManager,
) {
	writeLimit := middleware.DefaultWriteRateLimit()

	router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokenManager))

		r.Get("/petitions/{id}", petitionHandler.GetPetition)
		r.Get("/petitions/{id}/attempt-stats", petitionHandler.GetAttemptStats)

		r.With(middleware.RateLimitByIP(writeLimit)).
			Post("/petitions/{id}/signatures", signatureHandler.Sign)

		// Petition creation requires an authenticated creator
		r.With(middleware.RateLimitByIP(writeLimit)).
			With(auth.RequireAuth).
			Post("/petitions", petitionHandler.CreatePetition)
	})

	// Verification endpoints are always anonymous
	router.With(middleware.RateLimitByIP(writeLimit)).
		Post("/verifications/request", verificationHandler.RequestCode)
	router.With(middleware.RateLimitByIP(writeLimit)).
		Post("/verifications/confirm", verificationHandler.ConfirmCode)
}
