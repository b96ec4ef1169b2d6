/**
 * @description
 * This file sets up the HTTP router using the `chi` routing library. It
 * defines all the API routes and applies the CORS, authentication and
 * admin-role middleware.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: The routing library.
 * - github.com/go-chi/cors: CORS middleware for the browser frontend.
 */
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/loanapp/loan-service/internal/app"
	"github.com/loanapp/loan-service/internal/config"
	"github.com/loanapp/loan-service/pkg/middleware"
	"github.com/loanapp/loan-service/pkg/token"
)

// NewRouter creates and configures a new HTTP router.
func NewRouter(
	cfg *config.Config,
	tokens *token.Manager,
	applications *app.ApplicationService,
	auth *app.AuthService,
	bankLink *app.BankLinkService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "x-api-key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	applicationHandler := NewApplicationHandler(applications)
	adminHandler := NewAdminApplicationHandler(applications)
	authHandler := NewAuthHandler(auth, cfg.AllowAdminCreation, cfg.AdminCreateKey)
	plaidHandler := NewPlaidHandler(bankLink)

	// Public routes
	r.Get("/application/payment_size", applicationHandler.PaymentSize)
	r.Post("/auth/signup", authHandler.Signup)
	r.Post("/auth/admin-create", authHandler.CreateAdmin)
	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/password-recovery/request", authHandler.RequestPasswordRecovery)
	r.Post("/auth/password-recovery/update-password", authHandler.UpdatePassword)
	r.Post("/auth/verification-code-email", authHandler.SendVerificationCode)
	r.Post("/auth/email/verify", authHandler.VerifyEmail)
	r.Get("/auth/isEmailVerified/{email}", authHandler.IsEmailVerified)

	// Routes requiring authentication
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens))

		r.Route("/application", func(r chi.Router) {
			r.Post("/apply", applicationHandler.Apply)
			r.Get("/my", applicationHandler.ListMine)
			r.Get("/view/{id}", applicationHandler.ViewByID)
			r.Post("/cancel/{id}", applicationHandler.Cancel)
			r.Patch("/update/{id}", applicationHandler.PatchFields)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/profile", authHandler.Profile)
			r.Get("/user/{id}", authHandler.GetUser)
			r.Patch("/user/{id}", authHandler.PatchUser)
		})

		r.Route("/plaid", func(r chi.Router) {
			r.Get("/get_token", plaidHandler.GetLinkToken)
			r.Post("/set_public_token", plaidHandler.SetPublicToken)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/financial_details/{id}", plaidHandler.FinancialDetails)
			})
		})

		// Administrative routes
		r.Route("/admin/application", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/all", adminHandler.ListAll)
			r.Get("/count", adminHandler.Count)
			r.Patch("/approve/{id}", adminHandler.Approve)
			r.Patch("/reject/{id}", adminHandler.Reject)
			r.Patch("/update/{id}", adminHandler.PatchStatus)
		})
	})

	return r
}
