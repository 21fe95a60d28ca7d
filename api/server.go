/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Origins from CORS_ALLOWED_ORIGINS

ROUTE GROUPS:
  /api/users/{userID}/*  Per-user session, attendance and wallet
  /api/attendance/*      HR views and overrides
  /api/wallets/*         Payroll wallets and deductions
  /api/payroll/*         Salary overview
  /api/jobs/*            Scheduled jobs
  /healthz               Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !wildcard(allowedOrigins),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)

			r.Get("/attendance", h.GetHistory)
			r.Get("/attendance/all", h.GetFullHistory)
			r.Get("/attendance/today", h.GetToday)
			r.Get("/attendance/counters", h.GetCounters)
			r.Get("/attendance/weekly", h.GetWeekly)

			r.Post("/wallet", h.InitWallet)
			r.Get("/wallet", h.GetWallet)
			r.Get("/wallet/summary", h.GetWalletSummary)
			r.Get("/wallet/accruals", h.GetAccruals)
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Get("/daily", h.GetDaily)
			r.Get("/payroll-days", h.GetPayrollDays)
			r.Put("/status", h.UpdateStatus)
			r.Put("/status/bulk", h.UpdateStatusBulk)
		})

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/", h.ListWallets)
			r.Get("/totals", h.GetTotals)
			r.Post("/deductions", h.AddDeduction)
		})

		r.Get("/payroll/overview", h.GetSalaryOverview)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Get("/runs", h.ListJobRuns)
			r.Post("/{name}/run", h.RunJob)
		})
	})

	return r
}

func wildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
