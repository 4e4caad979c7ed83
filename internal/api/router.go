package api

import (
	"log/slog"

	"github.com/Fantasim/hdwallet/internal/api/handlers"
	"github.com/Fantasim/hdwallet/internal/api/middleware"
	"github.com/Fantasim/hdwallet/internal/config"
	"github.com/Fantasim/hdwallet/internal/orchestrator"
	"github.com/go-chi/chi/v5"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRouter builds the wallet's thin HTTP dispatch surface: every route
// decodes a request, calls one method on o, and encodes the result.
// Business logic never lives in this package, matching the teacher's
// dispatch-is-a-thin-adapter split between internal/api and its
// service layer.
func NewRouter(o *orchestrator.Orchestrator, cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging)
	r.Use(middleware.HostCheck)
	r.Use(middleware.CORS)

	slog.Info("router initialized", "middleware", []string{"requestLogging", "hostCheck", "cors"})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthHandler(cfg, Version))

		r.Get("/deposit-address", handlers.DepositAddress(o))

		r.Route("/balance", func(r chi.Router) {
			r.Get("/btc", handlers.BalanceBTC(o))
			r.Get("/runes", handlers.BalanceRunes(o))
			r.Get("/runes-of", handlers.RuneBalancesOf(o))
		})

		r.Route("/withdraw", func(r chi.Router) {
			r.Post("/btc", handlers.WithdrawBitcoin(o))
			r.Post("/btc/two-senders", handlers.WithdrawBitcoinTwoSenders(o))
			r.Post("/rune", handlers.WithdrawRune(o))
			r.Post("/combined", handlers.WithdrawCombined(o))
		})
	})

	return r
}
