// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/padelhq/clubserver/internal/api"
	"github.com/padelhq/clubserver/internal/api/matches"
	"github.com/padelhq/clubserver/internal/config"
	"github.com/padelhq/clubserver/internal/fixedmatch"
	"github.com/padelhq/clubserver/internal/ratelimit"
)

func newServer(cfg *config.Config, svc *fixedmatch.Service, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	// Register routes
	matches.InitHandlers(svc, limiter)
	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Match lifecycle
	mux.HandleFunc("GET /api/v1/matches", matches.HandleMatchesList)
	mux.HandleFunc("GET /api/v1/matches/{id}", matches.HandleMatchGet)
	mux.HandleFunc("POST /api/v1/matches/{id}/fix", matches.HandleCreateFixed)
	mux.HandleFunc("POST /api/v1/matches/{id}/fill", matches.HandleFillAndMakePrivate)
	mux.HandleFunc("POST /api/v1/matches/{id}/public", matches.HandleMakePublic)
	mux.HandleFunc("POST /api/v1/matches/{id}/confirm-private", matches.HandleConfirmAsPrivate)
	mux.HandleFunc("POST /api/v1/matches/{id}/renew", matches.HandleRenew)

	// Maintenance sweeps, normally run by the scheduler
	mux.HandleFunc("POST /api/v1/maintenance/purge-expired", matches.HandlePurgeExpired)
	mux.HandleFunc("POST /api/v1/maintenance/reconcile-placeholders", matches.HandleReconcilePlaceholders)
}
