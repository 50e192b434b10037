// Package api exposes the authorization service over HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tradepost-hq/tradepost/internal/billing"
	"github.com/tradepost-hq/tradepost/internal/checkout"
	"github.com/tradepost-hq/tradepost/internal/config"
	"github.com/tradepost-hq/tradepost/internal/features"
	"github.com/tradepost-hq/tradepost/internal/guard"
	"github.com/tradepost-hq/tradepost/internal/permissions"
)

// Router handles all HTTP routing for the authorization service.
type Router struct {
	mux       *http.ServeMux
	cfg       *config.Config
	reader    billing.Reader
	sessions  *guard.Manager
	flags     *features.Store
	perms     *permissions.Checker
	initiator checkout.Initiator
}

// NewRouter creates the service router.
func NewRouter(cfg *config.Config, reader billing.Reader, flags *features.Store, perms *permissions.Checker, initiator checkout.Initiator) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		cfg:       cfg,
		reader:    reader,
		sessions:  guard.NewManager(reader),
		flags:     flags,
		perms:     perms,
		initiator: initiator,
	}
	r.registerRoutes()
	return r
}

func (r *Router) registerRoutes() {
	r.mux.HandleFunc("/api/authorize", r.handleAuthorize)
	r.mux.HandleFunc("/api/entitlements", r.handleEntitlements)
	r.mux.HandleFunc("/api/session", r.handleSession)
	r.mux.HandleFunc("/api/checkout", r.handleCheckout)
	r.mux.HandleFunc("/healthz", r.handleHealth)
	r.mux.Handle("/metrics", promhttp.Handler())
}

// Close releases the per-session guards.
func (r *Router) Close() {
	r.sessions.Close()
}

// ServeHTTP implements http.Handler with the middleware chain applied.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := withRequestID(withAccessLog(r.mux))
	handler.ServeHTTP(w, req)
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
