package api

import (
	"net/http"
	"strings"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

// handleSession serves the session guard state for the frontend shell.
//
//	GET    /api/session?tenant=<id>&user=<id>   evaluate and return the snapshot
//	DELETE /api/session?tenant=<id>&user=<id>   sign the session out
func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) {
	tenantID := strings.TrimSpace(req.URL.Query().Get("tenant"))
	userID := strings.TrimSpace(req.URL.Query().Get("user"))

	switch req.Method {
	case http.MethodGet:
		if tenantID == "" || userID == "" {
			// No resolved actor yet; the shell stays on its loading screen.
			writeJSON(w, http.StatusOK, r.sessions.Evaluate(req.Context(), nil))
			return
		}

		snapshot := r.sessions.Evaluate(req.Context(), &entitlement.Actor{
			UserID:   userID,
			TenantID: tenantID,
			Role:     req.URL.Query().Get("role"),
		})
		writeJSON(w, http.StatusOK, snapshot)

	case http.MethodDelete:
		if tenantID == "" || userID == "" {
			writeError(w, http.StatusBadRequest, "tenant and user query parameters are required")
			return
		}
		r.sessions.SignOut(&entitlement.Actor{UserID: userID, TenantID: tenantID})
		writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
