package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradepost-hq/tradepost/internal/audit"
	"github.com/tradepost-hq/tradepost/internal/checkout"
	"github.com/tradepost-hq/tradepost/internal/logging"
	"github.com/tradepost-hq/tradepost/internal/metrics"
	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

const maxRequestBytes = 256 << 10

// authorizeRequest is the wire shape of POST /api/authorize. Every axis is
// opt-in: omitted fields skip that axis.
type authorizeRequest struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`

	Authenticated *bool `json:"authenticated,omitempty"`

	Feature      string `json:"feature,omitempty"`
	CurrentUsage *int64 `json:"current_usage,omitempty"`

	RequiredRoles []string `json:"required_roles,omitempty"`

	Resource string `json:"resource,omitempty"`
	Action   string `json:"action,omitempty"`
}

// authorizeResponse is returned for allowed requests. Denials use the
// canonical entitlement denial payload instead.
type authorizeResponse struct {
	Allowed   bool   `json:"allowed"`
	Plan      string `json:"plan"`
	RequestID string `json:"request_id,omitempty"`
}

func (r *Router) handleAuthorize(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body authorizeRequest
	decoder := json.NewDecoder(io.LimitReader(req.Body, maxRequestBytes))
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.TenantID) == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	actor := &entitlement.Actor{
		UserID:   body.UserID,
		Role:     body.Role,
		TenantID: body.TenantID,
	}
	requestID := logging.RequestID(req.Context())

	record := r.resolveSubscription(req.Context(), body.TenantID)
	plan := planFromRecord(record)

	verdict := r.evaluate(body, record, plan)

	metrics.RecordVerdict(verdict)
	audit.RecordDecision(actor, verdict, requestID)

	if !verdict.Allowed {
		entitlement.WriteEntitlementDenied(w, verdict.Error, entitlement.UpgradeURLForFeature)
		return
	}

	writeJSON(w, http.StatusOK, authorizeResponse{
		Allowed:   true,
		Plan:      string(plan),
		RequestID: requestID,
	})
}

// evaluate runs the subscription gate, then the comprehensive check with
// predicates bound to the tenant's flags and the actor's role grants.
func (r *Router) evaluate(body authorizeRequest, record *entitlement.SubscriptionRecord, plan entitlement.Plan) entitlement.AccessVerdict {
	if !entitlement.ResolveAccess(record) {
		return entitlement.Deny(subscriptionDenialError(record))
	}

	view := r.flags.View(body.TenantID, plan)

	usage := body.CurrentUsage
	if usage == nil && body.Feature != "" {
		if tracked, ok := view.Usage(body.Feature); ok {
			usage = &tracked
		}
	}
	if usage != nil && body.Feature != "" {
		if _, hasLimit := view.FeatureLimit(body.Feature); !hasLimit {
			usage = nil
		}
	}

	checkReq := entitlement.AccessRequest{
		Authenticated: body.Authenticated,

		RequiredRoles: body.RequiredRoles,
		UserRole:      body.Role,
	}
	if body.Feature != "" {
		checkReq.Feature = body.Feature
		checkReq.HasFeature = view.HasFeature
		checkReq.FeatureLimit = func(feature string) int64 {
			limit, _ := view.FeatureLimit(feature)
			return limit
		}
		checkReq.CurrentUsage = usage
	}
	if body.Resource != "" && body.Action != "" {
		checkReq.Resource = body.Resource
		checkReq.Action = body.Action
		checkReq.HasPermission = r.perms.Predicate(body.Role)
	}

	return entitlement.CheckComprehensiveAccess(checkReq)
}

// subscriptionDenialError classifies a blocking subscription state.
func subscriptionDenialError(record *entitlement.SubscriptionRecord) *entitlement.EntitlementError {
	status := entitlement.SubscriptionStatus("")
	if record != nil {
		status = entitlement.NormalizeStatus(record.Status)
	}

	switch status {
	case entitlement.StatusTrial, entitlement.StatusTrialing:
		return entitlement.NewError(entitlement.ErrTrialExpired, nil)
	case entitlement.StatusExpired, entitlement.StatusCancelled:
		return entitlement.NewError(entitlement.ErrSubscriptionExpired, nil)
	default:
		return entitlement.NewError(entitlement.ErrSubscriptionRequired, nil)
	}
}

// resolveSubscription fetches the tenant's subscription record. Lookup
// failures resolve fail-open as a nil record; the failure is logged and
// counted, never surfaced as a denial.
func (r *Router) resolveSubscription(ctx context.Context, tenantID string) *entitlement.SubscriptionRecord {
	start := time.Now()
	record, err := r.reader.SubscriptionRecord(ctx, tenantID)
	metrics.RecordSubscriptionFetch(time.Since(start), err != nil)

	if err != nil {
		log.Warn().
			Err(err).
			Str("tenant_id", tenantID).
			Msg("Subscription lookup failed; resolving fail-open")
		return nil
	}
	return record
}

func planFromRecord(record *entitlement.SubscriptionRecord) entitlement.Plan {
	if record == nil || record.Plan == "" {
		return entitlement.PlanStarter
	}
	return entitlement.Plan(strings.ToLower(strings.TrimSpace(record.Plan)))
}

// entitlementsResponse is the wire shape of GET /api/entitlements.
type entitlementsResponse struct {
	TenantID     string                    `json:"tenant_id"`
	Plan         string                    `json:"plan"`
	Status       string                    `json:"status"`
	Behavior     entitlement.StateBehavior `json:"behavior"`
	Capabilities []string                  `json:"capabilities"`
	Limits       map[string]int64          `json:"limits"`
	Usage        map[string]int64          `json:"usage,omitempty"`
	Reasons      []entitlement.ReasonEntry `json:"upgrade_reasons"`
}

func (r *Router) handleEntitlements(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tenantID := strings.TrimSpace(req.URL.Query().Get("tenant"))
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant query parameter is required")
		return
	}

	record := r.resolveSubscription(req.Context(), tenantID)
	plan := planFromRecord(record)
	view := r.flags.View(tenantID, plan)

	status := entitlement.StatusActive
	if record != nil {
		status = entitlement.NormalizeStatus(record.Status)
	}

	capabilities := make([]string, 0)
	limits := make(map[string]int64)
	usage := make(map[string]int64)
	for _, feature := range entitlement.DerivePlanCapabilities(entitlement.PlanEnterprise) {
		if !view.HasFeature(feature) {
			continue
		}
		capabilities = append(capabilities, feature)
		if limit, ok := view.FeatureLimit(feature); ok {
			limits[feature] = limit
		}
		if used, ok := view.Usage(feature); ok {
			usage[feature] = used
		}
	}

	writeJSON(w, http.StatusOK, entitlementsResponse{
		TenantID:     tenantID,
		Plan:         string(plan),
		Status:       string(status),
		Behavior:     entitlement.GetBehavior(status),
		Capabilities: capabilities,
		Limits:       limits,
		Usage:        usage,
		Reasons:      entitlement.GenerateUpgradeReasons(capabilities),
	})
}

// checkoutRequest is the wire shape of POST /api/checkout.
type checkoutRequest struct {
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	Plan      string `json:"plan,omitempty"`
	Feature   string `json:"feature,omitempty"`
	ReturnURL string `json:"return_url,omitempty"`
}

func (r *Router) handleCheckout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body checkoutRequest
	decoder := json.NewDecoder(io.LimitReader(req.Body, maxRequestBytes))
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.TenantID) == "" {
		writeError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	session, err := r.initiator.InitiateCheckout(req.Context(), checkout.Request{
		TenantID:  body.TenantID,
		UserID:    body.UserID,
		Plan:      body.Plan,
		Feature:   body.Feature,
		ReturnURL: body.ReturnURL,
	})
	if err != nil {
		log.Error().Err(err).Str("tenant_id", body.TenantID).Msg("Checkout initiation failed")
		writeError(w, http.StatusBadGateway, "failed to create checkout session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}
