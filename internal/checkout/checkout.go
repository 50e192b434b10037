// Package checkout starts upgrade checkout sessions against the billing
// provider. The caller redirects the user to the returned URL; the billing
// webhook later updates the subscription read model.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

const maxCheckoutResponseBytes = 64 << 10

// Request describes the checkout session to create.
type Request struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Plan     string `json:"plan"`

	// Feature, when set, records which gated feature prompted the upgrade so
	// billing can attribute the conversion.
	Feature string `json:"feature,omitempty"`

	// ReturnURL is where the billing provider sends the user afterwards.
	ReturnURL string `json:"return_url,omitempty"`
}

// Session is the created checkout session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Initiator creates checkout sessions.
type Initiator interface {
	InitiateCheckout(ctx context.Context, req Request) (*Session, error)
}

// HTTPInitiator creates sessions against the hosted billing service.
type HTTPInitiator struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPInitiator creates an initiator posting to the given checkout endpoint.
func NewHTTPInitiator(endpoint, token string, timeout time.Duration) (*HTTPInitiator, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("checkout endpoint is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPInitiator{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// InitiateCheckout creates a checkout session for the tenant.
func (i *HTTPInitiator) InitiateCheckout(ctx context.Context, req Request) (*Session, error) {
	if req.TenantID == "" {
		return nil, errors.New("tenant ID is required")
	}
	if req.Plan == "" {
		req.Plan = string(entitlement.PlanGrowth)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if i.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+i.token)
	}

	resp, err := i.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("initiate checkout for tenant %q: %w", req.TenantID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("checkout endpoint returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var session Session
	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxCheckoutResponseBytes))
	if err := decoder.Decode(&session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if session.URL == "" {
		return nil, errors.New("checkout session has no redirect URL")
	}

	log.Info().
		Str("tenant_id", req.TenantID).
		Str("plan", req.Plan).
		Str("session_id", session.ID).
		Msg("Created checkout session")

	return &session, nil
}

// StaticInitiator resolves every checkout to the pricing page. Self-hosted
// deployments without a billing integration use it so the upgrade button still
// leads somewhere useful.
type StaticInitiator struct{}

func (StaticInitiator) InitiateCheckout(_ context.Context, req Request) (*Session, error) {
	url := entitlement.DefaultUpgradeURL
	if req.Feature != "" {
		url = entitlement.UpgradeURLForFeature(req.Feature)
	}
	return &Session{URL: url}, nil
}
