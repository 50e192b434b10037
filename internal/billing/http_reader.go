package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

const maxBillingResponseBytes = 1 << 20 // 1 MiB

// HTTPReader fetches subscription records from the hosted billing service.
type HTTPReader struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPReader creates a reader against the billing service base URL.
func NewHTTPReader(baseURL, token string, timeout time.Duration) (*HTTPReader, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("billing base URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPReader{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// subscriptionResponse is the billing service wire shape.
type subscriptionResponse struct {
	Status           string     `json:"status"`
	TrialEnd         *time.Time `json:"trial_end,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	Plan             string     `json:"plan"`
}

// SubscriptionRecord fetches the tenant's subscription. A 404 means the
// tenant has no subscription row and returns (nil, nil).
func (r *HTTPReader) SubscriptionRecord(ctx context.Context, tenantID string) (*entitlement.SubscriptionRecord, error) {
	endpoint := fmt.Sprintf("%s/v1/tenants/%s/subscription", r.baseURL, url.PathEscape(tenantID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build subscription request: %w", err)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch subscription for tenant %q: %w", tenantID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Fall through to decode.
	case http.StatusNotFound:
		return nil, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("billing service returned %d for tenant %q: %s",
			resp.StatusCode, tenantID, strings.TrimSpace(string(body)))
	}

	var payload subscriptionResponse
	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxBillingResponseBytes))
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode subscription for tenant %q: %w", tenantID, err)
	}

	return normalizeRecord(&entitlement.SubscriptionRecord{
		Status:           entitlement.SubscriptionStatus(payload.Status),
		TrialEnd:         payload.TrialEnd,
		CurrentPeriodEnd: payload.CurrentPeriodEnd,
		Plan:             payload.Plan,
	}), nil
}
