package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

func TestHTTPReader_SubscriptionRecord(t *testing.T) {
	trialEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/v1/tenants/acme/subscription":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":    "TRIALING",
				"trial_end": trialEnd,
				"plan":      "growth",
			})
		case "/v1/tenants/ghost/subscription":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	reader, err := NewHTTPReader(server.URL, "test-token", 5*time.Second)
	require.NoError(t, err)

	t.Run("found_record_is_normalized", func(t *testing.T) {
		record, err := reader.SubscriptionRecord(context.Background(), "acme")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, entitlement.StatusTrialing, record.Status)
		assert.Equal(t, "growth", record.Plan)
		require.NotNil(t, record.TrialEnd)
		assert.True(t, record.TrialEnd.Equal(trialEnd))
	})

	t.Run("missing_record_is_nil_nil", func(t *testing.T) {
		record, err := reader.SubscriptionRecord(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("server_error_propagates", func(t *testing.T) {
		_, err := reader.SubscriptionRecord(context.Background(), "broken")
		assert.Error(t, err)
	})
}

func TestHTTPReader_ContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	reader, err := NewHTTPReader(server.URL, "", 30*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = reader.SubscriptionRecord(ctx, "acme")
	assert.Error(t, err)
}

func TestNewHTTPReader_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPReader("  ", "", 0)
	assert.Error(t, err)
}
