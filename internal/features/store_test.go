package features

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

func writeFlags(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func newTestStore(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flags.json")
	writeFlags(t, path, content)
	store, err := NewStore(path)
	require.NoError(t, err)
	return store
}

func TestStore_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	// Plan defaults still apply with no file.
	assert.True(t, store.HasFeature("acme", entitlement.PlanGrowth, entitlement.FeatureSMS))
	assert.False(t, store.HasFeature("acme", entitlement.PlanStarter, entitlement.FeatureSMS))
}

func TestStore_EmptyPathRejected(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}

func TestStore_OverridesLayerOverPlan(t *testing.T) {
	store := newTestStore(t, `{
		"tenants": {
			"acme": {
				"features": {"sms": false, "multi_store": true},
				"limits": {"staff_accounts": 25},
				"usage": {"staff_accounts": 7}
			}
		}
	}`)

	// Explicit false beats the plan grant.
	assert.False(t, store.HasFeature("acme", entitlement.PlanGrowth, entitlement.FeatureSMS))
	// Explicit true grants a feature the plan lacks.
	assert.True(t, store.HasFeature("acme", entitlement.PlanGrowth, entitlement.FeatureMultiStore))
	// Untouched features fall through to the plan.
	assert.True(t, store.HasFeature("acme", entitlement.PlanGrowth, entitlement.FeatureReporting))

	limit, ok := store.FeatureLimit("acme", entitlement.PlanGrowth, entitlement.FeatureStaffAccounts)
	require.True(t, ok)
	assert.Equal(t, int64(25), limit)

	usage, ok := store.Usage("acme", entitlement.FeatureStaffAccounts)
	require.True(t, ok)
	assert.Equal(t, int64(7), usage)
}

func TestStore_PlanOverride(t *testing.T) {
	store := newTestStore(t, `{
		"tenants": {"acme": {"plan": "enterprise"}}
	}`)

	// The file's plan wins over the caller-supplied one.
	assert.True(t, store.HasFeature("acme", entitlement.PlanStarter, entitlement.FeatureMultiStore))

	limit, ok := store.FeatureLimit("acme", entitlement.PlanStarter, entitlement.FeatureSMS)
	require.True(t, ok)
	assert.Equal(t, int64(5000), limit)
}

func TestStore_UnknownTenantUsesPlanDefaults(t *testing.T) {
	store := newTestStore(t, `{"tenants": {}}`)

	assert.True(t, store.HasFeature("ghost", entitlement.PlanEnterprise, entitlement.FeatureAPIAccess))

	_, ok := store.FeatureLimit("ghost", entitlement.PlanStarter, entitlement.FeatureSMS)
	assert.False(t, ok)

	_, ok = store.Usage("ghost", entitlement.FeatureSMS)
	assert.False(t, ok)
}

func TestStore_MalformedFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.json")
	writeFlags(t, path, `{"tenants": [`)

	_, err := NewStore(path)
	assert.Error(t, err)
}

func TestStore_WatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.json")
	writeFlags(t, path, `{"tenants": {"acme": {"features": {"sms": false}}}}`)

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Watch())
	t.Cleanup(store.Stop)

	assert.False(t, store.HasFeature("acme", entitlement.PlanGrowth, entitlement.FeatureSMS))

	writeFlags(t, path, `{"tenants": {"acme": {"features": {"sms": true}}}}`)

	require.Eventually(t, func() bool {
		return store.HasFeature("acme", entitlement.PlanGrowth, entitlement.FeatureSMS)
	}, 3*time.Second, 50*time.Millisecond)
}

func TestStore_ReloadFailureKeepsPreviousGrants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.json")
	writeFlags(t, path, `{"tenants": {"acme": {"features": {"multi_store": true}}}}`)

	store, err := NewStore(path)
	require.NoError(t, err)

	writeFlags(t, path, `not json`)
	assert.Error(t, store.reload())

	// The previous grants survive.
	assert.True(t, store.HasFeature("acme", entitlement.PlanStarter, entitlement.FeatureMultiStore))
}

func TestTenantView(t *testing.T) {
	store := newTestStore(t, `{
		"tenants": {"acme": {"limits": {"sms": 50}, "usage": {"sms": 49}}}
	}`)

	view := store.View("acme", entitlement.PlanGrowth)
	assert.True(t, view.HasFeature(entitlement.FeatureSMS))

	limit, ok := view.FeatureLimit(entitlement.FeatureSMS)
	require.True(t, ok)
	assert.Equal(t, int64(50), limit)

	usage, ok := view.Usage(entitlement.FeatureSMS)
	require.True(t, ok)
	assert.Equal(t, int64(49), usage)
}
