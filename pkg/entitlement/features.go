package entitlement

import "sort"

// Feature constants represent gated features in Tradepost. These are stored
// on plan records and checked at runtime.
const (
	// Starter plan features
	FeatureSales        = "sales"         // Core point-of-sale flows
	FeatureInventory    = "inventory"     // Stock tracking and adjustments
	FeatureBasicReports = "basic_reports" // Daily sales summaries

	// Growth plan features (everything in Starter, plus:)
	FeatureSMS             = "sms"              // SMS receipts and notifications
	FeatureReporting       = "reporting"        // Advanced reporting and exports
	FeatureCustomerLoyalty = "customer_loyalty" // Loyalty points and rewards
	FeatureInventoryAlerts = "inventory_alerts" // Low-stock alerts
	FeatureStaffAccounts   = "staff_accounts"   // Additional staff seats

	// Enterprise plan features (everything in Growth, plus:)
	FeatureMultiStore = "multi_store" // Multiple store locations per tenant
	FeatureAPIAccess  = "api_access"  // Public API tokens
	FeatureBulkExport = "bulk_export" // Bulk CSV export of records
)

// Plan represents a subscription plan tier.
type Plan string

const (
	PlanStarter    Plan = "starter"
	PlanGrowth     Plan = "growth"
	PlanEnterprise Plan = "enterprise"
)

// starterFeatures are the base capabilities available on every plan.
var starterFeatures = []string{
	FeatureSales,
	FeatureInventory,
	FeatureBasicReports,
}

// growthFeatures adds messaging, loyalty, and richer reporting on top of starter.
var growthFeatures = appendFeatures(starterFeatures,
	FeatureSMS,
	FeatureReporting,
	FeatureCustomerLoyalty,
	FeatureInventoryAlerts,
	FeatureStaffAccounts,
)

// enterpriseFeatures adds multi-store and integration surface on top of growth.
var enterpriseFeatures = appendFeatures(growthFeatures,
	FeatureMultiStore,
	FeatureAPIAccess,
	FeatureBulkExport,
)

// planFeatures maps each plan to its full capability list.
var planFeatures = map[Plan][]string{
	PlanStarter:    starterFeatures,
	PlanGrowth:     growthFeatures,
	PlanEnterprise: enterpriseFeatures,
}

// PlanFeatureLimits defines per-plan usage ceilings. A missing key means the
// feature is unmetered on that plan.
var PlanFeatureLimits = map[Plan]map[string]int64{
	PlanStarter: {
		FeatureStaffAccounts: 2,
	},
	PlanGrowth: {
		FeatureSMS:           500,
		FeatureStaffAccounts: 10,
	},
	PlanEnterprise: {
		FeatureSMS: 5000,
	},
}

// DerivePlanCapabilities returns the sorted capability list for a plan.
// Unknown plans get starter capabilities.
func DerivePlanCapabilities(plan Plan) []string {
	features, ok := planFeatures[plan]
	if !ok {
		features = starterFeatures
	}

	out := append([]string(nil), features...)
	sort.Strings(out)
	return out
}

// PlanHasFeature reports whether the plan's capability list includes feature.
// Unknown plans are treated as starter.
func PlanHasFeature(plan Plan, feature string) bool {
	features, ok := planFeatures[plan]
	if !ok {
		features = starterFeatures
	}
	for _, f := range features {
		if f == feature {
			return true
		}
	}
	return false
}

// PlanLimit returns the plan's usage ceiling for the feature and whether a
// ceiling exists.
func PlanLimit(plan Plan, feature string) (int64, bool) {
	limits, ok := PlanFeatureLimits[plan]
	if !ok {
		return 0, false
	}
	limit, ok := limits[feature]
	return limit, ok
}

func appendFeatures(base []string, extra ...string) []string {
	out := append([]string(nil), base...)
	return append(out, extra...)
}
