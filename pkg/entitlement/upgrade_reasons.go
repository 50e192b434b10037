package entitlement

import "sort"

// ReasonEntry defines an actionable upgrade prompt tied to a missing feature.
type ReasonEntry struct {
	Feature   string // Feature key constant (e.g., "sms")
	Reason    string // User-facing description
	ActionURL string // Parameterized upgrade URL with UTM
	Priority  int    // Sort order (lower = more important)
}

// UpgradeReasonMatrix is the canonical feature-to-upgrade-reason mapping.
// Growth features use "Upgrade to Growth" messaging; Enterprise features use
// "Upgrade to Enterprise".
var UpgradeReasonMatrix = []ReasonEntry{
	{
		Feature:   FeatureSMS,
		Reason:    "Upgrade to Growth to send SMS receipts and order notifications to your customers.",
		ActionURL: UpgradeURLForFeature(FeatureSMS),
		Priority:  1,
	},
	{
		Feature:   FeatureReporting,
		Reason:    "Upgrade to Growth for advanced reporting: margins, trends, and exportable summaries.",
		ActionURL: UpgradeURLForFeature(FeatureReporting),
		Priority:  2,
	},
	{
		Feature:   FeatureCustomerLoyalty,
		Reason:    "Upgrade to Growth to reward repeat customers with loyalty points.",
		ActionURL: UpgradeURLForFeature(FeatureCustomerLoyalty),
		Priority:  3,
	},
	{
		Feature:   FeatureInventoryAlerts,
		Reason:    "Upgrade to Growth for low-stock alerts before you run out.",
		ActionURL: UpgradeURLForFeature(FeatureInventoryAlerts),
		Priority:  4,
	},
	{
		Feature:   FeatureStaffAccounts,
		Reason:    "Upgrade to Growth to add more staff seats with their own logins.",
		ActionURL: UpgradeURLForFeature(FeatureStaffAccounts),
		Priority:  5,
	},
	{
		Feature:   FeatureMultiStore,
		Reason:    "Upgrade to Enterprise to manage multiple store locations from one account.",
		ActionURL: UpgradeURLForFeature(FeatureMultiStore),
		Priority:  6,
	},
	{
		Feature:   FeatureAPIAccess,
		Reason:    "Upgrade to Enterprise for API access to integrate Tradepost with your own systems.",
		ActionURL: UpgradeURLForFeature(FeatureAPIAccess),
		Priority:  7,
	},
	{
		Feature:   FeatureBulkExport,
		Reason:    "Upgrade to Enterprise to bulk-export your records for accounting and backups.",
		ActionURL: UpgradeURLForFeature(FeatureBulkExport),
		Priority:  8,
	},
}

// GenerateUpgradeReasons returns upgrade reasons for features missing in
// capabilities, most important first.
func GenerateUpgradeReasons(capabilities []string) []ReasonEntry {
	capSet := make(map[string]struct{}, len(capabilities))
	for _, capability := range capabilities {
		capSet[capability] = struct{}{}
	}

	reasons := make([]ReasonEntry, 0, len(UpgradeReasonMatrix))
	for _, entry := range UpgradeReasonMatrix {
		if _, hasFeature := capSet[entry.Feature]; hasFeature {
			continue
		}
		reasons = append(reasons, entry)
	}

	sort.SliceStable(reasons, func(i, j int) bool {
		if reasons[i].Priority == reasons[j].Priority {
			return reasons[i].Feature < reasons[j].Feature
		}
		return reasons[i].Priority < reasons[j].Priority
	})

	return reasons
}
