package entitlement

// DefaultUpgradeURL is used when no feature-specific URL mapping exists.
const DefaultUpgradeURL = "https://tradepost.app/pricing?utm_source=tradepost&utm_medium=app&utm_campaign=upgrade"

// UpgradeURLForFeature returns the canonical upgrade URL for a feature key.
func UpgradeURLForFeature(feature string) string {
	switch feature {
	case FeatureSMS:
		return DefaultUpgradeURL + "&feature=sms"
	case FeatureReporting:
		return DefaultUpgradeURL + "&feature=reporting"
	case FeatureCustomerLoyalty:
		return DefaultUpgradeURL + "&feature=customer_loyalty"
	case FeatureInventoryAlerts:
		return DefaultUpgradeURL + "&feature=inventory_alerts"
	case FeatureStaffAccounts:
		return DefaultUpgradeURL + "&feature=staff_accounts"
	case FeatureMultiStore:
		return DefaultUpgradeURL + "&feature=multi_store"
	case FeatureAPIAccess:
		return DefaultUpgradeURL + "&feature=api_access"
	case FeatureBulkExport:
		return DefaultUpgradeURL + "&feature=bulk_export"
	default:
		return DefaultUpgradeURL
	}
}
