package entitlement

import (
	"encoding/json"
	"net/http"
)

// UpgradeURLResolver resolves a feature-specific upgrade URL.
type UpgradeURLResolver func(feature string) string

// StatusForError maps a denial to its HTTP status code: authentication
// problems are 401, upgradeable denials are 402, everything else is 403.
func StatusForError(err *EntitlementError) int {
	if err == nil {
		return http.StatusOK
	}

	switch err.Type {
	case ErrAuthenticationRequired, ErrSessionInvalid:
		return http.StatusUnauthorized
	}

	if err.UpgradeRequired {
		return http.StatusPaymentRequired
	}

	return http.StatusForbidden
}

// WriteEntitlementDenied writes the canonical JSON denial response for an
// entitlement error. Presentation copy comes from FormatForDisplay; the
// upgrade URL is included only when ShouldOfferUpgrade holds.
func WriteEntitlementDenied(w http.ResponseWriter, err *EntitlementError, resolveURL UpgradeURLResolver) {
	payload := map[string]interface{}{
		"error":      string(err.Type),
		"message":    err.UserMessage,
		"display":    FormatForDisplay(err),
		"actionable": err.Actionable,
	}

	if err.FeatureName != "" {
		payload["feature"] = err.FeatureName
	}

	if ShouldOfferUpgrade(err) {
		upgradeURL := DefaultUpgradeURL
		if resolveURL != nil {
			upgradeURL = resolveURL(err.FeatureName)
		}
		payload["upgrade_url"] = upgradeURL
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusForError(err))
	_ = json.NewEncoder(w).Encode(payload)
}
