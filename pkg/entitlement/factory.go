package entitlement

import (
	"fmt"
	"strings"
)

// ErrorContext carries optional denial context into NewError.
type ErrorContext struct {
	FeatureName        string
	RequiredRole       string
	RequiredPermission string
	CurrentLimit       *int64
	PlanLimit          *int64
}

// featurePlaceholder is the literal phrase in user-message templates that a
// concrete feature name substitutes for.
const featurePlaceholder = "this feature"

// NewError builds an EntitlementError from the template for the given type,
// interpolating context in a fixed, auditable order:
//
//  1. replace the literal "this feature" with the feature name, if present;
//  2. append " Required role: <role>" if a required role is present;
//  3. append " Required permission: <perm>" if a required permission is present;
//  4. append " (<current>/<limit>)" if both limit values are present.
//
// The order is a contract; tests assert the exact resulting string. Unknown
// types fall back to the UNKNOWN_PERMISSION_ERROR template.
func NewError(t ErrorType, ctx *ErrorContext) *EntitlementError {
	tmpl, ok := errorTemplates[t]
	if !ok {
		t = ErrUnknownPermission
		tmpl = errorTemplates[t]
	}

	err := &EntitlementError{
		Type:             t,
		Message:          tmpl.message,
		UserMessage:      tmpl.userMessage,
		Actionable:       tmpl.actionable,
		UpgradeRequired:  tmpl.upgradeRequired,
		SuggestedActions: append([]string(nil), tmpl.suggestedActions...),
	}

	if ctx == nil {
		return err
	}

	err.FeatureName = ctx.FeatureName
	err.RequiredRole = ctx.RequiredRole
	err.RequiredPermission = ctx.RequiredPermission
	err.CurrentLimit = cloneInt64Ptr(ctx.CurrentLimit)
	err.PlanLimit = cloneInt64Ptr(ctx.PlanLimit)

	segments := make([]string, 0, 4)

	base := tmpl.userMessage
	if ctx.FeatureName != "" {
		base = strings.ReplaceAll(base, featurePlaceholder, ctx.FeatureName)
	}
	segments = append(segments, base)

	if ctx.RequiredRole != "" {
		segments = append(segments, fmt.Sprintf(" Required role: %s", ctx.RequiredRole))
	}
	if ctx.RequiredPermission != "" {
		segments = append(segments, fmt.Sprintf(" Required permission: %s", ctx.RequiredPermission))
	}
	if ctx.CurrentLimit != nil && ctx.PlanLimit != nil {
		segments = append(segments, fmt.Sprintf(" (%d/%d)", *ctx.CurrentLimit, *ctx.PlanLimit))
	}

	err.UserMessage = strings.Join(segments, "")

	return err
}

// externalErrorRule maps provider error phrases to a taxonomy member.
type externalErrorRule struct {
	kind    ErrorType
	phrases []string
}

// externalErrorRules is the fixed classification precedence for raw provider
// errors. First match wins; the match is a lower-cased substring test.
var externalErrorRules = []externalErrorRule{
	{kind: ErrPermissionDenied, phrases: []string{"permission denied", "42501", "insufficient_privilege"}},
	{kind: ErrAuthenticationRequired, phrases: []string{"jwt", "auth", "session", "token"}},
	{kind: ErrResourceAccessDenied, phrases: []string{"row-level security", "row level security"}},
	{kind: ErrSubscriptionRequired, phrases: []string{"subscription", "billing", "payment required"}},
}

// MapExternalError translates a raw provider error into the taxonomy. It is
// the single boundary translation: raw provider error shapes never propagate
// past it. Unrecognized errors map to UNKNOWN_PERMISSION_ERROR.
func MapExternalError(raw error) *EntitlementError {
	if raw == nil {
		return nil
	}

	text := strings.ToLower(raw.Error())
	for _, rule := range externalErrorRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(text, phrase) {
				return NewError(rule.kind, nil)
			}
		}
	}

	return NewError(ErrUnknownPermission, nil)
}

// ShouldOfferUpgrade reports whether the presentation layer should surface
// the upgrade remediation action for this denial.
func ShouldOfferUpgrade(err *EntitlementError) bool {
	return err != nil && err.UpgradeRequired && err.Actionable
}

// FormatForDisplay renders the ready-to-display copy for a denial: the user
// message, then, only when the denial is actionable and has suggestions, a
// blank line followed by the bulleted suggested actions.
func FormatForDisplay(err *EntitlementError) string {
	if err == nil {
		return ""
	}

	if !err.Actionable || len(err.SuggestedActions) == 0 {
		return err.UserMessage
	}

	var b strings.Builder
	b.WriteString(err.UserMessage)
	b.WriteString("\n")
	for _, action := range err.SuggestedActions {
		b.WriteString("\n- ")
		b.WriteString(action)
	}
	return b.String()
}

func cloneInt64Ptr(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
