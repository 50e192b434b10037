package entitlement

// ErrorType identifies one denial reason in the closed taxonomy. Callers
// handle all kinds exhaustively or fall back to ErrUnknownPermission; a new
// denial reason requires a new type, never overloading an existing one.
type ErrorType string

const (
	ErrFeatureNotAvailable    ErrorType = "FEATURE_NOT_AVAILABLE"
	ErrFeatureLimitExceeded   ErrorType = "FEATURE_LIMIT_EXCEEDED"
	ErrSubscriptionRequired   ErrorType = "SUBSCRIPTION_REQUIRED"
	ErrSubscriptionExpired    ErrorType = "SUBSCRIPTION_EXPIRED"
	ErrTrialExpired           ErrorType = "TRIAL_EXPIRED"
	ErrInsufficientRole       ErrorType = "INSUFFICIENT_ROLE"
	ErrMissingPermission      ErrorType = "MISSING_PERMISSION"
	ErrRoleNotAssigned        ErrorType = "ROLE_NOT_ASSIGNED"
	ErrPermissionDenied       ErrorType = "PERMISSION_DENIED"
	ErrResourceAccessDenied   ErrorType = "RESOURCE_ACCESS_DENIED"
	ErrTenantAccessDenied     ErrorType = "TENANT_ACCESS_DENIED"
	ErrUserAccessDenied       ErrorType = "USER_ACCESS_DENIED"
	ErrAuthenticationRequired ErrorType = "AUTHENTICATION_REQUIRED"
	ErrSessionInvalid         ErrorType = "SESSION_INVALID"
	ErrAccountSuspended       ErrorType = "ACCOUNT_SUSPENDED"
	ErrUnknownPermission      ErrorType = "UNKNOWN_PERMISSION_ERROR"
)

// AllErrorTypes enumerates the taxonomy for exhaustive handling and tests.
var AllErrorTypes = []ErrorType{
	ErrFeatureNotAvailable,
	ErrFeatureLimitExceeded,
	ErrSubscriptionRequired,
	ErrSubscriptionExpired,
	ErrTrialExpired,
	ErrInsufficientRole,
	ErrMissingPermission,
	ErrRoleNotAssigned,
	ErrPermissionDenied,
	ErrResourceAccessDenied,
	ErrTenantAccessDenied,
	ErrUserAccessDenied,
	ErrAuthenticationRequired,
	ErrSessionInvalid,
	ErrAccountSuspended,
	ErrUnknownPermission,
}

// EntitlementError is a typed, renderable denial. Instances are built by
// NewError or MapExternalError and never mutated afterwards.
type EntitlementError struct {
	Type             ErrorType `json:"type"`
	Message          string    `json:"message"`
	UserMessage      string    `json:"user_message"`
	Actionable       bool      `json:"actionable"`
	UpgradeRequired  bool      `json:"upgrade_required"`
	SuggestedActions []string  `json:"suggested_actions,omitempty"`

	// Optional context captured at denial time.
	FeatureName        string `json:"feature_name,omitempty"`
	RequiredRole       string `json:"required_role,omitempty"`
	RequiredPermission string `json:"required_permission,omitempty"`
	CurrentLimit       *int64 `json:"current_limit,omitempty"`
	PlanLimit          *int64 `json:"plan_limit,omitempty"`
}

// Error implements the error interface with the internal message.
func (e *EntitlementError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// errorTemplate is the immutable base copy for one error type.
type errorTemplate struct {
	message          string
	userMessage      string
	actionable       bool
	upgradeRequired  bool
	suggestedActions []string
}

// errorTemplates holds one deterministic base template per taxonomy member.
// User messages contain the literal phrase "this feature" where a feature
// name may be substituted; see NewError for the interpolation contract.
var errorTemplates = map[ErrorType]errorTemplate{
	ErrFeatureNotAvailable: {
		message:         "feature not available on current plan",
		userMessage:     "this feature is not available on your current plan.",
		actionable:      true,
		upgradeRequired: true,
		suggestedActions: []string{
			"Upgrade your plan to unlock this feature",
			"Contact your account owner to change plans",
		},
	},
	ErrFeatureLimitExceeded: {
		message:         "feature usage limit exceeded",
		userMessage:     "You have reached your plan's limit for this feature.",
		actionable:      true,
		upgradeRequired: true,
		suggestedActions: []string{
			"Upgrade your plan for a higher limit",
			"Remove unused items to free up capacity",
		},
	},
	ErrSubscriptionRequired: {
		message:         "active subscription required",
		userMessage:     "An active subscription is required to use this feature.",
		actionable:      true,
		upgradeRequired: true,
		suggestedActions: []string{
			"Choose a plan to continue",
			"Contact support if you believe this is an error",
		},
	},
	ErrSubscriptionExpired: {
		message:         "subscription expired",
		userMessage:     "Your subscription has expired.",
		actionable:      true,
		upgradeRequired: true,
		suggestedActions: []string{
			"Renew your subscription to restore access",
			"Contact support if you already renewed",
		},
	},
	ErrTrialExpired: {
		message:         "trial period expired",
		userMessage:     "Your free trial has ended.",
		actionable:      true,
		upgradeRequired: true,
		suggestedActions: []string{
			"Upgrade to a paid plan to keep using Tradepost",
			"Contact sales to discuss an extension",
		},
	},
	ErrInsufficientRole: {
		message:         "role does not permit this action",
		userMessage:     "Your role does not allow this action.",
		actionable:      true,
		upgradeRequired: false,
		suggestedActions: []string{
			"Ask a Business Owner to perform this action",
			"Request a role change from your administrator",
		},
	},
	ErrMissingPermission: {
		message:         "required permission not granted",
		userMessage:     "You do not have permission to perform this action.",
		actionable:      true,
		upgradeRequired: false,
		suggestedActions: []string{
			"Request access from your administrator",
		},
	},
	ErrRoleNotAssigned: {
		message:         "no role assigned to actor",
		userMessage:     "No role is assigned to your account.",
		actionable:      true,
		upgradeRequired: false,
		suggestedActions: []string{
			"Ask your administrator to assign you a role",
		},
	},
	ErrPermissionDenied: {
		message:     "permission denied by policy",
		userMessage: "You are not allowed to perform this action.",
	},
	ErrResourceAccessDenied: {
		message:     "resource access denied by policy",
		userMessage: "You do not have access to this resource.",
	},
	ErrTenantAccessDenied: {
		message:     "tenant access denied",
		userMessage: "You do not have access to this organization.",
	},
	ErrUserAccessDenied: {
		message:     "user data access denied",
		userMessage: "You do not have access to this user's data.",
	},
	ErrAuthenticationRequired: {
		message:     "authentication required",
		userMessage: "Please sign in to continue.",
		actionable:  true,
		suggestedActions: []string{
			"Sign in to your account",
		},
	},
	ErrSessionInvalid: {
		message:     "session invalid or expired",
		userMessage: "Your session has expired. Please sign in again.",
		actionable:  true,
		suggestedActions: []string{
			"Sign in again",
		},
	},
	ErrAccountSuspended: {
		message:     "account suspended",
		userMessage: "This account has been suspended.",
		actionable:  true,
		suggestedActions: []string{
			"Contact support to restore your account",
		},
	},
	ErrUnknownPermission: {
		message:     "unclassified permission error",
		userMessage: "Something went wrong while checking your access.",
	},
}
