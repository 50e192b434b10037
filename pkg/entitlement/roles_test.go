package entitlement

import "testing"

func TestCanonicalRole(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"admin", RoleBusinessOwner},
		{"superadmin", RoleBusinessOwner},
		{"tenant_admin", RoleBusinessOwner},
		{"owner", RoleBusinessOwner},
		{"OWNER", RoleBusinessOwner},
		{" Admin ", RoleBusinessOwner},
		{"manager", RoleStoreManager},
		{"store-manager", RoleStoreManager},
		{"Store Manager", RoleStoreManager},
		{"cashier", RoleSalesStaff},
		{"user", RoleSalesStaff},
		{"", RoleSalesStaff},
		{"anything else", RoleSalesStaff},
	}

	for _, tt := range tests {
		if got := CanonicalRole(tt.raw); got != tt.want {
			t.Errorf("CanonicalRole(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCheckRoleAccess(t *testing.T) {
	tests := []struct {
		name          string
		requiredRoles []string
		userRole      string
		canAccess     func([]string) bool
		wantAllowed   bool
		wantType      ErrorType
	}{
		{
			name:          "no_role_assigned",
			requiredRoles: []string{RoleBusinessOwner},
			userRole:      "",
			wantAllowed:   false,
			wantType:      ErrRoleNotAssigned,
		},
		{
			name:          "raw_admin_matches_canonical_owner",
			requiredRoles: []string{RoleBusinessOwner},
			userRole:      "admin",
			wantAllowed:   true,
		},
		{
			name:          "raw_form_match_is_sufficient",
			requiredRoles: []string{"admin"},
			userRole:      "Admin",
			wantAllowed:   true,
		},
		{
			name:          "case_insensitive_canonical_match",
			requiredRoles: []string{"store manager"},
			userRole:      "store-manager",
			wantAllowed:   true,
		},
		{
			name:          "sales_staff_denied_owner_action",
			requiredRoles: []string{RoleBusinessOwner},
			userRole:      "cashier",
			wantAllowed:   false,
			wantType:      ErrInsufficientRole,
		},
		{
			name:          "can_access_predicate_is_authoritative_deny",
			requiredRoles: []string{RoleSalesStaff},
			userRole:      "cashier",
			canAccess:     func([]string) bool { return false },
			wantAllowed:   false,
			wantType:      ErrInsufficientRole,
		},
		{
			name:          "can_access_predicate_is_authoritative_allow",
			requiredRoles: []string{RoleBusinessOwner},
			userRole:      "cashier",
			canAccess:     func([]string) bool { return true },
			wantAllowed:   true,
		},
		{
			name:          "membership_across_multiple_required_roles",
			requiredRoles: []string{RoleBusinessOwner, RoleStoreManager},
			userRole:      "manager",
			wantAllowed:   true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			verdict := CheckRoleAccess(tt.requiredRoles, tt.userRole, tt.canAccess)
			if verdict.Allowed != tt.wantAllowed {
				t.Fatalf("Allowed = %v, want %v (error: %+v)", verdict.Allowed, tt.wantAllowed, verdict.Error)
			}
			if !tt.wantAllowed && verdict.Error.Type != tt.wantType {
				t.Errorf("error type = %q, want %q", verdict.Error.Type, tt.wantType)
			}
		})
	}
}

func TestCheckRoleAccess_DenialContext(t *testing.T) {
	verdict := CheckRoleAccess([]string{RoleBusinessOwner}, "cashier", nil)
	if verdict.Allowed {
		t.Fatal("expected denial")
	}
	if verdict.Error.RequiredRole != RoleBusinessOwner {
		t.Errorf("RequiredRole = %q, want %q", verdict.Error.RequiredRole, RoleBusinessOwner)
	}
	want := "Your role does not allow this action. Required role: Business Owner"
	if verdict.Error.UserMessage != want {
		t.Errorf("UserMessage = %q, want %q", verdict.Error.UserMessage, want)
	}
}
