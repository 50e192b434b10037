package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tradepost-hq/tradepost/internal/permissions"
	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

var checkFlags struct {
	role          string
	feature       string
	plan          string
	resource      string
	action        string
	requiredRoles []string
}

// checkCmd evaluates one access decision locally against the built-in plan
// capabilities and grant table. Useful for verifying role and plan setups
// without a running service.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate an access check locally",
	Run: func(cmd *cobra.Command, args []string) {
		verdict := runLocalCheck()
		if verdict.Allowed {
			fmt.Println("ALLOWED")
			return
		}

		err := verdict.Error
		fmt.Printf("DENIED: %s\n", err.Type)
		fmt.Println(entitlement.FormatForDisplay(err))
		os.Exit(1)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFlags.role, "role", "", "actor role (e.g. \"Store Manager\")")
	checkCmd.Flags().StringVar(&checkFlags.plan, "plan", "starter", "subscription plan (starter, growth, enterprise)")
	checkCmd.Flags().StringVar(&checkFlags.feature, "feature", "", "feature to check")
	checkCmd.Flags().StringVar(&checkFlags.resource, "resource", "", "resource for the permission check")
	checkCmd.Flags().StringVar(&checkFlags.action, "action", "", "action for the permission check")
	checkCmd.Flags().StringSliceVar(&checkFlags.requiredRoles, "required-roles", nil, "roles allowed to perform the action")
}

func runLocalCheck() entitlement.AccessVerdict {
	plan := entitlement.Plan(checkFlags.plan)
	perms := permissions.NewChecker()

	req := entitlement.AccessRequest{
		RequiredRoles: checkFlags.requiredRoles,
		UserRole:      checkFlags.role,
	}
	if checkFlags.feature != "" {
		req.Feature = checkFlags.feature
		req.HasFeature = func(feature string) bool {
			return entitlement.PlanHasFeature(plan, feature)
		}
		req.FeatureLimit = func(feature string) int64 {
			limit, _ := entitlement.PlanLimit(plan, feature)
			return limit
		}
	}
	if checkFlags.resource != "" && checkFlags.action != "" {
		req.Resource = checkFlags.resource
		req.Action = checkFlags.action
		req.HasPermission = perms.Predicate(checkFlags.role)
	}

	return entitlement.CheckComprehensiveAccess(req)
}
