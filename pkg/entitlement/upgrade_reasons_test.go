package entitlement

import "testing"

func TestGenerateUpgradeReasons(t *testing.T) {
	t.Run("starter_plan_gets_all_growth_reasons_first", func(t *testing.T) {
		reasons := GenerateUpgradeReasons(DerivePlanCapabilities(PlanStarter))
		if len(reasons) == 0 {
			t.Fatal("starter plan should have upgrade reasons")
		}
		if reasons[0].Feature != FeatureSMS {
			t.Errorf("first reason = %q, want %q", reasons[0].Feature, FeatureSMS)
		}
		for i := 1; i < len(reasons); i++ {
			if reasons[i-1].Priority > reasons[i].Priority {
				t.Fatalf("reasons not sorted by priority: %q (%d) before %q (%d)",
					reasons[i-1].Feature, reasons[i-1].Priority, reasons[i].Feature, reasons[i].Priority)
			}
		}
	})

	t.Run("enterprise_plan_has_no_reasons", func(t *testing.T) {
		reasons := GenerateUpgradeReasons(DerivePlanCapabilities(PlanEnterprise))
		if len(reasons) != 0 {
			t.Errorf("enterprise plan upgrade reasons = %d, want 0", len(reasons))
		}
	})

	t.Run("granted_features_are_excluded", func(t *testing.T) {
		reasons := GenerateUpgradeReasons([]string{FeatureSMS})
		for _, entry := range reasons {
			if entry.Feature == FeatureSMS {
				t.Errorf("granted feature %q still has an upgrade reason", FeatureSMS)
			}
		}
	})

	t.Run("every_entry_has_action_url", func(t *testing.T) {
		for _, entry := range GenerateUpgradeReasons(nil) {
			if entry.ActionURL == "" {
				t.Errorf("entry %q has no action URL", entry.Feature)
			}
		}
	})
}

func TestDerivePlanCapabilities(t *testing.T) {
	starter := DerivePlanCapabilities(PlanStarter)
	growth := DerivePlanCapabilities(PlanGrowth)
	enterprise := DerivePlanCapabilities(PlanEnterprise)

	if len(starter) >= len(growth) || len(growth) >= len(enterprise) {
		t.Errorf("plan capabilities not strictly increasing: %d/%d/%d",
			len(starter), len(growth), len(enterprise))
	}

	// Unknown plans fall back to starter.
	unknown := DerivePlanCapabilities("legacy")
	if len(unknown) != len(starter) {
		t.Errorf("unknown plan capabilities = %d, want starter's %d", len(unknown), len(starter))
	}
}
