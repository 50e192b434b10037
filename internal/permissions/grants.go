// Package permissions resolves role grant tables into resource/action
// decisions. Grants are strings of the form "resource.action" and support
// wildcards, so "products.*" covers every action on products and "*" covers
// everything.
package permissions

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/rs/zerolog/log"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

// DefaultGrants is the built-in role grant table. A grants file can replace
// it per deployment.
var DefaultGrants = map[string][]string{
	entitlement.RoleBusinessOwner: {
		"*",
	},
	entitlement.RoleStoreManager: {
		"products.*",
		"inventory.*",
		"sales.*",
		"reports.view",
		"reports.export",
		"staff.view",
		"staff.invite",
	},
	entitlement.RoleSalesStaff: {
		"products.view",
		"inventory.view",
		"sales.create",
		"sales.view",
	},
}

// Checker answers resource/action questions for roles. Safe for concurrent
// use; the grant table is swapped atomically on reload.
type Checker struct {
	mu     sync.RWMutex
	grants map[string][]string
}

// NewChecker creates a checker over the built-in grant table.
func NewChecker() *Checker {
	return &Checker{grants: DefaultGrants}
}

// NewCheckerFromFile creates a checker whose grant table is read from a JSON
// file mapping role names to grant lists. An empty path yields the built-in
// table.
func NewCheckerFromFile(path string) (*Checker, error) {
	c := NewChecker()
	if path == "" {
		return c, nil
	}
	if err := c.LoadFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile replaces the grant table with the contents of the JSON file.
func (c *Checker) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read grants file: %w", err)
	}

	var grants map[string][]string
	if err := json.Unmarshal(data, &grants); err != nil {
		return fmt.Errorf("parse grants file %s: %w", path, err)
	}

	// Canonicalize role keys so "store_manager" and "Store Manager" rows merge.
	merged := make(map[string][]string, len(grants))
	for role, list := range grants {
		canonical := entitlement.CanonicalRole(role)
		merged[canonical] = append(merged[canonical], list...)
	}

	c.mu.Lock()
	c.grants = merged
	c.mu.Unlock()

	log.Info().Str("path", path).Int("roles", len(merged)).Msg("Loaded permission grants")
	return nil
}

// Allows reports whether the role may perform action on resource. The role is
// canonicalized first, so raw store values like "admin" resolve to their
// canonical grant row.
func (c *Checker) Allows(role, resource, action string) bool {
	resource = strings.TrimSpace(resource)
	action = strings.TrimSpace(action)
	if resource == "" || action == "" {
		return false
	}

	c.mu.RLock()
	grants := c.grants[entitlement.CanonicalRole(role)]
	c.mu.RUnlock()

	target := resource + "." + action
	for _, grant := range grants {
		if grant == "*" || wildcard.Match(grant, target) {
			return true
		}
	}
	return false
}

// Predicate binds the checker to a role, producing the resource/action
// predicate consumed by the permission checks.
func (c *Checker) Predicate(role string) func(resource, action string) bool {
	return func(resource, action string) bool {
		return c.Allows(role, resource, action)
	}
}

// GrantsForRole returns a sorted copy of the role's grant list.
func (c *Checker) GrantsForRole(role string) []string {
	c.mu.RLock()
	grants := c.grants[entitlement.CanonicalRole(role)]
	c.mu.RUnlock()

	out := append([]string(nil), grants...)
	sort.Strings(out)
	return out
}
