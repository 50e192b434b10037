// Package entitlement defines the shared Tradepost authorization contracts.
//
// It is the single place that decides, for every protected action, whether
// the current actor may proceed given (a) subscription lifecycle state,
// (b) plan-based feature entitlements with usage ceilings, and (c) role and
// permission assignments. Checks return structured AccessVerdict values
// carrying typed, renderable EntitlementError denials instead of opaque
// booleans.
//
// All checkers in this package are pure and synchronous over already-resolved
// inputs. The one asynchronous boundary of the subsystem, the
// subscription-record fetch, lives in internal/guard.
//
// This package is in pkg/ so private extension modules can depend on the
// canonical taxonomy without importing internal packages.
package entitlement
