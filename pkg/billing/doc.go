// Package billing defines the provider-agnostic billing contract: declarative
// subscription tiers, checkout sessions, subscription lifecycle operations and
// normalized webhook events.
//
// A concrete provider (see pkg/billing/stripe) provisions the declared tiers
// against the remote processor on first construction, caches the resulting
// catalog through a CatalogStore, and exposes everything behind the Provider
// interface so the application can swap processors with zero logic changes.
package billing
