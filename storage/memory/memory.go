// Package memory provides in-memory implementations of the billing store
// interfaces. This implementation is primarily intended for testing and
// development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mihaimyh/gobilling/pkg/billing"
)

// CatalogStore implements billing.CatalogStore using an in-memory value.
type CatalogStore struct {
	mu      sync.RWMutex
	catalog *billing.Catalog
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{}
}

// Load implements billing.CatalogStore.
func (s *CatalogStore) Load(ctx context.Context) (*billing.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.catalog == nil {
		return nil, nil
	}
	return copyCatalog(s.catalog), nil
}

// Save implements billing.CatalogStore.
func (s *CatalogStore) Save(ctx context.Context, catalog *billing.Catalog) error {
	if catalog == nil {
		return fmt.Errorf("invalid catalog")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog = copyCatalog(catalog)
	return nil
}

func copyCatalog(c *billing.Catalog) *billing.Catalog {
	out := &billing.Catalog{
		Product: c.Product,
		Tiers:   make(map[string]billing.Tier, len(c.Tiers)),
	}
	for id, tier := range c.Tiers {
		out.Tiers[id] = tier
	}
	return out
}

// SubscriptionStore implements billing.SubscriptionStore using an in-memory
// map keyed by user ID.
type SubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]*billing.Subscription
}

// NewSubscriptionStore creates a new in-memory subscription store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		subs: make(map[string]*billing.Subscription),
	}
}

// Get implements billing.SubscriptionStore.
func (s *SubscriptionStore) Get(ctx context.Context, userID string) (*billing.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[userID]
	if !ok {
		return nil, nil // No record yet is not an error
	}

	// Return a copy to prevent external mutations
	subCopy := *sub
	return &subCopy, nil
}

// Create implements billing.SubscriptionStore.
func (s *SubscriptionStore) Create(ctx context.Context, userID string, sub *billing.Subscription) error {
	if userID == "" || sub == nil {
		return fmt.Errorf("invalid subscription")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[userID]; ok {
		return fmt.Errorf("subscription already exists for user %s", userID)
	}

	subCopy := *sub
	s.subs[userID] = &subCopy
	return nil
}

// Update implements billing.SubscriptionStore.
func (s *SubscriptionStore) Update(ctx context.Context, userID string, sub *billing.Subscription) error {
	if userID == "" || sub == nil {
		return fmt.Errorf("invalid subscription")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[userID]; !ok {
		return billing.ErrSubscriptionNotFound
	}

	subCopy := *sub
	s.subs[userID] = &subCopy
	return nil
}
