// Package redis provides Redis implementations of the billing store
// interfaces. Records are stored as JSON values under prefixed keys.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mihaimyh/gobilling/pkg/billing"
)

// Config holds Redis storage configuration.
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "gobilling:")
	KeyPrefix string

	// SubscriptionTTL is the TTL for subscription keys (0 = no expiration)
	SubscriptionTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:       "gobilling:",
		SubscriptionTTL: 0, // Subscriptions don't expire
	}
}

// Store implements billing.CatalogStore and billing.SubscriptionStore using
// Redis.
type Store struct {
	client redis.UniversalClient
	config Config
}

// New creates a new Redis storage adapter.
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring.
func New(client redis.UniversalClient, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Store{client: client, config: config}, nil
}

func (s *Store) catalogKey() string {
	return s.config.KeyPrefix + "catalog"
}

func (s *Store) subscriptionKey(userID string) string {
	return s.config.KeyPrefix + "subscription:" + userID
}

// Load implements billing.CatalogStore.
func (s *Store) Load(ctx context.Context) (*billing.Catalog, error) {
	data, err := s.client.Get(ctx, s.catalogKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var catalog billing.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return &catalog, nil
}

// Save implements billing.CatalogStore.
func (s *Store) Save(ctx context.Context, catalog *billing.Catalog) error {
	if catalog == nil {
		return fmt.Errorf("invalid catalog")
	}

	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := s.client.Set(ctx, s.catalogKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	return nil
}

// Get implements billing.SubscriptionStore.
func (s *Store) Get(ctx context.Context, userID string) (*billing.Subscription, error) {
	data, err := s.client.Get(ctx, s.subscriptionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading subscription: %w", err)
	}

	var sub billing.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("decoding subscription: %w", err)
	}
	return &sub, nil
}

// Create implements billing.SubscriptionStore. The write is guarded with
// SETNX so a concurrent create for the same user cannot clobber an existing
// record.
func (s *Store) Create(ctx context.Context, userID string, sub *billing.Subscription) error {
	if userID == "" || sub == nil {
		return fmt.Errorf("invalid subscription")
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encoding subscription: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.subscriptionKey(userID), data, s.config.SubscriptionTTL).Result()
	if err != nil {
		return fmt.Errorf("writing subscription: %w", err)
	}
	if !ok {
		return fmt.Errorf("subscription already exists for user %s", userID)
	}
	return nil
}

// Update implements billing.SubscriptionStore.
func (s *Store) Update(ctx context.Context, userID string, sub *billing.Subscription) error {
	if userID == "" || sub == nil {
		return fmt.Errorf("invalid subscription")
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encoding subscription: %w", err)
	}

	ok, err := s.client.SetXX(ctx, s.subscriptionKey(userID), data, s.config.SubscriptionTTL).Result()
	if err != nil {
		return fmt.Errorf("writing subscription: %w", err)
	}
	if !ok {
		return billing.ErrSubscriptionNotFound
	}
	return nil
}
