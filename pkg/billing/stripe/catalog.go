package stripe

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/stripe/stripe-go/v83"
	"golang.org/x/sync/errgroup"

	"github.com/mihaimyh/gobilling/pkg/billing"
)

// priceCreateConcurrency bounds the fan-out of price creation during a cold
// start.
const priceCreateConcurrency = 4

// ensureCatalog loads the persisted catalog when one exists and otherwise
// provisions it remotely: one product, then one price per tier draft, with
// the cache written only after every creation succeeded. A persisted catalog
// is trusted verbatim - no reconciliation against the current config is
// attempted, so config drift after the first run goes undetected.
//
// Two processes cold-starting at once can both observe an absent cache and
// create duplicate remote objects. Callers must hold an external advisory
// lock (file lock, row lock, distributed lock) around first-run construction.
func (p *Provider) ensureCatalog(ctx context.Context) error {
	start := time.Now()

	cached, err := p.config.Catalog.Load(ctx)
	if err != nil {
		p.metrics.RecordCatalogSync(providerName, "error")
		return fmt.Errorf("%w: loading cache: %w", billing.ErrCatalogSync, err)
	}
	if cached != nil {
		p.catalog = cached
		p.tiers = orderTiers(cached, p.config.Tiers)
		p.metrics.RecordCatalogSync(providerName, "cached")
		p.metrics.RecordCatalogSyncDuration(providerName, time.Since(start))
		p.logger.Debug("catalog loaded from cache",
			billing.Field{Key: "product", Value: cached.Product},
			billing.Field{Key: "tiers", Value: len(cached.Tiers)})
		return nil
	}

	catalog, tiers, err := p.createCatalog(ctx)
	if err != nil {
		p.metrics.RecordCatalogSync(providerName, "error")
		return err
	}

	if err := p.config.Catalog.Save(ctx, catalog); err != nil {
		p.metrics.RecordCatalogSync(providerName, "error")
		return fmt.Errorf("%w: persisting cache: %w", billing.ErrCatalogSync, err)
	}

	p.catalog = catalog
	p.tiers = tiers
	p.metrics.RecordCatalogSync(providerName, "created")
	p.metrics.RecordCatalogSyncDuration(providerName, time.Since(start))
	p.logger.Info("catalog provisioned",
		billing.Field{Key: "product", Value: catalog.Product},
		billing.Field{Key: "tiers", Value: len(tiers)})
	return nil
}

// createCatalog provisions the remote product and prices. All-or-nothing:
// any creation failure aborts the whole synchronization and nothing is
// persisted. Prices already created remotely before the failure are left
// behind as orphans of the aborted run.
func (p *Provider) createCatalog(ctx context.Context) (*billing.Catalog, []billing.Tier, error) {
	drafts := billing.BuildTiers(p.config.Tiers, p.config.Currency)

	product, err := p.client.V1Products.Create(ctx, &stripe.ProductCreateParams{
		Name: stripe.String(p.productName()),
	})
	if err != nil {
		p.metrics.RecordAPICall(providerName, "/v1/products", "error")
		return nil, nil, fmt.Errorf("%w: creating product: %w", billing.ErrCatalogSync, err)
	}
	p.metrics.RecordAPICall(providerName, "/v1/products", "success")

	created := make([]billing.Tier, len(drafts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(priceCreateConcurrency)
	for i, draft := range drafts {
		g.Go(func() error {
			params := &stripe.PriceCreateParams{
				Currency:   stripe.String(draft.Currency),
				Product:    stripe.String(product.ID),
				Nickname:   stripe.String(draft.Name),
				UnitAmount: stripe.Int64(draft.UnitAmount),
			}
			if draft.Period.Recurring() {
				params.Recurring = &stripe.PriceCreateRecurringParams{
					Interval: stripe.String(draft.Period.Interval()),
				}
			}

			price, err := p.client.V1Prices.Create(gctx, params)
			if err != nil {
				p.metrics.RecordAPICall(providerName, "/v1/prices", "error")
				return fmt.Errorf("creating price for tier %q (%s): %w", draft.Name, draft.Period, err)
			}
			p.metrics.RecordAPICall(providerName, "/v1/prices", "success")

			tier := draft
			tier.ID = price.ID
			created[i] = tier
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", billing.ErrCatalogSync, err)
	}

	catalog := &billing.Catalog{
		Product: product.ID,
		Tiers:   make(map[string]billing.Tier, len(created)),
	}
	for _, tier := range created {
		catalog.Tiers[tier.ID] = tier
	}
	return catalog, created, nil
}

// productName derives the remote product name from the application identity
// plus a timestamp, so repeated cold starts never collide on name.
func (p *Provider) productName() string {
	name := "Billing"
	if p.config.AppName != "" {
		name = p.config.AppName + " Billing"
	}
	return fmt.Sprintf("%s %d", name, p.clock.Now().Unix())
}

// orderTiers rebuilds declaration order for a catalog loaded from cache. The
// persisted artifact keys tiers by price ID, which loses ordering; entries
// are matched back to the current config by name and period, and anything
// unmatched (config drift) is appended sorted by price ID for determinism.
func orderTiers(catalog *billing.Catalog, configs []billing.TierConfig) []billing.Tier {
	byKey := make(map[string][]billing.Tier, len(catalog.Tiers))
	for _, tier := range catalog.Tiers {
		key := tier.Name + "\x00" + string(tier.Period)
		byKey[key] = append(byKey[key], tier)
	}
	for _, tiers := range byKey {
		sort.Slice(tiers, func(i, j int) bool { return tiers[i].ID < tiers[j].ID })
	}

	periods := []billing.BillingPeriod{
		billing.PeriodNone,
		billing.PeriodDaily,
		billing.PeriodWeekly,
		billing.PeriodMonthly,
		billing.PeriodYearly,
	}

	used := make(map[string]bool, len(catalog.Tiers))
	var ordered []billing.Tier
	for _, cfg := range configs {
		for _, period := range periods {
			key := cfg.Name + "\x00" + string(period)
			for _, tier := range byKey[key] {
				if !used[tier.ID] {
					used[tier.ID] = true
					ordered = append(ordered, tier)
				}
			}
		}
	}

	var rest []billing.Tier
	for _, tier := range catalog.Tiers {
		if !used[tier.ID] {
			rest = append(rest, tier)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })
	return append(ordered, rest...)
}
