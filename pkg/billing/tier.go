package billing

// minorUnitFactor converts major currency units to minor units. Correct for
// two-decimal currencies only; see TierConfig.
const minorUnitFactor = 100

// BuildTiers normalizes raw tier configs into canonical tier drafts, one per
// populated pricing shape, in declaration order. Drafts carry no ID until the
// catalog synchronizer provisions them remotely.
func BuildTiers(configs []TierConfig, defaultCurrency string) []Tier {
	var tiers []Tier
	for _, cfg := range configs {
		tiers = append(tiers, buildTierDrafts(cfg, defaultCurrency)...)
	}
	return tiers
}

func buildTierDrafts(cfg TierConfig, defaultCurrency string) []Tier {
	currency := cfg.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	draft := func(period BillingPeriod, major float64) Tier {
		return Tier{
			Name:       cfg.Name,
			Currency:   currency,
			Period:     period,
			UnitAmount: int64(major * minorUnitFactor),
			TrialDays:  cfg.TrialDays,
		}
	}

	// A flat price wins outright; period-scoped prices are ignored when it
	// is set, even if they are also populated.
	if cfg.Price > 0 {
		return []Tier{draft(PeriodNone, cfg.Price)}
	}

	var tiers []Tier
	if cfg.Daily > 0 {
		tiers = append(tiers, draft(PeriodDaily, cfg.Daily))
	}
	if cfg.Weekly > 0 {
		tiers = append(tiers, draft(PeriodWeekly, cfg.Weekly))
	}
	if cfg.Monthly > 0 {
		tiers = append(tiers, draft(PeriodMonthly, cfg.Monthly))
	}
	if cfg.Yearly > 0 {
		tiers = append(tiers, draft(PeriodYearly, cfg.Yearly))
	}
	return tiers
}
