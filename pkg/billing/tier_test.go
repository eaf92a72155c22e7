package billing

import (
	"reflect"
	"testing"
)

func TestBuildTiers_FlatPriceWins(t *testing.T) {
	tiers := BuildTiers([]TierConfig{
		{Name: "Lifetime", Price: 49.99, Monthly: 5, Yearly: 50},
	}, "usd")

	if len(tiers) != 1 {
		t.Fatalf("Expected 1 tier, got %d", len(tiers))
	}
	if tiers[0].Period != PeriodNone {
		t.Errorf("Period = %s, want %s", tiers[0].Period, PeriodNone)
	}
	if tiers[0].UnitAmount != 4999 {
		t.Errorf("UnitAmount = %d, want 4999", tiers[0].UnitAmount)
	}
}

func TestBuildTiers_PeriodOrder(t *testing.T) {
	tiers := BuildTiers([]TierConfig{
		{Name: "Pro", Yearly: 100, Daily: 1, Monthly: 10, Weekly: 3},
	}, "usd")

	var periods []BillingPeriod
	for _, tier := range tiers {
		periods = append(periods, tier.Period)
	}
	want := []BillingPeriod{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly}
	if !reflect.DeepEqual(periods, want) {
		t.Errorf("Period order = %v, want %v", periods, want)
	}
}

func TestBuildTiers_MinorUnits(t *testing.T) {
	tiers := BuildTiers([]TierConfig{
		{Name: "Basic", Monthly: 9.99},
	}, "usd")

	if len(tiers) != 1 {
		t.Fatalf("Expected 1 tier, got %d", len(tiers))
	}
	if tiers[0].UnitAmount != 999 {
		t.Errorf("UnitAmount = %d, want 999", tiers[0].UnitAmount)
	}
}

func TestBuildTiers_CurrencyOverride(t *testing.T) {
	tiers := BuildTiers([]TierConfig{
		{Name: "Basic", Monthly: 5},
		{Name: "Pro", Currency: "eur", Monthly: 10},
	}, "usd")

	if len(tiers) != 2 {
		t.Fatalf("Expected 2 tiers, got %d", len(tiers))
	}
	if tiers[0].Currency != "usd" {
		t.Errorf("Basic currency = %s, want usd", tiers[0].Currency)
	}
	if tiers[1].Currency != "eur" {
		t.Errorf("Pro currency = %s, want eur", tiers[1].Currency)
	}
}

func TestBuildTiers_DeclarationOrder(t *testing.T) {
	tiers := BuildTiers([]TierConfig{
		{Name: "Zeta", Monthly: 1},
		{Name: "Alpha", Monthly: 2, Yearly: 20},
		{Name: "Mid", Price: 10},
	}, "usd")

	var names []string
	for _, tier := range tiers {
		names = append(names, tier.Name)
	}
	want := []string{"Zeta", "Alpha", "Alpha", "Mid"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Declaration order = %v, want %v", names, want)
	}
}

func TestBuildTiers_TrialDaysCarried(t *testing.T) {
	tiers := BuildTiers([]TierConfig{
		{Name: "Pro", Monthly: 10, Yearly: 100, TrialDays: 14},
	}, "usd")

	for _, tier := range tiers {
		if tier.TrialDays != 14 {
			t.Errorf("%s tier TrialDays = %d, want 14", tier.Period, tier.TrialDays)
		}
	}
}

func TestBuildTiers_EmptyAndUnpriced(t *testing.T) {
	if tiers := BuildTiers(nil, "usd"); len(tiers) != 0 {
		t.Errorf("Expected no tiers for nil config, got %d", len(tiers))
	}
	if tiers := BuildTiers([]TierConfig{{Name: "Free"}}, "usd"); len(tiers) != 0 {
		t.Errorf("Expected no tiers for unpriced config, got %d", len(tiers))
	}
}
