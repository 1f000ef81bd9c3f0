package pricing

import (
	"testing"

	"github.com/caterdispatch/tally/internal/domain"
)

func TestResolveOverridesNilConfig(t *testing.T) {
	rules := standardCustomerRules()
	got, flat := ResolveOverrides(nil, rules, "Downtown")
	if flat != nil {
		t.Fatal("expected no flat resolution without a config")
	}
	if len(got) != len(rules) {
		t.Errorf("got %d rules, want %d", len(got), len(rules))
	}
}

func TestResolveOverridesSubstitutesValues(t *testing.T) {
	cfg := &domain.ClientConfiguration{
		ID: "client-1", TemplateID: "standard-catering", Active: true,
		RuleOverrides: map[domain.RuleName]domain.RuleOverride{
			domain.RuleLongDistance: {PerUnitAmount: dp("2.50")},
			domain.RuleBridgeToll:   {BaseAmount: dp("9.00")},
		},
	}

	original := standardCustomerRules()
	got, flat := ResolveOverrides(cfg, original, "")
	if flat != nil {
		t.Fatal("expected no flat resolution without a matching area")
	}

	for _, r := range got {
		switch r.Name {
		case domain.RuleLongDistance:
			if !r.PerUnitAmount.Equal(d("2.50")) {
				t.Errorf("long_distance per-unit = %s, want 2.50", r.PerUnitAmount)
			}
			// Fields the override does not name keep the template default
			if !r.ThresholdValue.Equal(d("10")) {
				t.Errorf("long_distance threshold = %s, want 10", r.ThresholdValue)
			}
		case domain.RuleBridgeToll:
			if !r.BaseAmount.Equal(d("9.00")) {
				t.Errorf("bridge_toll base = %s, want 9.00", r.BaseAmount)
			}
		}
	}

	// The template rules themselves are never mutated
	for _, r := range original {
		if r.Name == domain.RuleLongDistance && !r.PerUnitAmount.Equal(d("3.00")) {
			t.Errorf("template rule mutated: per-unit = %s, want 3.00", r.PerUnitAmount)
		}
	}
}

func TestResolveOverridesAreaMatch(t *testing.T) {
	cfg := &domain.ClientConfiguration{
		ID: "client-1", TemplateID: "standard-catering", Active: true,
		RuleOverrides: map[domain.RuleName]domain.RuleOverride{
			domain.RuleLongDistance: {PerUnitAmount: dp("2.50")},
		},
		AreaRules: []domain.AreaRule{
			{AreaName: "Treasure Island", CustomerPays: d("120"), DriverGets: d("70"), HasTolls: true, TollAmount: d("8")},
		},
	}

	rules, flat := ResolveOverrides(cfg, standardCustomerRules(), "treasure island")
	if flat == nil {
		t.Fatal("expected flat resolution for matching area")
	}
	if rules != nil {
		t.Error("rules should be nil when an area matches")
	}
	if flat.AreaName != "Treasure Island" {
		t.Errorf("area = %q, want Treasure Island", flat.AreaName)
	}

	// Base amounts plus the toll add-on, both sides
	if len(flat.CustomerPays) != 2 || !flat.CustomerPays[0].Amount.Equal(d("120")) || !flat.CustomerPays[1].Amount.Equal(d("8")) {
		t.Errorf("customer items = %v", flat.CustomerPays)
	}
	if len(flat.DriverGets) != 2 || !flat.DriverGets[0].Amount.Equal(d("70")) || !flat.DriverGets[1].Amount.Equal(d("8")) {
		t.Errorf("driver items = %v", flat.DriverGets)
	}
}

func TestResolveOverridesAreaWithoutTolls(t *testing.T) {
	cfg := &domain.ClientConfiguration{
		ID: "client-1", TemplateID: "standard-catering", Active: true,
		AreaRules: []domain.AreaRule{
			{AreaName: "Downtown", CustomerPays: d("90"), DriverGets: d("55")},
		},
	}

	_, flat := ResolveOverrides(cfg, standardCustomerRules(), "Downtown")
	if flat == nil {
		t.Fatal("expected flat resolution")
	}
	if len(flat.CustomerPays) != 1 || len(flat.DriverGets) != 1 {
		t.Errorf("expected single flat items, got %v / %v", flat.CustomerPays, flat.DriverGets)
	}
}

func TestResolveOverridesNoAreaMatch(t *testing.T) {
	cfg := &domain.ClientConfiguration{
		ID: "client-1", TemplateID: "standard-catering", Active: true,
		AreaRules: []domain.AreaRule{
			{AreaName: "Downtown", CustomerPays: d("90"), DriverGets: d("55")},
		},
	}

	rules, flat := ResolveOverrides(cfg, standardCustomerRules(), "Uptown")
	if flat != nil {
		t.Fatal("expected no flat resolution for non-matching area")
	}
	if len(rules) != len(standardCustomerRules()) {
		t.Errorf("got %d rules, want %d", len(rules), len(standardCustomerRules()))
	}
}
