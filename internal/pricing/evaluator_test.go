package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/caterdispatch/tally/internal/domain"
)

func evaluateBothSides(t *testing.T, input domain.CalculationInput) (domain.ChargeBreakdown, domain.ChargeBreakdown) {
	t.Helper()

	tier, err := ResolveTier(input.Headcount, input.FoodCost, standardTiers())
	if err != nil {
		t.Fatalf("ResolveTier failed: %v", err)
	}

	eval := NewEvaluator(nil)
	customer, unresolved := eval.EvaluateSide(standardCustomerRules(), &input, tier)
	if len(unresolved) != 0 {
		t.Fatalf("unexpected unresolved rules on customer side: %v", unresolved)
	}
	driver, unresolved := eval.EvaluateSide(standardDriverRules(), &input, tier)
	if len(unresolved) != 0 {
		t.Fatalf("unexpected unresolved rules on driver side: %v", unresolved)
	}
	return customer, driver
}

func TestEvaluateReferenceScenarios(t *testing.T) {
	tests := []struct {
		name         string
		input        domain.CalculationInput
		wantCustomer string
		wantDriver   string
	}{
		{
			name: "small order short haul",
			input: domain.CalculationInput{
				Headcount: 20, FoodCost: d("250"), Mileage: d("8"), NumberOfStops: 1,
			},
			wantCustomer: "65",
			wantDriver:   "35",
		},
		{
			name: "mid tier with distance",
			input: domain.CalculationInput{
				Headcount: 35, FoodCost: d("450"), Mileage: d("12"), NumberOfStops: 1,
			},
			wantCustomer: "81",    // 75 base + 6 long-distance
			wantDriver:   "40.70", // 40 base + 0.70 mileage
		},
		{
			name: "bridge crossing with tier conflict",
			input: domain.CalculationInput{
				Headcount: 60, FoodCost: d("500"), Mileage: d("20"),
				RequiresBridge: true, NumberOfStops: 1,
			},
			wantCustomer: "113",   // 75 + 30 + 8 bridge
			wantDriver:   "51.50", // 40 + 3.50 + 8 bridge
		},
		{
			name: "tip replaces driver base",
			input: domain.CalculationInput{
				Headcount: 30, FoodCost: d("400"), Mileage: d("15"),
				NumberOfStops: 1, Tips: d("20"),
			},
			wantCustomer: "110",   // 75 + 15 long-distance + 20 tip pass-through
			wantDriver:   "21.75", // 20 tip + 1.75 mileage, base pay suppressed
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customer, driver := evaluateBothSides(t, tt.input)
			if !customer.Total.Equal(d(tt.wantCustomer)) {
				t.Errorf("customer total = %s, want %s", customer.Total, tt.wantCustomer)
			}
			if !driver.Total.Equal(d(tt.wantDriver)) {
				t.Errorf("driver total = %s, want %s", driver.Total, tt.wantDriver)
			}
		})
	}
}

func TestEvaluateTipSuppressesBasePay(t *testing.T) {
	input := domain.CalculationInput{
		Headcount: 30, FoodCost: d("400"), Mileage: d("5"),
		NumberOfStops: 1, Tips: d("50"),
	}
	_, driver := evaluateBothSides(t, input)

	if _, ok := driver.Item(domain.RuleTieredBasePay); ok {
		t.Error("tiered_base_pay should be suppressed when a tip is present")
	}
	tip, ok := driver.Item(domain.RuleTips)
	if !ok || !tip.Equal(d("50")) {
		t.Errorf("tips line = %s (present=%v), want 50", tip, ok)
	}
}

func TestEvaluateZeroTipKeepsBasePay(t *testing.T) {
	input := domain.CalculationInput{
		Headcount: 30, FoodCost: d("400"), Mileage: d("5"), NumberOfStops: 1,
	}
	_, driver := evaluateBothSides(t, input)

	base, ok := driver.Item(domain.RuleTieredBasePay)
	if !ok || !base.Equal(d("40")) {
		t.Errorf("tiered_base_pay = %s (present=%v), want 40", base, ok)
	}
	if _, ok := driver.Item(domain.RuleTips); ok {
		t.Error("tips line should be absent when tips are zero")
	}
}

func TestEvaluateTipWithoutTipsRule(t *testing.T) {
	// A side with no tips rule keeps its base pay even when a tip is given.
	rules := []domain.PricingRule{
		{ID: "d-base", Type: domain.RuleTypeDriverPayment, Name: domain.RuleTieredBasePay, Priority: 100},
	}
	input := domain.CalculationInput{
		Headcount: 20, FoodCost: d("250"), NumberOfStops: 1, Tips: d("30"),
	}
	tier, _ := ResolveTier(input.Headcount, input.FoodCost, standardTiers())

	eval := NewEvaluator(nil)
	driver, _ := eval.EvaluateSide(rules, &input, tier)

	if !driver.Total.Equal(d("35")) {
		t.Errorf("driver total = %s, want 35", driver.Total)
	}
}

func TestEvaluateExtraStops(t *testing.T) {
	input := domain.CalculationInput{
		Headcount: 20, FoodCost: d("250"), Mileage: d("5"), NumberOfStops: 3,
	}
	customer, driver := evaluateBothSides(t, input)

	// Two extra stops past the first
	stops, ok := customer.Item(domain.RuleExtraStops)
	if !ok || !stops.Equal(d("30")) {
		t.Errorf("customer extra_stops = %s (present=%v), want 30", stops, ok)
	}
	stops, ok = driver.Item(domain.RuleExtraStops)
	if !ok || !stops.Equal(d("20")) {
		t.Errorf("driver extra_stops = %s (present=%v), want 20", stops, ok)
	}
}

func TestEvaluateSingleStopAddsNothing(t *testing.T) {
	input := domain.CalculationInput{
		Headcount: 20, FoodCost: d("250"), NumberOfStops: 1,
	}
	customer, _ := evaluateBothSides(t, input)
	if _, ok := customer.Item(domain.RuleExtraStops); ok {
		t.Error("extra_stops should be absent for a single stop")
	}
}

func TestEvaluateMileageAtThreshold(t *testing.T) {
	// Exactly at the threshold: nothing past it bills.
	input := domain.CalculationInput{
		Headcount: 20, FoodCost: d("250"), Mileage: d("10"), NumberOfStops: 1,
	}
	customer, driver := evaluateBothSides(t, input)

	if _, ok := customer.Item(domain.RuleLongDistance); ok {
		t.Error("long_distance should be absent at the threshold")
	}
	if _, ok := driver.Item(domain.RuleMileage); ok {
		t.Error("mileage should be absent at the threshold")
	}
}

func TestEvaluateMileageRateFallback(t *testing.T) {
	// A mileage rule without its own per-unit amount bills the input's
	// client-agnostic rate over the full distance.
	rules := []domain.PricingRule{
		{ID: "d-mileage", Type: domain.RuleTypeDriverPayment, Name: domain.RuleMileage, Priority: 80},
	}
	input := domain.CalculationInput{
		Headcount: 20, FoodCost: d("250"), Mileage: d("12"),
		NumberOfStops: 1, MileageRate: d("0.50"),
	}
	tier, _ := ResolveTier(input.Headcount, input.FoodCost, standardTiers())

	eval := NewEvaluator(nil)
	driver, _ := eval.EvaluateSide(rules, &input, tier)

	if !driver.Total.Equal(d("6")) {
		t.Errorf("driver total = %s, want 6", driver.Total)
	}
}

func TestEvaluateBridgeTollRequiresFlag(t *testing.T) {
	input := domain.CalculationInput{
		Headcount: 20, FoodCost: d("250"), Mileage: d("5"), NumberOfStops: 1,
	}
	customer, _ := evaluateBothSides(t, input)
	if _, ok := customer.Item(domain.RuleBridgeToll); ok {
		t.Error("bridge_toll should be absent without the bridge flag")
	}
}

func TestEvaluateNegativeAdjustmentClampsTotal(t *testing.T) {
	input := domain.CalculationInput{
		Headcount: 20, FoodCost: d("250"), NumberOfStops: 1,
		Adjustments: d("-100"),
	}
	customer, _ := evaluateBothSides(t, input)

	// Items keep the raw amounts; only the total clamps.
	adj, ok := customer.Item(domain.RuleAdjustments)
	if !ok || !adj.Equal(d("-100")) {
		t.Errorf("adjustments line = %s (present=%v), want -100", adj, ok)
	}
	if !customer.Total.Equal(decimal.Zero) {
		t.Errorf("customer total = %s, want 0", customer.Total)
	}
}

func TestEvaluateUnknownRuleFlaggedNotFatal(t *testing.T) {
	rules := []domain.PricingRule{
		{ID: "c-base", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleTieredBaseFee, Priority: 100},
		{ID: "c-mystery", Type: domain.RuleTypeCustomerCharge, Name: "surge_multiplier", Priority: 90},
	}
	input := domain.CalculationInput{
		Headcount: 20, FoodCost: d("250"), NumberOfStops: 1,
	}
	tier, _ := ResolveTier(input.Headcount, input.FoodCost, standardTiers())

	eval := NewEvaluator(nil)
	customer, unresolved := eval.EvaluateSide(rules, &input, tier)

	if len(unresolved) != 1 || unresolved[0] != "surge_multiplier" {
		t.Errorf("unresolved = %v, want [surge_multiplier]", unresolved)
	}
	if !customer.Total.Equal(d("65")) {
		t.Errorf("customer total = %s, want 65", customer.Total)
	}
}

func TestEvaluateOrderingDeterministic(t *testing.T) {
	// Same priority breaks ties on rule ID, so item order is stable across
	// runs regardless of slice order.
	rules := []domain.PricingRule{
		{ID: "c-z", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleTips, Priority: 50},
		{ID: "c-a", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleExtraStops, PerUnitAmount: dp("15"), Priority: 50},
		{ID: "c-base", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleTieredBaseFee, Priority: 100},
	}
	input := domain.CalculationInput{
		Headcount: 20, FoodCost: d("250"), NumberOfStops: 2, Tips: d("10"),
	}
	tier, _ := ResolveTier(input.Headcount, input.FoodCost, standardTiers())

	eval := NewEvaluator(nil)
	got, _ := eval.EvaluateSide(rules, &input, tier)

	want := []domain.RuleName{domain.RuleTieredBaseFee, domain.RuleExtraStops, domain.RuleTips}
	if len(got.Items) != len(want) {
		t.Fatalf("got %d items, want %d", len(got.Items), len(want))
	}
	for i, name := range want {
		if got.Items[i].Name != name {
			t.Errorf("item[%d] = %s, want %s", i, got.Items[i].Name, name)
		}
	}
}

func TestEvaluateHeadcountAdjustment(t *testing.T) {
	rules := []domain.PricingRule{
		{ID: "c-hc", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleHeadcountAdjustment, PerUnitAmount: dp("0.25"), Priority: 40},
	}
	input := domain.CalculationInput{
		Headcount: 40, FoodCost: d("250"), NumberOfStops: 1,
	}
	tier, _ := ResolveTier(input.Headcount, input.FoodCost, standardTiers())

	eval := NewEvaluator(nil)
	got, _ := eval.EvaluateSide(rules, &input, tier)

	if !got.Total.Equal(d("10")) {
		t.Errorf("total = %s, want 10", got.Total)
	}
}
