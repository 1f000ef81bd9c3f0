package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/caterdispatch/tally/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func ip(n int) *int { return &n }

// standardTiers mirrors the baseline catering tier table: brackets step
// every 25 heads / every 300 dollars, the top bracket is percentage based.
func standardTiers() []domain.PricingTier {
	return []domain.PricingTier{
		{
			Rank:         1,
			MinHeadcount: 0, MaxHeadcount: ip(24),
			MinFoodCost: decimal.Zero, MaxFoodCost: dp("299.99"),
			CustomerBase: d("65"), DriverBase: d("35"),
		},
		{
			Rank:         2,
			MinHeadcount: 25, MaxHeadcount: ip(49),
			MinFoodCost: d("300"), MaxFoodCost: dp("599.99"),
			CustomerBase: d("75"), DriverBase: d("40"),
		},
		{
			Rank:         3,
			MinHeadcount: 50, MaxHeadcount: ip(74),
			MinFoodCost: d("600"), MaxFoodCost: dp("899.99"),
			CustomerBase: d("85"), DriverBase: d("45"),
		},
		{
			Rank:         4,
			MinHeadcount: 75, MaxHeadcount: nil,
			MinFoodCost: d("900"), MaxFoodCost: nil,
			CustomerBase: d("10"), DriverBase: d("5"),
			Percentage: true,
		},
	}
}

func standardCustomerRules() []domain.PricingRule {
	return []domain.PricingRule{
		{ID: "c-base", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleTieredBaseFee, Priority: 100},
		{
			ID: "c-longdist", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleLongDistance,
			PerUnitAmount: dp("3.00"), ThresholdValue: dp("10"), ThresholdType: domain.ThresholdAbove,
			Priority: 80,
		},
		{ID: "c-toll", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleBridgeToll, BaseAmount: dp("8.00"), Priority: 70},
		{ID: "c-stops", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleExtraStops, PerUnitAmount: dp("15.00"), Priority: 60},
		{ID: "c-tips", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleTips, Priority: 50},
		{ID: "c-adjust", Type: domain.RuleTypeCustomerCharge, Name: domain.RuleAdjustments, Priority: 10},
	}
}

func standardDriverRules() []domain.PricingRule {
	return []domain.PricingRule{
		{ID: "d-base", Type: domain.RuleTypeDriverPayment, Name: domain.RuleTieredBasePay, Priority: 100},
		{
			ID: "d-mileage", Type: domain.RuleTypeDriverPayment, Name: domain.RuleMileage,
			PerUnitAmount: dp("0.35"), ThresholdValue: dp("10"), ThresholdType: domain.ThresholdAbove,
			Priority: 80,
		},
		{ID: "d-toll", Type: domain.RuleTypeDriverPayment, Name: domain.RuleBridgeToll, BaseAmount: dp("8.00"), Priority: 70},
		{ID: "d-stops", Type: domain.RuleTypeDriverPayment, Name: domain.RuleExtraStops, PerUnitAmount: dp("10.00"), Priority: 60},
		{ID: "d-tips", Type: domain.RuleTypeDriverPayment, Name: domain.RuleTips, Priority: 50},
	}
}

func standardTemplate() *domain.PricingTemplate {
	return &domain.PricingTemplate{
		ID:      "standard-catering",
		Name:    "Standard Catering",
		Version: "1.0.0",
		Active:  true,
		Rules:   append(standardCustomerRules(), standardDriverRules()...),
		Tiers:   standardTiers(),
	}
}
