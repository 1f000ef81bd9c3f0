package pricing

import (
	"github.com/caterdispatch/tally/internal/domain"
)

// FlatResolution is the result of an area-rule match: a flat customer/driver
// pair that bypasses the rule evaluation pipeline entirely.
type FlatResolution struct {
	AreaName     string
	CustomerPays []domain.LineItem
	DriverGets   []domain.LineItem
}

// ResolveOverrides merges a client configuration onto a template's rules.
// Precedence, highest to lowest: area-rule match > ruleOverrides entry >
// template default. The function is pure; inputs are never mutated.
//
// When the delivery area matches an AreaRule the returned FlatResolution is
// non-nil and the returned rules must not be evaluated.
func ResolveOverrides(cfg *domain.ClientConfiguration, rules []domain.PricingRule, deliveryArea string) ([]domain.PricingRule, *FlatResolution) {
	if cfg == nil {
		return rules, nil
	}

	if area := cfg.MatchArea(deliveryArea); area != nil {
		return nil, flatten(area)
	}

	if len(cfg.RuleOverrides) == 0 {
		return rules, nil
	}

	merged := make([]domain.PricingRule, len(rules))
	copy(merged, rules)
	for i := range merged {
		ov, ok := cfg.RuleOverrides[merged[i].Name]
		if !ok {
			continue
		}
		if ov.BaseAmount != nil {
			v := *ov.BaseAmount
			merged[i].BaseAmount = &v
		}
		if ov.PerUnitAmount != nil {
			v := *ov.PerUnitAmount
			merged[i].PerUnitAmount = &v
		}
	}
	return merged, nil
}

// flatten turns an area rule into itemized flat results. The toll add-on
// applies whenever the area carries tolls; the area encodes its own
// geography, independent of the input's bridge flag.
func flatten(area *domain.AreaRule) *FlatResolution {
	res := &FlatResolution{
		AreaName:     area.AreaName,
		CustomerPays: []domain.LineItem{{Name: domain.RuleTieredBaseFee, Amount: area.CustomerPays}},
		DriverGets:   []domain.LineItem{{Name: domain.RuleTieredBasePay, Amount: area.DriverGets}},
	}
	if area.HasTolls && !area.TollAmount.IsZero() {
		res.CustomerPays = append(res.CustomerPays, domain.LineItem{Name: domain.RuleBridgeToll, Amount: area.TollAmount})
		res.DriverGets = append(res.DriverGets, domain.LineItem{Name: domain.RuleBridgeToll, Amount: area.TollAmount})
	}
	return res
}
