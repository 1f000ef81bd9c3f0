package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/caterdispatch/tally/internal/domain"
)

// Evaluator executes an ordered set of typed pricing rules against a
// calculation input, once per side. It holds no mutable cross-call state;
// independent evaluations never interfere.
type Evaluator struct {
	conditions *Conditions
}

// NewEvaluator creates a rule evaluator. conditions may be nil when no
// template in play carries rule gates.
func NewEvaluator(conditions *Conditions) *Evaluator {
	return &Evaluator{conditions: conditions}
}

// EvaluateSide runs the given side's rules against the input and the resolved
// tier, producing an ordered itemization. Unknown rule names never fail the
// evaluation; they are skipped and reported back as unresolved.
//
// Rounding happens only at the total, not per item, so intermediate amounts
// never compound rounding error. The total is clamped at zero.
func (e *Evaluator) EvaluateSide(rules []domain.PricingRule, input *domain.CalculationInput, tier *TierResolution) (domain.ChargeBreakdown, []string) {
	ordered := orderRules(rules)

	// Tips replace the driver's base/bonus structure: when a tip is present
	// and the side's tips rule will fire, the tiered base pay line is
	// suppressed rather than added to. A tips rule held back by its gate
	// pays nothing through, so it must not suppress base pay either.
	tipsActive := input.Tips.IsPositive() && e.tipsRuleFires(ordered, input)

	var (
		items      []domain.LineItem
		total      decimal.Decimal
		unresolved []string
	)

	appendItem := func(name domain.RuleName, amount decimal.Decimal, alwaysShow bool) {
		if amount.IsZero() && !alwaysShow {
			return
		}
		items = append(items, domain.LineItem{Name: name, Amount: amount})
		total = total.Add(amount)
	}

	for i := range ordered {
		rule := &ordered[i]

		if e.conditions != nil {
			ok, err := e.conditions.Allows(rule, input)
			if err != nil {
				unresolved = append(unresolved, string(rule.Name))
				continue
			}
			if !ok {
				continue
			}
		}

		switch rule.Name {
		case domain.RuleTieredBaseFee:
			appendItem(rule.Name, tier.CustomerBase, true)

		case domain.RuleTieredBasePay:
			if tipsActive {
				continue
			}
			appendItem(rule.Name, tier.DriverBase, true)

		case domain.RuleLongDistance, domain.RuleMileage:
			appendItem(rule.Name, mileageAmount(rule, input), false)

		case domain.RuleBridgeToll:
			if input.RequiresBridge && rule.BaseAmount != nil {
				appendItem(rule.Name, *rule.BaseAmount, false)
			}

		case domain.RuleExtraStops:
			if rule.PerUnitAmount != nil && input.NumberOfStops > 1 {
				stops := decimal.NewFromInt(int64(input.NumberOfStops - 1))
				appendItem(rule.Name, rule.PerUnitAmount.Mul(stops), false)
			}

		case domain.RuleTips:
			if input.Tips.IsPositive() {
				appendItem(rule.Name, input.Tips, false)
			}

		case domain.RuleHeadcountAdjustment:
			if rule.PerUnitAmount != nil {
				heads := decimal.NewFromInt(int64(input.Headcount))
				appendItem(rule.Name, rule.PerUnitAmount.Mul(heads), false)
			}

		case domain.RuleAdjustments:
			// Manual correction term, added as-is. May be negative.
			appendItem(rule.Name, input.Adjustments, false)

		default:
			unresolved = append(unresolved, string(rule.Name))
		}
	}

	total = total.Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return domain.ChargeBreakdown{Items: items, Total: total}, unresolved
}

// mileageAmount computes the long_distance/mileage surcharge. With
// thresholdType=above only miles past the threshold bill; otherwise the full
// mileage bills. The per-unit rate falls back to the input's client-agnostic
// mileage rate when the rule carries none.
func mileageAmount(rule *domain.PricingRule, input *domain.CalculationInput) decimal.Decimal {
	per := input.MileageRate
	if rule.PerUnitAmount != nil {
		per = *rule.PerUnitAmount
	}

	billable := input.Mileage
	if rule.ThresholdType == domain.ThresholdAbove && rule.ThresholdValue != nil {
		billable = input.Mileage.Sub(*rule.ThresholdValue)
		if billable.IsNegative() {
			billable = decimal.Zero
		}
	}

	return per.Mul(billable)
}

// orderRules sorts by priority descending with rule ID ascending as the
// deterministic tiebreak.
func orderRules(rules []domain.PricingRule) []domain.PricingRule {
	ordered := make([]domain.PricingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// tipsRuleFires reports whether the side carries a tips rule whose gate (if
// any) passes for this input. Gate errors count as not firing; the main loop
// flags them as unresolved.
func (e *Evaluator) tipsRuleFires(rules []domain.PricingRule, input *domain.CalculationInput) bool {
	for i := range rules {
		if rules[i].Name != domain.RuleTips {
			continue
		}
		if e.conditions == nil {
			return true
		}
		ok, err := e.conditions.Allows(&rules[i], input)
		return err == nil && ok
	}
	return false
}
