// Package domain defines the core interfaces and types for Tally.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType identifies which side of a delivery a pricing rule prices.
type RuleType string

const (
	// RuleTypeCustomerCharge prices what the customer is billed.
	RuleTypeCustomerCharge RuleType = "customer_charge"

	// RuleTypeDriverPayment prices what the driver is paid.
	RuleTypeDriverPayment RuleType = "driver_payment"
)

// RuleName is the closed vocabulary of pricing rule variants.
// Anything outside this set is skipped at evaluation time and flagged
// as unresolved so operators can detect template/engine vocabulary drift.
type RuleName string

const (
	RuleTieredBaseFee       RuleName = "tiered_base_fee"
	RuleTieredBasePay       RuleName = "tiered_base_pay"
	RuleLongDistance        RuleName = "long_distance"
	RuleMileage             RuleName = "mileage"
	RuleBridgeToll          RuleName = "bridge_toll"
	RuleExtraStops          RuleName = "extra_stops"
	RuleTips                RuleName = "tips"
	RuleHeadcountAdjustment RuleName = "headcount_adjustment"
	RuleAdjustments         RuleName = "adjustments"
)

// ThresholdType determines on which side of a threshold a per-unit rule bills.
type ThresholdType string

const (
	ThresholdAbove ThresholdType = "above"
	ThresholdBelow ThresholdType = "below"
)

// PricingTemplate is a named, versioned set of pricing rules plus the tier
// table they draw base amounts from. Templates are never mutated mid
// calculation; changes take effect through an atomic snapshot swap.
type PricingTemplate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Version     string    `json:"version"`
	Active      bool      `json:"active"`

	// Rules for both sides, evaluated highest priority first.
	Rules []PricingRule `json:"rules"`

	// Tiers maps (headcount, order value) brackets to base fee/pay pairs.
	Tiers []PricingTier `json:"tiers"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// PricingRule is one priced line item definition in a template.
type PricingRule struct {
	ID         string   `json:"id"`
	TemplateID string   `json:"templateId,omitempty"`
	Type       RuleType `json:"ruleType"`
	Name       RuleName `json:"ruleName"`

	BaseAmount     *decimal.Decimal `json:"baseAmount,omitempty"`
	PerUnitAmount  *decimal.Decimal `json:"perUnitAmount,omitempty"`
	ThresholdValue *decimal.Decimal `json:"thresholdValue,omitempty"`
	ThresholdType  ThresholdType    `json:"thresholdType,omitempty"`

	// Priority orders evaluation and display, highest first.
	// Equal priorities break ties by rule ID ascending.
	Priority int `json:"priority"`

	// Condition is an optional CEL gate; when present and false for a
	// given input, the rule does not fire.
	Condition string `json:"condition,omitempty"`
}

// Validate checks a template for configuration defects. Duplicate rule names
// on the same side are rejected rather than silently merged.
func (t *PricingTemplate) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: template id is required", ErrInvalidTemplate)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: template name is required", ErrInvalidTemplate)
	}

	seen := make(map[string]bool, len(t.Rules))
	for _, r := range t.Rules {
		if r.Type != RuleTypeCustomerCharge && r.Type != RuleTypeDriverPayment {
			return fmt.Errorf("%w: rule %s has unknown type %q", ErrInvalidTemplate, r.ID, r.Type)
		}
		key := string(r.Type) + "/" + string(r.Name)
		if seen[key] {
			return fmt.Errorf("%w: duplicate rule %q on side %s", ErrInvalidTemplate, r.Name, r.Type)
		}
		seen[key] = true
	}
	return nil
}

// RulesForSide returns the template rules tagged with the given type.
func (t *PricingTemplate) RulesForSide(side RuleType) []PricingRule {
	var out []PricingRule
	for _, r := range t.Rules {
		if r.Type == side {
			out = append(out, r)
		}
	}
	return out
}
