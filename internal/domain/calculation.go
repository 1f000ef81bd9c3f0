package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationInput carries the order attributes a delivery is priced from.
// Mileage is a supplied input; Tally never derives distances.
type CalculationInput struct {
	Headcount      int             `json:"headCount"`
	FoodCost       decimal.Decimal `json:"foodCost"`
	Mileage        decimal.Decimal `json:"mileage"`
	RequiresBridge bool            `json:"requiresBridge"`
	NumberOfStops  int             `json:"numberOfStops"`
	Tips           decimal.Decimal `json:"tips"`
	Adjustments    decimal.Decimal `json:"adjustments"`

	// MileageRate is a client-agnostic per-mile rate used by rule variants
	// that carry no per-unit amount of their own.
	MileageRate decimal.Decimal `json:"mileageRate"`

	// DeliveryArea selects a client's flat-rate area exception, if any.
	DeliveryArea string `json:"deliveryArea,omitempty"`
}

// Validate rejects malformed input before any rule runs. A failed validation
// never produces a partial result.
func (in *CalculationInput) Validate() error {
	switch {
	case in.Headcount < 0:
		return &ValidationError{Field: "headCount", Reason: "must be >= 0"}
	case in.FoodCost.IsNegative():
		return &ValidationError{Field: "foodCost", Reason: "must be >= 0"}
	case in.Mileage.IsNegative():
		return &ValidationError{Field: "mileage", Reason: "must be >= 0"}
	case in.NumberOfStops < 1:
		return &ValidationError{Field: "numberOfStops", Reason: "must be >= 1"}
	case in.Tips.IsNegative():
		return &ValidationError{Field: "tips", Reason: "must be >= 0"}
	case in.MileageRate.IsNegative():
		return &ValidationError{Field: "mileageRate", Reason: "must be >= 0"}
	}
	return nil
}

// LineItem is one itemized amount in a calculation side.
type LineItem struct {
	Name   RuleName        `json:"ruleName"`
	Amount decimal.Decimal `json:"amount"`
}

// ChargeBreakdown is an ordered itemization plus its total. Items keep rule
// evaluation order; the total is rounded to two decimals and clamped at zero.
type ChargeBreakdown struct {
	Items []LineItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Item returns the amount for a named line and whether it is present.
func (b *ChargeBreakdown) Item(name RuleName) (decimal.Decimal, bool) {
	for _, it := range b.Items {
		if it.Name == name {
			return it.Amount, true
		}
	}
	return decimal.Zero, false
}

// CalculationResult is the deterministic, auditable outcome of pricing one
// delivery.
type CalculationResult struct {
	TemplateID     string `json:"templateId"`
	ClientConfigID string `json:"clientConfigId,omitempty"`

	CustomerCharges ChargeBreakdown `json:"customerCharges"`
	DriverPayments  ChargeBreakdown `json:"driverPayments"`

	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profitMargin"`

	// MatchedArea names the area rule that produced a flat result, when
	// the rule pipeline was bypassed.
	MatchedArea string `json:"matchedArea,omitempty"`

	// UnresolvedRules flags rule names the engine did not recognize.
	// Their presence never fails a calculation.
	UnresolvedRules []string `json:"unresolvedRules,omitempty"`
}

// CalculationHistory is an immutable audit record written as a side effect of
// a successful calculation.
type CalculationHistory struct {
	ID             string            `json:"id"`
	TemplateID     string            `json:"templateId"`
	ClientConfigID string            `json:"clientConfigId,omitempty"`
	Input          CalculationInput  `json:"input"`
	Result         CalculationResult `json:"result"`
	CreatedAt      time.Time         `json:"createdAt"`
}
