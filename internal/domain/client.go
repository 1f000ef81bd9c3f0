package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ClientConfiguration layers per-client pricing on top of a template:
// rule-value overrides plus area-based flat-rate exceptions.
type ClientConfiguration struct {
	ID         string `json:"id"`
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`

	// RuleOverrides substitutes a rule's base/per-unit values by rule name
	// before evaluation.
	RuleOverrides map[RuleName]RuleOverride `json:"ruleOverrides,omitempty"`

	// AreaRules are flat customer/driver amounts keyed by delivery area.
	// A match bypasses rule evaluation entirely.
	AreaRules []AreaRule `json:"areaRules,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// RuleOverride replaces a template rule's amounts. Nil fields keep the
// template default.
type RuleOverride struct {
	BaseAmount    *decimal.Decimal `json:"baseAmount,omitempty"`
	PerUnitAmount *decimal.Decimal `json:"perUnitAmount,omitempty"`
}

// AreaRule is a flat-rate exception for one delivery area.
type AreaRule struct {
	AreaName     string          `json:"areaName"`
	CustomerPays decimal.Decimal `json:"customerPays"`
	DriverGets   decimal.Decimal `json:"driverGets"`
	HasTolls     bool            `json:"hasTolls"`
	TollAmount   decimal.Decimal `json:"tollAmount"`
}

// MatchArea returns the area rule matching the delivery area, or nil.
// Matching is case-insensitive on the area name.
func (c *ClientConfiguration) MatchArea(area string) *AreaRule {
	if area == "" {
		return nil
	}
	for i := range c.AreaRules {
		if strings.EqualFold(c.AreaRules[i].AreaName, area) {
			return &c.AreaRules[i]
		}
	}
	return nil
}
