package domain

import "github.com/shopspring/decimal"

// PricingTier is one bracket in a template's tier table. Headcount and food
// cost ranges are independent; open-ended maxima catch values beyond the
// table's explicit range. Brackets are contiguous and non-overlapping by
// construction.
type PricingTier struct {
	// Rank orders tiers cheapest-first. The conflict policy picks the
	// lower rank when headcount and food cost point at different tiers.
	Rank int `json:"rank"`

	MinHeadcount int  `json:"minHeadCount"`
	MaxHeadcount *int `json:"maxHeadCount,omitempty"`

	MinFoodCost decimal.Decimal  `json:"minFoodCost"`
	MaxFoodCost *decimal.Decimal `json:"maxFoodCost,omitempty"`

	CustomerBase decimal.Decimal `json:"customerBase"`
	DriverBase   decimal.Decimal `json:"driverBase"`

	// Percentage switches the base pair from flat amounts to a
	// percentage of order value (e.g. CustomerBase 10 = 10% of food cost).
	Percentage bool `json:"percentage,omitempty"`
}

// ContainsHeadcount reports whether the bracket's headcount range holds n.
func (t *PricingTier) ContainsHeadcount(n int) bool {
	if n < t.MinHeadcount {
		return false
	}
	return t.MaxHeadcount == nil || n <= *t.MaxHeadcount
}

// ContainsFoodCost reports whether the bracket's order-value range holds v.
func (t *PricingTier) ContainsFoodCost(v decimal.Decimal) bool {
	if v.LessThan(t.MinFoodCost) {
		return false
	}
	return t.MaxFoodCost == nil || v.LessThanOrEqual(*t.MaxFoodCost)
}
