// Package pricing implements the delivery pricing calculation engine:
// tier resolution, client override merging, rule evaluation and the
// calculation orchestrator.
package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/caterdispatch/tally/internal/domain"
)

// TierResolution is the base fee/pay pair resolved from a tier table.
type TierResolution struct {
	Rank         int             `json:"rank"`
	CustomerBase decimal.Decimal `json:"customerBase"`
	DriverBase   decimal.Decimal `json:"driverBase"`
}

// ResolveTier maps (headcount, foodCost) to a base fee/pay pair. Headcount
// and food cost look up their brackets independently; when the two lookups
// disagree the lower-ranked (cheaper) tier wins, a guardrail against
// overcharging when the signals diverge.
func ResolveTier(headcount int, foodCost decimal.Decimal, tiers []domain.PricingTier) (*TierResolution, error) {
	if headcount < 0 {
		return nil, &domain.ValidationError{Field: "headCount", Reason: "must be >= 0"}
	}
	if foodCost.IsNegative() {
		return nil, &domain.ValidationError{Field: "foodCost", Reason: "must be >= 0"}
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: tier table is empty", domain.ErrInvalidTemplate)
	}

	ordered := make([]domain.PricingTier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank < ordered[j].Rank
	})

	byHeadcount := findTier(ordered, func(t *domain.PricingTier) bool {
		return t.ContainsHeadcount(headcount)
	})
	byFoodCost := findTier(ordered, func(t *domain.PricingTier) bool {
		return t.ContainsFoodCost(foodCost)
	})

	// Open-ended top brackets should catch everything; a miss on both axes
	// means the table itself has a hole.
	if byHeadcount == nil && byFoodCost == nil {
		return nil, fmt.Errorf("%w: no tier bracket for headcount=%d foodCost=%s",
			domain.ErrInvalidTemplate, headcount, foodCost)
	}

	selected := byHeadcount
	if selected == nil || (byFoodCost != nil && byFoodCost.Rank < selected.Rank) {
		selected = byFoodCost
	}

	res := &TierResolution{
		Rank:         selected.Rank,
		CustomerBase: selected.CustomerBase,
		DriverBase:   selected.DriverBase,
	}
	if selected.Percentage {
		hundred := decimal.NewFromInt(100)
		res.CustomerBase = foodCost.Mul(selected.CustomerBase).Div(hundred)
		res.DriverBase = foodCost.Mul(selected.DriverBase).Div(hundred)
	}
	return res, nil
}

func findTier(tiers []domain.PricingTier, match func(*domain.PricingTier) bool) *domain.PricingTier {
	for i := range tiers {
		if match(&tiers[i]) {
			return &tiers[i]
		}
	}
	return nil
}
