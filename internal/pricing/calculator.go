package pricing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caterdispatch/tally/internal/domain"
)

// SnapshotSource supplies the data a calculation needs. Loads are the only
// operations that may block externally; the calculation itself performs no
// waiting once data is in hand.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, templateID string) (*TemplateSnapshot, error)
	GetClientConfig(ctx context.Context, id string) (*domain.ClientConfiguration, error)
}

// HistoryRecorder accepts calculation audit records. Implementations are
// best-effort; a recording failure never fails the calculation.
type HistoryRecorder interface {
	Record(ctx context.Context, rec *domain.CalculationHistory) error
}

// Options modify a single calculation.
type Options struct {
	// ClientConfigID applies a client's override layer. The configuration
	// must reference the calculated template.
	ClientConfigID string

	// SkipHistory suppresses the audit record for this calculation.
	SkipHistory bool
}

// Calculator composes tier resolution, override merging and rule evaluation
// into the full pricing pipeline. It is safe for concurrent use.
type Calculator struct {
	source    SnapshotSource
	evaluator *Evaluator
	history   HistoryRecorder
}

// NewCalculator creates a calculation orchestrator. history may be nil.
func NewCalculator(source SnapshotSource, evaluator *Evaluator, history HistoryRecorder) *Calculator {
	return &Calculator{
		source:    source,
		evaluator: evaluator,
		history:   history,
	}
}

// Calculate prices one delivery. Identical (templateID, input, options)
// against the same loaded template version always yields an identical result.
func (c *Calculator) Calculate(ctx context.Context, templateID string, input domain.CalculationInput, opts Options) (*domain.CalculationResult, error) {
	snap, err := c.source.GetSnapshot(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var clientCfg *domain.ClientConfiguration
	if opts.ClientConfigID != "" {
		clientCfg, err = c.source.GetClientConfig(ctx, opts.ClientConfigID)
		if err != nil {
			return nil, err
		}
		if !clientCfg.Active {
			return nil, domain.ErrClientConfigInactive
		}
		if clientCfg.TemplateID != templateID {
			return nil, domain.ErrClientConfigMismatch
		}
	}

	result := &domain.CalculationResult{
		TemplateID:     templateID,
		ClientConfigID: opts.ClientConfigID,
	}

	customerRules, flat := ResolveOverrides(clientCfg, snap.CustomerRules, input.DeliveryArea)
	if flat != nil {
		result.MatchedArea = flat.AreaName
		result.CustomerCharges = totalize(flat.CustomerPays)
		result.DriverPayments = totalize(flat.DriverGets)
	} else {
		driverRules, _ := ResolveOverrides(clientCfg, snap.DriverRules, input.DeliveryArea)

		tier, err := ResolveTier(input.Headcount, input.FoodCost, snap.Template.Tiers)
		if err != nil {
			return nil, err
		}

		var unresolved []string
		result.CustomerCharges, unresolved = c.evaluator.EvaluateSide(customerRules, &input, tier)
		result.UnresolvedRules = append(result.UnresolvedRules, unresolved...)

		result.DriverPayments, unresolved = c.evaluator.EvaluateSide(driverRules, &input, tier)
		result.UnresolvedRules = append(result.UnresolvedRules, unresolved...)
	}

	result.Profit = result.CustomerCharges.Total.Sub(result.DriverPayments.Total)
	if result.CustomerCharges.Total.IsPositive() {
		hundred := decimal.NewFromInt(100)
		result.ProfitMargin = result.Profit.Div(result.CustomerCharges.Total).Mul(hundred).Round(2)
	} else {
		result.ProfitMargin = decimal.Zero
	}

	if !opts.SkipHistory {
		c.recordHistory(ctx, templateID, opts.ClientConfigID, input, result)
	}

	return result, nil
}

// recordHistory hands the result to the history collaborator. Recording is
// decoupled from the response path; failures are logged, never propagated.
func (c *Calculator) recordHistory(ctx context.Context, templateID, clientConfigID string, input domain.CalculationInput, result *domain.CalculationResult) {
	if c.history == nil {
		return
	}

	rec := &domain.CalculationHistory{
		ID:             uuid.New().String(),
		TemplateID:     templateID,
		ClientConfigID: clientConfigID,
		Input:          input,
		Result:         *result,
		CreatedAt:      time.Now().UTC(),
	}

	if err := c.history.Record(ctx, rec); err != nil {
		slog.Error("failed to record calculation history",
			"template_id", templateID,
			"history_id", rec.ID,
			"error", err,
		)
	}
}

// totalize sums flat line items into a breakdown with the same rounding and
// clamping rules the evaluator applies.
func totalize(items []domain.LineItem) domain.ChargeBreakdown {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	total = total.Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return domain.ChargeBreakdown{Items: items, Total: total}
}
