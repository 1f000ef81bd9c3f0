// Seed tool for loading a standard pricing template into the database.
//
// Usage:
//   go run cmd/seed/main.go [-driver sqlite] [-sqlite ./tally.db]
//
// Seeds:
//   1. The "standard-catering" template with its tier table and rules
//   2. A demo client configuration with overrides and one area rule
//
// Safe to re-run: both records upsert by ID.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caterdispatch/tally/internal/domain"
	"github.com/caterdispatch/tally/internal/repository"
)

func main() {
	driver := flag.String("driver", "sqlite", "Database driver (sqlite or postgres)")
	sqlitePath := flag.String("sqlite", "./tally.db", "SQLite database path")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "tally", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDB := flag.String("pg-db", "tally", "PostgreSQL database")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL sslmode")
	flag.Parse()

	cfg := domain.RepositoryConfig{
		Driver:           *driver,
		SQLitePath:       *sqlitePath,
		PostgresHost:     *pgHost,
		PostgresPort:     *pgPort,
		PostgresUser:     *pgUser,
		PostgresPassword: *pgPassword,
		PostgresDB:       *pgDB,
		PostgresSSLMode:  *pgSSLMode,
	}

	repo, err := repository.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open repository: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tpl := standardTemplate()
	if err := repo.SaveTemplate(ctx, tpl); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed template: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded template %q (%d tiers, %d rules)\n", tpl.ID, len(tpl.Tiers), len(tpl.Rules))

	client := demoClient(tpl.ID)
	if err := repo.SaveClientConfig(ctx, client); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed client config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded client config %q (template %s)\n", client.ID, client.TemplateID)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intp(n int) *int { return &n }

// standardTemplate returns the baseline catering template. Tier brackets
// step every 25 heads / every 300 dollars of order value.
func standardTemplate() *domain.PricingTemplate {
	return &domain.PricingTemplate{
		ID:          "standard-catering",
		Name:        "Standard Catering",
		Description: "Baseline delivery pricing for catering orders",
		Version:     "1.0.0",
		Active:      true,
		Tiers: []domain.PricingTier{
			{
				Rank:         1,
				MinHeadcount: 0, MaxHeadcount: intp(24),
				MinFoodCost: decimal.Zero, MaxFoodCost: dec("299.99"),
				CustomerBase: decimal.RequireFromString("65"),
				DriverBase:   decimal.RequireFromString("35"),
			},
			{
				Rank:         2,
				MinHeadcount: 25, MaxHeadcount: intp(49),
				MinFoodCost: decimal.RequireFromString("300"), MaxFoodCost: dec("599.99"),
				CustomerBase: decimal.RequireFromString("75"),
				DriverBase:   decimal.RequireFromString("40"),
			},
			{
				Rank:         3,
				MinHeadcount: 50, MaxHeadcount: intp(74),
				MinFoodCost: decimal.RequireFromString("600"), MaxFoodCost: dec("899.99"),
				CustomerBase: decimal.RequireFromString("85"),
				DriverBase:   decimal.RequireFromString("45"),
			},
			{
				Rank:         4,
				MinHeadcount: 75, MaxHeadcount: nil,
				MinFoodCost: decimal.RequireFromString("900"), MaxFoodCost: nil,
				CustomerBase: decimal.RequireFromString("10"),
				DriverBase:   decimal.RequireFromString("5"),
				Percentage:   true,
			},
		},
		Rules: []domain.PricingRule{
			// Customer side
			{
				ID: "std-c-base", Type: domain.RuleTypeCustomerCharge,
				Name: domain.RuleTieredBaseFee, Priority: 100,
			},
			{
				ID: "std-c-longdist", Type: domain.RuleTypeCustomerCharge,
				Name:          domain.RuleLongDistance,
				PerUnitAmount: dec("3.00"), ThresholdValue: dec("10"),
				ThresholdType: domain.ThresholdAbove, Priority: 80,
			},
			{
				ID: "std-c-toll", Type: domain.RuleTypeCustomerCharge,
				Name:       domain.RuleBridgeToll,
				BaseAmount: dec("8.00"), Priority: 70,
			},
			{
				ID: "std-c-stops", Type: domain.RuleTypeCustomerCharge,
				Name:          domain.RuleExtraStops,
				PerUnitAmount: dec("15.00"), Priority: 60,
			},
			{
				ID: "std-c-tips", Type: domain.RuleTypeCustomerCharge,
				Name: domain.RuleTips, Priority: 50,
			},
			{
				ID: "std-c-adjust", Type: domain.RuleTypeCustomerCharge,
				Name: domain.RuleAdjustments, Priority: 10,
			},
			// Driver side
			{
				ID: "std-d-base", Type: domain.RuleTypeDriverPayment,
				Name: domain.RuleTieredBasePay, Priority: 100,
			},
			{
				ID: "std-d-mileage", Type: domain.RuleTypeDriverPayment,
				Name:          domain.RuleMileage,
				PerUnitAmount: dec("0.35"), ThresholdValue: dec("10"),
				ThresholdType: domain.ThresholdAbove, Priority: 80,
			},
			{
				ID: "std-d-toll", Type: domain.RuleTypeDriverPayment,
				Name:       domain.RuleBridgeToll,
				BaseAmount: dec("8.00"), Priority: 70,
			},
			{
				ID: "std-d-stops", Type: domain.RuleTypeDriverPayment,
				Name:          domain.RuleExtraStops,
				PerUnitAmount: dec("10.00"), Priority: 60,
			},
			{
				ID: "std-d-tips", Type: domain.RuleTypeDriverPayment,
				Name: domain.RuleTips, Priority: 50,
			},
		},
	}
}

// demoClient layers a discount and one flat-rate area over the standard
// template.
func demoClient(templateID string) *domain.ClientConfiguration {
	return &domain.ClientConfiguration{
		ID:         "demo-client",
		TemplateID: templateID,
		Name:       "Demo Client",
		Active:     true,
		RuleOverrides: map[domain.RuleName]domain.RuleOverride{
			domain.RuleLongDistance: {PerUnitAmount: dec("2.50")},
		},
		AreaRules: []domain.AreaRule{
			{
				AreaName:     "Treasure Island",
				CustomerPays: decimal.RequireFromString("120"),
				DriverGets:   decimal.RequireFromString("70"),
				HasTolls:     true,
				TollAmount:   decimal.RequireFromString("8"),
			},
		},
	}
}
