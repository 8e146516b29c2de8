package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/barakahspend/barakah/internal/score"
	"github.com/barakahspend/barakah/internal/ui"
)

var scoreCmd = &cobra.Command{
	Use:     "score",
	GroupID: "insight",
	Short:   "Show this month's barakah score",
	Long: `Compute the barakah score from this month's local records.

The score weighs savings rate (40%), sedekah generosity (35%), and debt
risk (25%). Monthly income comes from --income or advisor.monthly_income
in the config.

Example usage:
  barakah score --income 6000`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		income := monthlyIncome(cmd, a)

		result, err := score.FromLocal(context.Background(), a.db, a.cfg.OwnerID, income, time.Now())
		if err != nil {
			fatalf("failed to compute score: %v", err)
		}

		marker := ui.RenderPass
		if result.Score < 60 {
			marker = ui.RenderWarn
		}

		fmt.Printf("\n%s Barakah Score: %s\n\n", ui.RenderAccent("✨"), marker(fmt.Sprintf("%d/100 (%s)", result.Score, result.Tier)))
		fmt.Printf("Savings: %d/100\n", result.SavingsRatio)
		fmt.Printf("Sedekah: %d/100\n", result.SedekahScore)
		fmt.Printf("Debt: %d/100\n", result.DebtScore)
		fmt.Printf("\n%s\n\n", result.Feedback)
	},
}

// monthlyIncome resolves income from the flag or config.
func monthlyIncome(cmd *cobra.Command, a *app) decimal.Decimal {
	if flag, _ := cmd.Flags().GetString("income"); flag != "" {
		return parseAmount(flag)
	}
	if a.cfg.Advisor.MonthlyIncome > 0 {
		return decimal.NewFromFloat(a.cfg.Advisor.MonthlyIncome)
	}
	return decimal.Zero
}

func init() {
	scoreCmd.Flags().String("income", "", "Monthly income (RM)")
	rootCmd.AddCommand(scoreCmd)
}
