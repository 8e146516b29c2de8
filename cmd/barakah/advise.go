package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/barakahspend/barakah/internal/advisor"
	"github.com/barakahspend/barakah/internal/config"
	"github.com/barakahspend/barakah/internal/record"
	"github.com/barakahspend/barakah/internal/score"
	"github.com/barakahspend/barakah/internal/store"
	"github.com/barakahspend/barakah/internal/ui"
)

var adviseCmd = &cobra.Command{
	Use:     "advise",
	GroupID: "insight",
	Short:   "Get financial advice from this month's activity",
	Long: `Generate financial advice from this month's local records.

With advisor.api_key configured the advice comes from the Anthropic
API; without it (or when the request fails) canned offline guidance is
shown instead. Works fully offline.

Example usage:
  barakah advise --income 6000`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		ctx := context.Background()
		income := monthlyIncome(cmd, a)
		now := time.Now()

		result, err := score.FromLocal(ctx, a.db, a.cfg.OwnerID, income, now)
		if err != nil {
			fatalf("failed to compute score: %v", err)
		}

		sum := advisor.Summary{
			MonthlyIncome: income,
			Score:         result,
		}
		fillSummary(ctx, a, &sum, now)

		adv := advisor.New(&advisor.Config{
			APIKey: a.cfg.Advisor.APIKey,
			Model:  a.cfg.Advisor.Model,
			Logger: config.NewLogger(os.Stderr, "advisor"),
		})

		advice := adv.Advise(ctx, sum)

		source := ui.RenderFaint("(offline guidance)")
		if advice.Source == "api" {
			source = ui.RenderFaint("(" + advice.Model + ")")
		}
		fmt.Printf("\n%s Advice %s\n\n%s\n\n", ui.RenderAccent("💡"), source, advice.Text)
	},
}

// fillSummary aggregates this month's totals for the advice prompt.
func fillSummary(ctx context.Context, a *app, sum *advisor.Summary, now time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0).Format("2006-01-02")
	opts := store.ListOptions{From: from, To: to}

	expenses, err := a.db.ListByOwner(ctx, record.KindExpense, a.cfg.OwnerID, opts)
	if err == nil {
		for _, rec := range expenses {
			exp, ok := rec.Payload.(record.Expense)
			if !ok {
				continue
			}
			sum.MonthlyExpense = sum.MonthlyExpense.Add(exp.Amount)
			switch exp.Category {
			case "simpanan":
				sum.TotalSavings = sum.TotalSavings.Add(exp.Amount)
			case "hutang":
				sum.TotalDebt = sum.TotalDebt.Add(exp.Amount)
			}
		}
	}

	sedekah, err := a.db.ListByOwner(ctx, record.KindSedekah, a.cfg.OwnerID, opts)
	if err == nil {
		for _, rec := range sedekah {
			if s, ok := rec.Payload.(record.Sedekah); ok {
				sum.MonthlySedekah = sum.MonthlySedekah.Add(s.Amount)
			}
		}
	}
}

func init() {
	adviseCmd.Flags().String("income", "", "Monthly income (RM)")
	rootCmd.AddCommand(adviseCmd)
}
