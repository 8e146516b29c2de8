package score

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barakahspend/barakah/internal/record"
	"github.com/barakahspend/barakah/internal/store"
)

// FromLocal aggregates the current month's expenses and sedekah from the
// local store and computes the barakah score. Savings and debt come from
// the simpanan and hutang expense categories.
func FromLocal(ctx context.Context, db *store.DB, ownerID string, monthlyIncome decimal.Decimal, now time.Time) (Result, error) {
	from, to := monthBounds(now)

	expenses, err := db.ListByOwner(ctx, record.KindExpense, ownerID, store.ListOptions{From: from, To: to})
	if err != nil {
		return Result{}, fmt.Errorf("failed to load monthly expenses: %w", err)
	}

	sedekah, err := db.ListByOwner(ctx, record.KindSedekah, ownerID, store.ListOptions{From: from, To: to})
	if err != nil {
		return Result{}, fmt.Errorf("failed to load monthly sedekah: %w", err)
	}

	in := Input{TotalIncome: monthlyIncome}
	for _, rec := range expenses {
		exp, ok := rec.Payload.(record.Expense)
		if !ok {
			continue
		}
		in.TotalExpense = in.TotalExpense.Add(exp.Amount)
		switch exp.Category {
		case "simpanan":
			in.TotalSavings = in.TotalSavings.Add(exp.Amount)
		case "hutang":
			in.TotalDebt = in.TotalDebt.Add(exp.Amount)
		}
	}
	for _, rec := range sedekah {
		if s, ok := rec.Payload.(record.Sedekah); ok {
			in.TotalSedekah = in.TotalSedekah.Add(s.Amount)
		}
	}

	return Calculate(in), nil
}

// monthBounds returns [first day of now's month, first day of next month).
func monthBounds(now time.Time) (string, string) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	return from.Format("2006-01-02"), to.Format("2006-01-02")
}
