package score

import (
	"testing"

	"github.com/shopspring/decimal"
)

func rm(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCalculateBalancedMonth(t *testing.T) {
	// 20% saved and 10% sedekah max out their scaled components; no debt.
	result := Calculate(Input{
		TotalIncome:  rm(5000),
		TotalExpense: rm(4000),
		TotalSedekah: rm(500),
		TotalSavings: rm(10000),
	})

	if result.SavingsRatio != 100 {
		t.Errorf("savings component = %d, want 100", result.SavingsRatio)
	}
	if result.SedekahScore != 100 {
		t.Errorf("sedekah component = %d, want 100", result.SedekahScore)
	}
	if result.DebtScore != 100 {
		t.Errorf("debt component = %d, want 100", result.DebtScore)
	}
	if result.Score != 100 {
		t.Errorf("score = %d, want 100", result.Score)
	}
	if result.Tier != TierExcellent {
		t.Errorf("tier = %s, want excellent", result.Tier)
	}
}

func TestCalculateZeroIncome(t *testing.T) {
	result := Calculate(Input{
		TotalExpense: rm(1000),
		TotalSedekah: rm(100),
	})

	// Income-relative components collapse to zero; no savings and no debt
	// still scores the debt component at full.
	if result.SavingsRatio != 0 || result.SedekahScore != 0 {
		t.Errorf("components = %d/%d, want 0/0", result.SavingsRatio, result.SedekahScore)
	}
	if result.DebtScore != 100 {
		t.Errorf("debt component = %d, want 100", result.DebtScore)
	}
}

func TestCalculateDebtDominatesSavings(t *testing.T) {
	result := Calculate(Input{
		TotalIncome:  rm(5000),
		TotalExpense: rm(5000),
		TotalSavings: rm(1000),
		TotalDebt:    rm(2000),
	})

	// Debt at twice the savings floors the component.
	if result.DebtScore != 0 {
		t.Errorf("debt component = %d, want 0", result.DebtScore)
	}
}

func TestCalculateDebtWithNoSavings(t *testing.T) {
	result := Calculate(Input{
		TotalIncome: rm(3000),
		TotalDebt:   rm(500),
	})
	if result.DebtScore != 0 {
		t.Errorf("debt without savings = %d, want 0", result.DebtScore)
	}
}

func TestCalculateOverspending(t *testing.T) {
	result := Calculate(Input{
		TotalIncome:  rm(3000),
		TotalExpense: rm(4000),
	})
	// Spending above income never drives the component negative.
	if result.SavingsRatio != 0 {
		t.Errorf("savings component = %d, want 0", result.SavingsRatio)
	}
}

func TestTiers(t *testing.T) {
	tests := []struct {
		score int
		want  Tier
	}{
		{95, TierExcellent},
		{80, TierExcellent},
		{79, TierGood},
		{60, TierGood},
		{59, TierFair},
		{40, TierFair},
		{39, TierNeedsImprovement},
		{0, TierNeedsImprovement},
	}
	for _, tt := range tests {
		tier, feedback := feedbackFor(tt.score)
		if tier != tt.want {
			t.Errorf("feedbackFor(%d) = %s, want %s", tt.score, tier, tt.want)
		}
		if feedback == "" {
			t.Errorf("feedbackFor(%d) returned empty feedback", tt.score)
		}
	}
}
