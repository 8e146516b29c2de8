// Package score computes the barakah score: a 0-100 rating of financial
// discipline weighing savings, generosity, and debt risk.
package score

import (
	"github.com/shopspring/decimal"
)

// Component weights. Savings ratio dominates, then sedekah generosity,
// then debt risk.
var (
	weightSavings = decimal.NewFromFloat(0.40)
	weightSedekah = decimal.NewFromFloat(0.35)
	weightDebt    = decimal.NewFromFloat(0.25)
)

// Tier buckets a score.
type Tier string

const (
	TierExcellent        Tier = "excellent"
	TierGood             Tier = "good"
	TierFair             Tier = "fair"
	TierNeedsImprovement Tier = "needs_improvement"
)

// Input aggregates one month of financial activity.
type Input struct {
	TotalIncome  decimal.Decimal // monthly income
	TotalExpense decimal.Decimal // monthly expenses
	TotalSedekah decimal.Decimal // monthly sedekah
	TotalSavings decimal.Decimal // current savings
	TotalDebt    decimal.Decimal // current debt
}

// Result is a computed barakah score with its components.
type Result struct {
	Score        int
	SavingsRatio int
	SedekahScore int
	DebtScore    int
	Tier         Tier
	Feedback     string
}

var hundred = decimal.NewFromInt(100)

// Calculate computes the barakah score.
//
// Savings targets 20%+ of income (5x scale), sedekah targets 10%+ of
// income (10x scale), and debt is scored against current savings. Each
// component is clamped to 0-100 before weighting.
func Calculate(in Input) Result {
	var savingsRatio, sedekahRatio decimal.Decimal

	if in.TotalIncome.IsPositive() {
		saved := decimal.Max(decimal.Zero, in.TotalIncome.Sub(in.TotalExpense))
		savingsRatio = clamp(saved.Div(in.TotalIncome).Mul(hundred).Mul(decimal.NewFromInt(5)))
		sedekahRatio = clamp(in.TotalSedekah.Div(in.TotalIncome).Mul(hundred).Mul(decimal.NewFromInt(10)))
	}

	var debtRatio decimal.Decimal
	switch {
	case in.TotalSavings.IsPositive():
		debtRatio = clamp(hundred.Sub(in.TotalDebt.Div(in.TotalSavings).Mul(hundred)))
	case in.TotalDebt.IsPositive():
		debtRatio = decimal.Zero
	default:
		debtRatio = hundred
	}

	weighted := savingsRatio.Mul(weightSavings).
		Add(sedekahRatio.Mul(weightSedekah)).
		Add(debtRatio.Mul(weightDebt))

	total := int(clamp(weighted).Round(0).IntPart())
	tier, feedback := feedbackFor(total)

	return Result{
		Score:        total,
		SavingsRatio: int(savingsRatio.Round(0).IntPart()),
		SedekahScore: int(sedekahRatio.Round(0).IntPart()),
		DebtScore:    int(debtRatio.Round(0).IntPart()),
		Tier:         tier,
		Feedback:     feedback,
	}
}

// clamp bounds a component to 0-100.
func clamp(d decimal.Decimal) decimal.Decimal {
	return decimal.Min(hundred, decimal.Max(decimal.Zero, d))
}

// feedbackFor buckets a score into a tier with its feedback text.
func feedbackFor(score int) (Tier, string) {
	switch {
	case score >= 80:
		return TierExcellent,
			"MasyaAllah! Your financial discipline is exemplary. You balance saving, giving, and living beautifully. May Allah increase your barakah."
	case score >= 60:
		return TierGood,
			"Alhamdulillah, you are on a blessed path. Small improvements in saving or sedekah can elevate your barakah further. Keep going!"
	case score >= 40:
		return TierFair,
			"You have a solid foundation, InsyaAllah. Consider reviewing your spending and increasing sadaqah - even small amounts carry great reward."
	default:
		return TierNeedsImprovement,
			"Every journey starts with a single step. Focus on reducing unnecessary spending and building a savings habit. Allah rewards sincere effort."
	}
}
