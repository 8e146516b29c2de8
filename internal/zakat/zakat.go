// Package zakat computes zakat obligations: 2.5% of total wealth when it
// meets the nisab threshold.
package zakat

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/barakahspend/barakah/internal/record"
)

// DefaultNisabRM is the Malaysian nisab threshold: roughly 85 grams of
// gold at ~RM350/gram. Should ultimately come from an authority feed.
var DefaultNisabRM = decimal.NewFromInt(29750)

// zakatRate is the fixed obligation rate on eligible wealth.
var zakatRate = decimal.NewFromFloat(0.025)

// Input is the wealth subject to calculation.
type Input struct {
	TotalSavings decimal.Decimal
	GoldValue    decimal.Decimal
}

// Result is one zakat calculation.
type Result struct {
	TotalWealth    decimal.Decimal
	NisabThreshold decimal.Decimal
	NisabEligible  bool
	ZakatAmount    decimal.Decimal
	Year           int
}

// Calculate computes zakat for the given wealth against DefaultNisabRM.
func Calculate(in Input) Result {
	return CalculateAt(in, DefaultNisabRM, time.Now())
}

// CalculateAt computes zakat against an explicit nisab threshold and
// reference time.
func CalculateAt(in Input, nisab decimal.Decimal, at time.Time) Result {
	wealth := in.TotalSavings.Add(in.GoldValue)
	eligible := wealth.GreaterThanOrEqual(nisab)

	amount := decimal.Zero
	if eligible {
		amount = wealth.Mul(zakatRate).Round(2)
	}

	return Result{
		TotalWealth:    wealth,
		NisabThreshold: nisab,
		NisabEligible:  eligible,
		ZakatAmount:    amount,
		Year:           at.Year(),
	}
}

// Payload converts a calculation into a storable zakat record payload.
func (r Result) Payload(in Input) record.ZakatRecord {
	return record.ZakatRecord{
		TotalSavings:  in.TotalSavings,
		GoldValue:     in.GoldValue,
		ZakatAmount:   r.ZakatAmount,
		NisabEligible: r.NisabEligible,
		Year:          r.Year,
	}
}
