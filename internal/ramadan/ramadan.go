// Package ramadan tracks the Ramadan period and spending patterns within
// it: sahur/iftar totals, daily averages, and the sedekah streak.
package ramadan

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barakahspend/barakah/internal/record"
	"github.com/barakahspend/barakah/internal/store"
)

// Period is one Ramadan date range, inclusive on both ends.
type Period struct {
	Start string // YYYY-MM-DD
	End   string
}

// Approximate Gregorian dates; these shift ~11 days earlier each year.
var periods = map[int]Period{
	2025: {Start: "2025-03-01", End: "2025-03-30"},
	2026: {Start: "2026-02-18", End: "2026-03-19"},
	2027: {Start: "2027-02-08", End: "2027-03-09"},
}

// PeriodFor returns the Ramadan period for a year, if known.
func PeriodFor(year int) (Period, bool) {
	p, ok := periods[year]
	return p, ok
}

// IsActive reports whether the given date falls within Ramadan.
func IsActive(at time.Time) bool {
	p, ok := periods[at.Year()]
	if !ok {
		return false
	}
	day := at.Format("2006-01-02")
	return day >= p.Start && day <= p.End
}

// Day returns the Ramadan day number (1-30), or 0 outside the period.
func Day(at time.Time) int {
	p, ok := periods[at.Year()]
	if !ok {
		return 0
	}
	start, err := time.Parse("2006-01-02", p.Start)
	if err != nil {
		return 0
	}
	diff := int(at.Sub(start).Hours() / 24)
	if diff < 0 {
		return 0
	}
	if diff > 29 {
		return 30
	}
	return diff + 1
}

// Stats summarizes Ramadan spending for one owner.
type Stats struct {
	Active        bool
	Day           int
	SahurTotal    decimal.Decimal
	IftarTotal    decimal.Decimal
	TotalExpenses decimal.Decimal
	DailyAverage  decimal.Decimal
	SedekahStreak int
}

// StatsFromLocal computes Ramadan statistics from the local store. Outside
// the period it returns zeroed stats with Active false.
func StatsFromLocal(ctx context.Context, db *store.DB, ownerID string, now time.Time) (Stats, error) {
	if !IsActive(now) {
		return Stats{}, nil
	}
	p := periods[now.Year()]
	day := Day(now)

	// End bound is exclusive in ListOptions; step one day past the period.
	end, err := time.Parse("2006-01-02", p.End)
	if err != nil {
		return Stats{}, fmt.Errorf("bad ramadan period for %d: %w", now.Year(), err)
	}
	to := end.AddDate(0, 0, 1).Format("2006-01-02")

	expenses, err := db.ListByOwner(ctx, record.KindExpense, ownerID, store.ListOptions{From: p.Start, To: to})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load ramadan expenses: %w", err)
	}

	stats := Stats{Active: true, Day: day}
	for _, rec := range expenses {
		exp, ok := rec.Payload.(record.Expense)
		if !ok {
			continue
		}
		stats.TotalExpenses = stats.TotalExpenses.Add(exp.Amount)
		switch exp.RamadanMeal {
		case "sahur":
			stats.SahurTotal = stats.SahurTotal.Add(exp.Amount)
		case "iftar":
			stats.IftarTotal = stats.IftarTotal.Add(exp.Amount)
		}
	}
	if day > 0 {
		stats.DailyAverage = stats.TotalExpenses.Div(decimal.NewFromInt(int64(day))).Round(2)
	}

	sedekah, err := db.ListByOwner(ctx, record.KindSedekah, ownerID, store.ListOptions{From: p.Start, To: to})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load ramadan sedekah: %w", err)
	}
	stats.SedekahStreak = streak(sedekah, now, p.Start)

	return stats, nil
}

// streak counts consecutive days with at least one sedekah, walking
// backwards from today to the start of the period.
func streak(records []*record.Record, now time.Time, periodStart string) int {
	days := make(map[string]bool, len(records))
	for _, rec := range records {
		days[rec.Date] = true
	}

	count := 0
	for d := now; ; d = d.AddDate(0, 0, -1) {
		day := d.Format("2006-01-02")
		if day < periodStart {
			break
		}
		if !days[day] {
			break
		}
		count++
	}
	return count
}
