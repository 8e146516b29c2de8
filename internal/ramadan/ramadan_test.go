package ramadan

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barakahspend/barakah/internal/record"
	"github.com/barakahspend/barakah/internal/store"
)

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return db
}

func addExpense(t *testing.T, db *store.DB, date, amount, meal string) {
	t.Helper()

	rec, err := record.New("user-1", date, record.Expense{
		Amount:      decimal.RequireFromString(amount),
		Category:    "makanan_halal",
		IsRamadan:   meal != "",
		RamadanMeal: meal,
	})
	if err != nil {
		t.Fatalf("failed to build record: %v", err)
	}
	if _, _, err := db.CreateWithMutation(context.Background(), rec); err != nil {
		t.Fatalf("create failed: %v", err)
	}
}

func addSedekah(t *testing.T, db *store.DB, date string) {
	t.Helper()

	rec, err := record.New("user-1", date, record.Sedekah{Amount: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("failed to build record: %v", err)
	}
	if _, _, err := db.CreateWithMutation(context.Background(), rec); err != nil {
		t.Fatalf("create failed: %v", err)
	}
}

func TestIsActive(t *testing.T) {
	tests := []struct {
		date string
		want bool
	}{
		{"2026-02-17", false},
		{"2026-02-18", true},
		{"2026-03-01", true},
		{"2026-03-19", true},
		{"2026-03-20", false},
		{"2030-03-01", false}, // no period on record
	}
	for _, tt := range tests {
		at, err := time.Parse("2006-01-02", tt.date)
		if err != nil {
			t.Fatalf("bad date: %v", err)
		}
		if got := IsActive(at); got != tt.want {
			t.Errorf("IsActive(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestDay(t *testing.T) {
	first, _ := time.Parse("2006-01-02", "2026-02-18")
	if got := Day(first); got != 1 {
		t.Errorf("Day(first) = %d, want 1", got)
	}
	tenth, _ := time.Parse("2006-01-02", "2026-02-27")
	if got := Day(tenth); got != 10 {
		t.Errorf("Day(tenth) = %d, want 10", got)
	}
	before, _ := time.Parse("2006-01-02", "2026-01-01")
	if got := Day(before); got != 0 {
		t.Errorf("Day(before period) = %d, want 0", got)
	}
}

func TestStatsOutsidePeriod(t *testing.T) {
	db := setupTestDB(t)

	at, _ := time.Parse("2006-01-02", "2026-06-01")
	stats, err := StatsFromLocal(context.Background(), db, "user-1", at)
	if err != nil {
		t.Fatalf("StatsFromLocal failed: %v", err)
	}
	if stats.Active {
		t.Error("stats should be inactive outside the period")
	}
}

func TestStatsMealTotals(t *testing.T) {
	db := setupTestDB(t)

	addExpense(t, db, "2026-02-18", "8.00", "sahur")
	addExpense(t, db, "2026-02-18", "15.00", "iftar")
	addExpense(t, db, "2026-02-19", "12.00", "iftar")
	addExpense(t, db, "2026-02-19", "20.00", "") // non-meal spending

	// Day 2 of Ramadan 2026.
	at, _ := time.Parse("2006-01-02", "2026-02-19")
	stats, err := StatsFromLocal(context.Background(), db, "user-1", at)
	if err != nil {
		t.Fatalf("StatsFromLocal failed: %v", err)
	}

	if !stats.Active || stats.Day != 2 {
		t.Fatalf("active=%v day=%d, want active day 2", stats.Active, stats.Day)
	}
	if !stats.SahurTotal.Equal(decimal.RequireFromString("8")) {
		t.Errorf("sahur = %s, want 8", stats.SahurTotal)
	}
	if !stats.IftarTotal.Equal(decimal.RequireFromString("27")) {
		t.Errorf("iftar = %s, want 27", stats.IftarTotal)
	}
	if !stats.TotalExpenses.Equal(decimal.RequireFromString("55")) {
		t.Errorf("total = %s, want 55", stats.TotalExpenses)
	}
	// 55 over 2 days.
	if !stats.DailyAverage.Equal(decimal.RequireFromString("27.50")) {
		t.Errorf("daily average = %s, want 27.50", stats.DailyAverage)
	}
}

func TestSedekahStreak(t *testing.T) {
	db := setupTestDB(t)

	addSedekah(t, db, "2026-02-19")
	addSedekah(t, db, "2026-02-20")
	addSedekah(t, db, "2026-02-21")
	// Gap on 2026-02-18 does not matter: the streak walks back from today.

	at, _ := time.Parse("2006-01-02", "2026-02-21")
	stats, err := StatsFromLocal(context.Background(), db, "user-1", at)
	if err != nil {
		t.Fatalf("StatsFromLocal failed: %v", err)
	}
	if stats.SedekahStreak != 3 {
		t.Errorf("streak = %d, want 3", stats.SedekahStreak)
	}
}

func TestSedekahStreakBrokenByGap(t *testing.T) {
	db := setupTestDB(t)

	addSedekah(t, db, "2026-02-18")
	addSedekah(t, db, "2026-02-19")
	// Nothing on the 20th.
	addSedekah(t, db, "2026-02-21")

	at, _ := time.Parse("2006-01-02", "2026-02-21")
	stats, err := StatsFromLocal(context.Background(), db, "user-1", at)
	if err != nil {
		t.Fatalf("StatsFromLocal failed: %v", err)
	}
	if stats.SedekahStreak != 1 {
		t.Errorf("streak = %d, want 1", stats.SedekahStreak)
	}
}
