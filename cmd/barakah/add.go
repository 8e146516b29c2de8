package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/barakahspend/barakah/internal/record"
	"github.com/barakahspend/barakah/internal/ui"
)

var addCmd = &cobra.Command{
	Use:     "add",
	GroupID: "records",
	Short:   "Record an expense, sedekah, or donation",
}

var addExpenseCmd = &cobra.Command{
	Use:   "expense AMOUNT",
	Short: "Record an expense",
	Long: `Record a spending entry in the local database.

The entry is queued for sync and uploaded in the background; no network
is needed. Categories: ` + strings.Join(record.ExpenseCategories, ", ") + `.

Example usage:
  barakah add expense 12.50 --category makanan_halal --desc "nasi lemak"
  barakah add expense 50 --category simpanan --date yesterday
  barakah add expense 8 --category makanan_halal --meal sahur`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		amount := parseAmount(args[0])
		category, _ := cmd.Flags().GetString("category")
		desc, _ := cmd.Flags().GetString("desc")
		meal, _ := cmd.Flags().GetString("meal")

		payload := record.Expense{
			Amount:      amount,
			Category:    category,
			Description: desc,
			IsRamadan:   meal != "",
			RamadanMeal: meal,
		}
		saveRecord(cmd, payload)
	},
}

var addSedekahCmd = &cobra.Command{
	Use:   "sedekah AMOUNT",
	Short: "Record a sedekah",
	Long: `Record a voluntary charity entry.

Example usage:
  barakah add sedekah 10 --recipient "masjid fund"
  barakah add sedekah 5 --date "last friday"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		amount := parseAmount(args[0])
		recipient, _ := cmd.Flags().GetString("recipient")
		desc, _ := cmd.Flags().GetString("desc")

		payload := record.Sedekah{
			Amount:      amount,
			Recipient:   recipient,
			Description: desc,
		}
		saveRecord(cmd, payload)
	},
}

var addDonationCmd = &cobra.Command{
	Use:   "donation AMOUNT",
	Short: "Record a donation to an organization",
	Long: `Record a donation made to an organization.

Example usage:
  barakah add donation 100 --org org_123 --name "Ahmad" --qr QR-554`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		amount := parseAmount(args[0])
		org, _ := cmd.Flags().GetString("org")
		name, _ := cmd.Flags().GetString("name")
		category, _ := cmd.Flags().GetString("category")
		qr, _ := cmd.Flags().GetString("qr")
		desc, _ := cmd.Flags().GetString("desc")

		payload := record.Donation{
			OrganizationID: org,
			DonorName:      name,
			Amount:         amount,
			Category:       category,
			QRRef:          qr,
			Description:    desc,
		}
		saveRecord(cmd, payload)
	},
}

// saveRecord writes a record plus its queued mutation and reports the
// result.
func saveRecord(cmd *cobra.Command, payload record.Payload) {
	dateFlag, _ := cmd.Flags().GetString("date")
	date := parseDate(dateFlag)

	a := openApp()
	defer a.Close()

	rec, err := record.New(a.cfg.OwnerID, date, payload)
	if err != nil {
		fatalf("%v", err)
	}

	localID, _, err := a.db.CreateWithMutation(context.Background(), rec)
	if err != nil {
		fatalf("failed to save %s: %v", payload.Kind(), err)
	}

	fmt.Printf("%s Recorded %s #%d on %s (queued for sync)\n",
		ui.RenderPass("✓"), payload.Kind(), localID, date)
}

// parseAmount parses a positive RM amount.
func parseAmount(s string) decimal.Decimal {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		fatalf("invalid amount %q", s)
	}
	return amount
}

// parseDate resolves a --date value. Accepts YYYY-MM-DD or natural
// language ("yesterday", "last friday"); empty means today.
func parseDate(s string) string {
	if s == "" {
		return time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return s
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, time.Now())
	if err != nil || r == nil {
		fatalf("could not understand date %q", s)
	}
	return r.Time.Format("2006-01-02")
}

func init() {
	addExpenseCmd.Flags().StringP("category", "c", "makanan_halal", "Expense category")
	addExpenseCmd.Flags().String("desc", "", "Description")
	addExpenseCmd.Flags().String("meal", "", "Ramadan meal (sahur or iftar)")
	addExpenseCmd.Flags().StringP("date", "d", "", "Date (YYYY-MM-DD or natural language)")

	addSedekahCmd.Flags().String("recipient", "", "Recipient")
	addSedekahCmd.Flags().String("desc", "", "Description")
	addSedekahCmd.Flags().StringP("date", "d", "", "Date (YYYY-MM-DD or natural language)")

	addDonationCmd.Flags().String("org", "", "Organization id")
	addDonationCmd.Flags().String("name", "", "Donor name")
	addDonationCmd.Flags().String("category", "", "Donation category")
	addDonationCmd.Flags().String("qr", "", "QR payment reference")
	addDonationCmd.Flags().String("desc", "", "Description")
	addDonationCmd.Flags().StringP("date", "d", "", "Date (YYYY-MM-DD or natural language)")

	addCmd.AddCommand(addExpenseCmd)
	addCmd.AddCommand(addSedekahCmd)
	addCmd.AddCommand(addDonationCmd)
	rootCmd.AddCommand(addCmd)
}
