package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/barakahspend/barakah/internal/record"
	"github.com/barakahspend/barakah/internal/store"
	"github.com/barakahspend/barakah/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list [kind]",
	GroupID: "records",
	Short:   "List local records",
	Long: `List records from the local database, newest first.

Kinds: expense, sedekah, donation, zakat (default: expense).

Example usage:
  barakah list
  barakah list sedekah --from 2026-08-01 --to 2026-09-01
  barakah list expense --unsynced`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kindName := "expense"
		if len(args) > 0 {
			kindName = args[0]
		}
		kind, err := record.ParseKind(kindName)
		if err != nil {
			fatalf("%v", err)
		}

		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		unsynced, _ := cmd.Flags().GetBool("unsynced")
		limit, _ := cmd.Flags().GetInt("limit")

		a := openApp()
		defer a.Close()

		records, err := a.db.ListByOwner(context.Background(), kind, a.cfg.OwnerID, store.ListOptions{
			From:         from,
			To:           to,
			UnsyncedOnly: unsynced,
			Limit:        limit,
		})
		if err != nil {
			fatalf("failed to list %s records: %v", kind, err)
		}

		if len(records) == 0 {
			fmt.Printf("No %s records found\n", kind)
			return
		}

		fmt.Printf("\n%s %s records\n\n", ui.RenderAccent("📒"), kind)
		for _, rec := range records {
			marker := ui.RenderPass("✓")
			if !rec.Synced {
				marker = ui.RenderWarn("○")
			}
			fmt.Printf("%s #%-4d %s  %s\n", marker, rec.LocalID, rec.Date, describe(rec))
		}
		fmt.Printf("\n%d records (%s synced, %s pending upload)\n",
			len(records), ui.RenderPass("✓"), ui.RenderWarn("○"))
	},
}

// describe renders a one-line summary of a record's payload.
func describe(rec *record.Record) string {
	switch p := rec.Payload.(type) {
	case record.Expense:
		s := fmt.Sprintf("RM%s  %s", p.Amount.StringFixed(2), p.Category)
		if p.Description != "" {
			s += "  " + ui.RenderFaint(p.Description)
		}
		if p.RamadanMeal != "" {
			s += "  " + ui.RenderFaint("("+p.RamadanMeal+")")
		}
		return s
	case record.Sedekah:
		s := fmt.Sprintf("RM%s", p.Amount.StringFixed(2))
		if p.Recipient != "" {
			s += "  " + p.Recipient
		}
		return s
	case record.Donation:
		return fmt.Sprintf("RM%s  to %s", p.Amount.StringFixed(2), p.OrganizationID)
	case record.ZakatRecord:
		return fmt.Sprintf("RM%s  year %d", p.ZakatAmount.StringFixed(2), p.Year)
	default:
		return fmt.Sprintf("%v", rec.Payload)
	}
}

func init() {
	listCmd.Flags().String("from", "", "Start date (inclusive, YYYY-MM-DD)")
	listCmd.Flags().String("to", "", "End date (exclusive, YYYY-MM-DD)")
	listCmd.Flags().Bool("unsynced", false, "Only records not yet uploaded")
	listCmd.Flags().IntP("limit", "n", 0, "Maximum records to show")
	rootCmd.AddCommand(listCmd)
}
