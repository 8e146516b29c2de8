package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/barakahspend/barakah/internal/record"
	"github.com/barakahspend/barakah/internal/ui"
	"github.com/barakahspend/barakah/internal/zakat"
)

var zakatCmd = &cobra.Command{
	Use:     "zakat",
	GroupID: "insight",
	Short:   "Calculate zakat obligation",
	Long: `Calculate zakat (2.5%) on savings and gold against the nisab
threshold. With --save the calculation is stored and queued for sync.

Example usage:
  barakah zakat --savings 35000
  barakah zakat --savings 20000 --gold 12000 --save`,
	Run: func(cmd *cobra.Command, args []string) {
		savings, _ := cmd.Flags().GetString("savings")
		gold, _ := cmd.Flags().GetString("gold")
		nisab, _ := cmd.Flags().GetString("nisab")
		save, _ := cmd.Flags().GetBool("save")

		in := zakat.Input{
			TotalSavings: parseAmountOrZero(savings),
			GoldValue:    parseAmountOrZero(gold),
		}
		threshold := zakat.DefaultNisabRM
		if nisab != "" {
			threshold = parseAmount(nisab)
		}

		result := zakat.CalculateAt(in, threshold, time.Now())

		fmt.Printf("\n%s Zakat Calculation %d\n\n", ui.RenderAccent("🌙"), result.Year)
		fmt.Printf("Total wealth: RM%s\n", result.TotalWealth.StringFixed(2))
		fmt.Printf("Nisab threshold: RM%s\n", result.NisabThreshold.StringFixed(2))
		if result.NisabEligible {
			fmt.Printf("Status: %s above nisab, zakat is due\n", ui.RenderPass("✓"))
			fmt.Printf("\nZakat due: %s\n\n", ui.RenderAccent("RM"+result.ZakatAmount.StringFixed(2)))
		} else {
			fmt.Printf("Status: %s below nisab, no zakat due this year\n\n", ui.RenderWarn("○"))
		}

		if !save {
			return
		}

		a := openApp()
		defer a.Close()

		rec, err := record.New(a.cfg.OwnerID, time.Now().Format("2006-01-02"), result.Payload(in))
		if err != nil {
			fatalf("%v", err)
		}
		localID, _, err := a.db.CreateWithMutation(context.Background(), rec)
		if err != nil {
			fatalf("failed to save zakat record: %v", err)
		}
		fmt.Printf("%s Saved zakat record #%d (queued for sync)\n", ui.RenderPass("✓"), localID)
	},
}

// parseAmountOrZero parses an optional amount flag.
func parseAmountOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return parseAmount(s)
}

func init() {
	zakatCmd.Flags().String("savings", "", "Total savings (RM)")
	zakatCmd.Flags().String("gold", "", "Gold value (RM)")
	zakatCmd.Flags().String("nisab", "", "Override the nisab threshold (RM)")
	zakatCmd.Flags().Bool("save", false, "Store the calculation and queue it for sync")
	rootCmd.AddCommand(zakatCmd)
}
