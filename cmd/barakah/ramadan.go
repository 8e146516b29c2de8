package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/barakahspend/barakah/internal/ramadan"
	"github.com/barakahspend/barakah/internal/ui"
)

var ramadanCmd = &cobra.Command{
	Use:     "ramadan",
	GroupID: "insight",
	Short:   "Show Ramadan spending and sedekah streak",
	Long: `Show Ramadan statistics for the current period: sahur and iftar
spending, daily average, and the consecutive-day sedekah streak.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		now := time.Now()
		stats, err := ramadan.StatsFromLocal(context.Background(), a.db, a.cfg.OwnerID, now)
		if err != nil {
			fatalf("failed to compute Ramadan stats: %v", err)
		}

		if !stats.Active {
			if p, ok := ramadan.PeriodFor(now.Year()); ok {
				fmt.Printf("Ramadan %d: %s to %s (not currently active)\n", now.Year(), p.Start, p.End)
			} else {
				fmt.Println("No Ramadan period on record for this year")
			}
			return
		}

		fmt.Printf("\n%s Ramadan Day %d\n\n", ui.RenderAccent("🌙"), stats.Day)
		fmt.Printf("Sahur spending: RM%s\n", stats.SahurTotal.StringFixed(2))
		fmt.Printf("Iftar spending: RM%s\n", stats.IftarTotal.StringFixed(2))
		fmt.Printf("Total spending: RM%s\n", stats.TotalExpenses.StringFixed(2))
		fmt.Printf("Daily average: RM%s\n", stats.DailyAverage.StringFixed(2))
		if stats.SedekahStreak > 0 {
			fmt.Printf("Sedekah streak: %s\n", ui.RenderPass(fmt.Sprintf("%d days", stats.SedekahStreak)))
		} else {
			fmt.Printf("Sedekah streak: %s\n", ui.RenderWarn("none yet, start today"))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(ramadanCmd)
}
