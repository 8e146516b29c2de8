// Command barakah is an offline-first personal finance tracker with
// background sync to a remote backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/barakahspend/barakah/internal/config"
	"github.com/barakahspend/barakah/internal/queue"
	"github.com/barakahspend/barakah/internal/store"
	"github.com/barakahspend/barakah/internal/ui"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "barakah",
	Short: "Offline-first Islamic personal finance tracker",
	Long: `barakah tracks expenses, sedekah, donations, and zakat on this device
and syncs them to a remote backend in the background.

Every write lands in the local database first and is queued as a
mutation; the sync daemon drains the queue whenever the backend is
reachable. The app is fully usable offline.`,
	Version: version,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Record commands:"},
		&cobra.Group{ID: "sync", Title: "Sync commands:"},
		&cobra.Group{ID: "insight", Title: "Insight commands:"},
	)
}

// app bundles the handles every command needs.
type app struct {
	cfg   *config.Config
	db    *store.DB
	queue *queue.Queue
}

// fatalf prints a styled error to stderr and exits.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("Error:"), fmt.Sprintf(format, args...))
	os.Exit(1)
}

// openApp loads config and opens the local database. Callers must Close.
func openApp() *app {
	cfg, err := config.Load()
	if err != nil {
		fatalf("failed to load config: %v", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		fatalf("failed to open database: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		fatalf("failed to initialize schema: %v", err)
	}

	return &app{cfg: cfg, db: db, queue: queue.New(db.RawDB())}
}

// Close releases the app's database handle.
func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed to close database: %v\n", ui.RenderWarn("Warning:"), err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
