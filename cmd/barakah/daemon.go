package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/barakahspend/barakah/internal/config"
	"github.com/barakahspend/barakah/internal/connectivity"
	"github.com/barakahspend/barakah/internal/dashboard"
	"github.com/barakahspend/barakah/internal/engine"
	"github.com/barakahspend/barakah/internal/remote"
	"github.com/barakahspend/barakah/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run continuous background sync (foreground)",
	Long: `Run the sync daemon in foreground mode.

The daemon probes the backend for reachability, drains the mutation
queue whenever it comes back online or on a fixed interval, and
periodically pulls the owner's authoritative records into the local
database. With --dashboard it also serves a WebSocket dashboard that
broadcasts drain results, pull results, and connectivity transitions.

Example usage:
  barakah daemon
  barakah daemon --dashboard --port 9000`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		if a.cfg.Backend.URL == "" {
			fatalf("backend.url is not configured\nSet it in %s/barakah.yaml or BARAKAH_BACKEND_URL", config.Dir())
		}

		adapter, err := remote.NewHTTPAdapter(remote.HTTPConfig{
			BaseURL: a.cfg.Backend.URL,
			APIKey:  a.cfg.Backend.APIKey,
			Token:   a.cfg.Backend.Token,
			Timeout: a.cfg.Backend.Timeout,
		})
		if err != nil {
			fatalf("%v", err)
		}

		logWriter := a.cfg.Log.Writer()

		proberCfg := connectivity.DefaultProberConfig(a.cfg.Sync.ProbeURL)
		proberCfg.Interval = a.cfg.Sync.ProbeInterval
		proberCfg.Logger = config.NewLogger(logWriter, "connectivity")
		prober := connectivity.NewProber(proberCfg)

		engCfg := engine.DefaultConfig(a.cfg.OwnerID)
		engCfg.DrainInterval = a.cfg.Sync.DrainInterval
		engCfg.PullInterval = a.cfg.Sync.PullInterval
		engCfg.RetryCeiling = a.cfg.Sync.RetryCeiling
		engCfg.BackoffBase = a.cfg.Sync.BackoffBase
		engCfg.Logger = config.NewLogger(logWriter, "engine")

		withDashboard, _ := cmd.Flags().GetBool("dashboard")
		port, _ := cmd.Flags().GetInt("port")

		var server *dashboard.Server
		if withDashboard || a.cfg.Dashboard.Enabled {
			if port == 0 {
				port = a.cfg.Dashboard.Port
			}
			server = dashboard.NewServer(&dashboard.Config{
				Port:   port,
				Stats:  dashboard.QueueStats(a.queue, prober.IsReachable),
				Logger: config.NewLogger(logWriter, "dashboard"),
			})
			engCfg.OnEvent = server.Broadcast

			if err := server.Start(); err != nil {
				fatalf("failed to start dashboard: %v", err)
			}
			fmt.Printf("%s Dashboard: http://localhost:%d (ws://localhost:%d/ws)\n",
				ui.RenderAccent("📊"), port, port)
		}

		eng := engine.New(a.db, a.queue, adapter, prober, engCfg)

		// React to config file edits without a restart: retry settings
		// apply on the next drain pass; everything else needs a restart.
		cfgLogger := config.NewLogger(logWriter, "config")
		if _, err := config.Watch(config.Dir(), func(next *config.Config) {
			eng.SetRetryPolicy(next.Sync.RetryCeiling, next.Sync.BackoffBase)
			cfgLogger.Printf("Config reloaded: retry_ceiling=%d backoff_base=%v (other changes apply on restart)",
				next.Sync.RetryCeiling, next.Sync.BackoffBase)
		}); err != nil {
			cfgLogger.Printf("Config watch unavailable: %v", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		prober.Start(ctx)
		eng.Start(ctx)

		fmt.Printf("%s Sync daemon started\n", ui.RenderAccent("🚀"))
		fmt.Printf("   Owner: %s\n", a.cfg.OwnerID)
		fmt.Printf("   Database: %s\n", a.db.Path())
		fmt.Printf("   Backend: %s\n", a.cfg.Backend.URL)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		<-ctx.Done()

		fmt.Println("\nShutting down...")
		eng.Stop()
		prober.Stop()
		if server != nil {
			if err := server.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "%s dashboard shutdown: %v\n", ui.RenderWarn("Warning:"), err)
			}
		}
		fmt.Println("Sync daemon stopped")
	},
}

func init() {
	daemonCmd.Flags().Bool("dashboard", false, "Serve the WebSocket dashboard")
	daemonCmd.Flags().IntP("port", "p", 0, "Dashboard port (default from config)")
	rootCmd.AddCommand(daemonCmd)
}
