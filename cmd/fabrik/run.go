package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/fabrik/internal/audit"
	"github.com/fentz26/fabrik/internal/config"
	"github.com/fentz26/fabrik/internal/console"
	"github.com/fentz26/fabrik/internal/controlplane"
	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/scheduler"
	"github.com/fentz26/fabrik/internal/store"
)

var (
	configPath  string
	listenAddr  string
	dbPath      string
	planPath    string
	consoleLog  bool
	tickHeaders bool
	interval    time.Duration
	maxTicks    uint64
	startPaused bool
)

var runCmd = &cobra.Command{
	Use:     "run",
	Aliases: []string{"daemon"},
	Short:   "Run the production workflow and its API",
	Long: `Starts the tick driver for the configured plan and serves the HTTP API.
Flags override values from the config file.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", config.HomePath(), "Path to the config file")
	runCmd.Flags().StringVar(&listenAddr, "listen", config.DefaultListen, "Listen address for the API server")
	runCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (default ~/.fabrik/fabrik.db)")
	runCmd.Flags().StringVar(&planPath, "plan", "", "Plan file (.yaml, .json or .toml); empty runs the bottle cork plan")
	runCmd.Flags().BoolVar(&consoleLog, "console", false, "Narrate every tick to stdout")
	runCmd.Flags().BoolVar(&tickHeaders, "tick-headers", false, "Print a separator before each tick's narration")
	runCmd.Flags().DurationVar(&interval, "interval", time.Second, "Time between ticks")
	runCmd.Flags().Uint64Var(&maxTicks, "max-ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	runCmd.Flags().BoolVar(&startPaused, "paused", false, "Start with the tick driver paused")
}

// loadRunConfig reads the config file and applies explicitly set flags.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = listenAddr
	}
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("plan") {
		cfg.PlanPath = planPath
	}
	if flags.Changed("console") {
		cfg.Console = consoleLog
	}
	if flags.Changed("interval") {
		cfg.Scheduler.Interval = interval
	}
	if flags.Changed("max-ticks") {
		cfg.Scheduler.MaxTicks = maxTicks
	}
	if flags.Changed("paused") {
		cfg.Scheduler.StartPaused = startPaused
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	p, err := cfg.LoadPlan()
	if err != nil {
		return fmt.Errorf("loading plan: %w", err)
	}

	log.Printf("Starting fabrik with plan %q...", p.Name)

	// Initialize store
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing database connection...")
		if err := s.Close(); err != nil {
			log.Printf("Database close error: %v", err)
		}
	}()

	// Resume the plan's counters from earlier runs
	opts := []engine.Option{}
	persisted, err := s.GetTotals(p.Name)
	if err != nil {
		return err
	}
	if persisted != nil {
		opts = append(opts, engine.WithTotals(engine.Totals{
			Completed: persisted.Completed,
			Cost:      persisted.Cost,
			Profit:    persisted.Profit,
		}))
		log.Printf("Resuming %s at %d completed products", p.Name, persisted.Completed)
	}
	if cfg.Console {
		var sinkOpts []console.Option
		if tickHeaders {
			sinkOpts = append(sinkOpts, console.WithTickHeaders())
		}
		opts = append(opts, engine.WithEventSink(console.New(os.Stdout, sinkOpts...)))
	}

	wf, err := engine.New(p, opts...)
	if err != nil {
		return err
	}

	// Initialize components
	pdr := audit.NewPDRWriter(s)
	sched := scheduler.New(wf, s, pdr, &cfg.Scheduler)

	// Create service and server
	service := controlplane.NewService(sched, s, pdr)
	server := controlplane.NewServer(service, s, cfg.Listen)

	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal, server error or the driver finishing
	var runErr error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			runErr = err
		}
	case <-sched.Done():
		if err := sched.Err(); err != nil {
			log.Printf("Workflow stopped: %v", err)
			runErr = err
		} else {
			log.Printf("Workflow finished after %d ticks", sched.Snapshot().Tick)
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	totals := sched.Snapshot().Totals
	log.Printf("Shutdown complete: %d products, cost %.2f, profit %.2f", totals.Completed, totals.Cost, totals.Profit)
	return runErr
}
