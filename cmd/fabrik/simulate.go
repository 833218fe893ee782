package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/fabrik/internal/console"
	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/plan"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a plan for a number of ticks without the daemon",
	Long: `Runs the workflow in the foreground as fast as possible, narrating every
tick, and prints the totals. Nothing is persisted.`,
	RunE: runSimulate,
}

var (
	simulateTicks uint64
	simulatePlan  string
	simulateQuiet bool
)

func init() {
	simulateCmd.Flags().Uint64Var(&simulateTicks, "ticks", 30, "Number of ticks to run")
	simulateCmd.Flags().StringVar(&simulatePlan, "plan", "", "Plan file (.yaml, .json or .toml); empty runs the bottle cork plan")
	simulateCmd.Flags().BoolVar(&simulateQuiet, "quiet", false, "Only print the totals")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	p := plan.Default()
	if simulatePlan != "" {
		loaded, err := plan.Load(simulatePlan)
		if err != nil {
			return err
		}
		p = loaded
	}

	var opts []engine.Option
	if !simulateQuiet {
		opts = append(opts, engine.WithEventSink(console.New(os.Stdout, console.WithTickHeaders())))
	}
	wf, err := engine.New(p, opts...)
	if err != nil {
		return err
	}

	var faults int
	for i := uint64(0); i < simulateTicks; i++ {
		res, err := wf.Tick()
		if err != nil {
			return fmt.Errorf("tick %d: %w", i+1, err)
		}
		faults += len(res.Faults)
	}

	totals := wf.Totals()
	fmt.Printf("\n%d ticks: %d %s finished, cost %.2f, profit %.2f",
		simulateTicks, totals.Completed, p.Product, totals.Cost, totals.Profit)
	if faults > 0 {
		fmt.Printf(", %d faults", faults)
	}
	fmt.Println()
	return nil
}
