package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/fabrik/internal/controlplane"
	"github.com/fentz26/fabrik/internal/engine"
	"github.com/fentz26/fabrik/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active product and workers",
	RunE:  runStatus,
}

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Show production totals",
	RunE:  runTotals,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit trail",
	RunE:  runAudit,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Suspend the tick driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := apiPost("/pause", nil); err != nil {
			return err
		}
		fmt.Println("Workflow paused")
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue the tick driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := apiPost("/resume", nil); err != nil {
			return err
		}
		fmt.Println("Workflow resumed")
		return nil
	},
}

var (
	auditLimit int
	statusJSON bool
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw snapshot")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "Number of entries to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/status")
	if err != nil {
		return err
	}
	if statusJSON {
		fmt.Println(string(resp))
		return nil
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(resp, &snap); err != nil {
		return err
	}

	health, _ := CheckHealth()
	driver := "unknown"
	if health != nil {
		driver = health.Driver
	}

	p := snap.Product
	fmt.Printf("Plan:     %s (run %s)\n", snap.Plan, truncateID(snap.RunID))
	fmt.Printf("Driver:   %s at tick %d\n", driver, snap.Tick)
	fmt.Printf("Product:  %s #%d, %.2f%% complete\n", p.Name, p.Serial, p.Completion*100)
	fmt.Printf("Cost:     %.2f (profit %.2f)\n\n", p.Cost, p.Profit)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tPROGRESS\tSTATUS\tDEPENDS ON")
	for _, t := range p.Tasks {
		status := "waiting"
		if t.Complete {
			status = "complete"
		} else if t.Eligible {
			status = "ready"
		}
		fmt.Fprintf(w, "%s\t%.2f%%\t%s\t%s\n", t.Name, t.Completion*100, status, strings.Join(t.DependsOn, ", "))
	}
	w.Flush()
	fmt.Println()

	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKER\tSTATE\tENERGY\tCURRENT\tQUEUE")
	for _, wk := range snap.Workers {
		state := string(wk.State)
		if wk.RestTimer >= 0 {
			state = fmt.Sprintf("%s (%d)", state, wk.RestTimer)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\n", wk.Name, state, wk.Energy, wk.CurrentTask, strings.Join(wk.Queue, " > "))
	}
	w.Flush()

	if last := snap.LastArchived; last != nil {
		fmt.Printf("\nLast finished: %s #%d at tick %d (cost %.2f, profit %.2f)\n",
			last.Name, last.Serial, last.Tick, last.Cost, last.Profit)
	}
	return nil
}

func runTotals(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/totals")
	if err != nil {
		return err
	}

	var totals controlplane.TotalsResponse
	if err := json.Unmarshal(resp, &totals); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAN\tCOMPLETED\tCOST\tPROFIT\tSOURCE")
	fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\tlive\n", totals.Plan, totals.Live.Completed, totals.Live.Cost, totals.Live.Profit)
	for _, t := range totals.Persisted {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\tstored\n", t.Plan, t.Completed, t.Cost, t.Profit)
	}
	w.Flush()
	return nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	resp, err := apiGet(fmt.Sprintf("/audit?limit=%d", auditLimit))
	if err != nil {
		return err
	}

	var entries []models.PDREntry
	if err := json.Unmarshal(resp, &entries); err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No audit entries found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tRUN\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Action, e.Outcome, truncateID(e.RunID), truncate(e.Details, 60))
	}
	w.Flush()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
