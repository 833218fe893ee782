package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/fabrik/internal/models"
	"github.com/fentz26/fabrik/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage assignment plans",
}

var planValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a plan file and print its task order",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanValidate,
}

var planInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write the built-in bottle cork plan to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanInit,
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the plan the daemon is running",
	RunE:  runPlanShow,
}

var planExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Save the daemon's plan to a file, format chosen by extension",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanExport,
}

var planImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Validate a plan file and store it in the daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanImport,
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored plans",
	RunE:  runPlanList,
}

var planGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print a stored plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanGet,
}

var planFormat string

func init() {
	planCmd.AddCommand(planValidateCmd, planInitCmd, planShowCmd, planExportCmd, planImportCmd, planListCmd, planGetCmd)

	planShowCmd.Flags().StringVar(&planFormat, "format", "yaml", "Output format (yaml, json, toml)")
}

func runPlanValidate(cmd *cobra.Command, args []string) error {
	p, err := plan.Load(args[0])
	if err != nil {
		return err
	}
	order, err := p.Order()
	if err != nil {
		return err
	}

	fmt.Printf("Plan %q is valid: %s, %d tasks, %d workers, margin %.2f\n",
		p.Name, p.Product, len(p.Tasks), len(p.Workers), p.EffectiveMargin())
	fmt.Printf("Task order: %s\n", strings.Join(order, " -> "))
	return nil
}

func runPlanInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err == nil {
		return fmt.Errorf("%s already exists", args[0])
	}
	if err := plan.Save(args[0], plan.Default()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", args[0])
	return nil
}

func runPlanShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/plan?format=" + planFormat)
	if err != nil {
		return err
	}
	fmt.Print(string(resp))
	return nil
}

func runPlanExport(cmd *cobra.Command, args []string) error {
	format, err := plan.FormatForPath(args[0])
	if err != nil {
		return err
	}
	resp, err := apiGet("/plan?format=" + string(format))
	if err != nil {
		return err
	}
	// Round trip through the codec so the file is known to load again.
	p, err := plan.Decode(resp, format)
	if err != nil {
		return err
	}
	if err := plan.Save(args[0], p); err != nil {
		return err
	}
	fmt.Printf("Exported %s to %s\n", p.Name, args[0])
	return nil
}

func runPlanImport(cmd *cobra.Command, args []string) error {
	format, err := plan.FormatForPath(args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading plan file: %w", err)
	}
	// Catch mistakes locally before the daemon sees them
	if _, err := plan.Decode(data, format); err != nil {
		return err
	}

	resp, err := apiPostRaw("/plans?format="+string(format), "text/plain", bytes.NewReader(data))
	if err != nil {
		return err
	}

	var stored models.StoredPlan
	if err := json.Unmarshal(resp, &stored); err != nil {
		return err
	}
	fmt.Printf("Stored plan %s (%s)\n", stored.Name, stored.Format)
	return nil
}

func runPlanList(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/plans")
	if err != nil {
		return err
	}

	var plans []models.StoredPlan
	if err := json.Unmarshal(resp, &plans); err != nil {
		return err
	}

	if len(plans) == 0 {
		fmt.Println("No plans stored")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tFORMAT\tUPDATED")
	for _, p := range plans {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Format, p.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	w.Flush()
	return nil
}

func runPlanGet(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/plans/" + args[0])
	if err != nil {
		return err
	}

	var stored models.StoredPlan
	if err := json.Unmarshal(resp, &stored); err != nil {
		return err
	}
	fmt.Print(stored.Body)
	if !strings.HasSuffix(stored.Body, "\n") {
		fmt.Println()
	}
	return nil
}
