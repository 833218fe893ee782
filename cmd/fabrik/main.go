package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fentz26/fabrik/internal/controlplane"
)

var rootCmd = &cobra.Command{
	Use:   "fabrik",
	Short: "fabrik - production workflow simulator",
	Long: `fabrik simulates a small production line: workers with limited energy
work through the dependent tasks of a product, tick by tick, and every
finished product is replaced by a fresh one.`,
	SilenceUsage: true,
	// No RunE - defaults to showing help when no subcommand is provided
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fabrik version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(controlplane.Version)
	},
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7466", "API server address")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(totalsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
