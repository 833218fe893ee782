package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/fabrik/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive dashboard",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	// 1. Check if the daemon is running
	if !isDaemonRunning(apiAddr) {
		fmt.Println("fabrik daemon not running. Starting background service...")
		if err := startDaemon(); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}
	}

	// 2. Launch TUI
	app := tui.New(apiAddr)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isDaemonRunning(addr string) bool {
	client := http.Client{Timeout: 500 * time.Millisecond}
	resp, err := client.Get(addr + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return true
}

func startDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	// Start "fabrik run" in background, listening where --api points
	listen := strings.TrimPrefix(strings.TrimPrefix(apiAddr, "http://"), "https://")
	cmd := exec.Command(exe, "run", "--listen", listen)
	// Detach process so it survives TUI exit
	configureDaemonProc(cmd)

	// Keep daemon output off the dashboard
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	// Wait for it to become ready
	fmt.Print("   Waiting for daemon...")
	for i := 0; i < 20; i++ { // Wait up to 5 seconds
		if isDaemonRunning(apiAddr) {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("daemon started but API not reachable at %s", apiAddr)
}
