// Taskloom: work-tracking MCP server with dependency analytics.
//
// Work items and their dependencies live as JSON documents on disk,
// mirrored into a SQLite graph index that powers bottleneck, parallel
// work, recommendation, risk and impact analysis. Any MCP-capable AI
// tool can act as the client over stdio.
//
// Usage:
//
//	taskloom serve     # Start MCP server (stdio transport)
//	taskloom rebuild   # Rebuild the graph index from stored items
//	taskloom update    # Update to the latest version
package main

import (
	"context"
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/taskloom/taskloom/internal/config"
	"github.com/taskloom/taskloom/internal/index"
	"github.com/taskloom/taskloom/internal/server"
	"github.com/taskloom/taskloom/internal/store"
	"github.com/taskloom/taskloom/internal/updater"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "taskloom",
		Short: "Work-tracking MCP server with dependency analytics",
		Long: `Taskloom tracks work items and their dependencies and answers
planning questions over the resulting graph: bottlenecks, parallel
work, recommendations, risks and impact.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		RunE:  runServe,
	}

	rebuildCmd = &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the graph index from the stored work items",
		RunE:  runRebuild,
	}

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Update taskloom to the latest release",
		RunE:  runUpdate,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the taskloom version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("taskloom v%s\n", server.Version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config file (default: <data dir>/config.yaml)")
	rootCmd.AddCommand(serveCmd, rebuildCmd, updateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	s, cleanup, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	return mcpserver.ServeStdio(s)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fs, err := store.New(cfg.ItemsPath())
	if err != nil {
		return fmt.Errorf("opening work-item store: %w", err)
	}
	ix, err := index.Open(cfg.IndexPath())
	if err != nil {
		return fmt.Errorf("opening graph index: %w", err)
	}
	defer func() { _ = ix.Close() }()

	ctx := context.Background()
	if err := ix.Rebuild(ctx, fs); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	stats, err := ix.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading index stats: %w", err)
	}
	fmt.Printf("Rebuilt index: %d items, %d blocks edges, %d parent_of edges\n",
		stats.TotalItems, stats.BlockEdges, stats.ParentEdges)
	return nil
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. Best-effort: network failures
// are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(server.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s -> v%s\n"+
				"  Run: taskloom update\n"+
				"  Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(os.Stderr, "Checking for updates...")

	result := updater.CheckVersion(server.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return nil
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s -> v%s\nDownloading...\n",
		result.CurrentVersion, result.LatestVersion)

	if err := updater.SelfUpdate(server.Version); err != nil {
		fmt.Fprintf(os.Stderr, "You can download manually from:\n  %s\n", result.ReleaseURL)
		return fmt.Errorf("update failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s. Restart taskloom to use the new version.\n",
		result.LatestVersion)
	return nil
}
