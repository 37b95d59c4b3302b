package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghalamif/streamwindow"
)

// Set by the linker at release time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "streamwindow",
	Short:         "Plot a live sliding window of device notifications.",
	Long:          `streamwindow ingests notifications from a device, keeps a time or count bounded window and publishes snapshots to renderers.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the runtime using the provided config",
	Example: `  streamwindow run --config ./data/config.yaml
  streamwindow run --terminal --interactive`,
	RunE: runCommand,
}

var validateCmd = &cobra.Command{
	Use:     "validate",
	Short:   "Load and validate a config file without starting the runtime",
	Example: `  streamwindow validate --config ./data/config.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		if _, err := streamwindow.LoadConfig(path); err != nil {
			return err
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good ✅\n", path)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(statsCmd)

	runCmd.Flags().String("config", "./data/config.yaml", "Path to configuration file (empty = built-in simulator defaults)")
	runCmd.Flags().Bool("terminal", false, "Draw every snapshot in the terminal")
	runCmd.Flags().Bool("interactive", false, "Read control bytes (00, 01, q) from stdin")
	runCmd.Flags().String("http", "", "Override http.addr")

	validateCmd.Flags().String("config", "./data/config.yaml", "Path to configuration file to validate")

	for _, c := range []*cobra.Command{watchCmd, controlCmd, statsCmd} {
		c.Flags().String("url", "http://localhost:8080", "Base URL of a running streamwindow")
	}
	watchCmd.Flags().Duration("interval", defaultWatchInterval, "Refresh interval")
	watchCmd.Flags().String("label", "value", "Series label")
	statsCmd.Flags().Duration("interval", defaultStatsInterval, "Refresh interval")
}

func runCommand(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	terminalOn, _ := cmd.Flags().GetBool("terminal")
	interactive, _ := cmd.Flags().GetBool("interactive")
	httpAddr, _ := cmd.Flags().GetString("http")

	cfg := streamwindow.DefaultConfig()
	if path != "" {
		loaded, err := streamwindow.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if terminalOn {
		cfg.Render.Terminal = true
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := streamwindow.NewRuntime(cfg)
	if err != nil {
		return err
	}

	if interactive {
		runCtx, quit := context.WithCancel(ctx)
		defer quit()
		go func() {
			defer quit()
			if err := runConsole(runCtx, os.Stdin, cmd.OutOrStdout(), rt.SendControl); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "console: %v\n", err)
			}
		}()
		ctx = runCtx
	}

	return rt.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "streamwindow: %v\n", err)
		os.Exit(1)
	}
}
