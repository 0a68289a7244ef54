package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"squirrel-go/internal/app"
	"squirrel-go/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it is missing.
func loadConfig() (*config.Config, app.Paths, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, app.Paths{}, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(paths.ConfigFile, paths.DataDir)
	if err != nil {
		return nil, app.Paths{}, fmt.Errorf("reading config: %w", err)
	}
	return cfg, paths, nil
}

// newApp reads the config and creates an App for the --root flag.
// The caller must defer app.Close().
func newApp(cmd *cobra.Command, operation string) (*app.App, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	root, _ := cmd.Flags().GetString("root")
	a, err := app.NewApp(cfg, root, operation, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var rootCmd = &cobra.Command{
	Use:   "squirrel",
	Short: "Keep a journal and snapshots of every change in a directory tree",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch a directory and journal every change until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, app.OpWatch)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", a.Root())
		if err := a.Run(ctx); err != nil {
			return fmt.Errorf("watching %s: %w", a.Root(), err)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show GLOB",
	Short: "Show the recorded history of files matching GLOB, newest first",
	Long: `Show the recorded history of files matching GLOB, newest first.

A pattern without a slash matches file names anywhere in the tree;
a pattern with a slash matches paths relative to the watched root.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, app.OpShow)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		header, _ := cmd.Flags().GetBool("header")
		if !cmd.Flags().Changed("header") {
			header = isTerminal(out)
		}

		if _, err := a.ShowHistory(out, args[0], header); err != nil {
			return fmt.Errorf("showing history: %w", err)
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(paths.DataDir)
		if err := config.Init(paths.ConfigFile, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", paths.ConfigFile)
		fmt.Fprintf(cmd.OutOrStdout(), "Log Dir: %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, paths, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration from %s:\n\n", paths.ConfigFile)
		fmt.Fprintf(out, "Stash Dir:    %s\n", cfg.StashDir)
		fmt.Fprintf(out, "Journal:      %s %s\n", cfg.Journal.Type, cfg.Journal.File)
		fmt.Fprintf(out, "Stash:        %s\n", cfg.Stash.Type)
		fmt.Fprintf(out, "Debounce:     %s\n", cfg.Watch.Debounce)
		fmt.Fprintf(out, "Log Dir:      %s\n", cfg.LogDir)
		fmt.Fprintf(out, "Log Level:    %s\n", cfg.LogLevel)
		for _, pattern := range cfg.Filesystem.Ignore {
			fmt.Fprintf(out, "Ignore:       %s\n", pattern)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringP("root", "r", ".", "Directory to watch")
	showCmd.Flags().StringP("root", "r", ".", "Watched directory whose history to show")
	showCmd.Flags().Bool("header", false, "Print a header row (default: only when stdout is a terminal)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)
}
