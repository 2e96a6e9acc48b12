// Package main provides the entry point for the glint CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/glint/internal/app"
	"github.com/five82/glint/internal/config"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

type globalFlags struct {
	configPath string
	prefsPath  string
	searchFile string
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "glint: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "glint",
		Short: "Follow a log file and show where patterns match",
		Long: `glint searches a log file with ripgrep and draws a density map of the
matches for every pattern, updating as the file grows.

Commands:
  view      Follow a file in the terminal UI
  scan      Inspect a file once and print per-pattern totals`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.StringVar(&g.prefsPath, "prefs", "", "preferences file (default ~/.config/glint/prefs.toml)")
	pf.StringVar(&g.searchFile, "search-file", "", "file to search instead of the stream file (same line layout)")
	pf.String("rg", "", "path of the rg binary")
	pf.Bool("pcre2", true, "use ripgrep's PCRE2 engine (--pcre2=false for the default engine)")
	pf.Duration("timeout", 0, "per-pattern search timeout (0 disables)")
	pf.Int("factor", config.DefaultFactor, "number of bins per heat strip")
	pf.Bool("details", false, "count every match per bin instead of the first")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-file", "", "write diagnostic logs to this file")

	root.AddCommand(newViewCmd(&g), newScanCmd(&g), newVersionCmd())
	return root
}

func newViewCmd(g *globalFlags) *cobra.Command {
	var patterns []string
	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Follow a file in the terminal UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: g.configPath,
				PrefsPath:  g.prefsPath,
				StreamFile: args[0],
				SearchFile: g.searchFile,
				Patterns:   patterns,
				Flags:      cmd.Flags(),
			})
		},
	}
	cmd.Flags().StringArrayVarP(&patterns, "regexp", "e", nil, "pattern to show (repeatable; /re/i for case-insensitive)")
	return cmd
}

func newScanCmd(g *globalFlags) *cobra.Command {
	var (
		patterns []string
		bins     bool
	)
	cmd := &cobra.Command{
		Use:   "scan <file> -e PATTERN...",
		Short: "Inspect a file once and print per-pattern totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Scan(cmd.Context(), app.Options{
				ConfigPath: g.configPath,
				StreamFile: args[0],
				SearchFile: g.searchFile,
				Patterns:   patterns,
				Flags:      cmd.Flags(),
				Out:        cmd.OutOrStdout(),
				Bins:       bins,
			})
		},
	}
	cmd.Flags().StringArrayVarP(&patterns, "regexp", "e", nil, "pattern to count (repeatable; /re/i for case-insensitive)")
	cmd.Flags().BoolVar(&bins, "bins", false, "also print per-bin counts")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "glint %s\n", version)
		},
	}
}
