// Package cmd provides the root command and CLI setup for evoprobe.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mouse-blink/evoprobe/internal/adapter"
	"github.com/mouse-blink/evoprobe/internal/config"
	"github.com/mouse-blink/evoprobe/internal/controller"
	"github.com/mouse-blink/evoprobe/internal/domain"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

var logLevel = new(slog.LevelVar)
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

var goFileAdapter adapter.GoFileAdapter
var fsAdapter adapter.SourceFSAdapter
var packageAdapter adapter.PackageAdapter
var reportStore adapter.ReportStore
var workflow domain.Workflow
var ui controller.UI

func init() {
	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	goFileAdapter = adapter.NewLocalGoFileAdapter()
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	packageAdapter = adapter.NewGoPackagesAdapter(".", fsAdapter, goFileAdapter)
	reportStore = adapter.NewReportStore()
	workflow = domain.NewWorkflow(
		fsAdapter,
		goFileAdapter,
		packageAdapter,
		reportStore,
		ui,
		logger,
	)
}

var configFlag string
var envFileFlag string
var logLevelFlag string
var prefixFlags []string
var levelFlag string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evoprobe",
		Short: "Go instrumentation for search-based test generation",
		Long: `evoprobe rewrites Go packages so that running them reports which files,
lines and statements were executed and how close every comparison came to
taking each of its branches. A search-based test generator uses these
objectives and distances as fitness.

Instrumentation levels:
  0 none        sources are left untouched
  1 coverage    file, line and statement objectives
  2 comparison  adds branch distances for comparisons and negations
  3 boolean     adds branch distances for && and ||`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (default "+config.DefaultFile+" if present)")
	cmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "dotenv file to load (default .env if present)")
	cmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn or error")
	cmd.PersistentFlags().StringSliceVarP(&prefixFlags, "prefix", "p", nil, "import path prefix to instrument (default: module path of go.mod)")
	cmd.PersistentFlags().StringVarP(&levelFlag, "level", "l", "", "instrumentation level: 0-3 or none, coverage, comparison, boolean")

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// resolveConfig merges config file, environment and flags, in increasing
// precedence, and applies the resulting log level.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configFlag, envFileFlag)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()

	if flags.Changed("prefix") {
		cfg.Prefixes = prefixFlags
	}

	if flags.Changed("level") {
		level, err := config.ParseLevel(levelFlag)
		if err != nil {
			return config.Config{}, err
		}

		cfg.Level = level
	}

	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}

	if err := cfg.ResolvePrefixes(fsAdapter, m.Path(".")); err != nil {
		return config.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return config.Config{}, err
	}

	logLevel.Set(level)

	return cfg, nil
}

func parsePatterns(args []string) []string {
	if len(args) == 0 {
		return []string{"./..."}
	}

	return args
}
