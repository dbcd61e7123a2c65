package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mouse-blink/evoprobe/internal/domain"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

var outputFlag string
var overlayFlag string
var reportsFlag string
var parallelFlag int
var watchFlag bool

// instrumentCmd represents the instrument command.
var instrumentCmd = newInstrumentCmd()

const instrumentLongDescription = `Instrument the packages matching the given patterns (default ./...).

Packages whose import path lies under a configured prefix are rewritten into
the output directory, and an overlay mapping every original file to its
instrumented copy is written for:

  go build -overlay=<overlay> ./...

Artifacts are cached by source hash and level; unchanged files are reused.
With --watch, changed sources are re-instrumented until interrupted.`

func newInstrumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instrument [patterns...]",
		Short: "Instrument packages and write a build overlay",
		Long:  instrumentLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("output") {
				cfg.Output = outputFlag
			}

			if flags.Changed("overlay") {
				cfg.Overlay = overlayFlag
			}

			if flags.Changed("reports") {
				cfg.Reports = reportsFlag
			}

			if flags.Changed("parallel") {
				cfg.Parallelism = parallelFlag
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return workflow.Instrument(ctx, domain.InstrumentArgs{
				ListArgs: domain.ListArgs{
					Patterns: parsePatterns(args),
					Prefixes: cfg.Prefixes,
					Level:    cfg.Level,
				},
				Output:      m.Path(cfg.Output),
				Overlay:     m.Path(cfg.Overlay),
				Reports:     m.Path(cfg.Reports),
				Parallelism: cfg.Parallelism,
				Watch:       watchFlag,
			})
		},
	}
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "directory receiving instrumented files")
	cmd.Flags().StringVar(&overlayFlag, "overlay", "", "path of the go build overlay file")
	cmd.Flags().StringVar(&reportsFlag, "reports", "", "directory receiving the objectives report")
	cmd.Flags().IntVarP(&parallelFlag, "parallel", "j", 0, "number of files instrumented at once (default GOMAXPROCS)")
	cmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "re-instrument changed sources until interrupted")

	return cmd
}

func init() {
	rootCmd.AddCommand(instrumentCmd)
}
