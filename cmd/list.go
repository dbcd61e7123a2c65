package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mouse-blink/evoprobe/internal/domain"
)

// listCmd represents the list command.
var listCmd = newListCmd()

const listLongDescription = `List the objectives the packages matching the given patterns (default ./...)
would register at the configured level. Nothing is written.`

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [patterns...]",
		Short: "List objectives without writing artifacts",
		Long:  listLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			return workflow.List(cmd.Context(), domain.ListArgs{
				Patterns: parsePatterns(args),
				Prefixes: cfg.Prefixes,
				Level:    cfg.Level,
			})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
