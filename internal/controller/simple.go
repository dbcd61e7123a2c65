package controller

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mouse-blink/evoprobe/internal/domain/naming"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

var titles = map[StartMode]string{
	ModeInstrument: "Instrumenting",
	ModeList:       "Objectives",
	ModeWatch:      "Watching",
}

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd   *cobra.Command
	title func(string) string
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd, title: func(s string) string { return s }}
}

// Start prints the title of the selected mode.
func (s *SimpleUI) Start(options ...StartOption) error {
	cfg := &StartConfig{}
	for _, option := range options {
		option(cfg)
	}

	s.printf("%s\n", s.title(titles[cfg.mode]))

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close() {
}

// DisplayReport prints one row per module with its objective counts, and
// the units inventory as footer.
func (s *SimpleUI) DisplayReport(report m.InstrumentationReport, err error) error {
	if err != nil {
		s.printf("instrumentation error: %v\n", err)

		return err
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Module", "Lines", "Statements", "Branches", "Artifact"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT,
	})

	for _, module := range report.Modules {
		counts := countKinds(module.Objectives)
		artifact := "-"

		if module.Artifact != "" {
			artifact = filepath.Base(string(module.Artifact))
		}

		table.Append([]string{
			module.ModuleID,
			fmt.Sprintf("%d", counts[naming.KindLine]),
			fmt.Sprintf("%d", counts[naming.KindStatement]),
			fmt.Sprintf("%d", counts[naming.KindBranchTrue]),
			artifact,
		})
	}

	units := report.Units
	table.SetFooter([]string{
		fmt.Sprintf("Total Units %d", len(units.UnitNames)),
		fmt.Sprintf("%d", units.NumberOfLines),
		fmt.Sprintf("%d", units.NumberOfStatements),
		fmt.Sprintf("%d", units.NumberOfBranches),
		"",
	})

	table.Render()
	s.printf("\n%s", tableBuffer.String())

	return nil
}

// DisplayOverlay tells where the overlay for `go build -overlay` was written.
func (s *SimpleUI) DisplayOverlay(path m.Path, files int) {
	s.printf("overlay: %s (%d files)\n", path, files)
	s.printf("build with: go build -overlay=%s\n", path)
}

// DisplayChange reports a source change seen in watch mode.
func (s *SimpleUI) DisplayChange(path m.Path) {
	s.printf("changed: %s\n", path)
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func countKinds(objectives []string) map[naming.Kind]int {
	counts := make(map[naming.Kind]int)

	for _, id := range objectives {
		kind := naming.KindOf(id)
		if kind == naming.KindBranchFalse {
			kind = naming.KindBranchTrue
		}

		counts[kind]++
	}

	return counts
}
