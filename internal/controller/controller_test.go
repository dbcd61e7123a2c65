package controller

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/evoprobe/internal/domain/naming"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	return cmd, &buf
}

func TestStartOptions(t *testing.T) {
	tests := []struct {
		name   string
		option StartOption
		want   StartMode
	}{
		{name: "instrument", option: WithInstrumentMode(), want: ModeInstrument},
		{name: "list", option: WithListMode(), want: ModeList},
		{name: "watch", option: WithWatchMode(), want: ModeWatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &StartConfig{mode: -1}
			tt.option(cfg)
			assert.Equal(t, tt.want, cfg.mode)
		})
	}
}

func TestSimpleUI_Start(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)

	require.NoError(t, ui.Start(WithListMode()))
	ui.Close()

	assert.Equal(t, "Objectives\n", buf.String())
}

func TestSimpleUI_DisplayReport_PrintsTable(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)

	report := m.InstrumentationReport{
		Units: m.UnitsInfo{
			UnitNames:          []string{"example.com/calc/add.go", "example.com/calc/sub.go"},
			NumberOfLines:      3,
			NumberOfStatements: 4,
			NumberOfBranches:   2,
		},
		Modules: []m.ModuleReport{
			{
				ModuleID: "example.com/calc/add.go",
				Artifact: m.Path(filepath.Join("out", "example.com", "calc", "add.go")),
				Objectives: []string{
					naming.Branch("example.com/calc/add.go", 4, 1, false),
					naming.Branch("example.com/calc/add.go", 4, 1, true),
					naming.File("example.com/calc/add.go"),
					naming.Line("example.com/calc/add.go", 4),
					naming.Statement("example.com/calc/add.go", 4, 1),
				},
			},
			{ModuleID: "example.com/calc/sub.go"},
		},
	}

	require.NoError(t, ui.DisplayReport(report, nil))

	output := buf.String()
	for _, want := range []string{
		"example.com/calc/add.go",
		"example.com/calc/sub.go",
		"add.go",
		"TOTAL UNITS 2",
		"4",
	} {
		assert.Contains(t, output, want)
	}
}

func TestSimpleUI_DisplayReport_Error(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)
	boom := errors.New("boom")

	err := ui.DisplayReport(m.InstrumentationReport{}, boom)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "instrumentation error: boom")
}

func TestSimpleUI_DisplayOverlayAndChange(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)

	ui.DisplayOverlay("/tmp/overlay.json", 3)
	ui.DisplayChange("/src/add.go")

	output := buf.String()
	assert.Contains(t, output, "overlay: /tmp/overlay.json (3 files)")
	assert.Contains(t, output, "go build -overlay=/tmp/overlay.json")
	assert.Contains(t, output, "changed: /src/add.go")
}

func TestCountKinds(t *testing.T) {
	counts := countKinds([]string{
		naming.Branch("m.go", 1, 1, true),
		naming.Branch("m.go", 1, 1, false),
		naming.Line("m.go", 1),
		naming.Statement("m.go", 1, 1),
		naming.Statement("m.go", 1, 2),
	})

	assert.Equal(t, 2, counts[naming.KindBranchTrue])
	assert.Equal(t, 1, counts[naming.KindLine])
	assert.Equal(t, 2, counts[naming.KindStatement])
}

func TestNewUI(t *testing.T) {
	cmd, _ := newTestCmd()

	assert.IsType(t, &StyledUI{}, NewUI(cmd, true))
	assert.IsType(t, &SimpleUI{}, NewUI(cmd, false))
}

func TestStyledUI_StartKeepsTitle(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewStyledUI(cmd)

	require.NoError(t, ui.Start(WithWatchMode()))
	assert.Contains(t, buf.String(), "Watching")
}

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}), "non-file writers are never terminals")

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.False(t, IsTTY(f), "regular files are not terminals")
}
