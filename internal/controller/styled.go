package controller

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var titleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("12")).
	PaddingLeft(1).
	PaddingRight(1)

// StyledUI is a SimpleUI whose titles are rendered for a terminal.
type StyledUI struct {
	*SimpleUI
}

// NewStyledUI creates a StyledUI.
func NewStyledUI(cmd *cobra.Command) *StyledUI {
	ui := NewSimpleUI(cmd)
	ui.title = func(s string) string { return titleStyle.Render(s) }

	return &StyledUI{SimpleUI: ui}
}
