package controller

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// NewUI creates a UI based on whether TTY mode is enabled.
// When useTTY is true, it returns a StyledUI; otherwise a SimpleUI.
func NewUI(cmd *cobra.Command, useTTY bool) UI {
	if useTTY {
		return NewStyledUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is an interactive terminal. Redirected files
// and pipes are not.
func IsTTY(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
