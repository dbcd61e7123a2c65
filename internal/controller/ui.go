// Package controller provides output adapters for displaying instrumentation results.
package controller

import (
	m "github.com/mouse-blink/evoprobe/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeInstrument StartMode = iota
	ModeList
	ModeWatch
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithInstrumentMode sets the UI to instrumentation mode.
func WithInstrumentMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeInstrument
	}
}

// WithListMode sets the UI to dry-run listing mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithWatchMode sets the UI to watch mode.
func WithWatchMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeWatch
	}
}

// UI defines the interface for displaying instrumentation results.
// Implementations differ only in how they decorate the output.
type UI interface {
	Start(options ...StartOption) error
	Close()
	DisplayReport(report m.InstrumentationReport, err error) error
	DisplayOverlay(path m.Path, files int)
	DisplayChange(path m.Path)
}
