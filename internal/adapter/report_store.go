package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "github.com/mouse-blink/evoprobe/internal/model"
)

const indexFile = "_index.yaml"

// ErrNoReport is returned when a directory holds no instrumentation report.
var ErrNoReport = errors.New("no instrumentation report")

// ReportStore persists and retrieves instrumentation reports.
type ReportStore interface {
	SaveReport(dir m.Path, report m.InstrumentationReport) error
	LoadReport(dir m.Path) (m.InstrumentationReport, error)
}

// LocalReportStore writes one YAML file per module, named by a hash of the
// module id, plus an _index.yaml carrying the units inventory.
type LocalReportStore struct{}

// NewReportStore constructs a ReportStore implementation.
func NewReportStore() ReportStore {
	return &LocalReportStore{}
}

type indexYAML struct {
	Units   m.UnitsInfo  `yaml:"units"`
	Modules []indexEntry `yaml:"modules"`
}

type indexEntry struct {
	ModuleID   string `yaml:"module"`
	File       string `yaml:"file"`
	Objectives int    `yaml:"objectives"`
}

// SaveReport writes report under dir, replacing a previous report's index.
func (rs *LocalReportStore) SaveReport(dir m.Path, report m.InstrumentationReport) error {
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	idx := indexYAML{Units: report.Units, Modules: make([]indexEntry, 0, len(report.Modules))}

	for _, module := range report.Modules {
		name := rs.reportFileName(module.ModuleID)
		if err := writeYAML(filepath.Join(string(dir), name), module); err != nil {
			return fmt.Errorf("write report for %s: %w", module.ModuleID, err)
		}

		idx.Modules = append(idx.Modules, indexEntry{
			ModuleID:   module.ModuleID,
			File:       name,
			Objectives: len(module.Objectives),
		})
	}

	return writeYAML(filepath.Join(string(dir), indexFile), idx)
}

// LoadReport reads back what SaveReport wrote.
func (rs *LocalReportStore) LoadReport(dir m.Path) (m.InstrumentationReport, error) {
	var idx indexYAML

	if err := readYAML(filepath.Join(string(dir), indexFile), &idx); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m.InstrumentationReport{}, fmt.Errorf("%w in %s", ErrNoReport, dir)
		}

		return m.InstrumentationReport{}, err
	}

	report := m.InstrumentationReport{Units: idx.Units, Modules: make([]m.ModuleReport, 0, len(idx.Modules))}

	for _, entry := range idx.Modules {
		var module m.ModuleReport
		if err := readYAML(filepath.Join(string(dir), entry.File), &module); err != nil {
			return m.InstrumentationReport{}, fmt.Errorf("read report for %s: %w", entry.ModuleID, err)
		}

		report.Modules = append(report.Modules, module)
	}

	return report, nil
}

func (rs *LocalReportStore) reportFileName(moduleID string) string {
	sum := sha256.Sum256([]byte(moduleID))

	return hex.EncodeToString(sum[:8]) + ".yaml"
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, v)
}
