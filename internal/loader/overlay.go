package loader

import (
	"encoding/json"
	"fmt"

	"github.com/mouse-blink/evoprobe/internal/adapter"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

// Overlay is the file consumed by `go build -overlay`: it maps each
// original source to its instrumented artifact.
type Overlay struct {
	Replace map[string]string `json:"Replace"`
}

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{Replace: make(map[string]string)}
}

// Add records every instrumented file of pkg.
func (o *Overlay) Add(pkg *adapter.Package) {
	for _, file := range pkg.Files {
		if file.Artifact != "" {
			o.Replace[string(file.Path)] = string(file.Artifact)
		}
	}
}

// Len returns the number of replaced files.
func (o *Overlay) Len() int {
	return len(o.Replace)
}

// Write stores the overlay as JSON at path.
func (o *Overlay) Write(fs adapter.SourceFSAdapter, path m.Path) error {
	data, err := json.MarshalIndent(o, "", "\t")
	if err != nil {
		return fmt.Errorf("marshal overlay: %w", err)
	}

	return fs.WriteFile(path, append(data, '\n'), 0o644)
}
