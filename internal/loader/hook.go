package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mouse-blink/evoprobe/internal/adapter"
	"github.com/mouse-blink/evoprobe/internal/domain/transformer"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

var (
	// ErrNoChain is returned by Install when there is no chain to intercept.
	ErrNoChain = errors.New("no load chain to intercept")
	// ErrInvalidLevel is returned for a level outside 0..3.
	ErrInvalidLevel = errors.New("invalid instrumentation level")
	// ErrNoOutputDir is returned when artifacts have nowhere to go.
	ErrNoOutputDir = errors.New("no artifact output directory")
)

// Options configures an instrumenting hook.
type Options struct {
	// Prefixes selects the import paths to instrument.
	Prefixes []string
	Level    m.Level
	// OutputDir receives the rewritten files, laid out by module id.
	OutputDir m.Path
	// Parallelism bounds how many files are rewritten at once. Zero means
	// GOMAXPROCS.
	Parallelism int
	// Registrar receives every objective of every instrumented file.
	Registrar transformer.Registrar
	// Store caches artifacts across runs. It is optional.
	Store   adapter.ArtifactStore
	FS      adapter.SourceFSAdapter
	GoFiles adapter.GoFileAdapter
	Logger  *slog.Logger
}

// Hook is an installed instrumenting finder. Release removes it again.
type Hook struct {
	chain  *Chain
	finder *InstrumentingFinder
	once   sync.Once
}

// Install puts an instrumenting finder in front of chain.
func Install(chain *Chain, opts Options) (*Hook, error) {
	if chain == nil || chain.Len() == 0 {
		return nil, ErrNoChain
	}

	if !opts.Level.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, opts.Level)
	}

	if opts.OutputDir == "" {
		return nil, ErrNoOutputDir
	}

	if opts.FS == nil {
		opts.FS = adapter.NewLocalSourceFSAdapter()
	}

	if opts.GoFiles == nil {
		opts.GoFiles = adapter.NewLocalGoFileAdapter()
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	finder := newInstrumentingFinder(chain, opts)
	chain.Insert(finder)

	opts.Logger.Debug("load hook installed",
		slog.Any("prefixes", opts.Prefixes),
		slog.Int("level", int(opts.Level)),
	)

	return &Hook{chain: chain, finder: finder}, nil
}

// Finder returns the finder the hook installed.
func (h *Hook) Finder() *InstrumentingFinder {
	return h.finder
}

// Release removes the hook's finder from the chain. Further calls do
// nothing.
func (h *Hook) Release() {
	h.once.Do(func() {
		h.chain.Remove(h.finder)
	})
}
