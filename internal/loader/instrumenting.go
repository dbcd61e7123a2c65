package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mouse-blink/evoprobe/internal/adapter"
	"github.com/mouse-blink/evoprobe/internal/domain/transformer"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

// InstrumentingFinder accepts packages under its prefixes and rewrites
// them after the rest of the chain has loaded them.
type InstrumentingFinder struct {
	chain       *Chain
	prefixes    []string
	level       m.Level
	outputDir   m.Path
	parallelism int
	transformer *transformer.Transformer
	registrar   transformer.Registrar
	store       adapter.ArtifactStore
	fs          adapter.SourceFSAdapter
	goFiles     adapter.GoFileAdapter
	logger      *slog.Logger
}

func newInstrumentingFinder(chain *Chain, opts Options) *InstrumentingFinder {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	return &InstrumentingFinder{
		chain:       chain,
		prefixes:    opts.Prefixes,
		level:       opts.Level,
		outputDir:   opts.OutputDir,
		parallelism: parallelism,
		transformer: transformer.New(opts.Level, opts.Registrar, opts.Logger),
		registrar:   opts.Registrar,
		store:       opts.Store,
		fs:          opts.FS,
		goFiles:     opts.GoFiles,
		logger:      opts.Logger,
	}
}

// Matches reports whether importPath is one of the prefixes or lies
// below one of them.
func (f *InstrumentingFinder) Matches(importPath string) bool {
	return MatchesPrefix(f.prefixes, importPath)
}

// MatchesPrefix reports whether importPath equals a prefix or lies below
// it. Prefixes match whole path elements only.
func MatchesPrefix(prefixes []string, importPath string) bool {
	for _, prefix := range prefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if importPath == prefix || strings.HasPrefix(importPath, prefix+"/") {
			return true
		}
	}

	return false
}

// Find accepts importPath when it matches a prefix.
func (f *InstrumentingFinder) Find(importPath string) (Loader, bool) {
	if !f.Matches(importPath) {
		return nil, false
	}

	return LoaderFunc(f.load), true
}

func (f *InstrumentingFinder) load(ctx context.Context, importPath string) (*adapter.Package, error) {
	next, ok := f.chain.findAfter(f, importPath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, importPath)
	}

	pkg, err := next.Load(ctx, importPath)
	if err != nil {
		return nil, err
	}

	if err := f.Instrument(ctx, pkg); err != nil {
		return nil, fmt.Errorf("instrument %s: %w", importPath, err)
	}

	return pkg, nil
}

// Instrument rewrites every file of pkg in parallel, setting Artifact and
// Objectives on the files that were instrumented.
func (f *InstrumentingFinder) Instrument(ctx context.Context, pkg *adapter.Package) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)

	for i := range pkg.Files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			return f.instrumentFile(pkg, i)
		})
	}

	return g.Wait()
}

func (f *InstrumentingFinder) instrumentFile(pkg *adapter.Package, i int) error {
	src := &pkg.Files[i]

	reused, err := f.reuse(src)
	if err != nil || reused {
		return err
	}

	result, err := f.transformer.Transform(src.ModuleID, pkg.Fset, pkg.Syntax[i], pkg.Info)
	if err != nil {
		return fmt.Errorf("transform %s: %w", src.Path, err)
	}

	if !result.Instrumented {
		return nil
	}

	out, err := f.goFiles.Print(pkg.Fset, result.File)
	if err != nil {
		return fmt.Errorf("print %s: %w", src.Path, err)
	}

	artifact := f.artifactPath(src.ModuleID)
	if err := f.fs.WriteFile(artifact, out, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	pkg.Syntax[i] = result.File
	src.Artifact = artifact
	src.Objectives = result.Objectives

	if f.store != nil {
		err := f.store.Put(m.Artifact{
			Source:     src.Path,
			Hash:       src.Hash,
			Level:      f.level,
			ModuleID:   src.ModuleID,
			Path:       artifact,
			Objectives: result.Objectives,
		})
		if err != nil {
			return fmt.Errorf("record artifact: %w", err)
		}
	}

	f.logger.Debug("artifact written", slog.String("module", src.ModuleID), slog.String("artifact", string(artifact)))

	return nil
}

// reuse serves src from the artifact cache when the cached entry was built
// from the same content at the same level. Any other entry is invalidated.
func (f *InstrumentingFinder) reuse(src *m.SourceFile) (bool, error) {
	if f.store == nil {
		return false, nil
	}

	entry, ok, err := f.store.Get(src.Path)
	if err != nil || !ok {
		return false, err
	}

	if entry.Matches(src.Hash, f.level) {
		if _, err := f.fs.FileInfo(entry.Path); err == nil {
			for _, id := range entry.Objectives {
				if f.registrar != nil {
					f.registrar.RegisterTarget(id)
				}
			}

			src.Artifact = entry.Path
			src.Objectives = entry.Objectives

			f.logger.Debug("artifact reused", slog.String("module", src.ModuleID))

			return true, nil
		}
	}

	return false, Invalidate(f.store, f.fs, src.Path)
}

func (f *InstrumentingFinder) artifactPath(moduleID string) m.Path {
	return f.fs.JoinPath(string(f.outputDir), filepath.FromSlash(moduleID))
}

// Invalidate deletes the cached artifact of source, if any.
func Invalidate(store adapter.ArtifactStore, fs adapter.SourceFSAdapter, source m.Path) error {
	entry, ok, err := store.Get(source)
	if err != nil || !ok {
		return err
	}

	if err := fs.RemoveAll(entry.Path); err != nil {
		return fmt.Errorf("remove artifact %s: %w", entry.Path, err)
	}

	return store.Delete(source)
}
