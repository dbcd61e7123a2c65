// Package domain wires the instrumentation engine into the two operations
// the CLI offers: instrumenting packages for a build, and listing the
// objectives they would register.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mouse-blink/evoprobe/internal/adapter"
	"github.com/mouse-blink/evoprobe/internal/controller"
	"github.com/mouse-blink/evoprobe/internal/domain/recorder"
	"github.com/mouse-blink/evoprobe/internal/domain/session"
	"github.com/mouse-blink/evoprobe/internal/domain/transformer"
	"github.com/mouse-blink/evoprobe/internal/loader"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

const (
	artifactIndex = "artifacts.db"
	metricsFile   = "metrics.prom"
)

// ListArgs selects the packages whose objectives are listed.
type ListArgs struct {
	Patterns []string
	Prefixes []string
	Level    m.Level
}

// InstrumentArgs configures an instrumentation run.
type InstrumentArgs struct {
	ListArgs
	Output      m.Path
	Overlay     m.Path
	Reports     m.Path
	Parallelism int
	// Watch keeps re-instrumenting changed packages until ctx is done.
	Watch bool
}

// Workflow defines the operations behind the CLI commands.
type Workflow interface {
	Instrument(ctx context.Context, args InstrumentArgs) error
	List(ctx context.Context, args ListArgs) error
}

type workflow struct {
	fs       adapter.SourceFSAdapter
	goFiles  adapter.GoFileAdapter
	packages adapter.PackageAdapter
	reports  adapter.ReportStore
	ui       controller.UI
	logger   *slog.Logger
}

// NewWorkflow creates a new Workflow instance with the provided adapters.
func NewWorkflow(
	fs adapter.SourceFSAdapter,
	goFiles adapter.GoFileAdapter,
	packages adapter.PackageAdapter,
	reports adapter.ReportStore,
	ui controller.UI,
	logger *slog.Logger,
) Workflow {
	if logger == nil {
		logger = slog.Default()
	}

	return &workflow{
		fs:       fs,
		goFiles:  goFiles,
		packages: packages,
		reports:  reports,
		ui:       ui,
		logger:   logger,
	}
}

// List transforms the matching packages in memory and displays the
// objectives each file would register. Nothing is written.
func (w *workflow) List(ctx context.Context, args ListArgs) error {
	if err := w.ui.Start(controller.WithListMode()); err != nil {
		return err
	}
	defer w.ui.Close()

	report, err := w.list(ctx, args)

	return w.ui.DisplayReport(report, err)
}

func (w *workflow) list(ctx context.Context, args ListArgs) (m.InstrumentationReport, error) {
	s := session.New(w.logger)
	t := transformer.New(args.Level, s, w.logger)

	pkgs, err := w.packages.Load(ctx, args.Patterns...)
	if err != nil {
		return m.InstrumentationReport{}, err
	}

	var modules []m.ModuleReport

	for _, pkg := range pkgs {
		if !loader.MatchesPrefix(args.Prefixes, pkg.ImportPath) {
			continue
		}

		for i, file := range pkg.Files {
			result, err := t.Transform(file.ModuleID, pkg.Fset, pkg.Syntax[i], pkg.Info)
			if err != nil {
				return m.InstrumentationReport{}, fmt.Errorf("transform %s: %w", file.Path, err)
			}

			if result.Instrumented {
				modules = append(modules, m.ModuleReport{
					ModuleID:   file.ModuleID,
					Source:     file.Path,
					Objectives: result.Objectives,
				})
			}
		}
	}

	return newReport(s, modules), nil
}

// Instrument rewrites the matching packages into args.Output and writes the
// overlay, the report and a metrics textfile.
func (w *workflow) Instrument(ctx context.Context, args InstrumentArgs) error {
	mode := controller.WithInstrumentMode()
	if args.Watch {
		mode = controller.WithWatchMode()
	}

	if err := w.ui.Start(mode); err != nil {
		return err
	}
	defer w.ui.Close()

	store, err := adapter.OpenArtifactStore(w.fs.JoinPath(string(args.Output), artifactIndex))
	if err != nil {
		return w.ui.DisplayReport(m.InstrumentationReport{}, err)
	}

	defer func() {
		_ = store.Close()
	}()

	s := session.New(w.logger)
	chain := loader.NewChain(loader.NewPackagesFinder(w.packages))

	hook, err := loader.Install(chain, loader.Options{
		Prefixes:    args.Prefixes,
		Level:       args.Level,
		OutputDir:   args.Output,
		Parallelism: args.Parallelism,
		Registrar:   s,
		Store:       store,
		FS:          w.fs,
		GoFiles:     w.goFiles,
		Logger:      w.logger,
	})
	if err != nil {
		return w.ui.DisplayReport(m.InstrumentationReport{}, err)
	}
	defer hook.Release()

	run := &instrumentation{workflow: w, args: args, session: s, chain: chain, hook: hook}

	if err := run.all(ctx); err != nil {
		return w.ui.DisplayReport(m.InstrumentationReport{}, err)
	}

	if err := w.ui.DisplayReport(run.report(), nil); err != nil {
		return err
	}

	w.ui.DisplayOverlay(args.Overlay, run.overlay.Len())

	if !args.Watch {
		return nil
	}

	return run.watch(ctx, store)
}

// instrumentation is the state of one Instrument call.
type instrumentation struct {
	*workflow
	args    InstrumentArgs
	session *session.Session
	chain   *loader.Chain
	hook    *loader.Hook
	overlay *loader.Overlay
	// loaded maps import paths to their instrumented form.
	loaded map[string]*adapter.Package
}

func (r *instrumentation) all(ctx context.Context) error {
	paths, err := r.packages.List(ctx, r.args.Patterns...)
	if err != nil {
		return err
	}

	r.loaded = make(map[string]*adapter.Package)

	for _, path := range paths {
		if !r.hook.Finder().Matches(path) {
			continue
		}

		if err := r.load(ctx, path); err != nil {
			return err
		}
	}

	return r.persist()
}

func (r *instrumentation) load(ctx context.Context, importPath string) error {
	pkg, err := r.chain.Load(ctx, importPath)
	if err != nil {
		return err
	}

	r.loaded[importPath] = pkg

	return nil
}

// persist writes the overlay, report and metrics for the current packages.
func (r *instrumentation) persist() error {
	r.overlay = loader.NewOverlay()
	for _, pkg := range r.loaded {
		r.overlay.Add(pkg)
	}

	if err := r.overlay.Write(r.fs, r.args.Overlay); err != nil {
		return fmt.Errorf("write overlay: %w", err)
	}

	if err := r.reports.SaveReport(r.args.Reports, r.report()); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(recorder.NewCollector(r.session.Recorder()))

	metrics := filepath.Join(string(r.args.Reports), metricsFile)
	if err := prometheus.WriteToTextfile(metrics, registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	return nil
}

func (r *instrumentation) report() m.InstrumentationReport {
	var modules []m.ModuleReport

	for _, pkg := range r.loaded {
		for _, file := range pkg.Files {
			if file.Artifact == "" {
				continue
			}

			modules = append(modules, m.ModuleReport{
				ModuleID:   file.ModuleID,
				Source:     file.Path,
				Artifact:   file.Artifact,
				Objectives: file.Objectives,
			})
		}
	}

	return newReport(r.session, modules)
}

// watch re-instruments a package whenever one of its sources changes.
func (r *instrumentation) watch(ctx context.Context, store adapter.ArtifactStore) error {
	watcher, err := loader.NewWatcher(store, r.fs, r.logger)
	if err != nil {
		return err
	}

	byDir := make(map[m.Path]string, len(r.loaded))
	for path, pkg := range r.loaded {
		byDir[pkg.Dir] = path

		if err := watcher.Add(pkg.Dir); err != nil {
			return err
		}
	}

	return watcher.Run(ctx, func(source m.Path) {
		r.ui.DisplayChange(source)

		importPath, ok := byDir[m.Path(filepath.Dir(string(source)))]
		if !ok {
			return
		}

		if err := r.load(ctx, importPath); err != nil {
			r.logger.Error("re-instrumentation failed", slog.String("package", importPath), slog.Any("error", err))

			return
		}

		if err := r.persist(); err != nil {
			r.logger.Error("persist failed", slog.Any("error", err))
		}
	})
}

func newReport(s *session.Session, modules []m.ModuleReport) m.InstrumentationReport {
	sort.Slice(modules, func(i, j int) bool { return modules[i].ModuleID < modules[j].ModuleID })

	return m.InstrumentationReport{Units: s.UnitsInfo(), Modules: modules}
}
