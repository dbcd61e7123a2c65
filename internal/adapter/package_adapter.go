package adapter

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"

	m "github.com/mouse-blink/evoprobe/internal/model"
)

// ErrPackageErrors is returned when go/packages reports errors for any
// loaded package.
var ErrPackageErrors = errors.New("package errors")

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// Package is a parsed and type-checked Go package. Syntax is parallel to
// Module.Files.
type Package struct {
	m.Module
	Fset   *token.FileSet
	Syntax []*ast.File
	Info   *types.Info
}

// PackageAdapter resolves package patterns to parsed sources.
type PackageAdapter interface {
	// List resolves patterns to import paths without parsing anything.
	List(ctx context.Context, patterns ...string) ([]string, error)
	Load(ctx context.Context, patterns ...string) ([]*Package, error)
}

// GoPackagesAdapter implements PackageAdapter with golang.org/x/tools/go/packages.
type GoPackagesAdapter struct {
	dir     string
	fs      SourceFSAdapter
	goFiles GoFileAdapter
}

// NewGoPackagesAdapter loads packages relative to dir.
func NewGoPackagesAdapter(dir m.Path, fs SourceFSAdapter, goFiles GoFileAdapter) *GoPackagesAdapter {
	return &GoPackagesAdapter{dir: string(dir), fs: fs, goFiles: goFiles}
}

// List resolves patterns such as "./..." to import paths.
func (a *GoPackagesAdapter) List(ctx context.Context, patterns ...string) ([]string, error) {
	cfg := a.config(ctx, packages.NeedName)

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("could not list packages: %w", err)
	}

	if err := packageErrors(pkgs); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		paths = append(paths, p.PkgPath)
	}

	return paths, nil
}

// Load loads, parses, and type-checks the packages matching patterns.
// Test files are not loaded.
func (a *GoPackagesAdapter) Load(ctx context.Context, patterns ...string) ([]*Package, error) {
	cfg := a.config(ctx, loadMode)
	// use custom ParseFile in order to get comments
	cfg.ParseFile = func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
		return a.goFiles.Parse(fset, filename, src)
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("could not load packages: %w", err)
	}

	if err := packageErrors(pkgs); err != nil {
		return nil, err
	}

	result := make([]*Package, 0, len(pkgs))

	for _, p := range pkgs {
		pkg, err := a.convert(p)
		if err != nil {
			return nil, err
		}

		result = append(result, pkg)
	}

	return result, nil
}

func (a *GoPackagesAdapter) config(ctx context.Context, mode packages.LoadMode) *packages.Config {
	return &packages.Config{
		Context: ctx,
		Mode:    mode,
		Dir:     a.dir,
		Env:     os.Environ(),
	}
}

func packageErrors(pkgs []*packages.Package) error {
	var problems []string

	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			problems = append(problems, e.Error())
		}
	})

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrPackageErrors, strings.Join(problems, "; "))
	}

	return nil
}

func (a *GoPackagesAdapter) convert(p *packages.Package) (*Package, error) {
	pkg := &Package{
		Module: m.Module{ImportPath: p.PkgPath, Dir: m.Path(p.Dir)},
		Fset:   p.Fset,
		Info:   p.TypesInfo,
	}

	// Syntax follows CompiledGoFiles; cgo output has no .go suffix and is
	// not in GoFiles, so it is left out.
	goFiles := make(map[string]struct{}, len(p.GoFiles))
	for _, f := range p.GoFiles {
		goFiles[f] = struct{}{}
	}

	for _, file := range p.Syntax {
		name := p.Fset.File(file.Pos()).Name()
		if _, ok := goFiles[name]; !ok {
			continue
		}

		src, err := a.fs.ReadFile(m.Path(name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		pkg.Files = append(pkg.Files, m.SourceFile{
			File:     m.File{Path: m.Path(name), Hash: HashBytes(src)},
			ModuleID: p.PkgPath + "/" + filepath.Base(name),
			Source:   src,
		})
		pkg.Syntax = append(pkg.Syntax, file)
	}

	return pkg, nil
}
