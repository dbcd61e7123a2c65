package loader

import (
	"context"
	"fmt"

	"github.com/mouse-blink/evoprobe/internal/adapter"
)

// PackagesFinder resolves any import path through go/packages. It is the
// usual last finder of a chain.
type PackagesFinder struct {
	packages adapter.PackageAdapter
}

// NewPackagesFinder creates a finder loading through packages.
func NewPackagesFinder(packages adapter.PackageAdapter) *PackagesFinder {
	return &PackagesFinder{packages: packages}
}

// Find accepts every import path.
func (f *PackagesFinder) Find(string) (Loader, bool) {
	return LoaderFunc(f.load), true
}

func (f *PackagesFinder) load(ctx context.Context, importPath string) (*adapter.Package, error) {
	pkgs, err := f.packages.Load(ctx, importPath)
	if err != nil {
		return nil, err
	}

	if len(pkgs) != 1 {
		return nil, fmt.Errorf("%w: %s resolved to %d packages", ErrNotFound, importPath, len(pkgs))
	}

	return pkgs[0], nil
}
