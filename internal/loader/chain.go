// Package loader resolves Go packages through an ordered chain of finders.
// Installing a Hook puts an instrumenting finder at the front of a chain so
// that packages under the configured prefixes are rewritten on load.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mouse-blink/evoprobe/internal/adapter"
)

// ErrNotFound is returned when no finder in a chain resolves a package.
var ErrNotFound = errors.New("package not found")

// Loader produces the parsed sources of one package.
type Loader interface {
	Load(ctx context.Context, importPath string) (*adapter.Package, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, importPath string) (*adapter.Package, error)

// Load calls fn.
func (fn LoaderFunc) Load(ctx context.Context, importPath string) (*adapter.Package, error) {
	return fn(ctx, importPath)
}

// Finder decides whether it can load a package and returns the Loader
// that will.
type Finder interface {
	Find(importPath string) (Loader, bool)
}

// Chain is an ordered list of finders. The first finder that accepts an
// import path loads it. Finders are compared by identity, so they should
// be pointers.
type Chain struct {
	mu      sync.RWMutex
	finders []Finder
}

// NewChain creates a chain consulting finders in order.
func NewChain(finders ...Finder) *Chain {
	return &Chain{finders: append([]Finder(nil), finders...)}
}

// Insert puts f ahead of every other finder.
func (c *Chain) Insert(f Finder) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finders = append([]Finder{f}, c.finders...)
}

// Remove takes out the first occurrence of exactly f. It reports whether
// f was found.
func (c *Chain) Remove(f Finder) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, candidate := range c.finders {
		if candidate == f {
			c.finders = append(c.finders[:i:i], c.finders[i+1:]...)

			return true
		}
	}

	return false
}

// Len returns the number of finders.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.finders)
}

// Finders returns a copy of the finders in lookup order.
func (c *Chain) Finders() []Finder {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]Finder(nil), c.finders...)
}

// Find returns the loader of the first finder accepting importPath.
func (c *Chain) Find(importPath string) (Loader, bool) {
	return find(c.Finders(), importPath)
}

// Load loads importPath with the first finder that accepts it.
func (c *Chain) Load(ctx context.Context, importPath string) (*adapter.Package, error) {
	l, ok := c.Find(importPath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, importPath)
	}

	return l.Load(ctx, importPath)
}

// findAfter resolves importPath with the finders that follow self.
func (c *Chain) findAfter(self Finder, importPath string) (Loader, bool) {
	finders := c.Finders()

	for i, f := range finders {
		if f == self {
			return find(finders[i+1:], importPath)
		}
	}

	return find(finders, importPath)
}

func find(finders []Finder, importPath string) (Loader, bool) {
	for _, f := range finders {
		if l, ok := f.Find(importPath); ok {
			return l, true
		}
	}

	return nil, false
}
