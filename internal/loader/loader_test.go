package loader

import (
	"context"
	"go/ast"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/evoprobe/internal/adapter"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

const addSource = `package calc

func Add(a, b int) int {
	x := a + b
	return x
}
`

// staticFinder serves in-memory packages parsed from source.
type staticFinder struct {
	t       *testing.T
	dir     string
	sources map[string]string
	loads   int
}

func newStaticFinder(t *testing.T, sources map[string]string) *staticFinder {
	t.Helper()

	return &staticFinder{t: t, dir: t.TempDir(), sources: sources}
}

func (f *staticFinder) Find(importPath string) (Loader, bool) {
	if _, ok := f.sources[importPath]; !ok {
		return nil, false
	}

	return LoaderFunc(f.load), true
}

func (f *staticFinder) load(_ context.Context, importPath string) (*adapter.Package, error) {
	f.loads++

	src := []byte(f.sources[importPath])
	path := filepath.Join(f.dir, filepath.FromSlash(importPath), "add.go")
	fset := token.NewFileSet()

	file, err := adapter.NewLocalGoFileAdapter().Parse(fset, path, src)
	if err != nil {
		return nil, err
	}

	return &adapter.Package{
		Module: m.Module{
			ImportPath: importPath,
			Dir:        m.Path(filepath.Dir(path)),
			Files: []m.SourceFile{{
				File:     m.File{Path: m.Path(path), Hash: adapter.HashBytes(src)},
				ModuleID: importPath + "/add.go",
				Source:   src,
			}},
		},
		Fset:   fset,
		Syntax: []*ast.File{file},
	}, nil
}

type fakeRegistrar struct {
	mu  sync.Mutex
	ids []string
}

func (r *fakeRegistrar) RegisterTarget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ids = append(r.ids, id)
}

func (r *fakeRegistrar) sorted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := append([]string(nil), r.ids...)
	sort.Strings(ids)

	return ids
}

type fixture struct {
	chain     *Chain
	finder    *staticFinder
	store     *adapter.BoltArtifactStore
	registrar *fakeRegistrar
	outputDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := adapter.OpenArtifactStore(m.Path(filepath.Join(t.TempDir(), "artifacts.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	finder := newStaticFinder(t, map[string]string{
		"example.com/calc":  addSource,
		"example.com/other": addSource,
	})

	return &fixture{
		chain:     NewChain(finder),
		finder:    finder,
		store:     store,
		registrar: &fakeRegistrar{},
		outputDir: t.TempDir(),
	}
}

func (f *fixture) install(t *testing.T, level m.Level) *Hook {
	t.Helper()

	hook, err := Install(f.chain, Options{
		Prefixes:  []string{"example.com/calc"},
		Level:     level,
		OutputDir: m.Path(f.outputDir),
		Registrar: f.registrar,
		Store:     f.store,
	})
	require.NoError(t, err)

	return hook
}

func TestChainInsertAndRemove(t *testing.T) {
	a := newStaticFinder(t, map[string]string{"a": addSource})
	b := newStaticFinder(t, map[string]string{"a": addSource})
	c := newStaticFinder(t, nil)

	chain := NewChain(a)
	chain.Insert(b)

	assert.Equal(t, []Finder{b, a}, chain.Finders())

	l, ok := chain.Find("a")
	require.True(t, ok)

	_, err := l.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, b.loads, "the inserted finder is consulted first")
	assert.Equal(t, 0, a.loads)

	assert.False(t, chain.Remove(c))
	assert.True(t, chain.Remove(b))
	assert.False(t, chain.Remove(b))
	assert.Equal(t, []Finder{a}, chain.Finders())
}

func TestChainLoadNotFound(t *testing.T) {
	chain := NewChain(newStaticFinder(t, nil))

	_, err := chain.Load(context.Background(), "example.com/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInstallErrors(t *testing.T) {
	valid := Options{Level: m.LevelCoverage, OutputDir: m.Path(t.TempDir())}

	tests := []struct {
		name  string
		chain *Chain
		opts  Options
		want  error
	}{
		{name: "nil chain", chain: nil, opts: valid, want: ErrNoChain},
		{name: "empty chain", chain: NewChain(), opts: valid, want: ErrNoChain},
		{name: "level", chain: NewChain(newStaticFinder(t, nil)), opts: Options{Level: 7, OutputDir: valid.OutputDir}, want: ErrInvalidLevel},
		{name: "output dir", chain: NewChain(newStaticFinder(t, nil)), opts: Options{Level: m.LevelCoverage}, want: ErrNoOutputDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook, err := Install(tt.chain, tt.opts)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, hook)
		})
	}
}

func TestHookReleaseRemovesOnlyItsFinder(t *testing.T) {
	f := newFixture(t)

	first := f.install(t, m.LevelCoverage)
	second := f.install(t, m.LevelCoverage)
	require.Equal(t, 3, f.chain.Len())

	first.Release()
	first.Release()

	assert.Equal(t, []Finder{second.Finder(), f.finder}, f.chain.Finders())

	second.Release()
	assert.Equal(t, []Finder{f.finder}, f.chain.Finders())
}

func TestInstrumentingFinderMatches(t *testing.T) {
	finder := newInstrumentingFinder(NewChain(), Options{Prefixes: []string{"example.com/calc", "example.com/x/"}})

	tests := []struct {
		path string
		want bool
	}{
		{path: "example.com/calc", want: true},
		{path: "example.com/calc/sub", want: true},
		{path: "example.com/calculator", want: false},
		{path: "example.com/x/y", want: true},
		{path: "example.com/other", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, finder.Matches(tt.path))
		})
	}
}

func TestHookInstrumentsMatchingPackages(t *testing.T) {
	f := newFixture(t)
	hook := f.install(t, m.LevelCoverage)
	defer hook.Release()

	pkg, err := f.chain.Load(context.Background(), "example.com/calc")
	require.NoError(t, err)

	file := pkg.Files[0]
	require.NotEmpty(t, file.Artifact)
	assert.Equal(t, m.Path(filepath.Join(f.outputDir, "example.com", "calc", "add.go")), file.Artifact)

	out, err := os.ReadFile(string(file.Artifact))
	require.NoError(t, err)
	assert.Contains(t, string(out), `_em_.EnteringStatement("example.com/calc/add.go", 4, 1)`)
	assert.Contains(t, string(out), `_em_ "github.com/mouse-blink/evoprobe/probe"`)

	assert.Equal(t, file.Objectives, f.registrar.sorted())
	assert.Contains(t, file.Objectives, "File_example.com/calc/add.go")

	entry, ok, err := f.store.Get(file.Path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, file.Hash, entry.Hash)
	assert.Equal(t, m.LevelCoverage, entry.Level)
	assert.Equal(t, file.Objectives, entry.Objectives)
}

func TestHookLeavesOtherPackagesAlone(t *testing.T) {
	f := newFixture(t)
	hook := f.install(t, m.LevelCoverage)
	defer hook.Release()

	pkg, err := f.chain.Load(context.Background(), "example.com/other")
	require.NoError(t, err)

	assert.Empty(t, pkg.Files[0].Artifact)
	assert.Empty(t, f.registrar.sorted())
}

func TestReleasedHookNoLongerInstruments(t *testing.T) {
	f := newFixture(t)
	hook := f.install(t, m.LevelCoverage)
	hook.Release()

	pkg, err := f.chain.Load(context.Background(), "example.com/calc")
	require.NoError(t, err)
	assert.Empty(t, pkg.Files[0].Artifact)
}

func TestArtifactReuse(t *testing.T) {
	f := newFixture(t)
	hook := f.install(t, m.LevelCoverage)
	defer hook.Release()

	first, err := f.chain.Load(context.Background(), "example.com/calc")
	require.NoError(t, err)

	f.registrar.ids = nil

	second, err := f.chain.Load(context.Background(), "example.com/calc")
	require.NoError(t, err)

	assert.Equal(t, first.Files[0].Artifact, second.Files[0].Artifact)
	assert.Equal(t, first.Files[0].Objectives, second.Files[0].Objectives)
	assert.Empty(t, second.Syntax[0].Imports, "a reused artifact is not rewritten again")
	assert.Equal(t, first.Files[0].Objectives, f.registrar.sorted(), "objectives are registered again")
}

func TestStaleArtifactIsInvalidated(t *testing.T) {
	tests := []struct {
		name  string
		entry func(source m.Path, hash string, stale m.Path) m.Artifact
	}{
		{
			name: "content changed",
			entry: func(source m.Path, _ string, stale m.Path) m.Artifact {
				return m.Artifact{Source: source, Hash: "old", Level: m.LevelCoverage, Path: stale}
			},
		},
		{
			name: "level changed",
			entry: func(source m.Path, hash string, stale m.Path) m.Artifact {
				return m.Artifact{Source: source, Hash: hash, Level: m.LevelBoolean, Path: stale}
			},
		},
		{
			name: "artifact missing",
			entry: func(source m.Path, hash string, _ m.Path) m.Artifact {
				return m.Artifact{Source: source, Hash: hash, Level: m.LevelCoverage, Path: "/nonexistent/add.go"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			probe, err := f.finder.load(context.Background(), "example.com/calc")
			require.NoError(t, err)

			source := probe.Files[0].Path
			stale := m.Path(filepath.Join(f.outputDir, "stale.go"))
			require.NoError(t, os.WriteFile(string(stale), []byte("package calc\n"), 0o644))
			require.NoError(t, f.store.Put(tt.entry(source, probe.Files[0].Hash, stale)))

			hook := f.install(t, m.LevelCoverage)
			defer hook.Release()

			pkg, err := f.chain.Load(context.Background(), "example.com/calc")
			require.NoError(t, err)

			assert.NotEqual(t, stale, pkg.Files[0].Artifact)
			assert.NotEmpty(t, pkg.Syntax[0].Imports, "the file was rewritten")

			entry, ok, err := f.store.Get(source)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, entry.Matches(probe.Files[0].Hash, m.LevelCoverage))
			assert.Equal(t, pkg.Files[0].Artifact, entry.Path)
		})
	}
}

func TestInvalidateRemovesArtifact(t *testing.T) {
	f := newFixture(t)
	fs := adapter.NewLocalSourceFSAdapter()

	artifact := m.Path(filepath.Join(f.outputDir, "a.go"))
	require.NoError(t, os.WriteFile(string(artifact), []byte("package a\n"), 0o644))
	require.NoError(t, f.store.Put(m.Artifact{Source: "/src/a.go", Path: artifact}))

	require.NoError(t, Invalidate(f.store, fs, "/src/a.go"))

	_, err := os.Stat(string(artifact))
	assert.True(t, os.IsNotExist(err))

	_, ok, err := f.store.Get("/src/a.go")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, Invalidate(f.store, fs, "/src/missing.go"))
}

func TestLevelNoneWritesNoArtifact(t *testing.T) {
	f := newFixture(t)
	hook := f.install(t, m.LevelNone)
	defer hook.Release()

	pkg, err := f.chain.Load(context.Background(), "example.com/calc")
	require.NoError(t, err)

	assert.Empty(t, pkg.Files[0].Artifact)
	assert.Empty(t, f.registrar.sorted())
}

func TestInstrumentingWithoutNextFinder(t *testing.T) {
	chain := NewChain(newStaticFinder(t, nil))

	hook, err := Install(chain, Options{
		Prefixes:  []string{"example.com/calc"},
		Level:     m.LevelCoverage,
		OutputDir: m.Path(t.TempDir()),
	})
	require.NoError(t, err)
	defer hook.Release()

	_, err = chain.Load(context.Background(), "example.com/calc")
	assert.ErrorIs(t, err, ErrNotFound)
}
