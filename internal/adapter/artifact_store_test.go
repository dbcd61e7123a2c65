package adapter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/mouse-blink/evoprobe/internal/model"
)

func openTestStore(t *testing.T) *BoltArtifactStore {
	t.Helper()

	store, err := OpenArtifactStore(m.Path(filepath.Join(t.TempDir(), "artifacts.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestBoltArtifactStore_PutGet(t *testing.T) {
	store := openTestStore(t)

	entry := m.Artifact{
		Source:     "/src/a.go",
		Hash:       "abc",
		Level:      m.LevelComparison,
		ModuleID:   "example.com/p/a.go",
		Path:       "/cache/example.com/p/a.go",
		Objectives: []string{"File_example.com/p/a.go"},
	}

	_, ok, err := store.Get(entry.Source)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(entry))

	got, ok, err := store.Get(entry.Source)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry, got)
	assert.True(t, got.Matches("abc", m.LevelComparison))
	assert.False(t, got.Matches("abc", m.LevelBoolean))
	assert.False(t, got.Matches("def", m.LevelComparison))

	entry.Hash = "def"
	require.NoError(t, store.Put(entry))

	got, _, err = store.Get(entry.Source)
	require.NoError(t, err)
	assert.Equal(t, "def", got.Hash)
}

func TestBoltArtifactStore_DeleteAndAll(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put(m.Artifact{Source: "/src/b.go", Hash: "2"}))
	require.NoError(t, store.Put(m.Artifact{Source: "/src/a.go", Hash: "1"}))

	all, err := store.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, m.Path("/src/a.go"), all[0].Source)
	assert.Equal(t, m.Path("/src/b.go"), all[1].Source)

	require.NoError(t, store.Delete("/src/a.go"))
	require.NoError(t, store.Delete("/src/missing.go"))

	all, err = store.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, m.Path("/src/b.go"), all[0].Source)
}

func TestBoltArtifactStore_Reopen(t *testing.T) {
	path := m.Path(filepath.Join(t.TempDir(), "artifacts.db"))

	store, err := OpenArtifactStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(m.Artifact{Source: "/src/a.go", Hash: "1"}))
	require.NoError(t, store.Close())

	store, err = OpenArtifactStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, ok, err := store.Get("/src/a.go")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenArtifactStore_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "artifacts.db")

	store, err := OpenArtifactStore(m.Path(path))
	require.NoError(t, err)
	assert.NoError(t, store.Close())
	assert.FileExists(t, path)
}
