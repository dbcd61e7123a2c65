package recorder

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/evoprobe/internal/domain/naming"
)

func registerModule(r *Recorder, module string) {
	r.RegisterTarget(naming.File(module))
	r.RegisterTarget(naming.Line(module, 1))
	r.RegisterTarget(naming.Statement(module, 1, 1))
	r.RegisterTarget(naming.Branch(module, 1, 1, true))
	r.RegisterTarget(naming.Branch(module, 1, 1, false))
}

func TestRegisterTargetIsIdempotent(t *testing.T) {
	r := New()
	assert.False(t, r.IsInstrumentationActive())

	registerModule(r, "app/a.go")
	first := r.UnitsInfo()

	registerModule(r, "app/a.go")
	assert.Equal(t, first, r.UnitsInfo())

	assert.Equal(t, []string{"app/a.go"}, first.UnitNames)
	assert.Equal(t, 1, first.NumberOfLines)
	assert.Equal(t, 1, first.NumberOfStatements)
	assert.Equal(t, 2, first.NumberOfBranches)
	assert.True(t, r.IsInstrumentationActive())
	assert.Len(t, r.Targets(), 5)
}

func TestUnknownKindsOnlyJoinTheInventory(t *testing.T) {
	r := New()
	r.RegisterTarget("something_else")

	assert.True(t, r.IsInstrumentationActive())
	assert.Equal(t, 0, r.UnitsInfo().NumberOfLines)
	assert.Empty(t, r.UnitsInfo().UnitNames)
}

func TestMappedIDBijection(t *testing.T) {
	r := New()
	ids := []string{"a", "b", "c", "a", "d", "b"}

	mapped := make(map[string]int)
	for _, id := range ids {
		mapped[id] = r.MappedID(id)
	}

	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2, "d": 3}, mapped)

	for id, mid := range mapped {
		got, err := r.DescriptiveID(mid)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	_, err := r.DescriptiveID(42)
	require.ErrorIs(t, err, ErrUnknownMappedID)
}

func TestUpdateKeepsMaximum(t *testing.T) {
	r := New()
	id := naming.Line("app/a.go", 3)

	for _, v := range []float64{0.3, 0.9, 0.1} {
		require.NoError(t, r.Update(id, v))
	}

	best, ok := r.BestValue(id)
	require.True(t, ok)
	assert.Equal(t, 0.9, best)
	assert.Equal(t, []string{id}, r.FirstTimeEncountered())
}

func TestUpdateRejectsInvalidValues(t *testing.T) {
	r := New()

	for _, v := range []float64{-0.1, 1.01} {
		err := r.Update("x", v)
		require.ErrorIs(t, err, ErrInvalidValue)
	}

	_, ok := r.BestValue("x")
	assert.False(t, ok)
	assert.Empty(t, r.FirstTimeEncountered())
}

func TestClearFirstTimeEncounteredKeepsBestValues(t *testing.T) {
	r := New()
	require.NoError(t, r.Update("a", 0.5))
	require.NoError(t, r.Update("b", 1))

	assert.Equal(t, []string{"a", "b"}, r.FirstTimeEncountered())

	r.ClearFirstTimeEncountered()
	assert.Empty(t, r.FirstTimeEncountered())

	best, ok := r.BestValue("a")
	require.True(t, ok)
	assert.Equal(t, 0.5, best)

	require.NoError(t, r.Update("a", 0.7))
	assert.Empty(t, r.FirstTimeEncountered())
}

func TestReset(t *testing.T) {
	r := New()
	registerModule(r, "app/a.go")
	require.NoError(t, r.Update(naming.File("app/a.go"), 1))

	r.Reset(false)
	assert.True(t, r.IsInstrumentationActive())
	assert.Equal(t, 2, r.UnitsInfo().NumberOfBranches)

	_, ok := r.BestValue(naming.File("app/a.go"))
	assert.False(t, ok)

	_, err := r.DescriptiveID(0)
	require.ErrorIs(t, err, ErrUnknownMappedID)

	r.Reset(true)
	assert.False(t, r.IsInstrumentationActive())
	assert.Equal(t, 0, r.UnitsInfo().NumberOfBranches)
}

func TestCollector(t *testing.T) {
	r := New()
	registerModule(r, "app/a.go")
	registerModule(r, "app/b.go")
	require.NoError(t, r.Update(naming.File("app/a.go"), 1))
	require.NoError(t, r.Update(naming.Line("app/a.go", 1), 0.5))

	expected := `
# HELP evoprobe_objectives Number of registered objectives by kind.
# TYPE evoprobe_objectives gauge
evoprobe_objectives{kind="branch"} 4
evoprobe_objectives{kind="line"} 2
evoprobe_objectives{kind="statement"} 2
# HELP evoprobe_objectives_covered Number of registered objectives fully covered in the current search.
# TYPE evoprobe_objectives_covered gauge
evoprobe_objectives_covered 1
# HELP evoprobe_units Number of instrumented modules.
# TYPE evoprobe_units gauge
evoprobe_units 2
`

	err := testutil.CollectAndCompare(NewCollector(r), strings.NewReader(expected))
	require.NoError(t, err)
}
