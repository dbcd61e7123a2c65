package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/evoprobe/internal/domain/heuristic"
	"github.com/mouse-blink/evoprobe/internal/domain/naming"
	"github.com/mouse-blink/evoprobe/internal/domain/recorder"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

const module = "app/handler.go"

func newTracer() (*Tracer, *recorder.Recorder) {
	r := recorder.New()

	return New(r), r
}

func TestStatementCycleCoversFileLineAndStatement(t *testing.T) {
	tr, _ := newTracer()

	stmt := naming.Statement(module, 4, 2)
	for _, id := range []string{naming.File(module), naming.Line(module, 4), stmt} {
		assert.Zero(t, tr.Value(id))
	}

	require.NoError(t, tr.EnteringStatement(module, 4, 2))
	assert.Equal(t, 0.5, tr.Value(stmt))
	assert.Equal(t, 1.0, tr.Value(naming.Line(module, 4)))

	require.NoError(t, tr.CompletedStatement(module, 4, 2))

	for _, id := range []string{naming.File(module), naming.Line(module, 4), stmt} {
		assert.Equal(t, 1.0, tr.Value(id), id)
	}

	tr.Reset()
	assert.Zero(t, tr.NumberOfObjectives(""))
	assert.Zero(t, tr.Value(stmt))
}

func TestCompletionStatement(t *testing.T) {
	tr, _ := newTracer()

	require.NoError(t, tr.CompletionStatement(module, 9, 1))
	assert.Equal(t, 1.0, tr.Value(naming.Statement(module, 9, 1)))
	assert.Equal(t, 3, tr.NumberOfObjectives(""))
	assert.Empty(t, tr.NonCoveredObjectives(""))
}

func TestLocationStackSurvivesUnwinding(t *testing.T) {
	tr, _ := newTracer()

	require.NoError(t, tr.EnteringStatement(module, 1, 1))
	require.NoError(t, tr.EnteringStatement(module, 10, 2))

	infos := tr.AdditionalInfos()
	require.Len(t, infos, 1)
	require.NotNil(t, infos[0].LastExecutedStatement)
	assert.Equal(t, naming.LastStatement(module, 10, 2), *infos[0].LastExecutedStatement)

	require.NoError(t, tr.CompletedStatement(module, 10, 2))
	require.NoError(t, tr.CompletedStatement(module, 1, 1))
	require.NoError(t, tr.CompletedStatement(module, 1, 1))

	infos = tr.AdditionalInfos()
	require.NotNil(t, infos[0].LastExecutedStatement)
	assert.Equal(t, naming.LastStatement(module, 1, 1), *infos[0].LastExecutedStatement)
}

func TestUpdateBranchAssignsArms(t *testing.T) {
	tr, _ := newTracer()

	require.NoError(t, tr.UpdateBranch(module, 3, 1, heuristic.Truthness{OfTrue: 1, OfFalse: 0.25}))

	assert.Equal(t, 0.25, tr.Value(naming.Branch(module, 3, 1, true)))
	assert.Equal(t, 1.0, tr.Value(naming.Branch(module, 3, 1, false)))
	assert.Equal(t, 2, tr.NumberOfObjectives(naming.Prefix(naming.KindBranchTrue)))
	assert.Equal(t, []string{naming.Branch(module, 3, 1, true)}, tr.NonCoveredObjectives(naming.Prefix(naming.KindBranchTrue)))
}

func TestUpdateObjective(t *testing.T) {
	tr, r := newTracer()

	require.ErrorIs(t, tr.UpdateObjective("x", 2), recorder.ErrInvalidValue)
	assert.False(t, tr.IsTargetReached("x"))

	require.NoError(t, tr.UpdateObjective("x", 0.4))
	tr.SetAction(m.Action{Index: 1, InputVariables: []string{"body"}})
	require.NoError(t, tr.UpdateObjective("x", 0.2))
	assert.Equal(t, 0.4, tr.Value("x"))

	require.NoError(t, tr.UpdateObjective("x", 0.8))
	assert.Equal(t, 0.8, tr.Value("x"))
	assert.True(t, tr.IsTargetReached("x"))
	assert.Equal(t, []string{"body"}, tr.InputVariables())

	best, ok := r.BestValue("x")
	require.True(t, ok)
	assert.Equal(t, 0.8, best)

	infos, err := tr.TargetInfos([]int{r.MappedID("x")})
	require.NoError(t, err)
	require.NotEmpty(t, infos)
	assert.Equal(t, 1, infos[0].ActionIndex)
}

func TestSetActionOpensBuckets(t *testing.T) {
	tr, _ := newTracer()

	tr.SetAction(m.Action{Index: 0})
	tr.AddHeader("Accept")
	tr.SetAction(m.Action{Index: 1})
	tr.AddQueryParameter("q")
	tr.SetAction(m.Action{Index: 1})

	infos := tr.AdditionalInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, []string{"Accept"}, infos[0].Headers)
	assert.Empty(t, infos[0].QueryParameters)
	assert.Equal(t, []string{"q"}, infos[1].QueryParameters)
	assert.Nil(t, infos[1].LastExecutedStatement)
}

func TestTargetInfos(t *testing.T) {
	tr, r := newTracer()

	requested := naming.Line(module, 7)
	missing := naming.Line(module, 99)
	reqID := r.MappedID(requested)
	missingID := r.MappedID(missing)

	require.NoError(t, tr.UpdateObjective(requested, 1))
	require.NoError(t, tr.UpdateObjective("fresh", 0.5))

	infos, err := tr.TargetInfos([]int{reqID, missingID})
	require.NoError(t, err)
	require.Len(t, infos, 4)

	assert.Equal(t, reqID, *infos[0].MappedID)
	assert.Nil(t, infos[0].DescriptiveID)
	assert.Equal(t, 1.0, infos[0].Value)

	assert.Equal(t, m.NotReached(missingID), infos[1])

	assert.Equal(t, requested, *infos[2].DescriptiveID)
	assert.Equal(t, reqID, *infos[2].MappedID)

	assert.Equal(t, "fresh", *infos[3].DescriptiveID)
	assert.Equal(t, r.MappedID("fresh"), *infos[3].MappedID)
	assert.Equal(t, 0.5, infos[3].Value)

	r.ClearFirstTimeEncountered()

	infos, err = tr.TargetInfos([]int{reqID})
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	_, err = tr.TargetInfos([]int{1000})
	require.ErrorIs(t, err, recorder.ErrUnknownMappedID)
}

func TestNewSearchLeavesNoCoveredObjective(t *testing.T) {
	tr, r := newTracer()

	require.NoError(t, tr.CompletionStatement(module, 1, 1))
	tr.Reset()
	r.Reset(false)

	for _, id := range []string{naming.File(module), naming.Line(module, 1), naming.Statement(module, 1, 1)} {
		assert.NotEqual(t, 1.0, tr.Value(id))

		_, ok := r.BestValue(id)
		assert.False(t, ok)
	}
}
