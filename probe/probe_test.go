package probe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/evoprobe/internal/domain/heuristic"
	"github.com/mouse-blink/evoprobe/internal/domain/naming"
	"github.com/mouse-blink/evoprobe/internal/domain/session"
)

const module = "sut/main.go"

func bind(t *testing.T) *session.Session {
	t.Helper()

	s := session.New(nil)
	t.Cleanup(Bind(s))

	return s
}

func TestBindRestoresPreviousSession(t *testing.T) {
	before := Current()
	s := session.New(nil)

	restore := Bind(s)
	assert.Same(t, s, Current())

	restore()
	assert.Same(t, before, Current())

	restore()
	assert.Same(t, before, Current())
}

func TestRegisterTargets(t *testing.T) {
	s := bind(t)

	assert.True(t, RegisterTargets(naming.File(module), naming.Line(module, 1)))
	assert.True(t, s.IsInstrumentationActive())
	assert.Equal(t, 1, s.UnitsInfo().NumberOfLines)
}

func TestStatementProbes(t *testing.T) {
	s := bind(t)

	EnteringStatement(module, 1, 1)
	CompletedStatement(module, 1, 1)
	CompletionStatement(module, 2, 2)

	assert.Equal(t, 1.0, s.Tracer().Value(naming.Statement(module, 1, 1)))
	assert.Equal(t, 1.0, s.Tracer().Value(naming.Statement(module, 2, 2)))
}

func TestCompletingReturnsValue(t *testing.T) {
	s := bind(t)

	EnteringStatement(module, 3, 1)
	assert.Equal(t, "ok", Completing("ok", module, 3, 1))

	err := errors.New("boom")
	assert.Same(t, err, Completing[error](err, module, 3, 1))
	assert.Equal(t, 1.0, s.Tracer().Value(naming.Statement(module, 3, 1)))
}

// absolute is what the transformer emits for
//
//	if x < 0 { goto neg }
//	return x
//	neg: return -x
func absolute(x int) int {
	CompletionStatement(module, 10, 1)
	if Ordered(x, LT, 0, module, 10, 1).Value() {
		CompletionStatement(module, 11, 2)
		goto neg
	}
	EnteringStatement(module, 13, 3)
	return Completing(x, module, 13, 3)
neg:
	EnteringStatement(module, 14, 4)
	return Completing(-x, module, 14, 4)
}

func TestGotoTargetIsEntered(t *testing.T) {
	s := bind(t)

	assert.Equal(t, 3, absolute(-3))

	tr := s.Tracer()
	assert.Equal(t, 1.0, tr.Value(naming.File(module)))
	assert.Equal(t, 1.0, tr.Value(naming.Line(module, 14)))
	assert.Equal(t, 1.0, tr.Value(naming.Statement(module, 14, 4)))
	assert.False(t, tr.IsTargetReached(naming.Statement(module, 13, 3)))
}

func TestOrdered(t *testing.T) {
	s := bind(t)

	e := Ordered(2, LT, 5, module, 1, 1)
	assert.True(t, e.Value())

	truth, ok := e.Truthness()
	require.True(t, ok)
	assert.Equal(t, 1.0, truth.OfTrue)
	assert.InDelta(t, 1/4.1, truth.OfFalse, 1e-12)
	assert.InDelta(t, 1/4.1, s.Tracer().Value(naming.Branch(module, 1, 1, true)), 1e-12)

	type celsius float64

	assert.True(t, Ordered(celsius(0.1)+celsius(0.2), NE, celsius(0.3), module, 2, 2).Value())
	assert.False(t, Ordered("abc", GE, "abd", module, 3, 3).Value())
	assert.Panics(t, func() { Ordered(1, Op("<>"), 2, module, 4, 4) })
}

func TestEquality(t *testing.T) {
	bind(t)

	type point struct{ x, y int }

	assert.True(t, Equality(point{1, 2}, EQ, point{1, 2}, module, 1, 1).Value())
	assert.True(t, Equality[any](1, NE, "1", module, 1, 2).Value())
	assert.Panics(t, func() { Equality(point{}, LT, point{}, module, 1, 3) })
}

func TestOutcomeNotAndOr(t *testing.T) {
	s := bind(t)

	var err error

	nilCheck := Outcome(err == nil, EQ, module, 5, 1)
	assert.True(t, nilCheck.Value())
	assert.False(t, Not(nilCheck).Value())

	and := And(
		func() Eval { return Ordered(10, LT, 3, module, 6, 2) },
		func() Eval { panic("not evaluated") },
		false, module, 6, 3,
	)
	assert.False(t, and.Value())
	assert.Equal(t, 1.0, s.Tracer().Value(naming.Branch(module, 6, 3, true)))

	or := Or(
		func() Eval { return Lift(false) },
		func() Eval { return Lift(true) },
		false, module, 7, 4,
	)
	assert.True(t, or.Value())

	assert.PanicsWithError(t, heuristic.ErrUnsupportedOperator.Error()+`: "<=>"`, func() {
		Outcome(true, Op("<=>"), module, 8, 5)
	})
}
