// Package probe is imported by instrumented code. Every function forwards
// to the currently bound session; a default session exists from package
// initialisation so probes running in init functions have somewhere to
// write.
//
// Probes have no error return: an invalid objective value or an
// unsupported operator panics with the underlying error.
package probe

import (
	"cmp"
	"fmt"
	"sync/atomic"

	"github.com/mouse-blink/evoprobe/internal/domain/heuristic"
	"github.com/mouse-blink/evoprobe/internal/domain/session"
)

// Eval is the result of an instrumented boolean expression.
type Eval = heuristic.Eval

// Op is a comparison operator.
type Op = heuristic.Op

// Operators emitted by the transformer.
const (
	EQ = heuristic.EQ
	NE = heuristic.NE
	LT = heuristic.LT
	LE = heuristic.LE
	GT = heuristic.GT
	GE = heuristic.GE
)

var current atomic.Pointer[session.Session]

func init() {
	current.Store(session.New(nil))
}

// Bind makes s the target of every probe. The returned function restores
// the previously bound session.
func Bind(s *session.Session) (restore func()) {
	prev := current.Swap(s)

	return func() {
		current.CompareAndSwap(s, prev)
	}
}

// Current returns the bound session.
func Current() *session.Session {
	return current.Load()
}

// RegisterTargets adds the objectives of an instrumented file to the
// inventory. It returns true so it can initialise a package variable.
func RegisterTargets(ids ...string) bool {
	s := Current()
	for _, id := range ids {
		s.RegisterTarget(id)
	}

	return true
}

// EnteringStatement is emitted before a simple statement.
func EnteringStatement(module string, line, stmt int) {
	must(Current().Tracer().EnteringStatement(module, line, stmt))
}

// CompletedStatement is emitted after a simple statement.
func CompletedStatement(module string, line, stmt int) {
	must(Current().Tracer().CompletedStatement(module, line, stmt))
}

// CompletionStatement is emitted before statements with no point after them.
func CompletionStatement(module string, line, stmt int) {
	must(Current().Tracer().CompletionStatement(module, line, stmt))
}

// Completing wraps the last result of a return statement. It completes
// the statement once every result has been evaluated and yields v unchanged.
func Completing[T any](v T, module string, line, stmt int) T {
	CompletedStatement(module, line, stmt)

	return v
}

// Ordered evaluates an ordering or equality comparison.
func Ordered[T cmp.Ordered](left T, op Op, right T, module string, line, branch int) Eval {
	var outcome bool

	switch op { //nolint:exhaustive
	case EQ:
		outcome = left == right
	case NE:
		outcome = left != right
	case LT:
		outcome = left < right
	case LE:
		outcome = left <= right
	case GT:
		outcome = left > right
	case GE:
		outcome = left >= right
	default:
		panic(fmt.Errorf("%w: %q", heuristic.ErrUnsupportedOperator, op))
	}

	return observe(outcome, left, op, right, module, line, branch)
}

// Equality evaluates == or != on operands that have no order.
func Equality[T comparable](left T, op Op, right T, module string, line, branch int) Eval {
	var outcome bool

	switch op { //nolint:exhaustive
	case EQ:
		outcome = left == right
	case NE:
		outcome = left != right
	default:
		panic(fmt.Errorf("%w: %q for unordered operands", heuristic.ErrUnsupportedOperator, op))
	}

	return observe(outcome, left, op, right, module, line, branch)
}

// Outcome records a comparison evaluated in place, for operands that can
// not be passed by value such as nil.
func Outcome(outcome bool, op Op, module string, line, branch int) Eval {
	e, err := Current().Evaluator().Outcome(outcome, op, module, line, branch)
	must(err)

	return e
}

// Not negates an instrumented expression.
func Not(e Eval) Eval {
	return Current().Evaluator().Not(e)
}

// And evaluates left && right.
func And(left, right func() Eval, rightPure bool, module string, line, branch int) Eval {
	return Current().Evaluator().And(left, right, rightPure, module, line, branch)
}

// Or evaluates left || right.
func Or(left, right func() Eval, rightPure bool, module string, line, branch int) Eval {
	return Current().Evaluator().Or(left, right, rightPure, module, line, branch)
}

// Lift wraps a boolean operand of && or || that is not itself instrumented.
func Lift[B ~bool](b B) Eval {
	return heuristic.Lift(b)
}

func observe(outcome bool, left any, op Op, right any, module string, line, branch int) Eval {
	e, err := Current().Evaluator().Observe(outcome, left, op, right, module, line, branch)
	must(err)

	return e
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
