package heuristic

// Eval is the result of an instrumented boolean expression: the value the
// program observes plus, when one was computed, its truthness.
type Eval struct {
	value     bool
	truthness Truthness
	graded    bool
}

// NewEval pairs an outcome with the truthness computed for it.
func NewEval(value bool, t Truthness) Eval {
	return Eval{value: value, truthness: t, graded: true}
}

// Lift wraps a plain boolean that carries no truthness of its own.
func Lift[B ~bool](b B) Eval {
	return Eval{value: bool(b)}
}

// Value is the outcome the instrumented program continues with.
func (e Eval) Value() bool {
	return e.value
}

// Truthness returns the recorded truthness and whether one was computed.
func (e Eval) Truthness() (Truthness, bool) {
	return e.truthness, e.graded
}

// effective falls back to a flag truthness for lifted booleans.
func (e Eval) effective() Truthness {
	if e.graded {
		return e.truthness
	}

	return flag(e.value)
}
