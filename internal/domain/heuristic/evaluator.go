package heuristic

import (
	"fmt"
	"math"
)

// BranchRecorder stores the truthness observed at a branch.
type BranchRecorder interface {
	UpdateBranch(module string, line, branch int, t Truthness) error
}

// Evaluator computes truthness for instrumented expressions and records
// it at the branch the expression belongs to.
type Evaluator struct {
	branches BranchRecorder
}

// NewEvaluator creates an evaluator reporting to branches.
func NewEvaluator(branches BranchRecorder) *Evaluator {
	return &Evaluator{branches: branches}
}

// Evaluate computes left op right, records its truthness and returns it.
func (e *Evaluator) Evaluate(left any, op Op, right any, module string, line, branch int) (Eval, error) {
	outcome, t, err := Evaluate(left, op, right)
	if err != nil {
		return Eval{}, err
	}

	if err := e.branches.UpdateBranch(module, line, branch, t); err != nil {
		return Eval{}, err
	}

	return NewEval(outcome, t), nil
}

// Observe records the truthness of left op right for an outcome the caller
// already computed natively. The returned value is always outcome.
func (e *Evaluator) Observe(outcome bool, left any, op Op, right any, module string, line, branch int) (Eval, error) {
	t, err := Compare(left, op, right)
	if err != nil {
		return Eval{}, err
	}

	if err := e.branches.UpdateBranch(module, line, branch, t); err != nil {
		return Eval{}, err
	}

	return NewEval(outcome, t), nil
}

// Outcome records a comparison whose operands have no distance.
func (e *Evaluator) Outcome(outcome bool, op Op, module string, line, branch int) (Eval, error) {
	if _, err := ParseOp(string(op)); err != nil {
		return Eval{}, err
	}

	t := boolean(outcome)
	if err := e.branches.UpdateBranch(module, line, branch, t); err != nil {
		return Eval{}, err
	}

	return NewEval(outcome, t), nil
}

// Not negates v and inverts its truthness. No branch is recorded.
func (e *Evaluator) Not(v Eval) Eval {
	if !v.graded {
		return Lift(!v.value)
	}

	return NewEval(!v.value, v.truthness.Invert())
}

// And evaluates left && right with short-circuit semantics, records the
// combined truthness and re-raises any panic the program would have seen.
// The right operand is also evaluated when left is false if rightPure is
// set; a panic from it is then suppressed.
func (e *Evaluator) And(left, right func() Eval, rightPure bool, module string, line, branch int) Eval {
	x := run(left)
	xt := x.truthness()

	var y operand

	var t Truthness

	if rightPure || (!x.panicked && x.eval.value) {
		y = run(right)
		yt := y.truthness()

		ofFalse := yt.OfFalse
		if x.panicked {
			ofFalse /= 2
		}

		t = Truthness{OfTrue: (xt.OfTrue + yt.OfTrue) / 2, OfFalse: math.Max(xt.OfFalse, ofFalse)}
	} else {
		t = Truthness{OfTrue: xt.OfTrue / 2, OfFalse: xt.OfFalse}
	}

	e.record(module, line, branch, t)

	if x.panicked {
		panic(x.recovered)
	}

	if !x.eval.value {
		return NewEval(false, t)
	}

	if y.panicked {
		panic(y.recovered)
	}

	return NewEval(y.eval.value, t)
}

// Or is the dual of And.
func (e *Evaluator) Or(left, right func() Eval, rightPure bool, module string, line, branch int) Eval {
	x := run(left)
	xt := x.truthness()

	var y operand

	var t Truthness

	if rightPure || (!x.panicked && !x.eval.value) {
		y = run(right)
		yt := y.truthness()

		ofTrue := yt.OfTrue
		if x.panicked {
			ofTrue /= 2
		}

		t = Truthness{OfTrue: math.Max(xt.OfTrue, ofTrue), OfFalse: (xt.OfFalse + yt.OfFalse) / 2}
	} else {
		t = Truthness{OfTrue: xt.OfTrue, OfFalse: xt.OfFalse / 2}
	}

	e.record(module, line, branch, t)

	if x.panicked {
		panic(x.recovered)
	}

	if x.eval.value {
		return NewEval(true, t)
	}

	if y.panicked {
		panic(y.recovered)
	}

	return NewEval(y.eval.value, t)
}

// record panics on failure: And and Or sit inside expressions that have
// no error return.
func (e *Evaluator) record(module string, line, branch int, t Truthness) {
	if err := e.branches.UpdateBranch(module, line, branch, t); err != nil {
		panic(fmt.Errorf("record branch %s:%d:%d: %w", module, line, branch, err))
	}
}

type operand struct {
	eval      Eval
	recovered any
	panicked  bool
}

func (o operand) truthness() Truthness {
	if o.panicked {
		return Truthness{OfTrue: exception, OfFalse: exception}
	}

	return o.eval.effective()
}

func run(f func() Eval) (o operand) {
	defer func() {
		if r := recover(); r != nil {
			o.recovered = r
			o.panicked = true
		}
	}()

	o.eval = f()

	return o
}
