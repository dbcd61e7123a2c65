// Package heuristic computes branch distances: how close a boolean
// expression was to evaluating to true and to false.
package heuristic

import "fmt"

const (
	// flagNoException is the floor given to the arm of a plain boolean
	// that did not happen.
	flagNoException = 0.01
	// exception is the ambiguous value given to both arms of an operand that panicked.
	exception = flagNoException / 2
)

// Truthness is a graded belief, in [0,1] for each arm, that an expression
// evaluated to true (OfTrue) and to false (OfFalse).
type Truthness struct {
	OfTrue  float64
	OfFalse float64
}

// Invert swaps the two arms, as for a logical negation.
func (t Truthness) Invert() Truthness {
	return Truthness{OfTrue: t.OfFalse, OfFalse: t.OfTrue}
}

// IsTrue reports whether the true arm is fully covered.
func (t Truthness) IsTrue() bool {
	return t.OfTrue == 1
}

// IsFalse reports whether the false arm is fully covered.
func (t Truthness) IsFalse() bool {
	return t.OfFalse == 1
}

// Valid reports whether both arms are in [0,1].
func (t Truthness) Valid() bool {
	return t.OfTrue >= 0 && t.OfTrue <= 1 && t.OfFalse >= 0 && t.OfFalse <= 1
}

func (t Truthness) String() string {
	return fmt.Sprintf("Truthness(%g, %g)", t.OfTrue, t.OfFalse)
}

// boolean is the non-graded truthness of an outcome: only the arm that
// happened is covered.
func boolean(outcome bool) Truthness {
	if outcome {
		return Truthness{OfTrue: 1, OfFalse: 0}
	}

	return Truthness{OfTrue: 0, OfFalse: 1}
}

// flag is the truthness of a plain boolean that carries no distance.
func flag(outcome bool) Truthness {
	if outcome {
		return Truthness{OfTrue: 1, OfFalse: flagNoException}
	}

	return Truthness{OfTrue: flagNoException, OfFalse: 1}
}
