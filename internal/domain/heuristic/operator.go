package heuristic

import (
	"errors"
	"fmt"
)

// Op is a comparison operator handled by the evaluator.
type Op string

// Supported operators. Only the first six receive a graded distance.
const (
	EQ    Op = "=="
	NE    Op = "!="
	LT    Op = "<"
	LE    Op = "<="
	GT    Op = ">"
	GE    Op = ">="
	Is    Op = "is"
	IsNot Op = "is not"
	In    Op = "in"
	NotIn Op = "not in"
)

var (
	// ErrUnsupportedOperator is returned for operators outside the supported set.
	ErrUnsupportedOperator = errors.New("unsupported comparison operator")
	// ErrIncomparable is returned when operands can not be ordered or searched.
	ErrIncomparable = errors.New("incomparable operands")
)

var operators = map[Op]struct{}{
	EQ: {}, NE: {}, LT: {}, LE: {}, GT: {}, GE: {},
	Is: {}, IsNot: {}, In: {}, NotIn: {},
}

// ParseOp converts the textual form of an operator.
func ParseOp(s string) (Op, error) {
	op := Op(s)
	if _, ok := operators[op]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOperator, s)
	}

	return op, nil
}

// Graded reports whether the operator receives a distance heuristic.
func (op Op) Graded() bool {
	switch op {
	case EQ, NE, LT, LE, GT, GE:
		return true
	default:
		return false
	}
}
