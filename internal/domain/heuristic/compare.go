package heuristic

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"
)

// maxCharDistance is the distance charged per missing character and for
// ordered strings with no differing character in their shared prefix.
const maxCharDistance = 65536

// Compare returns the truthness of left op right for the six graded
// operators. Numbers and strings receive a distance; any other pair of
// operands compared for equality receives a boolean truthness.
func Compare(left any, op Op, right any) (Truthness, error) {
	_, t, err := compare(left, op, right)

	return t, err
}

// Evaluate returns both the outcome and the truthness of left op right.
// Identity and membership operators have no distance and report a
// boolean truthness.
func Evaluate(left any, op Op, right any) (bool, Truthness, error) {
	switch op { //nolint:exhaustive
	case Is, IsNot:
		same := identical(left, right)
		if op == IsNot {
			same = !same
		}

		return same, boolean(same), nil
	case In, NotIn:
		in, err := contains(right, left)
		if err != nil {
			return false, Truthness{}, err
		}

		if op == NotIn {
			in = !in
		}

		return in, boolean(in), nil
	default:
		return compare(left, op, right)
	}
}

func compare(left any, op Op, right any) (bool, Truthness, error) {
	switch op { //nolint:exhaustive
	case EQ:
		eq, t := equality(left, right)

		return eq, t, nil
	case NE:
		eq, t := equality(left, right)

		return !eq, t.Invert(), nil
	case LT:
		return lessThan(left, right)
	case GE:
		lt, t, err := lessThan(left, right)

		return !lt, t.Invert(), err
	case LE:
		gt, t, err := lessThan(right, left)

		return !gt, t.Invert(), err
	case GT:
		le, t, err := compare(left, LE, right)

		return !le, t.Invert(), err
	default:
		return false, Truthness{}, fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
	}
}

func equality(left, right any) (bool, Truthness) {
	if c, d, ok := integers(left, right); ok {
		eq := c == 0

		return eq, Truthness{OfTrue: truthOfDistance(d), OfFalse: bit(!eq)}
	}

	if a, b, ok := numbers(left, right); ok {
		eq := a == b
		d := math.Abs(a - b)
		if math.IsNaN(d) {
			return eq, boolean(eq)
		}

		return eq, Truthness{OfTrue: truthOfDistance(d), OfFalse: bit(!eq)}
	}

	if a, b, ok := texts(left, right); ok {
		eq := a == b

		return eq, Truthness{OfTrue: truthOfDistance(stringDistance(a, b)), OfFalse: bit(!eq)}
	}

	eq := equal(left, right)

	return eq, boolean(eq)
}

func lessThan(left, right any) (bool, Truthness, error) {
	if c, d, ok := integers(left, right); ok {
		lt := c < 0

		return lt, ordered(lt, d), nil
	}

	if a, b, ok := numbers(left, right); ok {
		lt := a < b
		d := math.Abs(a - b)
		if math.IsNaN(d) {
			return lt, boolean(lt), nil
		}

		return lt, ordered(lt, d), nil
	}

	if isText(left) || isText(right) {
		a, b := text(left), text(right)
		lt := a < b

		return lt, ordered(lt, firstRuneDistance(a, b)), nil
	}

	return false, Truthness{}, fmt.Errorf("%w: %T < %T", ErrIncomparable, left, right)
}

func ordered(lt bool, d float64) Truthness {
	near := 1 / (1.1 + d)
	if lt {
		return Truthness{OfTrue: 1, OfFalse: near}
	}

	return Truthness{OfTrue: near, OfFalse: 1}
}

func truthOfDistance(d float64) float64 {
	if math.IsInf(d, 1) {
		return 0
	}

	return 1 - d/(d+1)
}

func bit(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

// stringDistance charges maxCharDistance per character of length
// difference plus the code point differences over the shared prefix.
func stringDistance(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	d := maxCharDistance * math.Abs(float64(len(ra)-len(rb)))

	for i := range min(len(ra), len(rb)) {
		d += math.Abs(float64(ra[i] - rb[i]))
	}

	return d
}

func firstRuneDistance(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	for i := range min(len(ra), len(rb)) {
		if ra[i] != rb[i] {
			return math.Abs(float64(ra[i] - rb[i]))
		}
	}

	return maxCharDistance
}

// integers compares two integer operands of any kind and signedness
// exactly. Only the distance is rounded to float64.
func integers(left, right any) (int, float64, bool) {
	a, ok := integer(left)
	if !ok {
		return 0, 0, false
	}

	b, ok := integer(right)
	if !ok {
		return 0, 0, false
	}

	d, _ := new(big.Int).Sub(a, b).Float64()

	return a.Cmp(b), math.Abs(d), true
}

func integer(v any) (*big.Int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(rv.Uint()), true
	default:
		return nil, false
	}
}

func numbers(left, right any) (float64, float64, bool) {
	a, ok := number(left)
	if !ok {
		return 0, 0, false
	}

	b, ok := number(right)
	if !ok {
		return 0, 0, false
	}

	return a, b, true
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func texts(left, right any) (string, string, bool) {
	if !isText(left) || !isText(right) {
		return "", "", false
	}

	return text(left), text(right), true
}

func isText(v any) bool {
	return reflect.ValueOf(v).Kind() == reflect.String
}

// text renders an operand for string ordering. Non-string operands are
// coerced to their default format.
func text(v any) string {
	if isText(v) {
		return reflect.ValueOf(v).String()
	}

	return fmt.Sprint(v)
}

// equal never panics, including on uncomparable dynamic types.
func equal(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return !va.IsValid() && !vb.IsValid()
	}

	if va.Type() != vb.Type() {
		return false
	}

	if va.Comparable() {
		return va.Equal(vb)
	}

	return reflect.DeepEqual(a, b)
}

// identical compares reference kinds by address and everything else by value.
func identical(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return !va.IsValid() && !vb.IsValid()
	}

	switch va.Kind() { //nolint:exhaustive
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Type() == vb.Type() && va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return equal(a, b)
	}
}

func contains(container, item any) (bool, error) {
	vc := reflect.ValueOf(container)
	switch vc.Kind() { //nolint:exhaustive
	case reflect.String:
		if !isText(item) {
			return false, fmt.Errorf("%w: %T in %T", ErrIncomparable, item, container)
		}

		return strings.Contains(vc.String(), text(item)), nil
	case reflect.Slice, reflect.Array:
		for i := range vc.Len() {
			if equal(vc.Index(i).Interface(), item) {
				return true, nil
			}
		}

		return false, nil
	case reflect.Map:
		key := reflect.ValueOf(item)
		if !key.IsValid() || !key.Type().AssignableTo(vc.Type().Key()) {
			return false, nil
		}

		return vc.MapIndex(key).IsValid(), nil
	default:
		return false, fmt.Errorf("%w: %T in %T", ErrIncomparable, item, container)
	}
}
