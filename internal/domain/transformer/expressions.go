package transformer

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ast/astutil"

	m "github.com/mouse-blink/evoprobe/internal/model"
)

// expr rewrites the boolean operators of e allowed at the current level.
// Function literals found on the way are instrumented as functions.
func (f *fileRewriter) expr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}

	holder := &ast.ParenExpr{X: e}
	astutil.Apply(holder, f.pre, f.post)

	return holder.X
}

func (f *fileRewriter) pre(c *astutil.Cursor) bool {
	switch n := c.Node().(type) {
	case *ast.FuncLit:
		f.funcBody(n.Type, n.Body)

		return false
	case *ast.BinaryExpr:
		if p, ok := f.planBinary(n); ok {
			f.plans[n] = p
			f.starts[n] = n.Pos()
		}
	case *ast.UnaryExpr:
		if f.level >= m.LevelComparison && isNotOp(n.Op) && f.plainBool(n) {
			f.plans[n] = planNot
		}
	}

	return true
}

func (f *fileRewriter) post(c *astutil.Cursor) bool {
	e, ok := c.Node().(ast.Expr)
	if !ok {
		return true
	}

	p, ok := f.plans[e]
	if !ok {
		return true
	}

	delete(f.plans, e)

	switch n := e.(type) {
	case *ast.BinaryExpr:
		// n.Pos() now belongs to a rewritten operand.
		start := f.starts[n]
		delete(f.starts, n)

		if p == planLogical {
			c.Replace(f.logical(n, start))
		} else {
			c.Replace(f.comparison(n, p, start))
		}
	case *ast.UnaryExpr:
		c.Replace(f.not(n))
	}

	return true
}

func (f *fileRewriter) planBinary(n *ast.BinaryExpr) (plan, bool) {
	if isLogicalOp(n.Op) {
		return planLogical, f.level >= m.LevelBoolean && f.plainBool(n)
	}

	if !isComparisonOp(n.Op) || f.level < m.LevelComparison || !f.plainBool(n) {
		return 0, false
	}

	if isNil(n.X) || isNil(n.Y) {
		return planOutcome, true
	}

	ordering := isOrderingOp(n.Op)

	if f.info == nil {
		if ordering {
			return planOrdered, true
		}

		return planEquality, true
	}

	tx, ty := f.info.TypeOf(n.X), f.info.TypeOf(n.Y)
	if tx == nil || ty == nil || !types.Identical(tx, ty) {
		return planOutcome, true
	}

	if ordering {
		return planOrdered, true
	}

	if types.Comparable(tx) {
		return planEquality, true
	}

	return planOutcome, true
}

// plainBool reports whether e is known to have type bool. Expressions of
// a named boolean type keep their original form.
func (f *fileRewriter) plainBool(e ast.Expr) bool {
	if f.info == nil {
		return true
	}

	t := f.info.TypeOf(e)
	if t == nil {
		return true
	}

	b, ok := t.(*types.Basic)

	return ok && (b.Kind() == types.Bool || b.Kind() == types.UntypedBool)
}

func (f *fileRewriter) comparison(n *ast.BinaryExpr, p plan, start token.Pos) ast.Expr {
	line, id := f.nextBranch(start)
	op := probeSelector(operatorNames[n.Op])

	var eval ast.Expr

	switch p { //nolint:exhaustive
	case planOrdered:
		eval = f.probeCall("Ordered", []ast.Expr{n.X, op, n.Y}, line, id)
	case planEquality:
		eval = f.probeCall("Equality", []ast.Expr{n.X, op, n.Y}, line, id)
	default:
		eval = f.probeCall("Outcome", []ast.Expr{n, op}, line, id)
	}

	return f.value(eval)
}

func (f *fileRewriter) logical(n *ast.BinaryExpr, start token.Pos) ast.Expr {
	line, id := f.nextBranch(start)

	name := "And"
	if n.Op != andOp {
		name = "Or"
	}

	// The right operand is never assumed free of side effects.
	args := []ast.Expr{thunk(f.evalOf(n.X)), thunk(f.evalOf(n.Y)), ast.NewIdent("false")}

	return f.value(f.probeCall(name, args, line, id))
}

func (f *fileRewriter) not(n *ast.UnaryExpr) ast.Expr {
	return f.value(callExpr(probeSelector("Not"), f.evalOf(n.X)))
}

// value turns an Eval into the boolean the program sees and remembers
// the pair so enclosing operators can unwrap it.
func (f *fileRewriter) value(eval ast.Expr) ast.Expr {
	v := valueOf(eval)
	f.evals[v] = eval

	return v
}

// evalOf returns the Eval behind a rewritten operand, or lifts a plain one.
func (f *fileRewriter) evalOf(e ast.Expr) ast.Expr {
	inner := ast.Unparen(e)
	if eval, ok := f.evals[inner]; ok {
		return eval
	}

	return callExpr(probeSelector("Lift"), e)
}

func isNil(e ast.Expr) bool {
	id, ok := ast.Unparen(e).(*ast.Ident)

	return ok && id.Name == "nil"
}
