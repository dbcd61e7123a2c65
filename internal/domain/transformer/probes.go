package transformer

import (
	"go/ast"
	"go/token"
	"strconv"
)

func probeSelector(name string) *ast.SelectorExpr {
	return &ast.SelectorExpr{X: ast.NewIdent(ProbeName), Sel: ast.NewIdent(name)}
}

func callExpr(fun ast.Expr, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Fun: fun, Args: args}
}

func intLit(n int) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(n)}
}

func stringLit(s string) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}

func (f *fileRewriter) location(line, id int) []ast.Expr {
	return []ast.Expr{stringLit(f.module), intLit(line), intLit(id)}
}

// probeCall builds _em_.name(args..., module, line, id).
func (f *fileRewriter) probeCall(name string, args []ast.Expr, line, id int) *ast.CallExpr {
	return callExpr(probeSelector(name), append(args, f.location(line, id)...)...)
}

func (f *fileRewriter) statementProbe(name string, line, id int) ast.Stmt {
	return &ast.ExprStmt{X: f.probeCall(name, nil, line, id)}
}

// completing builds _em_.Completing[typ](v, module, line, id).
func (f *fileRewriter) completing(typ, v ast.Expr, line, id int) ast.Expr {
	fun := &ast.IndexExpr{X: probeSelector("Completing"), Index: typ}

	return callExpr(fun, append([]ast.Expr{v}, f.location(line, id)...)...)
}

func valueOf(eval ast.Expr) ast.Expr {
	return callExpr(&ast.SelectorExpr{X: eval, Sel: ast.NewIdent("Value")})
}

// thunk builds func() _em_.Eval { return e }.
func thunk(e ast.Expr) *ast.FuncLit {
	return &ast.FuncLit{
		Type: &ast.FuncType{
			Params:  &ast.FieldList{},
			Results: &ast.FieldList{List: []*ast.Field{{Type: probeSelector("Eval")}}},
		},
		Body: &ast.BlockStmt{List: []ast.Stmt{&ast.ReturnStmt{Results: []ast.Expr{e}}}},
	}
}

// registration builds var _ = _em_.RegisterTargets(ids...), which registers
// the inventory when the instrumented package initialises and keeps the
// probe import used.
func registration(ids []string) *ast.GenDecl {
	args := make([]ast.Expr, 0, len(ids))
	for _, id := range ids {
		args = append(args, stringLit(id))
	}

	return &ast.GenDecl{
		Tok: token.VAR,
		Specs: []ast.Spec{
			&ast.ValueSpec{
				Names:  []*ast.Ident{ast.NewIdent("_")},
				Values: []ast.Expr{callExpr(probeSelector("RegisterTargets"), args...)},
			},
		},
	}
}

// cloneType copies a result type without positions so it can be used as
// a type argument. Types it can not copy are reported with false.
func cloneType(e ast.Expr) (ast.Expr, bool) {
	switch t := e.(type) {
	case *ast.Ident:
		return ast.NewIdent(t.Name), true
	case *ast.SelectorExpr:
		x, ok := cloneType(t.X)
		if !ok {
			return nil, false
		}

		return &ast.SelectorExpr{X: x, Sel: ast.NewIdent(t.Sel.Name)}, true
	case *ast.StarExpr:
		x, ok := cloneType(t.X)

		return &ast.StarExpr{X: x}, ok
	case *ast.ParenExpr:
		return cloneType(t.X)
	case *ast.ArrayType:
		return cloneArray(t)
	case *ast.MapType:
		k, ok := cloneType(t.Key)
		if !ok {
			return nil, false
		}

		v, ok := cloneType(t.Value)

		return &ast.MapType{Key: k, Value: v}, ok
	case *ast.ChanType:
		v, ok := cloneType(t.Value)

		return &ast.ChanType{Dir: t.Dir, Value: v}, ok
	case *ast.IndexExpr:
		x, ok := cloneType(t.X)
		if !ok {
			return nil, false
		}

		idx, ok := cloneType(t.Index)

		return &ast.IndexExpr{X: x, Index: idx}, ok
	case *ast.IndexListExpr:
		x, ok := cloneType(t.X)
		if !ok {
			return nil, false
		}

		out := &ast.IndexListExpr{X: x}

		for _, idx := range t.Indices {
			c, ok := cloneType(idx)
			if !ok {
				return nil, false
			}

			out.Indices = append(out.Indices, c)
		}

		return out, true
	case *ast.InterfaceType:
		if t.Methods != nil && len(t.Methods.List) > 0 {
			return nil, false
		}

		return &ast.InterfaceType{Methods: &ast.FieldList{}}, true
	default:
		return nil, false
	}
}

func cloneArray(t *ast.ArrayType) (ast.Expr, bool) {
	elt, ok := cloneType(t.Elt)
	if !ok {
		return nil, false
	}

	out := &ast.ArrayType{Elt: elt}

	switch l := t.Len.(type) {
	case nil:
	case *ast.BasicLit:
		out.Len = &ast.BasicLit{Kind: l.Kind, Value: l.Value}
	case *ast.Ident:
		out.Len = ast.NewIdent(l.Name)
	default:
		return nil, false
	}

	return out, true
}
