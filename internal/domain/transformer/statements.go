package transformer

import (
	"go/ast"
	"go/token"

	m "github.com/mouse-blink/evoprobe/internal/model"
)

// rewritten is a statement with the probes that go around it.
type rewritten struct {
	before []ast.Stmt
	stmt   ast.Stmt
	after  []ast.Stmt
}

func (f *fileRewriter) stmts(list []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(list)*3)

	for _, s := range list {
		r := f.stmt(s)
		out = append(out, r.before...)
		out = append(out, r.stmt)
		out = append(out, r.after...)
	}

	return out
}

func (f *fileRewriter) stmt(s ast.Stmt) rewritten {
	if rule, ok := f.ignore.lines[f.line(s.Pos())]; ok {
		restore := f.capLevel(rule)
		defer restore()
	}

	if f.level == m.LevelNone {
		return rewritten{stmt: s}
	}

	switch s := s.(type) {
	case *ast.BlockStmt:
		s.List = f.stmts(s.List)

		return rewritten{stmt: s}
	case *ast.LabeledStmt:
		return f.labeled(s)
	case *ast.ReturnStmt:
		return f.returnStmt(s)
	case *ast.BranchStmt:
		return f.completion(s)
	case *ast.ExprStmt:
		if isPanic(s.X) {
			r := f.completion(s)
			s.X = f.expr(s.X)

			return r
		}

		return f.simple(s)
	case *ast.AssignStmt, *ast.IncDecStmt, *ast.SendStmt, *ast.DeclStmt, *ast.DeferStmt, *ast.GoStmt:
		return f.simple(s)
	case *ast.IfStmt:
		return f.ifStmt(s)
	case *ast.ForStmt:
		r := f.completion(s)
		f.header(s.Init)
		s.Cond = f.expr(s.Cond)
		f.header(s.Post)
		s.Body.List = f.stmts(s.Body.List)

		return r
	case *ast.RangeStmt:
		r := f.completion(s)
		s.X = f.expr(s.X)
		s.Body.List = f.stmts(s.Body.List)

		return r
	case *ast.SwitchStmt:
		r := f.completion(s)
		f.header(s.Init)
		s.Tag = f.expr(s.Tag)
		f.clauses(s.Body, true)

		return r
	case *ast.TypeSwitchStmt:
		r := f.completion(s)
		f.header(s.Init)
		f.clauses(s.Body, false)

		return r
	case *ast.SelectStmt:
		r := f.completion(s)
		f.clauses(s.Body, false)

		return r
	default:
		// Empty and unknown statements carry no probe.
		return rewritten{stmt: s}
	}
}

// labeled keeps the label where its jumps expect it. break and continue
// need it on the loop, switch or select itself; a goto must land on the
// first probe so the statement is entered before it runs.
func (f *fileRewriter) labeled(s *ast.LabeledStmt) rewritten {
	r := f.stmt(s.Stmt)

	switch r.stmt.(type) {
	case *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
		s.Stmt = r.stmt
		r.stmt = s

		return r
	}

	if len(r.before) == 0 {
		s.Stmt = r.stmt
		r.stmt = s

		return r
	}

	s.Stmt = r.before[0]
	r.before[0] = s

	return r
}

// simple wraps a statement with entering and completed probes.
func (f *fileRewriter) simple(s ast.Stmt) rewritten {
	line, id := f.nextStatement(s.Pos())
	f.header(s)

	return rewritten{
		before: []ast.Stmt{f.statementProbe("EnteringStatement", line, id)},
		stmt:   s,
		after:  []ast.Stmt{f.statementProbe("CompletedStatement", line, id)},
	}
}

// completion puts a single probe before a statement that has no point
// after it, or whose body is instrumented on its own.
func (f *fileRewriter) completion(s ast.Stmt) rewritten {
	line, id := f.nextStatement(s.Pos())

	return rewritten{
		before: []ast.Stmt{f.statementProbe("CompletionStatement", line, id)},
		stmt:   s,
	}
}

func (f *fileRewriter) returnStmt(s *ast.ReturnStmt) rewritten {
	line, id := f.nextStatement(s.Pos())

	for i := range s.Results {
		s.Results[i] = f.expr(s.Results[i])
	}

	var results []ast.Expr
	if n := len(f.results); n > 0 {
		results = f.results[n-1]
	}

	last := len(s.Results) - 1
	if last < 0 || len(s.Results) != len(results) {
		return rewritten{before: []ast.Stmt{f.statementProbe("CompletionStatement", line, id)}, stmt: s}
	}

	typ, ok := cloneType(results[last])
	if !ok {
		return rewritten{before: []ast.Stmt{f.statementProbe("CompletionStatement", line, id)}, stmt: s}
	}

	s.Results[last] = f.completing(typ, s.Results[last], line, id)

	return rewritten{before: []ast.Stmt{f.statementProbe("EnteringStatement", line, id)}, stmt: s}
}

func (f *fileRewriter) ifStmt(s *ast.IfStmt) rewritten {
	r := f.completion(s)
	f.header(s.Init)
	s.Cond = f.expr(s.Cond)
	s.Body.List = f.stmts(s.Body.List)

	switch e := s.Else.(type) {
	case *ast.BlockStmt:
		e.List = f.stmts(e.List)
	case *ast.IfStmt:
		// An else-if header has no slot for a probe until it gets a block.
		s.Else = &ast.BlockStmt{List: f.stmts([]ast.Stmt{e})}
	}

	return r
}

func (f *fileRewriter) clauses(body *ast.BlockStmt, withExprs bool) {
	for _, c := range body.List {
		switch c := c.(type) {
		case *ast.CaseClause:
			if withExprs {
				for i := range c.List {
					c.List[i] = f.expr(c.List[i])
				}
			}

			c.Body = f.stmts(c.Body)
		case *ast.CommClause:
			c.Body = f.stmts(c.Body)
		}
	}
}

// header rewrites the expressions of a simple statement without adding
// probes, as needed for the init and post statements of compound headers.
func (f *fileRewriter) header(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.ExprStmt:
		s.X = f.expr(s.X)
	case *ast.AssignStmt:
		for i := range s.Lhs {
			s.Lhs[i] = f.expr(s.Lhs[i])
		}

		for i := range s.Rhs {
			s.Rhs[i] = f.expr(s.Rhs[i])
		}
	case *ast.IncDecStmt:
		s.X = f.expr(s.X)
	case *ast.SendStmt:
		s.Chan = f.expr(s.Chan)
		s.Value = f.expr(s.Value)
	case *ast.DeclStmt:
		if d, ok := s.Decl.(*ast.GenDecl); ok {
			f.genDecl(d)
		}
	case *ast.DeferStmt:
		f.call(s.Call)
	case *ast.GoStmt:
		f.call(s.Call)
	}
}

func (f *fileRewriter) call(c *ast.CallExpr) {
	c.Fun = f.expr(c.Fun)
	for i := range c.Args {
		c.Args[i] = f.expr(c.Args[i])
	}
}

// genDecl rewrites variable initialisers. Constants must stay constant.
func (f *fileRewriter) genDecl(d *ast.GenDecl) {
	if d.Tok != token.VAR {
		return
	}

	for _, spec := range d.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}

		for i := range vs.Values {
			vs.Values[i] = f.expr(vs.Values[i])
		}
	}
}

func isPanic(e ast.Expr) bool {
	c, ok := e.(*ast.CallExpr)
	if !ok {
		return false
	}

	id, ok := c.Fun.(*ast.Ident)

	return ok && id.Name == "panic"
}
