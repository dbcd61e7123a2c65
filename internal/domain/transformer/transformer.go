// Package transformer rewrites a parsed Go file so that running it reports
// statement coverage and branch distances to the probe package.
package transformer

import (
	"errors"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"sort"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/mouse-blink/evoprobe/internal/domain/naming"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

const (
	// ProbePath is the import path of the package instrumented code calls.
	ProbePath = "github.com/mouse-blink/evoprobe/probe"
	// ProbeName is the name the probe package is imported under.
	ProbeName = "_em_"
)

// ErrNilFile is returned when there is nothing to transform.
var ErrNilFile = errors.New("nil file")

// Registrar receives every objective found while rewriting.
type Registrar interface {
	RegisterTarget(id string)
}

// Result is the outcome of transforming one file.
type Result struct {
	File *ast.File
	// Objectives lists, sorted, every objective the rewritten file can reach.
	Objectives []string
	// Instrumented is false when the file was left untouched.
	Instrumented bool
}

// Transformer inserts probes into Go files at a fixed instrumentation level.
type Transformer struct {
	level     m.Level
	registrar Registrar
	logger    *slog.Logger
}

// New creates a Transformer. A nil registrar is allowed; a nil logger
// falls back to slog.Default().
func New(level m.Level, registrar Registrar, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Transformer{level: level, registrar: registrar, logger: logger}
}

// Level returns the configured instrumentation level.
func (t *Transformer) Level() m.Level {
	return t.level
}

// Transform rewrites file in place. module identifies the file in every
// objective. info is optional; when given, expressions whose rewrite
// would not type check are left alone.
func (t *Transformer) Transform(module string, fset *token.FileSet, file *ast.File, info *types.Info) (*Result, error) {
	if file == nil {
		return nil, ErrNilFile
	}

	idx := buildIgnoreIndex(file, fset)
	level := idx.file.cap(t.level)

	if reason := skipReason(file, level); reason != "" {
		t.logger.Debug("file not instrumented", slog.String("module", module), slog.String("reason", reason))

		return &Result{File: file}, nil
	}

	f := &fileRewriter{
		module:     module,
		fset:       fset,
		info:       info,
		level:      level,
		ignore:     idx,
		objectives: make(map[string]struct{}),
		plans:      make(map[ast.Expr]plan),
		starts:     make(map[ast.Expr]token.Pos),
		evals:      make(map[ast.Expr]ast.Expr),
	}

	f.register(naming.File(module))
	f.rewrite(file)

	objectives := make([]string, 0, len(f.objectives))
	for id := range f.objectives {
		objectives = append(objectives, id)
	}

	sort.Strings(objectives)

	astutil.AddNamedImport(fset, file, ProbeName, ProbePath)
	file.Decls = append(file.Decls, registration(objectives))
	file.Comments = trimComments(file, fset)

	if t.registrar != nil {
		for _, id := range objectives {
			t.registrar.RegisterTarget(id)
		}
	}

	t.logger.Debug("file instrumented",
		slog.String("module", module),
		slog.Int("level", int(level)),
		slog.Int("statements", f.statements),
		slog.Int("branches", f.branches),
	)

	return &Result{File: file, Objectives: objectives, Instrumented: true}, nil
}

func skipReason(file *ast.File, level m.Level) string {
	if level == m.LevelNone {
		return "level " + strconv.Itoa(int(level))
	}

	if ast.IsGenerated(file) {
		return "generated"
	}

	for _, spec := range file.Imports {
		if spec.Path != nil && spec.Path.Value == `"C"` {
			return "cgo"
		}
	}

	return ""
}

type plan int

const (
	planOrdered plan = iota + 1
	planEquality
	planOutcome
	planLogical
	planNot
)

// fileRewriter holds the state of one Transform call.
type fileRewriter struct {
	module string
	fset   *token.FileSet
	info   *types.Info
	level  m.Level
	ignore ignoreIndex

	statements int
	branches   int
	objectives map[string]struct{}

	// results holds the expanded result types of the enclosing functions.
	results [][]ast.Expr
	// plans is decided before children are rewritten, while type
	// information still refers to the original nodes.
	plans map[ast.Expr]plan
	// starts keeps the original position of planned binary expressions.
	starts map[ast.Expr]token.Pos
	// evals maps a rewritten boolean expression to the Eval it unwraps.
	evals map[ast.Expr]ast.Expr
}

func (f *fileRewriter) rewrite(file *ast.File) {
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			f.funcDecl(d)
		case *ast.GenDecl:
			f.genDecl(d)
		}
	}
}

func (f *fileRewriter) funcDecl(d *ast.FuncDecl) {
	if d.Body == nil {
		return
	}

	restore := f.capLevel(f.ignore.funcs[d.Pos()])
	defer restore()

	if f.level == m.LevelNone {
		return
	}

	f.funcBody(d.Type, d.Body)
}

func (f *fileRewriter) funcBody(typ *ast.FuncType, body *ast.BlockStmt) {
	f.results = append(f.results, expandResults(typ.Results))
	defer func() { f.results = f.results[:len(f.results)-1] }()

	body.List = f.stmts(body.List)
}

// capLevel lowers the level for the duration of a scope.
func (f *fileRewriter) capLevel(rule ignoreRule) (restore func()) {
	prev := f.level
	f.level = rule.cap(prev)

	return func() { f.level = prev }
}

func (f *fileRewriter) register(id string) {
	f.objectives[id] = struct{}{}
}

func (f *fileRewriter) line(pos token.Pos) int {
	return f.fset.PositionFor(pos, false).Line
}

// nextStatement allocates a statement id and registers its objectives.
func (f *fileRewriter) nextStatement(pos token.Pos) (line, id int) {
	f.statements++
	line, id = f.line(pos), f.statements

	f.register(naming.Line(f.module, line))
	f.register(naming.Statement(f.module, line, id))

	return line, id
}

// nextBranch allocates a branch id and registers both arms.
func (f *fileRewriter) nextBranch(pos token.Pos) (line, id int) {
	f.branches++
	line, id = f.line(pos), f.branches

	f.register(naming.Branch(f.module, line, id, true))
	f.register(naming.Branch(f.module, line, id, false))

	return line, id
}

// expandResults lists one type expression per result of a signature.
func expandResults(results *ast.FieldList) []ast.Expr {
	if results == nil {
		return nil
	}

	var out []ast.Expr

	for _, field := range results.List {
		n := max(len(field.Names), 1)
		for range n {
			out = append(out, field.Type)
		}
	}

	return out
}
