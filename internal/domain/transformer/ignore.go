package transformer

import (
	"go/ast"
	"go/token"
	"strings"

	m "github.com/mouse-blink/evoprobe/internal/model"
)

const directive = "evoprobe:ignore"

// levelCaps maps the name of a rewrite pass to the highest level that
// excludes it.
var levelCaps = map[string]m.Level{
	"coverage":   m.LevelNone,
	"comparison": m.LevelCoverage,
	"boolean":    m.LevelComparison,
}

type ignoreRule struct {
	all   bool
	names map[string]struct{}
}

// cap lowers level below every pass the rule ignores.
func (r ignoreRule) cap(level m.Level) m.Level {
	if r.all {
		return m.LevelNone
	}

	for name := range r.names {
		if c, ok := levelCaps[name]; ok && c < level {
			level = c
		}
	}

	return level
}

func mergeIgnoreRule(dst *ignoreRule, src ignoreRule) {
	if src.all {
		dst.all = true
		dst.names = nil

		return
	}

	if dst.all || len(src.names) == 0 {
		return
	}

	if dst.names == nil {
		dst.names = make(map[string]struct{}, len(src.names))
	}

	for name := range src.names {
		dst.names[name] = struct{}{}
	}
}

func parseIgnoreDirective(commentText string) (ignoreRule, bool) {
	s := strings.TrimSpace(commentText)
	if strings.HasPrefix(s, "//") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "//"))
	} else if strings.HasPrefix(s, "/*") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "/*"))
		s = strings.TrimSpace(strings.TrimSuffix(s, "*/"))
	}

	rest, ok := strings.CutPrefix(s, directive)
	if !ok {
		return ignoreRule{}, false
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return ignoreRule{all: true}, true
	}

	rule := ignoreRule{names: make(map[string]struct{})}

	for _, part := range strings.Split(rest, ",") {
		if name := strings.ToLower(strings.TrimSpace(part)); name != "" {
			rule.names[name] = struct{}{}
		}
	}

	if len(rule.names) == 0 {
		return ignoreRule{all: true}, true
	}

	return rule, true
}

func parseGroup(group *ast.CommentGroup) (ignoreRule, bool) {
	var (
		rule  ignoreRule
		found bool
	)

	for _, c := range group.List {
		if r, ok := parseIgnoreDirective(c.Text); ok {
			mergeIgnoreRule(&rule, r)
			found = true
		}
	}

	return rule, found
}

// ignoreIndex holds the directives of a file by scope.
type ignoreIndex struct {
	file  ignoreRule
	funcs map[token.Pos]ignoreRule
	lines map[int]ignoreRule
}

func buildIgnoreIndex(file *ast.File, fset *token.FileSet) ignoreIndex {
	idx := ignoreIndex{
		funcs: make(map[token.Pos]ignoreRule),
		lines: make(map[int]ignoreRule),
	}

	docs := make(map[*ast.CommentGroup]struct{})

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Doc == nil {
			continue
		}

		docs[fd.Doc] = struct{}{}

		if rule, ok := parseGroup(fd.Doc); ok {
			idx.funcs[fd.Pos()] = rule
		}
	}

	firstColumns := lineStartColumns(file, fset)

	for _, group := range file.Comments {
		if _, ok := docs[group]; ok {
			continue
		}

		if group.End() < file.Package {
			if rule, ok := parseGroup(group); ok {
				mergeIgnoreRule(&idx.file, rule)
			}

			continue
		}

		for _, c := range group.List {
			r, ok := parseIgnoreDirective(c.Text)
			if !ok {
				continue
			}

			pos := fset.PositionFor(c.Slash, false)

			// A comment that follows code applies to its own line,
			// one alone on its line applies to the next.
			target := pos.Line + 1
			if col, ok := firstColumns[pos.Line]; ok && col < pos.Column {
				target = pos.Line
			}

			rule := idx.lines[target]
			mergeIgnoreRule(&rule, r)
			idx.lines[target] = rule
		}
	}

	return idx
}

// lineStartColumns records the column of the first node on each line.
func lineStartColumns(file *ast.File, fset *token.FileSet) map[int]int {
	cols := make(map[int]int)

	ast.Inspect(file, func(n ast.Node) bool {
		if n == nil {
			return false
		}

		if _, ok := n.(*ast.CommentGroup); ok {
			return false
		}

		if _, ok := n.(*ast.Comment); ok {
			return false
		}

		pos := fset.PositionFor(n.Pos(), false)
		if col, ok := cols[pos.Line]; !ok || pos.Column < col {
			cols[pos.Line] = pos.Column
		}

		return true
	})

	return cols
}

// trimComments drops every comment except //go: directives at the start
// of a line, which still matter to the compiler. The result is never nil
// so the printer does not fall back to doc comments attached to nodes.
func trimComments(file *ast.File, fset *token.FileSet) []*ast.CommentGroup {
	comments := []*ast.CommentGroup{}

	for _, group := range file.Comments {
		var list []*ast.Comment

		for _, c := range group.List {
			if strings.HasPrefix(c.Text, "//go:") && fset.PositionFor(c.Slash, false).Column == 1 {
				list = append(list, c)
			}
		}

		if list != nil {
			comments = append(comments, &ast.CommentGroup{List: list})
		}
	}

	return comments
}
