package adapter

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
)

// GoFileAdapter hides go/parser and go/printer from the loader so that
// rewriting can be tested on in-memory sources.
type GoFileAdapter interface {
	// Parse builds an AST using the provided file set and optional source bytes.
	Parse(fileSet *token.FileSet, filename string, src []byte) (*ast.File, error)
	// Print renders file back to Go source.
	Print(fileSet *token.FileSet, file *ast.File) ([]byte, error)
}

// LocalGoFileAdapter provides a concrete GoFileAdapter backed by go/parser.
type LocalGoFileAdapter struct {
	config printer.Config
}

// NewLocalGoFileAdapter constructs a LocalGoFileAdapter.
func NewLocalGoFileAdapter() *LocalGoFileAdapter {
	return &LocalGoFileAdapter{
		// SourcePos emits //line directives so panics in rewritten code
		// still point at the original file and line.
		config: printer.Config{Mode: printer.UseSpaces | printer.TabIndent | printer.SourcePos, Tabwidth: 8},
	}
}

// Parse builds an AST for the provided filename/source pair.
func (a *LocalGoFileAdapter) Parse(fileSet *token.FileSet, filename string, src []byte) (*ast.File, error) {
	return parser.ParseFile(fileSet, filename, src, parser.ParseComments)
}

// Print renders file with its original positions preserved.
func (a *LocalGoFileAdapter) Print(fileSet *token.FileSet, file *ast.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := a.config.Fprint(&buf, fileSet, file); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
