// Package naming formats and parses the descriptive ids of coverage objectives.
//
// Ids are stable across runs: they only depend on the module id, the line
// number (zero padded, so lexicographic order follows source order) and a
// per-kind counter assigned at instrumentation time.
package naming

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	filePrefix      = "File"
	linePrefix      = "Line"
	statementPrefix = "Statement"
	branchPrefix    = "Branch"

	// TrueBranch tags the objective of the "then" arm of a branch.
	TrueBranch = "_trueBranch"
	// FalseBranch tags the objective of the "else" arm of a branch.
	FalseBranch = "_falseBranch"

	cacheSize = 10_000
)

// Kind is the category of an objective.
type Kind int

// Objective kinds.
const (
	KindUnknown Kind = iota
	KindFile
	KindLine
	KindStatement
	KindBranchTrue
	KindBranchFalse
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindLine:
		return "line"
	case KindStatement:
		return "statement"
	case KindBranchTrue:
		return "branch-true"
	case KindBranchFalse:
		return "branch-false"
	default:
		return "unknown"
	}
}

type lineKey struct {
	module string
	line   int
}

type branchKey struct {
	module string
	line   int
	branch int
	then   bool
}

var (
	lineCache   = mustCache[lineKey]()
	branchCache = mustCache[branchKey]()
)

func mustCache[K comparable]() *lru.Cache[K, string] {
	c, err := lru.New[K, string](cacheSize)
	if err != nil {
		panic(err)
	}

	return c
}

// File returns the id of the objective covered when any line of module runs.
func File(module string) string {
	return filePrefix + "_" + module
}

// Line returns the id of a line objective.
func Line(module string, line int) string {
	key := lineKey{module: module, line: line}
	if name, ok := lineCache.Get(key); ok {
		return name
	}

	name := linePrefix + "_at_" + module + "_" + pad(line)
	lineCache.Add(key, name)

	return name
}

// Statement returns the id of a statement objective.
func Statement(module string, line, index int) string {
	return fmt.Sprintf("%s_%s_%s_%d", statementPrefix, module, pad(line), index)
}

// Branch returns the id of one arm of a branch objective.
func Branch(module string, line, branch int, thenBranch bool) string {
	key := branchKey{module: module, line: line, branch: branch, then: thenBranch}
	if name, ok := branchCache.Get(key); ok {
		return name
	}

	name := fmt.Sprintf("%s_at_%s_at_line_%s_position_%d", branchPrefix, module, pad(line), branch)
	if thenBranch {
		name += TrueBranch
	} else {
		name += FalseBranch
	}

	branchCache.Add(key, name)

	return name
}

// LastStatement returns the marker pushed on the location stack for a statement.
func LastStatement(module string, line, index int) string {
	return fmt.Sprintf("%s_%d_%d", module, line, index)
}

// KindOf classifies a descriptive id by its prefix.
func KindOf(id string) Kind {
	switch {
	case strings.HasPrefix(id, filePrefix+"_"):
		return KindFile
	case strings.HasPrefix(id, linePrefix+"_"):
		return KindLine
	case strings.HasPrefix(id, statementPrefix+"_"):
		return KindStatement
	case strings.HasPrefix(id, branchPrefix+"_"):
		if strings.HasSuffix(id, TrueBranch) {
			return KindBranchTrue
		}

		if strings.HasSuffix(id, FalseBranch) {
			return KindBranchFalse
		}
	}

	return KindUnknown
}

// UnitOf returns the module of a file objective id.
func UnitOf(id string) (string, bool) {
	if KindOf(id) != KindFile {
		return "", false
	}

	return strings.TrimPrefix(id, filePrefix+"_"), true
}

// Prefix returns the id prefix shared by all objectives of the kind,
// usable with prefix-filtered tracer queries.
func Prefix(k Kind) string {
	switch k {
	case KindFile:
		return filePrefix
	case KindLine:
		return linePrefix
	case KindStatement:
		return statementPrefix
	case KindBranchTrue, KindBranchFalse:
		return branchPrefix
	default:
		return ""
	}
}

func pad(n int) string {
	if n < 0 {
		panic(fmt.Sprintf("negative number to pad: %d", n))
	}

	return fmt.Sprintf("%05d", n)
}
