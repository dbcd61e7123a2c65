package model

// Path represents a file system path.
type Path string

// Level selects which rewrite passes are applied to a source file.
// Each level is a strict superset of the previous one.
type Level int

const (
	// LevelNone leaves sources untouched.
	LevelNone Level = iota
	// LevelCoverage adds file, line and statement probes.
	LevelCoverage
	// LevelComparison adds branch distance for comparisons and negations.
	LevelComparison
	// LevelBoolean adds branch distance for && and ||.
	LevelBoolean
)

// Valid reports whether the level is one of the known levels.
func (l Level) Valid() bool {
	return l >= LevelNone && l <= LevelBoolean
}

// File is a Go source file together with its content hash.
type File struct {
	Path Path
	Hash string
}

// Module is a loaded Go package: its import path and source files.
type Module struct {
	ImportPath string
	Dir        Path
	Files      []SourceFile
}

// SourceFile is one file of a Module. Artifact is set once the file has
// been instrumented and points to the rewritten copy.
type SourceFile struct {
	File
	// ModuleID identifies the file inside objective names.
	ModuleID   string
	Source     []byte
	Artifact   Path
	Objectives []string
}

// Artifact is a cached instrumented copy of a source file. It is valid
// only while Hash and Level match the current source and configuration.
type Artifact struct {
	Source     Path     `json:"source"`
	Hash       string   `json:"hash"`
	Level      Level    `json:"level"`
	ModuleID   string   `json:"module"`
	Path       Path     `json:"artifact"`
	Objectives []string `json:"objectives"`
}

// Matches reports whether the artifact was produced from a source with
// the given hash at the given level.
func (a Artifact) Matches(hash string, level Level) bool {
	return a.Hash == hash && a.Level == level
}
