// Package recorder keeps the search-wide objective registry: the static
// inventory registered at rewrite time, the descriptive to mapped id
// bijection and the best value ever reached per objective.
package recorder

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mouse-blink/evoprobe/internal/domain/naming"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

var (
	// ErrUnknownMappedID is returned when a mapped id was never allocated.
	ErrUnknownMappedID = errors.New("unknown mapped id")
	// ErrInvalidValue is returned for objective values outside [0,1].
	ErrInvalidValue = errors.New("objective value out of range")
)

// Recorder is safe for concurrent use.
type Recorder struct {
	mu sync.Mutex

	mapped   map[string]int
	reversed map[int]string

	best      map[int]float64
	firstTime []string

	targets    map[string]struct{}
	units      map[string]struct{}
	lines      int
	branches   int
	statements int
}

// New creates an empty Recorder.
func New() *Recorder {
	r := &Recorder{}
	r.Reset(true)

	return r
}

// RegisterTarget adds id to the static inventory. Registering the same id
// again has no effect.
func (r *Recorder) RegisterTarget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.targets[id]; ok {
		return
	}

	r.targets[id] = struct{}{}

	switch naming.KindOf(id) {
	case naming.KindFile:
		if unit, ok := naming.UnitOf(id); ok {
			r.units[unit] = struct{}{}
		}
	case naming.KindLine:
		r.lines++
	case naming.KindStatement:
		r.statements++
	case naming.KindBranchTrue, naming.KindBranchFalse:
		r.branches++
	case naming.KindUnknown:
	}
}

// MappedID returns the dense id of a descriptive id, allocating the next
// one on first use.
func (r *Recorder) MappedID(descriptiveID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.mappedID(descriptiveID)
}

func (r *Recorder) mappedID(descriptiveID string) int {
	if id, ok := r.mapped[descriptiveID]; ok {
		return id
	}

	id := len(r.mapped)
	r.mapped[descriptiveID] = id
	r.reversed[id] = descriptiveID

	return id
}

// DescriptiveID is the reverse of MappedID.
func (r *Recorder) DescriptiveID(mappedID int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.reversed[mappedID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownMappedID, mappedID)
	}

	return id, nil
}

// Update records value for the objective, keeping the maximum seen during
// the search. The first value ever seen for an objective adds it to the
// first time encountered list.
func (r *Recorder) Update(descriptiveID string, value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("%w: %s=%v", ErrInvalidValue, descriptiveID, value)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.mappedID(descriptiveID)

	old, seen := r.best[id]
	if !seen {
		r.firstTime = append(r.firstTime, descriptiveID)
	}

	if !seen || value > old {
		r.best[id] = value
	}

	return nil
}

// BestValue returns the best value reached by the objective in this search.
func (r *Recorder) BestValue(descriptiveID string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.mapped[descriptiveID]
	if !ok {
		return 0, false
	}

	v, ok := r.best[id]

	return v, ok
}

// FirstTimeEncountered lists the objectives first reached since the last
// ClearFirstTimeEncountered, in encounter order.
func (r *Recorder) FirstTimeEncountered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.firstTime...)
}

// ClearFirstTimeEncountered empties the first time encountered list. Best
// values are kept.
func (r *Recorder) ClearFirstTimeEncountered() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.firstTime = nil
}

// Reset clears the id mapping and the best values. The static inventory
// is only cleared when alsoAtLoadTime is set, since a new search runs
// against code that was already instrumented.
func (r *Recorder) Reset(alsoAtLoadTime bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mapped = make(map[string]int)
	r.reversed = make(map[int]string)
	r.best = make(map[int]float64)
	r.firstTime = nil

	if alsoAtLoadTime || r.targets == nil {
		r.targets = make(map[string]struct{})
		r.units = make(map[string]struct{})
		r.lines, r.branches, r.statements = 0, 0, 0
	}
}

// UnitsInfo returns the static inventory counts.
func (r *Recorder) UnitsInfo() m.UnitsInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.units))
	for unit := range r.units {
		names = append(names, unit)
	}

	sort.Strings(names)

	return m.UnitsInfo{
		UnitNames:          names,
		NumberOfLines:      r.lines,
		NumberOfBranches:   r.branches,
		NumberOfStatements: r.statements,
	}
}

// Targets returns the registered objectives, sorted.
func (r *Recorder) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.targets))
	for id := range r.targets {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// IsInstrumentationActive reports whether any objective was registered.
func (r *Recorder) IsInstrumentationActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.targets) > 0
}

// covered counts registered objectives whose best value is 1.
func (r *Recorder) covered() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0

	for id := range r.targets {
		if mid, ok := r.mapped[id]; ok && r.best[mid] == 1 {
			n++
		}
	}

	return n
}
