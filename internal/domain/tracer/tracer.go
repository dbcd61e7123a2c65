// Package tracer accumulates the coverage state of the current run: the
// per-objective values reached so far and the per-action diagnostics.
package tracer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mouse-blink/evoprobe/internal/domain/heuristic"
	"github.com/mouse-blink/evoprobe/internal/domain/naming"
	"github.com/mouse-blink/evoprobe/internal/domain/recorder"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

// Tracer is safe for concurrent use. Values from concurrent actions are
// attributed to whichever action was last set.
type Tracer struct {
	mu       sync.Mutex
	recorder *recorder.Recorder

	objectives     map[string]m.TargetInfo
	actionIndex    int
	inputVariables []string
	infos          []*m.AdditionalInfo
}

// New creates a Tracer forwarding values to r.
func New(r *recorder.Recorder) *Tracer {
	t := &Tracer{recorder: r}
	t.Reset()

	return t
}

// Reset clears the run state. The recorder is left untouched.
func (t *Tracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.objectives = make(map[string]m.TargetInfo)
	t.actionIndex = 0
	t.inputVariables = nil
	t.infos = []*m.AdditionalInfo{m.NewAdditionalInfo()}
}

// SetAction opens a new diagnostic bucket when the action index changes.
func (t *Tracer) SetAction(action m.Action) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if action.Index != t.actionIndex {
		t.actionIndex = action.Index
		t.infos = append(t.infos, m.NewAdditionalInfo())
	}

	if len(action.InputVariables) > 0 {
		t.inputVariables = append([]string(nil), action.InputVariables...)
	}
}

// InputVariables returns the input variable names declared by the current action.
func (t *Tracer) InputVariables() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]string(nil), t.inputVariables...)
}

// EnteringStatement marks the file and line as covered, the statement as
// half covered, and pushes its location marker.
func (t *Tracer) EnteringStatement(module string, line, stmt int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.updateObjective(naming.File(module), 1); err != nil {
		return err
	}

	if err := t.updateObjective(naming.Line(module, line), 1); err != nil {
		return err
	}

	if err := t.updateObjective(naming.Statement(module, line, stmt), 0.5); err != nil {
		return err
	}

	t.current().PushLastExecutedStatement(naming.LastStatement(module, line, stmt))

	return nil
}

// CompletedStatement marks the statement as fully covered and pops its
// location marker.
func (t *Tracer) CompletedStatement(module string, line, stmt int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.updateObjective(naming.Statement(module, line, stmt), 1); err != nil {
		return err
	}

	t.current().PopLastExecutedStatement()

	return nil
}

// CompletionStatement is an entering and a completed probe in one, for
// statements with no point after them.
func (t *Tracer) CompletionStatement(module string, line, stmt int) error {
	if err := t.EnteringStatement(module, line, stmt); err != nil {
		return err
	}

	return t.CompletedStatement(module, line, stmt)
}

// UpdateBranch records both arms of a branch. The then arm receives
// OfFalse and the else arm OfTrue.
func (t *Tracer) UpdateBranch(module string, line, branch int, truth heuristic.Truthness) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.updateObjective(naming.Branch(module, line, branch, false), truth.OfTrue); err != nil {
		return err
	}

	return t.updateObjective(naming.Branch(module, line, branch, true), truth.OfFalse)
}

// UpdateObjective keeps the best value of the objective for this run,
// with the action that reached it, and forwards it to the recorder.
func (t *Tracer) UpdateObjective(id string, value float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.updateObjective(id, value)
}

func (t *Tracer) updateObjective(id string, value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("%w: %s=%v", recorder.ErrInvalidValue, id, value)
	}

	if prev, ok := t.objectives[id]; !ok || value > prev.Value {
		t.objectives[id] = m.TargetInfo{Value: value, ActionIndex: t.actionIndex}.WithDescriptiveID(id)
	}

	return t.recorder.Update(id, value)
}

// TargetInfos reports the requested objectives, followed by every
// objective first encountered during this test whether requested or not.
// Only the latter carry their descriptive id.
func (t *Tracer) TargetInfos(ids []int) ([]m.TargetInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]m.TargetInfo, 0, len(ids))

	for _, mappedID := range ids {
		id, err := t.recorder.DescriptiveID(mappedID)
		if err != nil {
			return nil, err
		}

		info, ok := t.objectives[id]
		if !ok {
			out = append(out, m.NotReached(mappedID))

			continue
		}

		out = append(out, info.WithMappedID(mappedID).WithNoDescriptiveID())
	}

	for _, id := range t.recorder.FirstTimeEncountered() {
		mappedID := t.recorder.MappedID(id)

		info, ok := t.objectives[id]
		if !ok {
			info = m.NotReached(mappedID)
		}

		out = append(out, info.WithMappedID(mappedID).WithDescriptiveID(id))
	}

	return out, nil
}

// Value returns the value reached by the objective in this run, 0 if none.
func (t *Tracer) Value(id string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.objectives[id].Value
}

// IsTargetReached reports whether the objective received any value in this run.
func (t *Tracer) IsTargetReached(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.objectives[id]

	return ok
}

// NumberOfObjectives counts the objectives reached in this run whose id
// starts with prefix. An empty prefix counts all of them.
func (t *Tracer) NumberOfObjectives(prefix string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0

	for id := range t.objectives {
		if strings.HasPrefix(id, prefix) {
			n++
		}
	}

	return n
}

// NonCoveredObjectives lists, sorted, the reached objectives whose id
// starts with prefix and whose value is below 1.
func (t *Tracer) NonCoveredObjectives(prefix string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []string

	for id, info := range t.objectives {
		if info.Value < 1 && strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	return ids
}

// AdditionalInfos returns the diagnostics of every action of the test.
func (t *Tracer) AdditionalInfos() []m.AdditionalInfoDto {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]m.AdditionalInfoDto, 0, len(t.infos))
	for _, info := range t.infos {
		out = append(out, info.Dto())
	}

	return out
}

// AddQueryParameter records a query parameter read during the current action.
func (t *Tracer) AddQueryParameter(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current().AddQueryParameter(name)
}

// AddHeader records a header read during the current action.
func (t *Tracer) AddHeader(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current().AddHeader(name)
}

func (t *Tracer) current() *m.AdditionalInfo {
	return t.infos[len(t.infos)-1]
}
