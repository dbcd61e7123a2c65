// Package model defines the data structures shared by the instrumentation,
// the execution tracer and the reporting layers.
package model

// TargetInfo reports the value reached by a single coverage objective.
type TargetInfo struct {
	// MappedID is the dense integer alias of the objective, nil when unknown.
	MappedID *int `json:"id" yaml:"id"`
	// Value is the coverage heuristic in [0,1].
	Value float64 `json:"value" yaml:"value"`
	// DescriptiveID is only filled for objectives the driver has not seen yet.
	DescriptiveID *string `json:"descriptiveId" yaml:"descriptiveId"`
	// ActionIndex is the action that reached Value, -1 if never reached.
	ActionIndex int `json:"actionIndex" yaml:"actionIndex"`
}

// NotReached builds the sentinel reported for an objective that was never executed.
func NotReached(mappedID int) TargetInfo {
	return TargetInfo{
		MappedID:    &mappedID,
		Value:       0,
		ActionIndex: -1,
	}
}

// WithMappedID returns a copy of the info tagged with the given mapped id.
func (t TargetInfo) WithMappedID(mappedID int) TargetInfo {
	t.MappedID = &mappedID
	return t
}

// WithDescriptiveID returns a copy of the info carrying the descriptive id.
func (t TargetInfo) WithDescriptiveID(id string) TargetInfo {
	t.DescriptiveID = &id
	return t
}

// WithNoDescriptiveID returns a copy of the info without the descriptive id.
func (t TargetInfo) WithNoDescriptiveID() TargetInfo {
	t.DescriptiveID = nil
	return t
}

// UnitsInfo is the static inventory derived from objective registrations.
type UnitsInfo struct {
	UnitNames          []string `json:"unitNames" yaml:"unitNames"`
	NumberOfLines      int      `json:"numberOfLines" yaml:"numberOfLines"`
	NumberOfBranches   int      `json:"numberOfBranches" yaml:"numberOfBranches"`
	NumberOfStatements int      `json:"numberOfStatements" yaml:"numberOfStatements"`
}
