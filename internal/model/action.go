package model

import "sort"

// Action is one step of a multi-step test, e.g. a single HTTP call.
type Action struct {
	Index          int
	InputVariables []string
}

// AdditionalInfo holds per-action diagnostics collected while the SUT runs.
type AdditionalInfo struct {
	queryParameters map[string]struct{}
	headers         map[string]struct{}

	// lastExecutedStatementStack mirrors the call stack of instrumented statements.
	lastExecutedStatementStack []string
	// noExceptionStatement keeps the last popped marker once the stack is empty.
	noExceptionStatement string
}

// NewAdditionalInfo creates an empty diagnostic bucket.
func NewAdditionalInfo() *AdditionalInfo {
	return &AdditionalInfo{
		queryParameters: make(map[string]struct{}),
		headers:         make(map[string]struct{}),
	}
}

// AddQueryParameter records the name of a query parameter read by the SUT.
func (a *AdditionalInfo) AddQueryParameter(name string) {
	if name != "" {
		a.queryParameters[name] = struct{}{}
	}
}

// AddHeader records the name of a header read by the SUT.
func (a *AdditionalInfo) AddHeader(name string) {
	if name != "" {
		a.headers[name] = struct{}{}
	}
}

// QueryParameters returns the observed query parameter names.
func (a *AdditionalInfo) QueryParameters() []string {
	return keys(a.queryParameters)
}

// Headers returns the observed header names.
func (a *AdditionalInfo) Headers() []string {
	return keys(a.headers)
}

// PushLastExecutedStatement marks a statement as being executed.
func (a *AdditionalInfo) PushLastExecutedStatement(marker string) {
	a.noExceptionStatement = ""
	a.lastExecutedStatementStack = append(a.lastExecutedStatementStack, marker)
}

// PopLastExecutedStatement removes the innermost marker. When the stack
// becomes empty the popped marker is kept as the last known location.
func (a *AdditionalInfo) PopLastExecutedStatement() string {
	n := len(a.lastExecutedStatementStack)
	if n == 0 {
		return ""
	}

	marker := a.lastExecutedStatementStack[n-1]
	a.lastExecutedStatementStack = a.lastExecutedStatementStack[:n-1]

	if len(a.lastExecutedStatementStack) == 0 {
		a.noExceptionStatement = marker
	}

	return marker
}

// LastExecutedStatement returns the innermost statement being executed, or the
// last completed one if nothing is on the stack. Empty if none was seen.
func (a *AdditionalInfo) LastExecutedStatement() string {
	if n := len(a.lastExecutedStatementStack); n > 0 {
		return a.lastExecutedStatementStack[n-1]
	}

	return a.noExceptionStatement
}

// AdditionalInfoDto is the wire form of AdditionalInfo.
type AdditionalInfoDto struct {
	QueryParameters       []string `json:"queryParameters"`
	Headers               []string `json:"headers"`
	LastExecutedStatement *string  `json:"lastExecutedStatement"`
}

// Dto converts the diagnostics into their wire form.
func (a *AdditionalInfo) Dto() AdditionalInfoDto {
	dto := AdditionalInfoDto{
		QueryParameters: a.QueryParameters(),
		Headers:         a.Headers(),
	}

	if last := a.LastExecutedStatement(); last != "" {
		dto.LastExecutedStatement = &last
	}

	return dto
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
