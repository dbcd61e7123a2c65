// Package session ties a recorder, a tracer and an evaluator together for
// one search, and exposes the lifecycle driven by the search controller.
package session

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/mouse-blink/evoprobe/internal/domain/heuristic"
	"github.com/mouse-blink/evoprobe/internal/domain/recorder"
	"github.com/mouse-blink/evoprobe/internal/domain/tracer"
	m "github.com/mouse-blink/evoprobe/internal/model"
)

// Session is the state shared by every probe of an instrumented process.
type Session struct {
	id        uuid.UUID
	logger    *slog.Logger
	recorder  *recorder.Recorder
	tracer    *tracer.Tracer
	evaluator *heuristic.Evaluator
}

// New creates a session with an empty registry. A nil logger falls back
// to slog.Default().
func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	r := recorder.New()
	t := tracer.New(r)

	return &Session{
		id:        uuid.New(),
		logger:    logger,
		recorder:  r,
		tracer:    t,
		evaluator: heuristic.NewEvaluator(t),
	}
}

// ID identifies the current search.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Recorder returns the search-wide objective registry.
func (s *Session) Recorder() *recorder.Recorder {
	return s.recorder
}

// Tracer returns the run state.
func (s *Session) Tracer() *tracer.Tracer {
	return s.tracer
}

// Evaluator returns the evaluator recording into the tracer.
func (s *Session) Evaluator() *heuristic.Evaluator {
	return s.evaluator
}

// NewSearch starts a new search: run state, id mapping and best values are
// cleared, the load-time inventory is kept.
func (s *Session) NewSearch() {
	s.tracer.Reset()
	s.recorder.Reset(false)
	s.id = uuid.New()

	s.logger.Info("new search", slog.String("session", s.id.String()))
}

// NewTest starts a new test of the current search.
func (s *Session) NewTest() {
	s.tracer.Reset()
	s.recorder.ClearFirstTimeEncountered()

	s.logger.Debug("new test", slog.String("session", s.id.String()))
}

// NewAction switches the tracer to the given action.
func (s *Session) NewAction(action m.Action) {
	s.tracer.SetAction(action)

	s.logger.Debug("new action", slog.String("session", s.id.String()), slog.Int("index", action.Index))
}

// UnitsInfo returns the static inventory.
func (s *Session) UnitsInfo() m.UnitsInfo {
	return s.recorder.UnitsInfo()
}

// TargetInfos reports the requested objectives and the newly encountered ones.
func (s *Session) TargetInfos(ids []int) ([]m.TargetInfo, error) {
	return s.tracer.TargetInfos(ids)
}

// AdditionalInfos returns the per-action diagnostics of the current test.
func (s *Session) AdditionalInfos() []m.AdditionalInfoDto {
	return s.tracer.AdditionalInfos()
}

// IsInstrumentationActive reports whether any objective was registered.
func (s *Session) IsInstrumentationActive() bool {
	return s.recorder.IsInstrumentationActive()
}

// RegisterTarget adds id to the static inventory. It lets a session serve
// as the registrar of a source transformer.
func (s *Session) RegisterTarget(id string) {
	s.recorder.RegisterTarget(id)
}
