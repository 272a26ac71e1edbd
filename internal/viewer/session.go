// Package viewer composes the pipeline for one viewed pattern: it routes
// the filtered event log into a projection, recomputes geometry on
// demand, and fronts the backend calls a view needs (execute, human
// input, pending-prompt recovery).
package viewer

import (
	"context"
	"sync"

	"github.com/matrixagents/patternview/internal/client"
	"github.com/matrixagents/patternview/internal/layout"
	"github.com/matrixagents/patternview/internal/projection"
	"github.com/matrixagents/patternview/internal/stream"
	"github.com/matrixagents/patternview/pkg/types"
	"github.com/pkg/errors"
)

// Default canvas for geometry when the renderer does not negotiate one.
const (
	DefaultCanvasWidth  = 800.0
	DefaultCanvasHeight = 400.0
)

// View is the renderer-facing snapshot: projection outputs plus the
// current geometry. The renderer reads it, never mutates it.
type View struct {
	Pattern   types.PatternInfo        `json:"pattern"`
	Connected bool                     `json:"connected"`
	Executing bool                     `json:"executing"`
	Geometry  layout.Geometry          `json:"geometry"`
	Scope     map[string]any           `json:"scope"`
	Pending   *projection.HumanRequest `json:"pendingHumanRequest,omitempty"`
	Result    *types.ExecutionResult   `json:"result,omitempty"`
}

// Session owns the per-pattern projection and its cursor into the
// process-wide log. Switching the viewed pattern means a different
// Session over the same log; the log itself is never cleared.
type Session struct {
	mu      sync.Mutex
	pattern types.PatternInfo
	log     *stream.Log
	backend *client.Client

	connected func() bool

	proj      *projection.Projection
	cursor    int
	executing bool
	result    *types.ExecutionResult

	width, height float64
}

// NewSession builds a detached session. connected reports the channel
// adapter's connectivity flag; nil means always false.
func NewSession(pattern types.PatternInfo, log *stream.Log, backend *client.Client, connected func() bool) *Session {
	if connected == nil {
		connected = func() bool { return false }
	}
	return &Session{
		pattern:   pattern,
		log:       log,
		backend:   backend,
		connected: connected,
		proj:      projection.New(),
		width:     DefaultCanvasWidth,
		height:    DefaultCanvasHeight,
	}
}

// SetCanvas adjusts the geometry canvas for subsequent snapshots.
func (s *Session) SetCanvas(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width > 0 {
		s.width = width
	}
	if height > 0 {
		s.height = height
	}
}

// Attach folds the events already in the log for this pattern and
// recovers prompts left outstanding from before the view existed. A
// failure to reach the pending-inputs endpoint degrades recovery only;
// the replayed projection is still valid.
func (s *Session) Attach(ctx context.Context) error {
	s.mu.Lock()
	s.refresh()
	s.mu.Unlock()

	pending, err := s.backend.PendingHumanInputs(ctx)
	if err != nil {
		return errors.Wrap(err, "recover pending prompts")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for requestID, prompt := range pending {
		s.proj.RestorePending(requestID, prompt)
	}
	return nil
}

// Execute starts a fresh run: the projection resets, the cursor skips
// the previous run's events (the log keeps them; they are simply no
// longer projected), and the synchronous result's scope snapshot, if
// any, replaces the projected scope wholesale.
func (s *Session) Execute(ctx context.Context, prompt string) (*types.ExecutionResult, error) {
	s.mu.Lock()
	if s.executing {
		s.mu.Unlock()
		return nil, errors.New("execution already in progress")
	}
	s.executing = true
	s.result = nil
	s.proj.ResetForNewRun()
	s.cursor = s.log.Len()
	s.mu.Unlock()

	result, err := s.backend.Execute(ctx, types.ExecutionRequest{
		PatternID: s.pattern.ID,
		Prompt:    prompt,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.executing = false
	if err != nil {
		return nil, err
	}

	// events from the synchronous path join the canonical log; dedup
	// swallows the ones the live channel already delivered
	for _, ev := range result.Events {
		s.log.Append(ev)
	}
	s.refresh()
	if result.ScopeSnapshot != nil {
		s.proj.ApplySnapshot(result.ScopeSnapshot)
	}
	s.result = result
	return result, nil
}

// SubmitHumanInput delivers the operator's answer to the backend and, on
// success only, marks the request handled locally so a re-delivered
// prompt for the same id stays suppressed. On failure the pending
// request is left intact: the prompt remains visible and resubmittable.
func (s *Session) SubmitHumanInput(ctx context.Context, requestID, input string) error {
	if err := s.backend.ProvideHumanInput(ctx, requestID, input); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proj.SubmitHumanInput(requestID)
	return nil
}

// Snapshot advances the projection over any newly arrived events and
// returns the current view with freshly computed geometry.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh()

	view := View{
		Pattern:   s.pattern,
		Connected: s.connected(),
		Executing: s.executing,
		Geometry:  layout.Compute(s.pattern.Topology, s.pattern.Agents, s.proj.StatusOf, s.width, s.height),
		Scope:     s.proj.Scope(),
		Result:    s.result,
	}
	if pending, ok := s.proj.PendingHumanRequest(); ok {
		view.Pending = &pending
	}
	return view
}

// refresh applies log entries past the cursor that belong to this
// pattern. Caller holds s.mu.
func (s *Session) refresh() {
	batch := s.log.EventsFrom(s.cursor)
	s.cursor += len(batch)
	for _, ev := range batch {
		if ev.PatternName != s.pattern.Name {
			continue
		}
		s.proj.Apply(ev)
	}
}
