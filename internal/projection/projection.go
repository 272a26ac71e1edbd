// Package projection folds a pattern's filtered event sequence into the
// derived execution state a renderer displays: per-node status, the
// accumulated scope variables, and the outstanding human-input prompt.
package projection

import (
	"github.com/matrixagents/patternview/pkg/types"
)

// HumanRequest is an outstanding prompt waiting for operator input.
type HumanRequest struct {
	RequestID string `json:"requestId"`
	Prompt    string `json:"prompt"`
}

// Projection is the mutable per-run execution state. One instance exists
// per viewed pattern run; it is created empty, mutated by each routed
// event via Apply, and reset when a fresh execution starts.
//
// Events are applied synchronously in arrival order, so no locking is
// needed by construction.
type Projection struct {
	active    map[string]struct{}
	completed map[string]struct{}
	errored   map[string]struct{}
	scope     map[string]any
	pending   *HumanRequest
	handled   map[string]struct{}
	history   map[string][]types.Event
}

func New() *Projection {
	p := &Projection{}
	p.ResetForNewRun()
	return p
}

// Apply advances the projection by one event. Unknown or malformed
// events mutate nothing beyond node history; they never fail the fold.
func (p *Projection) Apply(ev types.Event) {
	if ev.AgentName != "" {
		p.history[ev.AgentName] = append(p.history[ev.AgentName], ev)
	}

	switch ev.EventType {
	case types.EventAgentInvoked:
		if ev.AgentName != "" {
			p.active[ev.AgentName] = struct{}{}
		}
	case types.EventAgentCompleted:
		if ev.AgentName != "" {
			// completion evicts from active: a node is never both
			delete(p.active, ev.AgentName)
			p.completed[ev.AgentName] = struct{}{}
		}
	case types.EventStateUpdated:
		key := ev.DataString("key")
		if key == "" {
			return
		}
		var value any
		if ev.Data != nil {
			value = ev.Data["value"]
		}
		p.scope[key] = value
	case types.EventHumanInputRequired:
		requestID := ev.DataString("requestId")
		if requestID == "" {
			// malformed prompt: kept in history, never surfaced as pending
			return
		}
		if _, done := p.handled[requestID]; done {
			// the transport may re-deliver a prompt the operator already
			// answered; suppress it
			return
		}
		p.pending = &HumanRequest{RequestID: requestID, Prompt: ev.Message}
	case types.EventError:
		if ev.AgentName != "" {
			delete(p.active, ev.AgentName)
			p.errored[ev.AgentName] = struct{}{}
		}
	}
}

// SubmitHumanInput records that the prompt identified by requestID has
// been answered. The caller is responsible for having delivered the
// answer to the orchestration engine first; call this only after that
// delivery succeeded, so a failed submission leaves the prompt visible
// and resubmittable.
func (p *Projection) SubmitHumanInput(requestID string) {
	p.handled[requestID] = struct{}{}
	if p.pending != nil && p.pending.RequestID == requestID {
		p.pending = nil
	}
}

// RestorePending surfaces a prompt recovered out-of-band (the pending
// human-inputs endpoint) unless it was already handled locally.
func (p *Projection) RestorePending(requestID, prompt string) {
	if requestID == "" {
		return
	}
	if _, done := p.handled[requestID]; done {
		return
	}
	p.pending = &HumanRequest{RequestID: requestID, Prompt: prompt}
}

// ApplySnapshot replaces the scope wholesale with an authoritative final
// snapshot from a synchronous execution result. No key-by-key merge.
func (p *Projection) ApplySnapshot(scope map[string]any) {
	fresh := make(map[string]any, len(scope))
	for k, v := range scope {
		fresh[k] = v
	}
	p.scope = fresh
}

// ResetForNewRun discards all per-run state. Called when the user starts
// a fresh execution or switches pattern.
func (p *Projection) ResetForNewRun() {
	p.active = make(map[string]struct{})
	p.completed = make(map[string]struct{})
	p.errored = make(map[string]struct{})
	p.scope = make(map[string]any)
	p.pending = nil
	p.handled = make(map[string]struct{})
	p.history = make(map[string][]types.Event)
}

// StatusOf derives a node's display status. Derived, never set directly.
func (p *Projection) StatusOf(id string) types.NodeStatus {
	if _, ok := p.errored[id]; ok {
		return types.StatusError
	}
	if _, ok := p.completed[id]; ok {
		return types.StatusCompleted
	}
	if _, ok := p.active[id]; ok {
		return types.StatusActive
	}
	return types.StatusIdle
}

// IsActive reports whether the node is currently executing.
func (p *Projection) IsActive(id string) bool {
	_, ok := p.active[id]
	return ok
}

// ActiveCount returns how many agents are currently executing.
func (p *Projection) ActiveCount() int { return len(p.active) }

// CompletedCount returns how many agents have finished.
func (p *Projection) CompletedCount() int { return len(p.completed) }

// PendingHumanRequest returns the outstanding prompt, if any.
func (p *Projection) PendingHumanRequest() (HumanRequest, bool) {
	if p.pending == nil {
		return HumanRequest{}, false
	}
	return *p.pending, true
}

// Scope returns a copy of the accumulated scope variables.
func (p *Projection) Scope() map[string]any {
	out := make(map[string]any, len(p.scope))
	for k, v := range p.scope {
		out[k] = v
	}
	return out
}

// ScopeValue looks up one scope variable.
func (p *Projection) ScopeValue(key string) (any, bool) {
	v, ok := p.scope[key]
	return v, ok
}

// History returns the events recorded for one agent node, in arrival order.
func (p *Projection) History(agent string) []types.Event {
	evs := p.history[agent]
	out := make([]types.Event, len(evs))
	copy(out, evs)
	return out
}
