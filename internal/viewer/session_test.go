package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/matrixagents/patternview/internal/client"
	"github.com/matrixagents/patternview/internal/stream"
	"github.com/matrixagents/patternview/pkg/types"
	"github.com/stretchr/testify/require"
)

var sequencePattern = types.PatternInfo{
	ID:     "sequential",
	Name:   "sequential",
	Agents: []string{"A", "B", "C"},
	Topology: types.Topology{
		Type:  types.TopologySequence,
		Edges: []types.Edge{{From: "A", To: "B"}, {From: "B", To: "C"}},
	},
}

// fakeBackend is a scriptable orchestration backend.
type fakeBackend struct {
	mu          sync.Mutex
	pending     map[string]string
	execResult  *types.ExecutionResult
	rejectInput bool
	inputsGot   []string
}

func (b *fakeBackend) serve(t *testing.T) *client.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/human-input/pending", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.pending == nil {
			b.pending = map[string]string{}
		}
		json.NewEncoder(w).Encode(b.pending)
	})
	mux.HandleFunc("POST /api/human-input/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.rejectInput {
			http.Error(w, "engine unavailable", http.StatusBadGateway)
			return
		}
		b.inputsGot = append(b.inputsGot, r.PathValue("id"))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/patterns/{id}/execute", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.execResult == nil {
			http.Error(w, "backend down", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(b.execResult)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return client.New(server.URL, nil)
}

func seqEvent(id string, eventType types.EventType, agent string) types.Event {
	return types.Event{EventID: id, PatternName: "sequential", EventType: eventType, AgentName: agent}
}

func TestAttachReplaysExistingLog(t *testing.T) {
	t.Parallel()

	eventLog := stream.NewLog()
	eventLog.Append(seqEvent("e1", types.EventAgentInvoked, "A"))
	eventLog.Append(seqEvent("e2", types.EventAgentCompleted, "A"))
	eventLog.Append(seqEvent("e3", types.EventAgentInvoked, "B"))
	eventLog.Append(types.Event{EventID: "x1", PatternName: "other", EventType: types.EventAgentInvoked, AgentName: "Z"})

	s := NewSession(sequencePattern, eventLog, (&fakeBackend{}).serve(t), nil)
	require.NoError(t, s.Attach(context.Background()))

	view := s.Snapshot()
	require.Equal(t, types.StatusCompleted, nodeStatus(t, view, "A"))
	require.Equal(t, types.StatusActive, nodeStatus(t, view, "B"))
	require.Equal(t, types.StatusIdle, nodeStatus(t, view, "C"),
		"another pattern's events must not leak into this view")
}

func TestAttachRecoversPendingPrompt(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{pending: map[string]string{"req-1": "continue with step 2?"}}
	s := NewSession(sequencePattern, stream.NewLog(), backend.serve(t), nil)
	require.NoError(t, s.Attach(context.Background()))

	view := s.Snapshot()
	require.NotNil(t, view.Pending)
	require.Equal(t, "req-1", view.Pending.RequestID)
}

func TestSnapshotFollowsNewEvents(t *testing.T) {
	t.Parallel()

	eventLog := stream.NewLog()
	s := NewSession(sequencePattern, eventLog, (&fakeBackend{}).serve(t), func() bool { return true })

	require.Equal(t, types.StatusIdle, nodeStatus(t, s.Snapshot(), "A"))

	eventLog.Append(seqEvent("e1", types.EventAgentInvoked, "A"))
	view := s.Snapshot()
	require.True(t, view.Connected)
	require.Equal(t, types.StatusActive, nodeStatus(t, view, "A"))
}

func TestExecuteStartsAFreshRun(t *testing.T) {
	t.Parallel()

	eventLog := stream.NewLog()
	// leftovers from a previous run of the same pattern
	eventLog.Append(seqEvent("old-1", types.EventAgentInvoked, "C"))

	backend := &fakeBackend{execResult: &types.ExecutionResult{
		ExecutionID: "run-2",
		PatternID:   "sequential",
		Status:      types.ExecutionCompleted,
		Events: []types.Event{
			seqEvent("n1", types.EventAgentInvoked, "A"),
			seqEvent("n2", types.EventAgentCompleted, "A"),
		},
		ScopeSnapshot: map[string]any{"summary": "done"},
	}}
	s := NewSession(sequencePattern, eventLog, backend.serve(t), nil)
	require.NoError(t, s.Attach(context.Background()))

	result, err := s.Execute(context.Background(), "write a haiku")
	require.NoError(t, err)
	require.Equal(t, types.ExecutionCompleted, result.Status)

	view := s.Snapshot()
	require.Equal(t, types.StatusIdle, nodeStatus(t, view, "C"),
		"the previous run's events are reset away")
	require.Equal(t, types.StatusCompleted, nodeStatus(t, view, "A"),
		"the synchronous result's events are projected")
	require.Equal(t, map[string]any{"summary": "done"}, view.Scope,
		"the scope snapshot replaces the projected scope wholesale")
	require.NotNil(t, view.Result)
}

func TestExecuteResultEventsDedupAgainstLiveChannel(t *testing.T) {
	t.Parallel()

	eventLog := stream.NewLog()
	backend := &fakeBackend{execResult: &types.ExecutionResult{
		ExecutionID: "run-3",
		PatternID:   "sequential",
		Status:      types.ExecutionCompleted,
		Events:      []types.Event{seqEvent("dup-1", types.EventAgentInvoked, "A")},
	}}
	s := NewSession(sequencePattern, eventLog, backend.serve(t), nil)

	_, err := s.Execute(context.Background(), "go")
	require.NoError(t, err)

	// the live channel delivers the same event again after the sync result
	eventLog.Append(seqEvent("dup-1", types.EventAgentInvoked, "A"))

	require.Equal(t, 1, eventLog.Len())
	require.Equal(t, types.StatusActive, nodeStatus(t, s.Snapshot(), "A"))
}

func TestExecuteFailureSurfaces(t *testing.T) {
	t.Parallel()

	s := NewSession(sequencePattern, stream.NewLog(), (&fakeBackend{}).serve(t), nil)
	_, err := s.Execute(context.Background(), "go")
	require.Error(t, err)
	require.False(t, s.Snapshot().Executing)
}

func TestSubmitHumanInput(t *testing.T) {
	t.Parallel()

	t.Run("SuccessClearsAndSuppresses", func(t *testing.T) {
		t.Parallel()
		eventLog := stream.NewLog()
		backend := &fakeBackend{}
		s := NewSession(sequencePattern, eventLog, backend.serve(t), nil)

		eventLog.Append(types.Event{
			EventID: "h1", PatternName: "sequential",
			EventType: types.EventHumanInputRequired,
			Message:   "approve?", Data: map[string]any{"requestId": "7"},
		})
		require.NotNil(t, s.Snapshot().Pending)

		require.NoError(t, s.SubmitHumanInput(context.Background(), "7", "approve"))
		require.Nil(t, s.Snapshot().Pending)

		// transport re-delivers the already-answered prompt
		eventLog.Append(types.Event{
			EventID: "h2", PatternName: "sequential",
			EventType: types.EventHumanInputRequired,
			Message:   "approve?", Data: map[string]any{"requestId": "7"},
		})
		require.Nil(t, s.Snapshot().Pending, "answered prompt must not resurface")
	})

	t.Run("RemoteFailureLeavesPromptIntact", func(t *testing.T) {
		t.Parallel()
		eventLog := stream.NewLog()
		backend := &fakeBackend{rejectInput: true}
		s := NewSession(sequencePattern, eventLog, backend.serve(t), nil)

		eventLog.Append(types.Event{
			EventID: "h1", PatternName: "sequential",
			EventType: types.EventHumanInputRequired,
			Message:   "approve?", Data: map[string]any{"requestId": "9"},
		})

		require.Error(t, s.SubmitHumanInput(context.Background(), "9", "approve"))
		require.NotNil(t, s.Snapshot().Pending, "prompt stays visible and resubmittable")
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	cli := backend.serve(t)
	eventLog := stream.NewLog()

	r := NewRegistry(eventLog, cli, nil)
	r.mu.Lock()
	r.patterns[sequencePattern.ID] = sequencePattern
	r.order = append(r.order, sequencePattern.ID)
	r.mu.Unlock()

	require.Len(t, r.Patterns(), 1)

	first, err := r.Session(context.Background(), "sequential")
	require.NoError(t, err)
	second, err := r.Session(context.Background(), "sequential")
	require.NoError(t, err)
	require.Same(t, first, second, "one session per pattern")

	_, err = r.Session(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownPattern)
}

func nodeStatus(t *testing.T, view View, id string) types.NodeStatus {
	t.Helper()
	for _, n := range view.Geometry.Nodes {
		if n.ID == id {
			return n.Status
		}
	}
	t.Fatalf("node %s missing from geometry", id)
	return ""
}
