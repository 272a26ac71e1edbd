package stream

import (
	"encoding/json"
	"testing"

	"github.com/matrixagents/patternview/pkg/types"
	"github.com/stretchr/testify/require"
)

func payload(t *testing.T, ev types.Event) []byte {
	t.Helper()
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	return raw
}

func TestLogIngest(t *testing.T) {
	t.Parallel()

	t.Run("DuplicateEventIDsAreDroppedSilently", func(t *testing.T) {
		t.Parallel()
		l := NewLog()
		ev := types.Event{EventID: "ev-1", PatternName: "sequential", EventType: types.EventStarted}

		for i := 0; i < 5; i++ {
			require.NoError(t, l.Ingest(payload(t, ev)))
		}
		require.Equal(t, 1, l.Len(), "re-delivery must be idempotent")
	})

	t.Run("MissingEventIDGetsAssigned", func(t *testing.T) {
		t.Parallel()
		l := NewLog()
		ev := types.Event{PatternName: "sequential", EventType: types.EventStarted}

		require.NoError(t, l.Ingest(payload(t, ev)))
		require.NoError(t, l.Ingest(payload(t, ev)))

		// older payloads without ids are distinct deliveries, not duplicates
		require.Equal(t, 2, l.Len())
		events := l.EventsFrom(0)
		require.NotEmpty(t, events[0].EventID)
		require.NotEqual(t, events[0].EventID, events[1].EventID)
	})

	t.Run("MalformedPayloadIsRejected", func(t *testing.T) {
		t.Parallel()
		l := NewLog()

		require.Error(t, l.Ingest([]byte("not json")))
		require.Error(t, l.Ingest(payload(t, types.Event{EventType: types.EventStarted})), "missing patternName")
		require.Error(t, l.Ingest(payload(t, types.Event{PatternName: "sequential"})), "missing eventType")
		require.Equal(t, 0, l.Len())

		// a bad message never blocks the next one
		require.NoError(t, l.Ingest(payload(t, types.Event{PatternName: "sequential", EventType: types.EventStarted})))
		require.Equal(t, 1, l.Len())
	})
}

func TestFilterByPattern(t *testing.T) {
	t.Parallel()

	l := NewLog()
	for _, ev := range []types.Event{
		{EventID: "a1", PatternName: "alpha", EventType: types.EventStarted},
		{EventID: "b1", PatternName: "beta", EventType: types.EventStarted},
		{EventID: "a2", PatternName: "alpha", EventType: types.EventAgentInvoked, AgentName: "Writer"},
		{EventID: "b2", PatternName: "beta", EventType: types.EventCompleted},
		{EventID: "a3", PatternName: "alpha", EventType: types.EventCompleted},
	} {
		require.True(t, l.Append(ev))
	}

	t.Run("ReturnsMatchingSubsequenceInArrivalOrder", func(t *testing.T) {
		t.Parallel()
		alpha := l.FilterByPattern("alpha")
		require.Len(t, alpha, 3)
		require.Equal(t, "a1", alpha[0].EventID)
		require.Equal(t, "a2", alpha[1].EventID)
		require.Equal(t, "a3", alpha[2].EventID)
	})

	t.Run("Restartable", func(t *testing.T) {
		t.Parallel()
		first := l.FilterByPattern("beta")
		second := l.FilterByPattern("beta")
		require.Equal(t, first, second, "re-filtering an unchanged log must reproduce the same result")
	})

	t.Run("UnknownPatternYieldsNothing", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, l.FilterByPattern("gamma"))
	})
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	l := NewLog()
	var delivered []string
	cancel := l.Subscribe(func(ev types.Event) {
		delivered = append(delivered, ev.EventID)
	})

	require.True(t, l.Append(types.Event{EventID: "e1", PatternName: "alpha", EventType: types.EventStarted}))
	require.False(t, l.Append(types.Event{EventID: "e1", PatternName: "alpha", EventType: types.EventStarted}),
		"duplicate must not notify subscribers")
	require.True(t, l.Append(types.Event{EventID: "e2", PatternName: "alpha", EventType: types.EventCompleted}))

	require.Equal(t, []string{"e1", "e2"}, delivered)

	cancel()
	l.Append(types.Event{EventID: "e3", PatternName: "alpha", EventType: types.EventStarted})
	require.Equal(t, []string{"e1", "e2"}, delivered, "cancelled subscriber must not be notified")
}

func TestEventsFrom(t *testing.T) {
	t.Parallel()

	l := NewLog()
	for _, id := range []string{"e1", "e2", "e3"} {
		require.True(t, l.Append(types.Event{EventID: id, PatternName: "alpha", EventType: types.EventStarted}))
	}

	require.Len(t, l.EventsFrom(0), 3)
	require.Len(t, l.EventsFrom(2), 1)
	require.Equal(t, "e3", l.EventsFrom(2)[0].EventID)
	require.Nil(t, l.EventsFrom(3))
	require.Len(t, l.EventsFrom(-1), 3)
}
