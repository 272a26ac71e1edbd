// replay pushes a scripted execution of a parallel pattern through the
// full pipeline (channel adapter -> event log -> projection -> layout)
// and prints what a renderer would see after each delivery.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/matrixagents/patternview/internal/channel"
	"github.com/matrixagents/patternview/internal/layout"
	"github.com/matrixagents/patternview/internal/projection"
	"github.com/matrixagents/patternview/internal/stream"
	"github.com/matrixagents/patternview/pkg/types"
)

var pattern = types.PatternInfo{
	ID:     "parallelization",
	Name:   "parallelization",
	Agents: []string{"FoodExpert", "MovieExpert"},
	Topology: types.Topology{
		Type: types.TopologyParallel,
		Edges: []types.Edge{
			{From: "start", To: "FoodExpert"},
			{From: "start", To: "MovieExpert"},
			{From: "FoodExpert", To: "combiner"},
			{From: "MovieExpert", To: "combiner"},
		},
	},
}

func event(eventType types.EventType, agent, message string, data map[string]any) []byte {
	payload, _ := json.Marshal(types.Event{
		EventID:     uuid.New().String(),
		PatternName: pattern.Name,
		AgentName:   agent,
		EventType:   eventType,
		Message:     message,
		Data:        data,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
	return payload
}

func main() {
	eventLog := stream.NewLog()
	proj := projection.New()
	eventLog.Subscribe(func(ev types.Event) {
		if ev.PatternName == pattern.Name {
			proj.Apply(ev)
		}
	})

	script := [][]byte{
		event(types.EventStarted, "", "pattern started", nil),
		event(types.EventAgentInvoked, "FoodExpert", "invoking food expert", nil),
		event(types.EventAgentInvoked, "MovieExpert", "invoking movie expert", nil),
		event(types.EventStateUpdated, "FoodExpert", "scope updated", map[string]any{"key": "dinner", "value": "ramen"}),
		event(types.EventAgentCompleted, "FoodExpert", "food expert done", nil),
		event(types.EventStateUpdated, "MovieExpert", "scope updated", map[string]any{"key": "movie", "value": "Blade Runner"}),
		event(types.EventAgentCompleted, "MovieExpert", "movie expert done", nil),
		event(types.EventCompleted, "", "pattern completed", nil),
	}

	transport := newScriptedTransport(script)
	adapter := channel.New(transport, eventLog.Ingest)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-transport.drained
		cancel()
	}()
	_ = adapter.Run(ctx)

	fmt.Printf("events ingested: %d\n", eventLog.Len())
	for _, agent := range pattern.Agents {
		fmt.Printf("  %-12s %s\n", agent, proj.StatusOf(agent))
	}
	fmt.Printf("scope: %v\n\n", proj.Scope())

	geo := layout.Compute(pattern.Topology, pattern.Agents, proj.StatusOf, 800, 400)
	fmt.Println("geometry:")
	for _, node := range geo.Nodes {
		fmt.Printf("  node %-12s (%.0f, %.0f) %s\n", node.ID, node.X, node.Y, node.Status)
	}
	for _, edge := range geo.Edges {
		fmt.Printf("  edge %s -> %s active=%v\n", edge.From, edge.To, edge.Active)
	}

	// renderer-side transcript of the run, in chat-message form
	transcript := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "execution summary for "+pattern.Name),
	}
	for _, agent := range pattern.Agents {
		for _, ev := range proj.History(agent) {
			transcript = append(transcript, llms.TextParts(llms.ChatMessageTypeAI, ev.Message))
		}
	}
	fmt.Println("\ntranscript:")
	for _, msg := range transcript {
		fmt.Printf("  %s: %s\n", msg.Role, msg.Parts[0].(llms.TextContent).Text)
	}
}

// scriptedTransport delivers a fixed payload sequence on subscribe, then
// signals drained and keeps the connection open until closed.
type scriptedTransport struct {
	payloads [][]byte
	drained  chan struct{}
}

func newScriptedTransport(payloads [][]byte) *scriptedTransport {
	return &scriptedTransport{payloads: payloads, drained: make(chan struct{})}
}

func (t *scriptedTransport) Connect(context.Context) (channel.Conn, error) {
	return &scriptedConn{transport: t, done: make(chan error, 1)}, nil
}

type scriptedConn struct {
	transport *scriptedTransport
	done      chan error
}

func (c *scriptedConn) Subscribe(_ string, fn channel.MessageFunc) error {
	go func() {
		for _, payload := range c.transport.payloads {
			fn(payload)
		}
		close(c.transport.drained)
	}()
	return nil
}

func (c *scriptedConn) Ping() error { return nil }

func (c *scriptedConn) Done() <-chan error { return c.done }

func (c *scriptedConn) Close() error { return nil }
