package types

// EventType identifies one step in a pattern run's lifecycle.
type EventType string

const (
	EventStarted            EventType = "STARTED"
	EventAgentInvoked       EventType = "AGENT_INVOKED"
	EventAgentCompleted     EventType = "AGENT_COMPLETED"
	EventStateUpdated       EventType = "STATE_UPDATED"
	EventHumanInputRequired EventType = "HUMAN_INPUT_REQUIRED"
	EventHumanInputReceived EventType = "HUMAN_INPUT_RECEIVED"
	EventError              EventType = "ERROR"
	EventCompleted          EventType = "COMPLETED"
)

// Event is one immutable lifecycle message emitted by the orchestration
// backend on the global topic. EventID may be empty on older payloads;
// the stream log assigns one on ingest so dedup always has a key.
type Event struct {
	EventID     string         `json:"eventId,omitempty"`
	PatternName string         `json:"patternName"`
	AgentName   string         `json:"agentName,omitempty"`
	EventType   EventType      `json:"eventType"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

// DataString returns e.Data[key] as a string, empty when absent or not a string.
func (e Event) DataString(key string) string {
	if e.Data == nil {
		return ""
	}
	s, _ := e.Data[key].(string)
	return s
}
