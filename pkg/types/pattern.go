package types

// PatternInfo is one entry of the backend's pattern catalogue. Treated as
// read-only configuration, loaded once per view.
type PatternInfo struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Agents        []string `json:"agents"`
	Topology      Topology `json:"topology"`
	ExamplePrompt string   `json:"examplePrompt"`
}

// ExecutionRequest triggers a pattern run on the backend.
type ExecutionRequest struct {
	PatternID  string         `json:"patternId"`
	Prompt     string         `json:"prompt"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ExecutionResult is the synchronous response to an execute call. When
// ScopeSnapshot is present it is authoritative: it replaces the projected
// scope wholesale rather than merging key by key.
type ExecutionResult struct {
	ExecutionID   string          `json:"executionId"`
	PatternID     string          `json:"patternId"`
	Status        ExecutionStatus `json:"status"`
	Result        string          `json:"result"`
	Events        []Event         `json:"events"`
	ScopeSnapshot map[string]any  `json:"scopeSnapshot,omitempty"`
	StartTime     string          `json:"startTime"`
	EndTime       string          `json:"endTime,omitempty"`
	DurationMs    int64           `json:"durationMs"`
}
