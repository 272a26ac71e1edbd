package types

// TopologyType is the closed set of orchestration shapes the layout
// engine knows how to place. Unrecognized values fall back to the
// sequence placement.
type TopologyType string

const (
	TopologySequence    TopologyType = "SEQUENCE"
	TopologyParallel    TopologyType = "PARALLEL"
	TopologyLoop        TopologyType = "LOOP"
	TopologyStar        TopologyType = "STAR"
	TopologyConditional TopologyType = "CONDITIONAL"
	TopologyGOAP        TopologyType = "GOAP"
	TopologyP2P         TopologyType = "P2P"
)

// Edge connects two nodes of a topology. Endpoints may name ids that are
// not declared agents (virtual nodes such as "start" and "combiner");
// the layout engine synthesizes those.
type Edge struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Label         string `json:"label,omitempty"`
	Condition     string `json:"condition,omitempty"`
	Bidirectional bool   `json:"bidirectional,omitempty"`
}

// DisplayLabel returns the text shown beside the edge. Label wins,
// Condition stands in when Label is absent.
func (e Edge) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Condition
}

// Topology describes a pattern's fixed interaction graph. Immutable once
// loaded for a pattern.
type Topology struct {
	Type          TopologyType `json:"type"`
	Edges         []Edge       `json:"edges"`
	MaxIterations int          `json:"maxIterations,omitempty"`
	HasHuman      bool         `json:"hasHuman,omitempty"`
}
