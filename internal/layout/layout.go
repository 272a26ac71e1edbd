// Package layout turns a topology description plus current node statuses
// into concrete 2-D geometry. It is a pure function of its inputs: no
// hidden state, no I/O, identical arguments always produce bit-identical
// coordinates, so it can be recomputed freely after every status change.
package layout

import (
	"github.com/matrixagents/patternview/pkg/types"
)

// Fixed drawing constants shared with renderers.
const (
	Padding    = 80.0
	NodeRadius = 25.0

	// edge labels sit 40% of the way from source to target, nudged above the line
	labelFraction = 0.40
	labelLift     = 8.0
)

// Virtual node ids the orchestration uses for parallel fan-out/fan-in
// without declaring them as agents.
const (
	VirtualStart    = "start"
	VirtualCombiner = "combiner"
)

// Point is a 2-D coordinate in canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a placed topology node.
type Node struct {
	ID     string           `json:"id"`
	Label  string           `json:"label"`
	Status types.NodeStatus `json:"status"`
	X      float64          `json:"x"`
	Y      float64          `json:"y"`
}

// EdgeGeometry is a fully resolved edge a renderer can draw without any
// graph math of its own. Control is set only for curved (mesh) edges.
// Empty marks an edge whose endpoints could not be resolved; it carries
// no drawable geometry but does not fail the rest of the layout.
type EdgeGeometry struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Label   string `json:"label,omitempty"`
	Active  bool   `json:"active"`
	Empty   bool   `json:"empty,omitempty"`
	Start   Point  `json:"start"`
	End     Point  `json:"end"`
	Control *Point `json:"control,omitempty"`
	LabelAt Point  `json:"labelAt"`
}

// Geometry is the complete layout result for one topology.
type Geometry struct {
	Nodes      []Node         `json:"nodes"`
	Edges      []EdgeGeometry `json:"edges"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	NodeRadius float64        `json:"nodeRadius"`
}

// StatusFunc reports the current status of a node id. Virtual nodes are
// resolved before strategies run, so StatusFunc is consulted only for
// declared agents.
type StatusFunc func(id string) types.NodeStatus

// Compute lays out the topology on a width×height canvas. Node placement
// is dispatched per topology type; unrecognized types fall back to the
// sequence placement. Edge geometry is derived afterwards from the
// placed nodes, so strategies never deal with edges.
func Compute(topo types.Topology, agents []string, status StatusFunc, width, height float64) Geometry {
	nodes := resolveNodes(topo, agents, status)
	strategyFor(topo.Type)(nodes, topo, width, height)

	byID := make(map[string]*Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	curved := topo.Type == types.TopologyP2P
	edges := make([]EdgeGeometry, 0, len(topo.Edges))
	for _, e := range topo.Edges {
		edges = append(edges, resolveEdge(e, byID, status, curved))
	}

	return Geometry{
		Nodes:      nodes,
		Edges:      edges,
		Width:      width,
		Height:     height,
		NodeRadius: NodeRadius,
	}
}

// resolveNodes builds the fully resolved node list before any placement
// strategy runs: declared agents in declaration order, plus synthesized
// virtual nodes for PARALLEL fan-out/fan-in. Strategies never need to
// know which nodes are virtual.
func resolveNodes(topo types.Topology, agents []string, status StatusFunc) []Node {
	nodes := make([]Node, 0, len(agents)+2)
	declared := make(map[string]struct{}, len(agents))
	for _, a := range agents {
		declared[a] = struct{}{}
		nodes = append(nodes, Node{ID: a, Label: a, Status: status(a)})
	}

	if topo.Type != types.TopologyParallel {
		return nodes
	}

	referenced := make(map[string]struct{})
	for _, e := range topo.Edges {
		referenced[e.From] = struct{}{}
		referenced[e.To] = struct{}{}
	}
	if _, ok := referenced[VirtualStart]; ok {
		if _, isAgent := declared[VirtualStart]; !isAgent {
			start := Node{ID: VirtualStart, Label: VirtualStart, Status: types.StatusCompleted}
			nodes = append([]Node{start}, nodes...)
		}
	}
	if _, ok := referenced[VirtualCombiner]; ok {
		if _, isAgent := declared[VirtualCombiner]; !isAgent {
			nodes = append(nodes, Node{ID: VirtualCombiner, Label: VirtualCombiner, Status: types.StatusIdle})
		}
	}
	return nodes
}

// resolveEdge derives one edge's drawable geometry from its endpoints'
// already-placed nodes. A dangling endpoint (topology authoring error)
// yields empty geometry rather than failing the whole layout.
func resolveEdge(e types.Edge, byID map[string]*Node, status StatusFunc, curved bool) EdgeGeometry {
	geo := EdgeGeometry{
		From:   e.From,
		To:     e.To,
		Label:  e.DisplayLabel(),
		Active: status(e.From) == types.StatusActive || status(e.To) == types.StatusActive,
	}

	src, okSrc := byID[e.From]
	dst, okDst := byID[e.To]
	if !okSrc || !okDst {
		geo.Empty = true
		return geo
	}

	if curved {
		start, end, control := quadratic(Point{src.X, src.Y}, Point{dst.X, dst.Y})
		geo.Start, geo.End, geo.Control = start, end, control
	} else {
		geo.Start = Point{src.X, src.Y}
		geo.End = Point{dst.X, dst.Y}
	}

	geo.LabelAt = Point{
		X: src.X + (dst.X-src.X)*labelFraction,
		Y: src.Y + (dst.Y-src.Y)*labelFraction - labelLift,
	}
	return geo
}
