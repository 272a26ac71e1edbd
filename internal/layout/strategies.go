package layout

import (
	"math"

	"github.com/matrixagents/patternview/pkg/types"
)

// strategy places the resolved nodes in canvas space. Strategies mutate
// coordinates only; edge geometry is derived afterwards.
type strategy func(nodes []Node, topo types.Topology, width, height float64)

// strategyFor maps each topology type to its placement. The enumeration
// is closed: adding a topology type means adding a case here, nothing
// else changes.
func strategyFor(t types.TopologyType) strategy {
	switch t {
	case types.TopologySequence:
		return layoutSequence
	case types.TopologyParallel:
		return layoutParallel
	case types.TopologyLoop:
		return layoutLoop
	case types.TopologyStar, types.TopologyConditional:
		return layoutStar
	case types.TopologyGOAP:
		return layoutGOAP
	case types.TopologyP2P:
		return layoutP2P
	default:
		return layoutSequence
	}
}

// layoutSequence spaces nodes evenly along the horizontal midline. Also
// the fallback for unrecognized topology types.
func layoutSequence(nodes []Node, _ types.Topology, width, height float64) {
	span := float64(len(nodes) - 1)
	if span < 1 {
		span = 1
	}
	for i := range nodes {
		nodes[i].X = Padding + float64(i)*(width-2*Padding)/span
		nodes[i].Y = height / 2
	}
}

// layoutParallel pins a virtual start node left-center and a virtual
// combiner right-center with the workers stacked vertically between
// them. Without virtual nodes everything stacks vertically at center.
func layoutParallel(nodes []Node, _ types.Topology, width, height float64) {
	centerX, centerY := width/2, height/2

	workers := make([]int, 0, len(nodes))
	hasEnds := false
	for i := range nodes {
		if nodes[i].ID == VirtualStart || nodes[i].ID == VirtualCombiner {
			hasEnds = true
			continue
		}
		workers = append(workers, i)
	}

	if !hasEnds {
		stackVertically(nodes, allIndices(nodes), centerX, centerY, height)
		return
	}

	for i := range nodes {
		switch nodes[i].ID {
		case VirtualStart:
			nodes[i].X = Padding
			nodes[i].Y = centerY
		case VirtualCombiner:
			nodes[i].X = width - Padding
			nodes[i].Y = centerY
		}
	}
	stackVertically(nodes, workers, centerX, centerY, height)
}

func allIndices(nodes []Node) []int {
	idx := make([]int, len(nodes))
	for i := range nodes {
		idx[i] = i
	}
	return idx
}

func stackVertically(nodes []Node, idx []int, x, centerY, height float64) {
	spacing := math.Min(80, (height-2*Padding)/float64(len(idx)+1))
	top := centerY - float64(len(idx)-1)*spacing/2
	for pos, i := range idx {
		nodes[i].X = x
		nodes[i].Y = top + float64(pos)*spacing
	}
}

// layoutLoop places nodes evenly around a flattened circle, starting at
// the top and proceeding clockwise.
func layoutLoop(nodes []Node, _ types.Topology, width, height float64) {
	placeOnCircle(nodes, width/2, height/2, math.Min(width, height)/3, math.Min(width, height)/4)
}

// layoutStar puts the first node at the canvas center and the rest
// evenly around a circle centered on it. Shared by STAR and CONDITIONAL.
func layoutStar(nodes []Node, _ types.Topology, width, height float64) {
	if len(nodes) == 0 {
		return
	}
	centerX, centerY := width/2, height/2
	nodes[0].X = centerX
	nodes[0].Y = centerY

	rest := nodes[1:]
	radius := math.Min(width, height) / 3
	placeOnCircle(rest, centerX, centerY, radius, math.Min(width, height)/3.5)
}

// layoutP2P arranges the mesh around a circle; its reciprocal edges are
// drawn as curves, handled in edge resolution.
func layoutP2P(nodes []Node, _ types.Topology, width, height float64) {
	radius := math.Min(width, height) / 3
	placeOnCircle(nodes, width/2, height/2, radius, radius*0.8)
}

// placeOnCircle distributes nodes at equal angular steps starting at the
// top (−π/2), with independent horizontal and vertical radii.
func placeOnCircle(nodes []Node, centerX, centerY, radiusX, radiusY float64) {
	n := float64(len(nodes))
	for i := range nodes {
		angle := float64(i)/n*2*math.Pi - math.Pi/2
		nodes[i].X = centerX + math.Cos(angle)*radiusX
		nodes[i].Y = centerY + math.Sin(angle)*radiusY
	}
}
