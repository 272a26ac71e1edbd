package layout

import (
	"github.com/matrixagents/patternview/pkg/types"
)

// layoutGOAP arranges a planning DAG in dependency columns: nodes are
// ranked by longest path from a source via Kahn's algorithm, grouped by
// rank into columns spaced left to right, and spaced evenly top to
// bottom within a column. Every edge therefore points rightward,
// matching the planning-dependency reading of the topology.
//
// Cyclic input is unsupported: nodes trapped on a cycle never reach
// in-degree zero and keep their seed rank of 0.
func layoutGOAP(nodes []Node, topo types.Topology, width, height float64) {
	levels := levelByLongestPath(nodes, topo.Edges)

	maxLevel := 0
	for _, lvl := range levels {
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	// group into columns preserving node declaration order
	columns := make([][]int, maxLevel+1)
	for i := range nodes {
		lvl := levels[nodes[i].ID]
		columns[lvl] = append(columns[lvl], i)
	}

	columnWidth := (width - 2*Padding) / float64(maxLevel+1)
	for lvl, column := range columns {
		x := Padding + float64(lvl)*columnWidth + columnWidth/2
		rowSpacing := (height - 2*Padding) / float64(len(column)+1)
		for row, i := range column {
			nodes[i].X = x
			nodes[i].Y = Padding + float64(row+1)*rowSpacing
		}
	}
}

// levelByLongestPath computes each node's longest-path rank from a
// source. In-degree-zero nodes seed level 0; a node is dequeued only
// once all its predecessors are ranked, and each successor's level is
// raised to predecessor+1 if that is higher.
func levelByLongestPath(nodes []Node, edges []types.Edge) map[string]int {
	inDegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string, len(nodes))
	for i := range nodes {
		inDegree[nodes[i].ID] = 0
	}
	for _, e := range edges {
		if _, ok := inDegree[e.To]; ok {
			inDegree[e.To]++
		}
		successors[e.From] = append(successors[e.From], e.To)
	}

	levels := make(map[string]int, len(nodes))
	var queue []string
	for i := range nodes {
		if inDegree[nodes[i].ID] == 0 {
			queue = append(queue, nodes[i].ID)
			levels[nodes[i].ID] = 0
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range successors[current] {
			if _, known := inDegree[next]; !known {
				continue
			}
			if levels[current]+1 > levels[next] {
				levels[next] = levels[current] + 1
			}
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return levels
}
