package layout

import "math"

// quadratic builds a curved edge between two node centers: a quadratic
// Bézier whose control point is offset perpendicular to the straight
// line by 20% of its length, separating reciprocal and crossing edges in
// a dense mesh. Endpoints are inset by the node radius so the curve
// terminates at the node boundary, not its center.
func quadratic(src, dst Point) (start, end Point, control *Point) {
	dx := dst.X - src.X
	dy := dst.Y - src.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return src, dst, nil
	}

	midX := (src.X + dst.X) / 2
	midY := (src.Y + dst.Y) / 2
	offset := length * 0.2
	control = &Point{
		X: midX - dy/length*offset,
		Y: midY + dx/length*offset,
	}

	inset := NodeRadius / length
	start = Point{X: src.X + dx*inset, Y: src.Y + dy*inset}
	end = Point{X: dst.X - dx*inset, Y: dst.Y - dy*inset}
	return start, end, control
}
