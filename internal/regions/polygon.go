package regions

import "image"

// SelfIntersects reports whether the closed polygon through points has two
// non-adjacent edges that cross or touch. Repeated vertices count as touching.
func SelfIntersects(points []image.Point) bool {
	n := len(points)
	if n < 4 {
		return false
	}

	for i := 0; i < n; i++ {
		a1, a2 := points[i], points[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// edges sharing a vertex by position in the ring
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := points[j], points[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}

	return false
}

func segmentsIntersect(p1, p2, q1, q2 image.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}

	return false
}

// cross is the z component of (b-a) x (c-a)
func cross(a, b, c image.Point) int {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func onSegment(a, b, p image.Point) bool {
	return min(a.X, b.X) <= p.X && p.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= p.Y && p.Y <= max(a.Y, b.Y)
}
