package filter

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// boundIntersects reports whether the rectangle b intersects g. Boundary
// contact counts as intersecting.
func boundIntersects(b orb.Bound, g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.Point:
		return b.Contains(g)
	case orb.MultiPoint:
		for _, p := range g {
			if b.Contains(p) {
				return true
			}
		}
	case orb.Bound:
		return b.Intersects(g)
	case orb.LineString:
		return lineIntersects(b, g)
	case orb.MultiLineString:
		for _, ls := range g {
			if lineIntersects(b, ls) {
				return true
			}
		}
	case orb.Ring:
		return polygonIntersects(b, orb.Polygon{g})
	case orb.Polygon:
		return polygonIntersects(b, g)
	case orb.MultiPolygon:
		for _, p := range g {
			if polygonIntersects(b, p) {
				return true
			}
		}
	case orb.Collection:
		for _, sub := range g {
			if boundIntersects(b, sub) {
				return true
			}
		}
	}
	return false
}

func lineIntersects(b orb.Bound, ls orb.LineString) bool {
	if len(ls) == 0 || !b.Intersects(ls.Bound()) {
		return false
	}
	for _, p := range ls {
		if b.Contains(p) {
			return true
		}
	}
	rect := b.ToRing()
	for i := 1; i < len(ls); i++ {
		for j := 1; j < len(rect); j++ {
			if segmentsIntersect(ls[i-1], ls[i], rect[j-1], rect[j]) {
				return true
			}
		}
	}
	return false
}

// polygonIntersects covers the three disjoint cases: a ring vertex inside
// the rectangle, the rectangle inside the polygon, or crossing edges. Ring
// boundaries, holes included, belong to the polygon.
func polygonIntersects(b orb.Bound, p orb.Polygon) bool {
	if len(p) == 0 || !b.Intersects(p.Bound()) {
		return false
	}
	for _, ring := range p {
		for _, pt := range ring {
			if b.Contains(pt) {
				return true
			}
		}
	}
	for _, corner := range boundCorners(b) {
		if planar.PolygonContains(p, corner) {
			return true
		}
	}
	rect := b.ToRing()
	for _, ring := range p {
		for i := 1; i < len(ring); i++ {
			for j := 1; j < len(rect); j++ {
				if segmentsIntersect(ring[i-1], ring[i], rect[j-1], rect[j]) {
					return true
				}
			}
		}
	}
	return false
}

func boundCorners(b orb.Bound) [4]orb.Point {
	return [4]orb.Point{
		b.Min,
		{b.Max[0], b.Min[1]},
		b.Max,
		{b.Min[0], b.Max[1]},
	}
}

// segmentsIntersect reports whether segments p1p2 and q1q2 share a point,
// endpoints and collinear overlap included.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
