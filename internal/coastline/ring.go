// Package coastline implements the per-AOI land-polygon cache (§4.C)
// and the coastline containment/intersection predicate (§4.D) built
// over it. The exact containment/intersects tests are delegated to
// paulmach/orb per spec §9 ("Contains/Intersects helpers... may be
// delegated to any equivalent library"); only the clipper itself
// (internal/clip) is required to be bit-faithful to the original.
package coastline

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/pacesm/ingestion-engine/internal/geom"
)

// Ring mirrors clip.Ring to avoid an import cycle between clip and
// coastline; both are (east, north) vertex lists.
type Ring []geom.Point

func toOrbRing(r Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = orb.Point{p.E, p.N}
	}
	return out
}

// containsRing reports whether every vertex of b lies inside a and no
// edge of b crosses an edge of a — the standard ring-containment test
// used in place of OGR's Polygon.Contains.
func containsRing(a, b Ring) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	oa := toOrbRing(a)
	for _, p := range b {
		if !planar.RingContains(oa, orb.Point{p.E, p.N}) {
			return false
		}
	}
	return !edgesCross(a, b)
}

// intersectsRing reports whether a and b share any area: either ring
// contains a vertex of the other, or an edge of one crosses an edge
// of the other.
func intersectsRing(a, b Ring) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	oa, ob := toOrbRing(a), toOrbRing(b)
	for _, p := range b {
		if planar.RingContains(oa, orb.Point{p.E, p.N}) {
			return true
		}
	}
	for _, p := range a {
		if planar.RingContains(ob, orb.Point{p.E, p.N}) {
			return true
		}
	}
	return edgesCross(a, b)
}

func edgesCross(a, b Ring) bool {
	na, nb := len(a), len(b)
	if na < 2 || nb < 2 {
		return false
	}
	for i := 0; i < na; i++ {
		a0, a1 := a[i], a[(i+1)%na]
		for j := 0; j < nb; j++ {
			b0, b1 := b[j], b[(j+1)%nb]
			if segmentsIntersect(a0, a1, b0, b1) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, p3, p4 geom.Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegment(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, p4) {
		return true
	}
	return false
}

func cross(a, b, c geom.Point) float64 {
	return (b.E-a.E)*(c.N-a.N) - (b.N-a.N)*(c.E-a.E)
}

func onSegment(a, b, p geom.Point) bool {
	return p.E >= minf(a.E, b.E) && p.E <= maxf(a.E, b.E) &&
		p.N >= minf(a.N, b.N) && p.N <= maxf(a.N, b.N)
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// envelope returns the (minE,maxE,minN,maxN) bounds of a ring.
func envelope(r Ring) geom.Bbox {
	if len(r) == 0 {
		return geom.Bbox{}
	}
	bb := geom.Bbox{LL: r[0], UR: r[0]}
	for _, p := range r[1:] {
		if p.E < bb.LL.E {
			bb.LL.E = p.E
		}
		if p.E > bb.UR.E {
			bb.UR.E = p.E
		}
		if p.N < bb.LL.N {
			bb.LL.N = p.N
		}
		if p.N > bb.UR.N {
			bb.UR.N = p.N
		}
	}
	return bb
}
