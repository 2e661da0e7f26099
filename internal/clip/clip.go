// Package clip implements the bespoke Sutherland-Hodgman-style polygon
// clipper the coastline cache builder depends on. It is ported
// faithfully from coastline_ck.py's clip_poly/find_intersections/
// find_corner family, including the east/north insertion-order
// heuristic that looks like a latent defect but is preserved per
// spec §9 ("must be reimplemented faithfully").
package clip

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/pacesm/ingestion-engine/internal/geom"
)

// Ring is an ordered list of (east, north) vertices. The caller's
// ring need not be explicitly closed; ClipPoly treats it as a cycle
// over ring[0..n-1].
type Ring []geom.Point

// Isection is an intersection of an edge with one of a rectangle's
// four boundary lines. Named after coastline_ck.py's Isection class.
type Isection struct {
	Pt         geom.Point
	OnBoundary bool
}

// ClipPoly clips the outer ring of poly against bb, returning the new
// ring's vertices. Inner holes are dropped by design (the coastline
// domain never needs them). Returns an empty ring when poly does not
// intersect bb at all.
func ClipPoly(bb geom.Bbox, poly Ring) Ring {
	n := len(poly)
	if n == 0 {
		return nil
	}

	var clipped Ring
	p0 := poly[0]
	p0Inside := geom.PointInBox(bb, p0)
	if p0Inside {
		clipped = append(clipped, p0)
	}

	for i := 1; i < n; i++ {
		p1 := poly[i]
		p1Inside := geom.PointInBox(bb, p1)

		if p0Inside && p1Inside {
			clipped = append(clipped, p1)
		} else {
			ipts := FindIntersections(bb, p0, p1)
			for _, ipt := range ipts {
				if ipt.OnBoundary {
					clipped = append(clipped, ipt.Pt)
				} else {
					corner := FindCorner(bb, ipt)
					if isPtInPoly(poly, corner) {
						appendIfNotSame(&clipped, corner)
					}
				}
			}
		}

		p0 = p1
		p0Inside = p1Inside
	}

	if len(clipped) > 1 && !geom.SamePoint(clipped[0], clipped[len(clipped)-1]) {
		clipped = append(clipped, clipped[0])
	}

	return clipped
}

// FindIntersections finds where segment (p0,p1) crosses the four
// boundary lines of bb. Crossings of the constant-north lines are
// ordered by easting distance from p0; crossings of the constant-east
// lines are then inserted by easting, increasing when p0.E < p0.N and
// decreasing otherwise, so the result is not always in order of
// distance from p0. Ported from coastline_ck.py:find_intersections.
func FindIntersections(bb geom.Bbox, p0, p1 geom.Point) []Isection {
	var ipoints []Isection

	minE, minN := bb.LL.E, bb.LL.N
	maxE, maxN := bb.UR.E, bb.UR.N

	isectWithConstN := func(n float64) {
		if !((p0.N < n && p1.N > n) || (p0.N > n && p1.N < n)) {
			return
		}
		xi := geom.CalcXi(p0, p1, n)
		onBoundary := xi >= minE && xi <= maxE
		isect := Isection{Pt: geom.Point{E: xi, N: n}, OnBoundary: onBoundary}
		if len(ipoints) == 0 || absf(p0.E-xi) > absf(p0.E-ipoints[0].Pt.E) {
			ipoints = append(ipoints, isect)
		} else {
			ipoints = append([]Isection{isect}, ipoints...)
		}
	}
	isectWithConstN(minN)
	isectWithConstN(maxN)

	for _, x := range [2]float64{minE, maxE} {
		if !((p0.E < x && p1.E > x) || (p0.E > x && p1.E < x)) {
			continue
		}
		yi := geom.CalcYi(p0, p1, x)
		onBoundary := yi >= minN && yi <= maxN
		ipt := Isection{Pt: geom.Point{E: x, N: yi}, OnBoundary: onBoundary}

		// This comparison mirrors the source's own heuristic exactly:
		// p0's easting against its own northing, not the edge direction.
		if p0.E < p0.N {
			insertOrderedEInc(&ipoints, ipt)
		} else {
			insertOrderedEDec(&ipoints, ipt)
		}
	}

	return ipoints
}

func insertOrderedEInc(target *[]Isection, ipt Isection) {
	for i, item := range *target {
		if ipt.Pt.E < item.Pt.E {
			*target = append((*target)[:i], append([]Isection{ipt}, (*target)[i:]...)...)
			return
		}
	}
	*target = append(*target, ipt)
}

func insertOrderedEDec(target *[]Isection, ipt Isection) {
	for i, item := range *target {
		if ipt.Pt.E > item.Pt.E {
			*target = append((*target)[:i], append([]Isection{ipt}, (*target)[i:]...)...)
			return
		}
	}
	*target = append(*target, ipt)
}

// FindCorner returns the nearest corner of bb to ipt, taking the
// closest easting and closest northing independently. Ported from
// coastline_ck.py:find_corner.
func FindCorner(bb geom.Bbox, ipt Isection) geom.Point {
	closest := func(p, a, b float64) float64 {
		if absf(p-a) < absf(p-b) {
			return a
		}
		return b
	}
	return geom.Point{
		E: closest(ipt.Pt.E, bb.LL.E, bb.UR.E),
		N: closest(ipt.Pt.N, bb.LL.N, bb.UR.N),
	}
}

// isPtInPoly tests membership of pt in the original (unclipped) source
// polygon, used to decide whether a rectangle corner belongs in the
// clipped result. Delegated to orb/planar's ring-containment test,
// per spec §9 ("Contains/Intersects helpers... may be delegated to any
// equivalent library").
func isPtInPoly(poly Ring, pt geom.Point) bool {
	if len(poly) < 3 {
		return false
	}
	ring := make(orb.Ring, len(poly))
	for i, v := range poly {
		ring[i] = orb.Point{v.E, v.N}
	}
	return planar.RingContains(ring, orb.Point{pt.E, pt.N})
}

// appendIfNotSame appends pt unless it equals either of the last two
// points already collected, preserving the dedup invariant.
// Ported from coastline_ck.py:append_if_not_same.
func appendIfNotSame(clipped *Ring, pt geom.Point) {
	n := len(*clipped)
	switch {
	case n == 0:
		*clipped = append(*clipped, pt)
	case n == 1:
		if !geom.SamePoint((*clipped)[0], pt) {
			*clipped = append(*clipped, pt)
		}
	default:
		if !geom.SamePoint((*clipped)[n-1], pt) && !geom.SamePoint((*clipped)[n-2], pt) {
			*clipped = append(*clipped, pt)
		}
	}
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// sortedByDistance is a test helper asserting the universal
// intersection-ordering property; kept here so clip_test.go can reuse
// it without re-deriving distance math.
func sortedByDistance(p0 geom.Point, ipts []Isection) bool {
	dist := func(p geom.Point) float64 {
		de := p.E - p0.E
		dn := p.N - p0.N
		return de*de + dn*dn
	}
	return sort.SliceIsSorted(ipts, func(i, j int) bool {
		return dist(ipts[i].Pt) < dist(ipts[j].Pt)
	})
}
