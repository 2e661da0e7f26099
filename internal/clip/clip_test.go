package clip

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/pacesm/ingestion-engine/internal/geom"
)

func bbox(llE, llN, urE, urN float64) geom.Bbox {
	return geom.Bbox{LL: geom.Point{E: llE, N: llN}, UR: geom.Point{E: urE, N: urN}}
}

func ring(pts ...[2]float64) Ring {
	r := make(Ring, len(pts))
	for i, p := range pts {
		r[i] = geom.Point{E: p[0], N: p[1]}
	}
	return r
}

// scenario (i): polygon fully inside the rectangle clips to itself.
func TestClipPolyInside(t *testing.T) {
	bb := bbox(0, 0, 10, 10)
	poly := ring([2]float64{2, 2}, [2]float64{8, 2}, [2]float64{8, 8}, [2]float64{2, 8}, [2]float64{2, 2})
	got := ClipPoly(bb, poly)
	if len(got) != len(poly) {
		t.Fatalf("expected idempotent clip, got %v vertices want %v", len(got), len(poly))
	}
	for i := range poly {
		if !geom.SamePoint(got[i], poly[i]) {
			t.Fatalf("vertex %d differs: got %v want %v", i, got[i], poly[i])
		}
	}
}

// scenario (ii): polygon entirely outside the rectangle clips to empty.
func TestClipPolyOutside(t *testing.T) {
	bb := bbox(0, 0, 10, 10)
	poly := ring([2]float64{20, 20}, [2]float64{30, 20}, [2]float64{30, 30}, [2]float64{20, 30}, [2]float64{20, 20})
	got := ClipPoly(bb, poly)
	if len(got) != 0 {
		t.Fatalf("expected empty clip result, got %v", got)
	}
}

// scenario (iv): rectangle entirely inside the polygon clips to the
// rectangle's four corners.
func TestClipPolyCornerInsertion(t *testing.T) {
	bb := bbox(0, 0, 1, 1)
	poly := ring([2]float64{-1, -1}, [2]float64{2, -1}, [2]float64{2, 2}, [2]float64{-1, 2}, [2]float64{-1, -1})
	got := ClipPoly(bb, poly)
	if len(got) == 0 {
		t.Fatalf("expected the bbox corners, got empty result")
	}
	// containment (property 1) and closure (property 2)
	for _, p := range got {
		if !geom.PointInBox(bb, p) {
			t.Fatalf("vertex %v not contained in bbox", p)
		}
	}
	if !geom.SamePoint(got[0], got[len(got)-1]) {
		t.Fatalf("result ring is not closed: first=%v last=%v", got[0], got[len(got)-1])
	}
}

// scenario (iii): a polygon straddling one corner of the rectangle
// clips to the rectangle's corner-side sub-rectangle.
func TestClipPolyStraddle(t *testing.T) {
	bb := bbox(0, 0, 10, 10)
	poly := ring([2]float64{5, 5}, [2]float64{15, 5}, [2]float64{15, 15}, [2]float64{5, 15}, [2]float64{5, 5})
	got := ClipPoly(bb, poly)
	want := ring([2]float64{5, 5}, [2]float64{10, 5}, [2]float64{10, 10}, [2]float64{5, 10}, [2]float64{5, 5})
	if len(got) != len(want) {
		t.Fatalf("expected %d vertices, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !geom.SamePoint(got[i], want[i]) {
			t.Fatalf("vertex %d differs: got %v want %v", i, got[i], want[i])
		}
	}
}

// property 3: no two consecutive emitted points coincide.
func TestClipPolyDedupInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		bb := bbox(0, 0, 10, 10)
		n := rapid.IntRange(3, 8).Draw(rt, "n")
		var poly Ring
		for i := 0; i < n; i++ {
			e := rapid.Float64Range(-5, 15).Draw(rt, "e")
			no := rapid.Float64Range(-5, 15).Draw(rt, "n")
			poly = append(poly, geom.Point{E: e, N: no})
		}
		poly = append(poly, poly[0])

		got := ClipPoly(bb, poly)
		for i := 1; i < len(got); i++ {
			if geom.SamePoint(got[i], got[i-1]) {
				rt.Fatalf("consecutive duplicate at index %d: %v", i, got[i])
			}
		}
		for _, p := range got {
			if !geom.PointInBox(bb, p) {
				rt.Fatalf("vertex %v escaped the bbox", p)
			}
		}
	})
}

// property 5: a polygon whose envelope is disjoint from the rectangle
// clips to empty.
func TestClipPolyDisjointEnvelope(t *testing.T) {
	bb := bbox(0, 0, 10, 10)
	poly := ring([2]float64{100, 100}, [2]float64{110, 100}, [2]float64{110, 110}, [2]float64{100, 110}, [2]float64{100, 100})
	if got := ClipPoly(bb, poly); len(got) != 0 {
		t.Fatalf("expected empty result for disjoint envelope, got %v", got)
	}
}

// property 6: for a horizontal edge crossing both constant-east lines,
// findIntersections returns the candidates by non-decreasing distance
// from p0.
func TestFindIntersectionsOrdering(t *testing.T) {
	bb := bbox(0, 0, 10, 10)
	p0 := geom.Point{E: -5, N: 5}
	p1 := geom.Point{E: 15, N: 5}
	ipts := FindIntersections(bb, p0, p1)
	if !sortedByDistance(p0, ipts) {
		t.Fatalf("intersections not ordered by distance from p0: %+v", ipts)
	}
}

func TestAppendIfNotSameSkipsLastTwo(t *testing.T) {
	var clipped Ring
	p := geom.Point{E: 1, N: 1}
	q := geom.Point{E: 2, N: 2}
	appendIfNotSame(&clipped, p)
	appendIfNotSame(&clipped, q)
	appendIfNotSame(&clipped, p) // differs from last (q) but equals second-to-last, rejected
	appendIfNotSame(&clipped, q) // same as last, rejected
	if len(clipped) != 2 {
		t.Fatalf("expected 2 points, got %d: %v", len(clipped), clipped)
	}
}
