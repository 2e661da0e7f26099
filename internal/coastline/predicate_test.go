package coastline

import (
	"testing"

	"github.com/pacesm/ingestion-engine/internal/geom"
)

func sqRing(llE, llN, urE, urN float64) Ring {
	return Ring{
		{E: llE, N: llN}, {E: urE, N: llN}, {E: urE, N: urN}, {E: llE, N: urN}, {E: llE, N: llN},
	}
}

// property 7: a null or empty cache always accepts.
func TestCheckFailOpenOnEmptyCache(t *testing.T) {
	if !Check(nil, sqRing(0, 0, 1, 1)) {
		t.Fatalf("expected fail-open accept on nil cache")
	}
	empty := &Cache{AOI: geom.Bbox{LL: geom.Point{E: 0, N: 0}, UR: geom.Point{E: 10, N: 10}}}
	if !Check(empty, sqRing(0, 0, 1, 1)) {
		t.Fatalf("expected fail-open accept on empty cache")
	}
}

// property 8: containment or intersection in either direction accepts.
func TestCheckSymmetry(t *testing.T) {
	land := sqRing(0, 0, 10, 10)

	contained := &Cache{Rings: []Ring{land}}
	if !Check(contained, sqRing(2, 2, 4, 4)) {
		t.Fatalf("expected accept: footprint contained in land")
	}

	containing := &Cache{Rings: []Ring{sqRing(2, 2, 4, 4)}}
	if !Check(containing, land) {
		t.Fatalf("expected accept: footprint contains land")
	}

	overlapping := &Cache{Rings: []Ring{land}}
	if !Check(overlapping, sqRing(5, 5, 15, 15)) {
		t.Fatalf("expected accept: footprint intersects land")
	}
}

// a footprint with no relation to any cached land ring is rejected.
func TestCheckRejectsDisjointFootprint(t *testing.T) {
	cache := &Cache{Rings: []Ring{sqRing(0, 0, 10, 10)}}
	if Check(cache, sqRing(50, 50, 60, 60)) {
		t.Fatalf("expected reject: footprint shares no area with cached land")
	}
}

// degenerate footprints (fewer than 3 vertices) fail open rather than
// panicking on malformed metadata.
func TestCheckFailOpenOnDegenerateFootprint(t *testing.T) {
	cache := &Cache{Rings: []Ring{sqRing(0, 0, 10, 10)}}
	if !Check(cache, Ring{{E: 1, N: 1}}) {
		t.Fatalf("expected fail-open accept on degenerate footprint")
	}
}

func TestContainsRingAndIntersectsRing(t *testing.T) {
	outer := sqRing(0, 0, 10, 10)
	inner := sqRing(2, 2, 4, 4)
	if !containsRing(outer, inner) {
		t.Fatalf("expected outer to contain inner")
	}
	if containsRing(inner, outer) {
		t.Fatalf("did not expect inner to contain outer")
	}

	straddling := sqRing(5, 5, 15, 15)
	if !intersectsRing(outer, straddling) {
		t.Fatalf("expected overlapping squares to intersect")
	}
	disjoint := sqRing(50, 50, 60, 60)
	if intersectsRing(outer, disjoint) {
		t.Fatalf("did not expect disjoint squares to intersect")
	}
}
