package geom

import "testing"

func TestBboxOverlaps(t *testing.T) {
	a := Bbox{LL: Point{0, 0}, UR: Point{10, 10}}
	b := Bbox{LL: Point{5, 5}, UR: Point{15, 15}}
	c := Bbox{LL: Point{20, 20}, UR: Point{30, 30}}

	if !a.Overlaps(b) {
		t.Fatalf("expected overlap")
	}
	if a.Overlaps(c) {
		t.Fatalf("expected no overlap")
	}
}

func TestPointInBoxClosedInterval(t *testing.T) {
	bb := Bbox{LL: Point{0, 0}, UR: Point{10, 10}}
	if !PointInBox(bb, Point{0, 0}) {
		t.Fatalf("corner should be inside (closed interval)")
	}
	if !PointInBox(bb, Point{10, 10}) {
		t.Fatalf("opposite corner should be inside (closed interval)")
	}
	if PointInBox(bb, Point{10.0001, 5}) {
		t.Fatalf("point just outside should not be inside")
	}
}

func TestCalcXiMidpointOnNearZeroDy(t *testing.T) {
	p0 := Point{E: 2, N: 5}
	p1 := Point{E: 8, N: 5}
	xi := CalcXi(p0, p1, 5)
	if xi != 5 {
		t.Fatalf("expected midpoint easting 5, got %v", xi)
	}
}

func TestCalcXiLinear(t *testing.T) {
	p0 := Point{E: 0, N: 0}
	p1 := Point{E: 10, N: 10}
	xi := CalcXi(p0, p1, 5)
	if xi != 5 {
		t.Fatalf("expected easting 5 on the diagonal at n=5, got %v", xi)
	}
}

func TestTimePeriodOverlaps(t *testing.T) {
	a, err := NewTimePeriod("2024-01-01T00:00:00Z", "2024-02-01T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewTimePeriod("2024-01-15T00:00:00Z", "2024-03-01T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewTimePeriod("2024-03-01T00:00:00Z", "2024-04-01T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Overlaps(b) {
		t.Fatalf("expected overlap")
	}
	if a.Overlaps(c) {
		t.Fatalf("expected no overlap (half-open, disjoint)")
	}
}

func TestEPSG4326ToWGS84RejectsOtherCodes(t *testing.T) {
	bb := Bbox{LL: Point{0, 0}, UR: Point{1, 1}}
	if _, err := EPSG4326ToWGS84(4326, bb); err != nil {
		t.Fatalf("unexpected error for EPSG:4326: %v", err)
	}
	if _, err := EPSG4326ToWGS84(3857, bb); err == nil {
		t.Fatalf("expected NoEPSGCode for EPSG:3857")
	}
}
