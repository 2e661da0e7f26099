// Package geom implements the engine's geometry primitives: bounding
// boxes, time periods and the edge-intersection arithmetic the polygon
// clipper builds on. Points are always (east, north) in WGS84 degrees.
package geom

import (
	"strconv"
	"time"

	"github.com/pacesm/ingestion-engine/internal/ingesterr"
)

// NearZeroTol guards divisions by a near-vertical or near-horizontal
// edge when computing a line/constant-axis intersection.
const NearZeroTol = 2.0e-9

// Point is an (east, north) coordinate pair in degrees.
type Point struct {
	E, N float64
}

// Bbox is a closed axis-aligned rectangle with ll.E <= ur.E and
// ll.N <= ur.N.
type Bbox struct {
	LL, UR Point
}

// NewBboxFromStrings builds a Bbox from corner strings formatted as "e,n" or
// "n,e" depending on axis order, matching extract_gml_bbox's handling
// of axisLabels.
func NewBboxFromStrings(lower, upper string, isXFirst bool) (Bbox, error) {
	la, lb, err := parsePair(lower)
	if err != nil {
		return Bbox{}, err
	}
	ua, ub, err := parsePair(upper)
	if err != nil {
		return Bbox{}, err
	}
	var ll, ur Point
	if isXFirst {
		ll = Point{E: la, N: lb}
		ur = Point{E: ua, N: ub}
	} else {
		ll = Point{E: lb, N: la}
		ur = Point{E: ub, N: ua}
	}
	return Bbox{LL: ll, UR: ur}.normalized(), nil
}

func parsePair(s string) (a, b float64, err error) {
	var sa, sb string
	n := 0
	for i, c := range s {
		if c == ' ' || c == ',' {
			sa = s[:i]
			sb = s[i+1:]
			n = 1
			break
		}
	}
	if n == 0 {
		return 0, 0, ingesterr.NewIngestionError("malformed coordinate pair %q", s)
	}
	a, err = strconv.ParseFloat(sa, 64)
	if err != nil {
		return 0, 0, ingesterr.NewIngestionError("malformed coordinate %q: %v", sa, err)
	}
	b, err = strconv.ParseFloat(sb, 64)
	if err != nil {
		return 0, 0, ingesterr.NewIngestionError("malformed coordinate %q: %v", sb, err)
	}
	return a, b, nil
}

func (b Bbox) normalized() Bbox {
	if b.LL.E > b.UR.E {
		b.LL.E, b.UR.E = b.UR.E, b.LL.E
	}
	if b.LL.N > b.UR.N {
		b.LL.N, b.UR.N = b.UR.N, b.LL.N
	}
	return b
}

// Overlaps reports whether the two closed rectangles share any area.
func (b Bbox) Overlaps(o Bbox) bool {
	if b.UR.E < o.LL.E || o.UR.E < b.LL.E {
		return false
	}
	if b.UR.N < o.LL.N || o.UR.N < b.LL.N {
		return false
	}
	return true
}

// Contains reports whether pt lies within the closed rectangle.
func (b Bbox) Contains(pt Point) bool {
	return PointInBox(b, pt)
}

// PointInBox is a closed-interval membership test, grounded on
// coastline_ck.py:is_pt_in_BB.
func PointInBox(bb Bbox, pt Point) bool {
	return pt.E >= bb.LL.E && pt.E <= bb.UR.E &&
		pt.N >= bb.LL.N && pt.N <= bb.UR.N
}

// EPSG4326ToWGS84 converts a Bbox tagged with the given EPSG code to
// WGS84. Only EPSG:4326 is supported; anything else fails with
// NoEPSGCode per spec §3 ("only EPSG:4326 is required").
func EPSG4326ToWGS84(epsg int, b Bbox) (Bbox, error) {
	if epsg != 4326 {
		return Bbox{}, &ingesterr.NoEPSGCode{SRSName: strconv.Itoa(epsg)}
	}
	return b, nil
}

// TimePeriod is a half-open [Begin, End) interval with ISO-8601
// endpoints.
type TimePeriod struct {
	Begin, End time.Time
}

// NewTimePeriod parses ISO-8601 begin/end timestamps.
func NewTimePeriod(begin, end string) (TimePeriod, error) {
	b, err := parseISO8601(begin)
	if err != nil {
		return TimePeriod{}, ingesterr.NewIngestionError("bad begin time %q: %v", begin, err)
	}
	e, err := parseISO8601(end)
	if err != nil {
		return TimePeriod{}, ingesterr.NewIngestionError("bad end time %q: %v", end, err)
	}
	return TimePeriod{Begin: b, End: e}, nil
}

func parseISO8601(s string) (time.Time, error) {
	layouts := []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}
	var firstErr error
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Overlaps reports whether the two half-open intervals intersect.
func (t TimePeriod) Overlaps(o TimePeriod) bool {
	return t.Begin.Before(o.End) && o.Begin.Before(t.End)
}

// IntersectionPoint is a point where a segment crosses one of the four
// lines forming a rectangle's boundary. OnBoundary is true iff the
// point lies on the actual rectangle edge, not merely on the infinite
// line extending it.
type IntersectionPoint struct {
	Pt         Point
	OnBoundary bool
}

// CalcXi computes the easting on segment (p0,p1) at northing n,
// assuming an intersection exists. Ported from coastline_ck.py:calc_xi.
func CalcXi(p0, p1 Point, n float64) float64 {
	dy := p1.N - p0.N
	if abs(dy) < NearZeroTol {
		return (p1.E + p0.E) / 2.0
	}
	dx := p1.E - p0.E
	r := dx / dy
	return p0.E + (n-p0.N)*r
}

// CalcYi computes the northing on segment (p0,p1) at easting e,
// assuming an intersection exists. Ported from coastline_ck.py:calc_yi.
func CalcYi(p0, p1 Point, e float64) float64 {
	dx := p1.E - p0.E
	if abs(dx) < NearZeroTol {
		return (p1.N + p0.N) / 2.0
	}
	dy := p1.N - p0.N
	s := dy / dx
	return p0.N + (e-p0.E)*s
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// SamePoint reports whether two points have identical coordinates.
func SamePoint(a, b Point) bool {
	return a.E == b.E && a.N == b.N
}
