package coastline

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"

	"github.com/pacesm/ingestion-engine/internal/geom"
)

// broadPhaseRes is the H3 resolution used for the coastline cache's
// cheap pre-filter. Res 4 cells are ~1,770 km^2, coarse enough that a
// handful of cells cover a typical AOI/footprint yet fine enough to
// reject most non-overlapping candidates before the exact orb test
// runs. Grounded on internal/mapper/h3's polyfillOne pattern.
const broadPhaseRes = 4

// cellsForRing computes the deduplicated (unordered) set of H3 cells
// covering ring at broadPhaseRes. Ported in spirit from
// h3mapper.polyfillOne/CellsForPolygon, adapted to the (east, north)
// Ring type used throughout this module instead of GeoJSON.
func cellsForRing(r Ring) (map[string]struct{}, error) {
	if len(r) < 3 {
		return nil, fmt.Errorf("ring has < 3 vertices")
	}
	loop := make(h3.GeoLoop, 0, len(r))
	for i, p := range r {
		// drop an explicit closing vertex, same as h3mapper.toLoop
		if i == len(r)-1 && geom.SamePoint(p, r[0]) {
			continue
		}
		loop = append(loop, h3.LatLng{Lat: p.N, Lng: p.E})
	}
	if len(loop) < 3 {
		return nil, fmt.Errorf("ring has < 3 distinct vertices")
	}
	cells, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: loop}, broadPhaseRes)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}
	out := make(map[string]struct{}, len(cells))
	for _, c := range cells {
		out[c.String()] = struct{}{}
	}
	return out, nil
}

// cellsForBbox computes the H3 cell set covering a rectangular AOI.
func cellsForBbox(bb geom.Bbox) (map[string]struct{}, error) {
	r := Ring{
		{E: bb.LL.E, N: bb.LL.N},
		{E: bb.UR.E, N: bb.LL.N},
		{E: bb.UR.E, N: bb.UR.N},
		{E: bb.LL.E, N: bb.UR.N},
	}
	return cellsForRing(r)
}

// cellSetsOverlap reports whether a and b share at least one cell.
// An empty set (extraction failure) is never treated as overlapping
// by the caller directly — callers must fail open before reaching here.
func cellSetsOverlap(a, b map[string]struct{}) bool {
	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}
	for k := range small {
		if _, ok := large[k]; ok {
			return true
		}
	}
	return false
}
