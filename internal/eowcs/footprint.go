package eowcs

import (
	"strconv"
	"strings"

	"github.com/pacesm/ingestion-engine/internal/geom"
)

// footprintPath is the XPath composing …EarthObservation/
// om:featureOfInterest/eop:Footprint/eop:multiExtentOf/
// gml:MultiSurface/gml:surfaceMember/gml:Polygon/gml:exterior/
// gml:LinearRing/gml:posList, the coastline predicate's only geometry
// input.
var footprintPath = append(append([]string{}, eoMetadataPath...),
	"EarthObservation", "featureOfInterest", "Footprint", "multiExtentOf",
	"MultiSurface", "surfaceMember", "Polygon", "exterior", "LinearRing", "posList")

// Footprint extracts the coverage's footprint polygon as a closed
// (east, north) ring, swapping the wire's (lat, long) pair order on
// ingest. Returns ok=false, never an error, when the footprint is
// absent or malformed: the coastline predicate fails open on
// extraction failure per spec.
func (c CoverageDescription) Footprint() ([]geom.Point, bool) {
	n := c.n.find(footprintPath...)
	if n == nil {
		return nil, false
	}
	fields := strings.Fields(n.text())
	if len(fields) < 6 || len(fields)%2 != 0 {
		return nil, false
	}
	pts := make([]geom.Point, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		lat, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, false
		}
		lon, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, false
		}
		pts = append(pts, geom.Point{E: lon, N: lat})
	}
	return pts, true
}
