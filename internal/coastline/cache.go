package coastline

import (
	"fmt"

	shp "github.com/jonas-p/go-shp"

	"github.com/pacesm/ingestion-engine/internal/clip"
	"github.com/pacesm/ingestion-engine/internal/geom"
)

// Cache holds the land-polygon rings clipped to a single AOI, plus the
// H3 cell set covering the AOI itself, used as a broad-phase filter. Built once per AOI by
// BuildCache and then reused for every coverage predicate check made
// against that AOI, mirroring coastline_cache_from_aoi's role as a
// per-scenario memoized cache.
type Cache struct {
	AOI   geom.Bbox
	Rings []Ring
	cells map[string]struct{}
}

// Empty reports whether the cache holds no land polygons at all, in
// which case the predicate always accepts (spec §4.D fail-open rule:
// "no coastline data for the AOI never blocks ingestion").
func (c *Cache) Empty() bool {
	return c == nil || len(c.Rings) == 0
}

// BuildCache opens the shapefile at path, retains every ring whose
// envelope overlaps aoi, clips each retained ring to aoi via
// internal/clip, and, when any ring was kept, records the H3 cells
// covering aoi for fast broad-phase lookups. Ported from coastline_ck.py's
// coastline_cache_from_aoi/create_clipped_layer pair: the original
// opens the shapefile through OGR, filters by spatial envelope, then
// clips feature-by-feature; jonas-p/go-shp plays the OGR reader's role
// here since no pack repo carries an OGR binding (spec §9 explicitly
// allows substituting an equivalent library for this step).
func BuildCache(shapefilePath string, aoi geom.Bbox) (*Cache, error) {
	reader, err := shp.Open(shapefilePath)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", shapefilePath, err)
	}
	defer reader.Close()

	c := &Cache{AOI: aoi}

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		for _, ring := range ringsOf(poly) {
			if len(ring) < 3 {
				continue
			}
			if !envelope(ring).Overlaps(aoi) {
				continue
			}
			clipped := clip.ClipPoly(aoi, toClipRing(ring))
			if len(clipped) < 3 {
				continue
			}
			c.Rings = append(c.Rings, fromClipRing(clipped))
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", shapefilePath, err)
	}

	if len(c.Rings) > 0 {
		cells, err := cellsForBbox(aoi)
		if err == nil {
			c.cells = cells
		}
		// A broad-phase index failure is not fatal: predicate checks
		// simply fall back to the exact orb test for every ring.
	}

	return c, nil
}

// ringsOf splits a shp.Polygon's flat point list into per-part rings
// using its Parts offsets, the same convention OGR exposes as
// feature.GetGeometryRef().GetGeometryRef(i).
func ringsOf(poly *shp.Polygon) []Ring {
	n := int(poly.NumParts)
	if n == 0 {
		return []Ring{pointsToRing(poly.Points)}
	}
	rings := make([]Ring, 0, n)
	for i := 0; i < n; i++ {
		start := poly.Parts[i]
		var end int32
		if i+1 < n {
			end = poly.Parts[i+1]
		} else {
			end = int32(len(poly.Points))
		}
		rings = append(rings, pointsToRing(poly.Points[start:end]))
	}
	return rings
}

func pointsToRing(pts []shp.Point) Ring {
	r := make(Ring, len(pts))
	for i, p := range pts {
		r[i] = geom.Point{E: p.X, N: p.Y}
	}
	return r
}

func toClipRing(r Ring) clip.Ring {
	out := make(clip.Ring, len(r))
	for i, p := range r {
		out[i] = p
	}
	return out
}

func fromClipRing(r clip.Ring) Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[i] = p
	}
	return out
}
