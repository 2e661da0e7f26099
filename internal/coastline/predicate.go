package coastline

// Check implements the coastline inclusion predicate (§4.D), ported
// from coastline_ck.py's coastline_ck function. A coverage footprint
// is accepted iff the cache has no land data for the AOI at all, or
// at least one cached land ring contains the footprint, is contained
// by it, or intersects it. Extraction/index failures fail open rather
// than blocking ingestion, matching the original's "never lose data
// because the coastline check choked" posture.
func Check(cache *Cache, footprint Ring) bool {
	if cache.Empty() {
		return true
	}
	if len(footprint) < 3 {
		return true
	}

	fCells, err := cellsForRing(footprint)
	broadPhase := err == nil && len(cache.cells) > 0 && len(fCells) > 0
	if broadPhase && !cellSetsOverlap(fCells, cache.cells) {
		return false
	}

	for _, land := range cache.Rings {
		if containsRing(land, footprint) {
			return true
		}
		if containsRing(footprint, land) {
			return true
		}
		if intersectsRing(land, footprint) {
			return true
		}
	}
	return false
}
