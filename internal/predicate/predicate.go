// Package predicate implements the filter chain that decides which
// coverage descriptions from an EO-WCS DescribeEOCoverageSet response
// become GetCoverage requests: archive dedup, bbox overlap, time
// overlap, sensor/angle/cloud-cover limits, coastline containment and
// user-defined custom conditions. Ported from ingestion_logic.py's
// gen_getCov_params and its check_* helper family, preserving order
// and fail-open semantics exactly.
package predicate

import (
	"strings"

	"github.com/pacesm/ingestion-engine/internal/coastline"
	"github.com/pacesm/ingestion-engine/internal/eowcs"
	"github.com/pacesm/ingestion-engine/internal/geom"
	"github.com/pacesm/ingestion-engine/internal/ingesterr"
)

// CustomCondition is one user-supplied (xpath, expectedText) pair from
// a Scenario's extraconditions. An empty ExpectedText means "accept
// any node found at xpath", matching check_custom_conditions' "found
// but no text to match" branch.
type CustomCondition struct {
	XPath        string
	ExpectedText string
}

// Params bundles the scenario-derived filter inputs threaded through
// the chain, mirroring the Python `params` dict passed to every
// check_* function.
type Params struct {
	AOIBbox geom.Bbox
	TOI     *geom.TimePeriod

	SensorType string
	ViewAngle  *float64
	CloudCover *float64

	// CoastlineCheck mirrors 'coastline_check' in params: absent or
	// false both mean "skip the check" (accept); only true runs the
	// actual predicate.
	CoastlineCheck bool
	CoastlineCache *coastline.Cache

	CustomConditions []CustomCondition
}

// ArchiveChecker reports whether coverageID has already been ingested
// for scenarioID, ported from check_archived's role (delegated to the
// store facade, not reimplemented here to avoid an import cycle).
type ArchiveChecker interface {
	IsArchived(scenarioID, coverageID string) bool
}

// StopChecker reports whether a stop has been cooperatively requested
// for scenarioID, ported from check_status_stopping.
type StopChecker interface {
	IsStopRequested(scenarioID string) bool
}

// Evaluate runs the full chain against one coverage description and
// reports whether it should produce a GetCoverage request, along with
// the coverage id to use when it does. It returns a StopRequest error
// when a cooperative stop is observed, matching gen_getCov_params'
// checkpoint before processing each coverage description.
func Evaluate(scenarioID string, cd eowcs.CoverageDescription, p Params, archive ArchiveChecker, stop StopChecker) (coverageID string, accept bool, err error) {
	if stop.IsStopRequested(scenarioID) {
		return "", false, &ingesterr.StopRequest{ScenarioID: scenarioID}
	}

	coverageID = cd.CoverageID()
	if coverageID == "" {
		return "", false, nil
	}
	if archive.IsArchived(scenarioID, coverageID) {
		return coverageID, false, nil
	}
	if !checkBbox(cd, p.AOIBbox) {
		return coverageID, false, nil
	}
	if !checkTimePeriod(cd, p.TOI) {
		return coverageID, false, nil
	}
	if !checkSensorType(cd, p.SensorType) {
		return coverageID, false, nil
	}
	ia, iaOK := cd.IncidenceAngle()
	if !checkFloatMax(ia, iaOK, p.ViewAngle) {
		return coverageID, false, nil
	}
	cc, ccOK := cd.CloudCoverPercentage()
	if !checkFloatMax(cc, ccOK, p.CloudCover) {
		return coverageID, false, nil
	}
	if !checkCoastline(cd, p) {
		return coverageID, false, nil
	}
	if !checkCustomConditions(cd, p.CustomConditions) {
		return coverageID, false, nil
	}
	return coverageID, true, nil
}

// checkBbox ported from check_bbox: absence of a bbox fails closed
// (the coverage is dropped), unlike most other checks in this chain.
func checkBbox(cd eowcs.CoverageDescription, reqBbox geom.Bbox) bool {
	bb, ok, err := cd.Bbox()
	if err != nil || !ok {
		return false
	}
	return bb.Overlaps(reqBbox)
}

// checkTimePeriod ported from check_timePeriod: a nil TOI always
// passes; otherwise a missing metadata time period fails closed.
func checkTimePeriod(cd eowcs.CoverageDescription, reqTOI *geom.TimePeriod) bool {
	if reqTOI == nil {
		return true
	}
	tp, ok := cd.PhenomenonTime()
	if !ok {
		return false
	}
	return tp.Overlaps(*reqTOI)
}

// checkSensorType ported from check_text_condition: an unset request
// value, or metadata missing the field entirely, both pass (fail
// open); only a present mismatch fails.
func checkSensorType(cd eowcs.CoverageDescription, want string) bool {
	if want == "" {
		return true
	}
	got, ok := cd.SensorType()
	if !ok {
		return true
	}
	return got == want
}

// checkFloatMax ported from check_float_max: a nil limit always
// passes; metadata missing the field passes (fail open); otherwise
// the metadata value must not exceed the limit.
func checkFloatMax(mdValue float64, mdOK bool, limit *float64) bool {
	if limit == nil || !mdOK {
		return true
	}
	return mdValue <= *limit
}

func checkCoastline(cd eowcs.CoverageDescription, p Params) bool {
	if !p.CoastlineCheck {
		return true
	}
	footprint, ok := cd.Footprint()
	if !ok {
		return true
	}
	return coastline.Check(p.CoastlineCache, coastline.Ring(footprint))
}

// checkCustomConditions implements AND across every extraconditions
// entry, ported from check_custom_conditions. A condition with no
// ExpectedText is satisfied by the mere presence of a matching node.
func checkCustomConditions(cd eowcs.CoverageDescription, conds []CustomCondition) bool {
	for _, c := range conds {
		if strings.TrimSpace(c.XPath) == "" {
			continue
		}
		nodes := cd.FindAllByPath(c.XPath)
		if len(nodes) == 0 {
			return false
		}
		if c.ExpectedText == "" {
			continue
		}
		found := false
		for _, text := range nodes {
			if text == c.ExpectedText {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
