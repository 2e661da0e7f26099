package eowcs

import (
	"strconv"
	"strings"

	"github.com/pacesm/ingestion-engine/internal/geom"
	"github.com/pacesm/ingestion-engine/internal/ingesterr"
)

// CoverageDescription wraps one <wcs:CoverageDescription> element with
// the extraction helpers the predicate chain needs, grounded on
// ie_xml_parser.py's extract_* function family.
type CoverageDescription struct {
	n *node
}

// CoverageDescriptions parses a DescribeEOCoverageSet response body
// and returns its CoverageDescription elements, ported from
// get_coverageDescriptions. The CoverageDescriptions element may be the
// document root or a direct child of it.
func CoverageDescriptions(body []byte) ([]CoverageDescription, error) {
	root, err := parseTree(strings.NewReader(string(body)))
	if err != nil {
		return nil, ingesterr.NewIngestionError("parse DescribeEOCoverageSet response: %v", err)
	}
	if root.isException() {
		return nil, ingesterr.NewIngestionError("server returned an exception report")
	}
	cds := root
	if root.Local != "CoverageDescriptions" {
		cds = root.find("CoverageDescriptions")
	}
	if cds == nil {
		return nil, nil
	}
	var out []CoverageDescription
	for _, n := range cds.findAll("CoverageDescription") {
		out = append(out, CoverageDescription{n: n})
	}
	return out, nil
}

// CoverageID returns the coverage's identifier, falling back to the
// element's gml:id attribute when no explicit CoverageId child is
// present. Ported from extract_CoverageId.
func (c CoverageDescription) CoverageID() string {
	if id := c.n.find("CoverageId"); id != nil {
		return id.text()
	}
	if v, ok := c.n.Attrs["id"]; ok {
		return v
	}
	return ""
}

// FindAllByPath resolves a custom-condition xpath of the form
// "tag/child/grandchild" against this coverage description, returning
// the trimmed text of every matching node. Ported from
// check_custom_conditions' `cd.findall(".//"+xpath)` call: the first
// segment matches any descendant, subsequent segments match direct
// children of each prior match.
func (c CoverageDescription) FindAllByPath(xpath string) []string {
	segs := strings.Split(strings.Trim(xpath, "/"), "/")
	nodes := c.n.findAllPath(segs)
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.text()
	}
	return out
}

// EOID returns the EarthObservation identifier, ported from
// extract_eoid.
func (c CoverageDescription) EOID() string {
	n := c.n.find(eoIdentifierPath...)
	if n == nil {
		return ""
	}
	return n.text()
}

// CloudCoverPercentage returns the parsed cloud cover percentage and
// whether it was present at all (fail-open: absence is not an error).
func (c CoverageDescription) CloudCoverPercentage() (float64, bool) {
	n := c.n.find(cloudCoverPath...)
	if n == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.text(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SensorType returns the sensor type string, if present.
func (c CoverageDescription) SensorType() (string, bool) {
	n := c.n.find(sensorTypePath...)
	if n == nil {
		return "", false
	}
	return n.text(), true
}

// IncidenceAngle returns the parsed acquisition incidence angle in
// degrees, if present.
func (c CoverageDescription) IncidenceAngle() (float64, bool) {
	n := c.n.find(incidenceAnglePath...)
	if n == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.text(), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PhenomenonTime returns the coverage's acquisition time period,
// ported from extract_om_time/extract_TimePeriod.
func (c CoverageDescription) PhenomenonTime() (geom.TimePeriod, bool) {
	pt := c.n.find(eoPhenomenonTimePath...)
	if pt == nil {
		return geom.TimePeriod{}, false
	}
	tp := pt.find("TimePeriod")
	if tp == nil {
		return geom.TimePeriod{}, false
	}
	begin := tp.find("beginPosition")
	end := tp.find("endPosition")
	if begin == nil || end == nil {
		return geom.TimePeriod{}, false
	}
	t, err := geom.NewTimePeriod(begin.text(), end.text())
	if err != nil {
		return geom.TimePeriod{}, false
	}
	return t, true
}

// Bbox returns the coverage's bounding box converted to WGS84, ported
// from extract_gml_bbox. Returns ok=false (not an error) when the
// envelope is missing, matching the original's fail-open logging.
func (c CoverageDescription) Bbox() (bb geom.Bbox, ok bool, err error) {
	envelope := c.n.find("boundedBy", "Envelope")
	if envelope == nil {
		return geom.Bbox{}, false, nil
	}
	axisLabels, hasAxis := envelope.Attrs["axisLabels"]
	srsName, hasSRS := envelope.Attrs["srsName"]
	if !hasAxis || !hasSRS {
		return geom.Bbox{}, false, nil
	}
	epsg, err := SRSNameToNumber(srsName)
	if err != nil {
		return geom.Bbox{}, false, err
	}
	lc := envelope.find("lowerCorner")
	uc := envelope.find("upperCorner")
	if lc == nil || uc == nil {
		return geom.Bbox{}, false, nil
	}
	raw, err := geom.NewBboxFromStrings(lc.text(), uc.text(), IsXAxisFirst(axisLabels))
	if err != nil {
		return geom.Bbox{}, false, err
	}
	wgs84, err := geom.EPSG4326ToWGS84(epsg, raw)
	if err != nil {
		return geom.Bbox{}, false, err
	}
	return wgs84, true, nil
}

// SRSNameToNumber extracts the trailing EPSG integer from an OGC
// "http://www.opengis.net/def/crs/EPSG/0/<code>" srsName, returning a
// typed NoEPSGCode error (never panicking) when the form doesn't
// match. Ported from srsName_to_Number.
func SRSNameToNumber(srsName string) (int, error) {
	const prefix = "http://www.opengis.net/def/crs/EPSG"
	if !strings.HasPrefix(srsName, prefix) {
		return 0, &ingesterr.NoEPSGCode{SRSName: srsName}
	}
	parts := strings.Split(srsName, "/")
	code, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, &ingesterr.NoEPSGCode{SRSName: srsName}
	}
	return code, nil
}

// IsXAxisFirst resolves axis order from a GML axisLabels attribute
// ("lat long" vs "long lat", or "y x"/"x y"), ported from
// is_x_axis_first. Unparseable labels fail toward false (northing
// first), matching the original's conservative default.
func IsXAxisFirst(axisLabels string) bool {
	labels := strings.Fields(strings.ToLower(strings.TrimSpace(axisLabels)))
	if len(labels) != 2 {
		return false
	}
	switch labels[0] {
	case "lat", "y":
		return false
	case "long", "x":
		return true
	default:
		return false
	}
}

// ServiceTypeVersion returns the server's declared WCS version, or
// DefaultServiceVersion when omitted. Ported from
// extract_ServiceTypeVersion.
func ServiceTypeVersion(capabilitiesBody []byte) (string, error) {
	root, err := parseTree(strings.NewReader(string(capabilitiesBody)))
	if err != nil {
		return "", ingesterr.NewIngestionError("parse GetCapabilities response: %v", err)
	}
	si := root.find("ServiceIdentification")
	if si == nil {
		return DefaultServiceVersion, nil
	}
	stv := si.findAll("ServiceTypeVersion")
	if len(stv) < 1 {
		return DefaultServiceVersion, nil
	}
	return stv[0].text(), nil
}

// DatasetSeriesSummary wraps a <wcseo:DatasetSeriesSummary> element.
type DatasetSeriesSummary struct {
	n *node
}

// DatasetSeriesSummaries parses a GetCapabilities response and
// returns its dataset series summaries, ported from
// extract_DatasetSeriesSummaries.
func DatasetSeriesSummaries(capabilitiesBody []byte) ([]DatasetSeriesSummary, error) {
	root, err := parseTree(strings.NewReader(string(capabilitiesBody)))
	if err != nil {
		return nil, ingesterr.NewIngestionError("parse GetCapabilities response: %v", err)
	}
	contents := root.find("Contents")
	if contents == nil {
		return nil, nil
	}
	ext := contents.find("Extension")
	if ext == nil {
		return nil, nil
	}
	var out []DatasetSeriesSummary
	for _, n := range ext.findAll("DatasetSeriesSummary") {
		out = append(out, DatasetSeriesSummary{n: n})
	}
	return out, nil
}

// ID returns the dataset series identifier, ported from extract_Id.
func (d DatasetSeriesSummary) ID() (string, bool) {
	n := d.n.find("DatasetSeriesId")
	if n == nil {
		return "", false
	}
	return n.text(), true
}

// WGS84Bbox returns the dataset series' WGS84 bounding box, ported
// from extract_WGS84bbox. Already WGS84 so no CRS conversion applies.
func (d DatasetSeriesSummary) WGS84Bbox() (geom.Bbox, bool) {
	bb := d.n.find("WGS84BoundingBox")
	if bb == nil {
		return geom.Bbox{}, false
	}
	lc := bb.find("LowerCorner")
	uc := bb.find("UpperCorner")
	if lc == nil || uc == nil {
		return geom.Bbox{}, false
	}
	out, err := geom.NewBboxFromStrings(lc.text(), uc.text(), true)
	if err != nil {
		return geom.Bbox{}, false
	}
	return out, true
}
