package eowcs

// Namespace URIs, carried verbatim from ie_xml_parser.py so the parser
// stays wire-compatible with real EO-WCS servers even though the tree
// walker above matches on local element name rather than these exact
// URIs (see xmltree.go's isException/is_nc_tag-equivalent tolerance).
const (
	wcsVersion = "2.0"
	WCSNS      = "http://www.opengis.net/wcs/" + wcsVersion
	WCSEONS    = "http://www.opengis.net/wcseo/1.0"
	OWSNS      = "http://www.opengis.net/ows/2.0"
	GMLNS      = "http://www.opengis.net/gml/3.2"
	GMLCOVNS   = "http://www.opengis.net/gmlcov/1.0"
	EOPNS      = "http://www.opengis.net/eop/2.0"
	OMNS       = "http://www.opengis.net/om/2.0"
	OPTNS      = "http://www.opengis.net/opt/2.0"

	exceptionTag = "ExceptionReport"

	// DefaultServiceVersion is used when a capabilities document omits
	// ServiceTypeVersion, matching extract_ServiceTypeVersion's fallback.
	DefaultServiceVersion = "2.0.1"
)

// Path segments (local element names, namespace-agnostic) composing
// the XPath-equivalents ie_xml_parser.py builds by string
// concatenation. Kept as slices rather than flattened strings so
// xmltree.go's find/findAll can walk them directly.
var (
	eoMetadataPath = []string{"metadata", "Extension", "EOMetadata"}

	eoPhenomenonTimePath = append(append([]string{}, eoMetadataPath...), "EarthObservation", "phenomenonTime")

	eoIdentifierPath = append(append([]string{}, eoMetadataPath...),
		"EarthObservation", "metaDataProperty", "EarthObservationMetaData", "identifier")

	eoEquipmentPath = append(append([]string{}, eoMetadataPath...),
		"EarthObservation", "procedure", "EarthObservationEquipment")

	cloudCoverPath = append(append([]string{}, eoMetadataPath...),
		"EarthObservation", "result", "EarthObservationResult", "cloudCoverPercentage")

	sensorTypePath = append(append([]string{}, eoEquipmentPath...), "sensor", "Sensor", "sensorType")

	incidenceAnglePath = append(append([]string{}, eoEquipmentPath...),
		"acquisitionParameters", "Acquisition", "incidenceAngle")
)
