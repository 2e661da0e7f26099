package eowcs

import "testing"

const sampleDescribeEOCoverageSet = `<wcs:CoverageDescriptions xmlns:wcs="http://www.opengis.net/wcs/2.0"
    xmlns:gml="http://www.opengis.net/gml/3.2"
    xmlns:wcseo="http://www.opengis.net/wcseo/1.0"
    xmlns:gmlcov="http://www.opengis.net/gmlcov/1.0"
    xmlns:eop="http://www.opengis.net/eop/2.0"
    xmlns:om="http://www.opengis.net/om/2.0"
    xmlns:opt="http://www.opengis.net/opt/2.0">
  <wcs:CoverageDescription gml:id="cov_fallback_id">
    <wcs:CoverageId>cov_1</wcs:CoverageId>
    <gml:boundedBy>
      <gml:Envelope axisLabels="lat long" srsName="http://www.opengis.net/def/crs/EPSG/0/4326">
        <gml:lowerCorner>44.14 0.8</gml:lowerCorner>
        <gml:upperCorner>44.15 0.9</gml:upperCorner>
      </gml:Envelope>
    </gml:boundedBy>
    <gmlcov:metadata>
      <gmlcov:Extension>
        <wcseo:EOMetadata>
          <eop:EarthObservation gml:id="eop_1">
            <om:phenomenonTime>
              <gml:TimePeriod gml:id="tp_1">
                <gml:beginPosition>2011-01-19T00:00:00</gml:beginPosition>
                <gml:endPosition>2011-01-19T01:00:00</gml:endPosition>
              </gml:TimePeriod>
            </om:phenomenonTime>
            <eop:metaDataProperty>
              <eop:EarthObservationMetaData>
                <eop:identifier>L930564_example</eop:identifier>
              </eop:EarthObservationMetaData>
            </eop:metaDataProperty>
            <om:result>
              <opt:EarthObservationResult gml:id="uuid_1">
                <opt:cloudCoverPercentage uom="%">13.25</opt:cloudCoverPercentage>
              </opt:EarthObservationResult>
            </om:result>
            <om:procedure>
              <eop:EarthObservationEquipment gml:id="eq_1">
                <eop:sensor>
                  <eop:Sensor>
                    <eop:sensorType>OPTICAL</eop:sensorType>
                  </eop:Sensor>
                </eop:sensor>
                <eop:acquisitionParameters>
                  <eop:Acquisition>
                    <eop:incidenceAngle uom="deg">+7.23391641</eop:incidenceAngle>
                  </eop:Acquisition>
                </eop:acquisitionParameters>
              </eop:EarthObservationEquipment>
            </om:procedure>
          </eop:EarthObservation>
        </wcseo:EOMetadata>
      </gmlcov:Extension>
    </gmlcov:metadata>
  </wcs:CoverageDescription>
</wcs:CoverageDescriptions>`

func TestCoverageDescriptionsExtraction(t *testing.T) {
	cds, err := CoverageDescriptions([]byte(sampleDescribeEOCoverageSet))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cds) != 1 {
		t.Fatalf("expected 1 coverage description, got %d", len(cds))
	}
	cd := cds[0]

	if got := cd.CoverageID(); got != "cov_1" {
		t.Fatalf("expected coverage id cov_1, got %q", got)
	}
	if got := cd.EOID(); got != "L930564_example" {
		t.Fatalf("expected eoid L930564_example, got %q", got)
	}
	if cc, ok := cd.CloudCoverPercentage(); !ok || cc != 13.25 {
		t.Fatalf("expected cloud cover 13.25, got %v ok=%v", cc, ok)
	}
	if st, ok := cd.SensorType(); !ok || st != "OPTICAL" {
		t.Fatalf("expected sensor type OPTICAL, got %q ok=%v", st, ok)
	}
	if ia, ok := cd.IncidenceAngle(); !ok || ia != 7.23391641 {
		t.Fatalf("expected incidence angle 7.23391641, got %v ok=%v", ia, ok)
	}
	tp, ok := cd.PhenomenonTime()
	if !ok {
		t.Fatalf("expected a phenomenon time")
	}
	if tp.Begin.After(tp.End) {
		t.Fatalf("begin should precede end: %v > %v", tp.Begin, tp.End)
	}

	bb, ok, err := cd.Bbox()
	if err != nil {
		t.Fatalf("unexpected bbox error: %v", err)
	}
	if !ok {
		t.Fatalf("expected a bbox")
	}
	// axisLabels="lat long" => northing first, so lowerCorner "44.14 0.8"
	// maps to N=44.14, E=0.8.
	if bb.LL.N != 44.14 || bb.LL.E != 0.8 {
		t.Fatalf("unexpected bbox lower corner: %+v", bb.LL)
	}
}

func TestCoverageDescriptionFallsBackToGmlID(t *testing.T) {
	const xml = `<wcs:CoverageDescriptions xmlns:wcs="http://www.opengis.net/wcs/2.0" xmlns:gml="http://www.opengis.net/gml/3.2">
  <wcs:CoverageDescription gml:id="fallback_id"></wcs:CoverageDescription>
</wcs:CoverageDescriptions>`
	cds, err := CoverageDescriptions([]byte(xml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cds) != 1 {
		t.Fatalf("expected 1 coverage description, got %d", len(cds))
	}
	if got := cds[0].CoverageID(); got != "fallback_id" {
		t.Fatalf("expected fallback to gml:id, got %q", got)
	}
}

func TestSRSNameToNumberRejectsNonEPSG(t *testing.T) {
	if _, err := SRSNameToNumber("urn:ogc:def:crs:EPSG::4326"); err == nil {
		t.Fatalf("expected NoEPSGCode for a non-matching srsName form")
	}
	n, err := SRSNameToNumber("http://www.opengis.net/def/crs/EPSG/0/4326")
	if err != nil || n != 4326 {
		t.Fatalf("expected 4326, got %d err=%v", n, err)
	}
}

func TestIsXAxisFirst(t *testing.T) {
	cases := map[string]bool{
		"lat long": false,
		"long lat": true,
		"y x":      false,
		"x y":      true,
		"garbage":  false,
	}
	for in, want := range cases {
		if got := IsXAxisFirst(in); got != want {
			t.Fatalf("IsXAxisFirst(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestServiceTypeVersionFallsBackToDefault(t *testing.T) {
	const caps = `<wcs:Capabilities xmlns:wcs="http://www.opengis.net/wcs/2.0"></wcs:Capabilities>`
	v, err := ServiceTypeVersion([]byte(caps))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != DefaultServiceVersion {
		t.Fatalf("expected default service version, got %q", v)
	}
}
