package eowcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pacesm/ingestion-engine/internal/geom"
	"github.com/pacesm/ingestion-engine/internal/httpclient"
	"github.com/pacesm/ingestion-engine/internal/ingesterr"
)

// capabilitiesCacheSize bounds each Client's GetCapabilities cache,
// which is keyed by endpoint; a Client talks to a single endpoint, so
// the cache holds at most one entry.
const capabilitiesCacheSize = 32

// Client talks to an EO-WCS 2.0 endpoint over HTTP. Grounded on
// internal/core/ogc/wfs.go's query-param-builder pattern, adapted from
// WFS GetFeature to WCS GetCapabilities/DescribeEOCoverageSet/
// GetCoverage.
type Client struct {
	endpoint string
	http     *http.Client
	capCache *lru.Cache[string, []byte]
}

// New builds a Client against endpoint, the scenario's `dsrc` field.
func New(endpoint string) *Client {
	cache, _ := lru.New[string, []byte](capabilitiesCacheSize)
	return &Client{endpoint: strings.TrimRight(endpoint, "/"), http: httpclient.NewOutbound(), capCache: cache}
}

// BuildGetCapabilitiesParams builds the query parameters for a
// GetCapabilities request.
func BuildGetCapabilitiesParams() url.Values {
	p := url.Values{}
	p.Set("service", "WCS")
	p.Set("version", WCSVersionParam)
	p.Set("request", "GetCapabilities")
	return p
}

// BuildDescribeEOCoverageSetParams builds the query parameters for a
// DescribeEOCoverageSet request scoped to eoid, narrowed by the AOI's
// Lat/Long subsets and (when toi is non-nil) a phenomenonTime subset,
// per spec §4.E: "subset=Lat(...)", "subset=Long(...)",
// "subset=phenomenonTime(...)" with "containment=overlaps". subset is
// repeated, so these are added rather than set.
func BuildDescribeEOCoverageSetParams(eoid string, aoi geom.Bbox, toi *geom.TimePeriod) url.Values {
	p := url.Values{}
	p.Set("service", "WCS")
	p.Set("version", WCSVersionParam)
	p.Set("request", "DescribeEOCoverageSet")
	p.Set("eoId", eoid)
	p.Set("containment", "overlaps")
	p.Add("subset", fmt.Sprintf("Lat(%g,%g)", aoi.LL.N, aoi.UR.N))
	p.Add("subset", fmt.Sprintf("Long(%g,%g)", aoi.LL.E, aoi.UR.E))
	if toi != nil {
		p.Add("subset", fmt.Sprintf("phenomenonTime(%s,%s)",
			toi.Begin.Format(time.RFC3339), toi.End.Format(time.RFC3339)))
	}
	return p
}

// BuildGetCoverageParams builds the query parameters for a GetCoverage
// request against a single coverage id, per spec §4.E's
// buildGetCoverageURL: subset=Lat,EPSG4326(...)/subset=Long,EPSG4326(...),
// format=image/tiff, mediatype=multipart/mixed.
func BuildGetCoverageParams(coverageID string, aoi geom.Bbox) url.Values {
	p := url.Values{}
	p.Set("service", "WCS")
	p.Set("version", WCSVersionParam)
	p.Set("request", "GetCoverage")
	p.Set("coverageId", coverageID)
	p.Add("subset", fmt.Sprintf("Lat,EPSG4326(%g,%g)", aoi.LL.N, aoi.UR.N))
	p.Add("subset", fmt.Sprintf("Long,EPSG4326(%g,%g)", aoi.LL.E, aoi.UR.E))
	p.Set("format", "image/tiff")
	p.Set("mediatype", "multipart/mixed")
	return p
}

// WCSVersionParam is the protocol version value sent on every request;
// distinct from DefaultServiceVersion, which is what a server reports
// back when it omits ServiceTypeVersion.
const WCSVersionParam = "2.0.1"

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	u := c.endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, ingesterr.NewIngestionError("build request to %s: %v", u, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ingesterr.NewIngestionError("request to %s: %v", u, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ingesterr.NewIngestionError("read response from %s: %v", u, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ingesterr.NewIngestionError("%s returned status %d", u, resp.StatusCode)
	}
	return body, nil
}

// GetCapabilities fetches and returns the raw capabilities document,
// serving the copy this Client already fetched on later calls. The
// cache belongs to the Client: a newly built Client starts empty.
func (c *Client) GetCapabilities(ctx context.Context) ([]byte, error) {
	if c.capCache != nil {
		if body, ok := c.capCache.Get(c.endpoint); ok {
			return body, nil
		}
	}
	body, err := c.get(ctx, BuildGetCapabilitiesParams())
	if err != nil {
		return nil, err
	}
	if c.capCache != nil {
		c.capCache.Add(c.endpoint, body)
	}
	return body, nil
}

// DescribeEOCoverageSet fetches coverage descriptions for eoid scoped
// to aoi and (optionally) toi, parsing the response into
// CoverageDescription values.
func (c *Client) DescribeEOCoverageSet(ctx context.Context, eoid string, aoi geom.Bbox, toi *geom.TimePeriod) ([]CoverageDescription, error) {
	body, err := c.get(ctx, BuildDescribeEOCoverageSetParams(eoid, aoi, toi))
	if err != nil {
		return nil, err
	}
	return CoverageDescriptions(body)
}

// GetCoverageURL returns the absolute GetCoverage URL for coverageID
// scoped to aoi, the value ultimately submitted to the Download
// Manager as part of a DAR.
func (c *Client) GetCoverageURL(coverageID string, aoi geom.Bbox) string {
	return fmt.Sprintf("%s?%s", c.endpoint, BuildGetCoverageParams(coverageID, aoi).Encode())
}
