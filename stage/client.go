package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public StAGE MapServer endpoint.
const DefaultBaseURL = "https://gis.dnrc.mt.gov/arcgis/rest/services/WRD/WMB_StAGE/MapServer"

// MapServer layer paths. Locations and timeseries are tables; the spatial
// layer serves point geometry for every gage.
const (
	locationsPath    = "/1/query"
	timeseriesPath   = "/2/query"
	locationDataPath = "/4/query"
	spatialPath      = "/0/query"
)

// SiteStatusClasses are the StatusDesc values a site list query cycles
// through; the service has no single "all sites" filter.
var SiteStatusClasses = []string{"Real-Time", "Seasonal", "FWP", "Discontinued", "Reservoir"}

var locationFields = []string{
	"LocationCode", "LocationID", "LocationName", "LocationType",
	"Longitude", "Latitude", "Elevation", "ElevationUnits", "Description",
	"SensorCode", "SensorID", "SensorLabel", "TimeSeriesType",
	"DatasetUtcOffset", "Parameter", "ParameterLabel", "UnitOfMeasure",
	"ComputationMethod", "ComputationPeriod", "CountyName", "BasinName",
	"HUC8Code", "StatusDesc",
}

var timeseriesFields = []string{
	"Timestamp", "RecordedValue", "GradeCode", "GradeName",
	"Method", "ApprovalLevel", "ApprovalName",
}

// SiteSummary is one row of the site directory listing.
type SiteSummary struct {
	LocationCode string `json:"LocationCode"`
	LocationName string `json:"LocationName"`
	StatusDesc   string `json:"StatusDesc"`
}

// ParameterSummary describes one dataset a site advertises.
type ParameterSummary struct {
	Parameter         string `json:"Parameter"`
	ParameterLabel    string `json:"ParameterLabel"`
	ComputationPeriod string `json:"ComputationPeriod"`
	UnitOfMeasure     string `json:"UnitOfMeasure"`
	SensorCode        string `json:"SensorCode"`
}

// Client talks to the StAGE MapServer. The service is public; there is no
// authentication. Failed requests are retried with backoff before an
// UpstreamError is surfaced.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different MapServer root (tests, proxies).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.http.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithRetryCount overrides how many times a failed request is retried.
func WithRetryCount(n int) ClientOption {
	return func(c *Client) {
		c.http.SetRetryCount(n)
	}
}

// NewClient builds a StAGE client with sane transport defaults.
func NewClient(opts ...ClientOption) *Client {
	httpClient := resty.New().
		SetBaseURL(DefaultBaseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")

	c := &Client{
		http:   httpClient,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// arcgisError is the in-band error object the service returns with HTTP 200.
type arcgisError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

type featureEnvelope struct {
	Features []struct {
		Attributes json.RawMessage `json:"attributes"`
	} `json:"features"`
	Error *arcgisError `json:"error"`
}

// query performs one layer query and returns the raw attribute records.
func (c *Client) query(ctx context.Context, operation, path string, params map[string]string) ([]json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("f", "pjson").
		Get(path)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &UpstreamError{Operation: operation, StatusCode: resp.StatusCode()}
	}

	var envelope featureEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, &UpstreamError{Operation: operation, Err: fmt.Errorf("decode payload: %w", err)}
	}
	if envelope.Error != nil {
		return nil, &UpstreamError{
			Operation:  operation,
			StatusCode: envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}

	attrs := make([]json.RawMessage, 0, len(envelope.Features))
	for _, f := range envelope.Features {
		attrs = append(attrs, f.Attributes)
	}
	c.logger.Debug("stage query complete",
		zap.String("operation", operation),
		zap.Int("records", len(attrs)))
	return attrs, nil
}

func decodeRecords[T any](operation string, attrs []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(attrs))
	for _, raw := range attrs {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &UpstreamError{Operation: operation, Err: fmt.Errorf("decode record: %w", err)}
		}
		out = append(out, rec)
	}
	return out, nil
}

// SiteList returns the directory of all gage sites, one status class at a
// time, in the order of SiteStatusClasses.
func (c *Client) SiteList(ctx context.Context) ([]SiteSummary, error) {
	sites := make([]SiteSummary, 0, 256)
	for _, status := range SiteStatusClasses {
		attrs, err := c.query(ctx, "site list", locationsPath, map[string]string{
			"where":     fmt.Sprintf("StatusDesc='%s'", status),
			"outFields": "LocationCode,LocationName,StatusDesc",
		})
		if err != nil {
			return nil, err
		}
		batch, err := decodeRecords[SiteSummary]("site list", attrs)
		if err != nil {
			return nil, err
		}
		sites = append(sites, batch...)
	}
	return sites, nil
}

// LocationParameters lists the datasets a single site advertises. New sites
// may legitimately advertise none.
func (c *Client) LocationParameters(ctx context.Context, siteCode string) ([]ParameterSummary, error) {
	attrs, err := c.query(ctx, "location parameters", locationDataPath, map[string]string{
		"where":     fmt.Sprintf("LocationCode='%s'", siteCode),
		"outFields": "Parameter,ParameterLabel,ComputationPeriod,UnitOfMeasure,SensorCode",
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords[ParameterSummary]("location parameters", attrs)
}

// FetchSensorMetadata returns every sensor/parameter record for a location.
func (c *Client) FetchSensorMetadata(ctx context.Context, locationCode string) ([]SensorMetadata, error) {
	attrs, err := c.query(ctx, "sensor metadata", locationDataPath, map[string]string{
		"where":     fmt.Sprintf("LocationCode='%s'", locationCode),
		"outFields": strings.Join(locationFields, ","),
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords[SensorMetadata]("sensor metadata", attrs)
}

// FetchSamples returns the raw readings for one sensor. A nil window sends no
// time filter; the service then falls back to its own default behavior.
func (c *Client) FetchSamples(ctx context.Context, sensorID string, window *TimeWindow) ([]RawSample, error) {
	params := map[string]string{
		"where":     fmt.Sprintf("SensorID='%s'", sensorID),
		"outFields": strings.Join(timeseriesFields, ","),
	}
	if window != nil {
		params["time"] = window.QueryValue()
	}
	attrs, err := c.query(ctx, "samples", timeseriesPath, params)
	if err != nil {
		return nil, err
	}
	return decodeRecords[RawSample]("samples", attrs)
}

// SitesGeoJSON returns the point geometry of every gage inside a bounding
// box, as raw GeoJSON. The default box covers Montana.
func (c *Client) SitesGeoJSON(ctx context.Context, bbox [4]float64) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"geometry":       fmt.Sprintf("%g, %g, %g, %g", bbox[0], bbox[1], bbox[2], bbox[3]),
			"geometryType":   "esriGeometryEnvelope",
			"inSR":           "4326",
			"outSR":          "4326",
			"spatialRel":     "esriSpatialRelIntersects",
			"outFields":      "LocationCode, ObjectID",
			"returnGeometry": "true",
			"f":              "geojson",
		}).
		Get(spatialPath)
	if err != nil {
		return nil, &UpstreamError{Operation: "sites geojson", Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &UpstreamError{Operation: "sites geojson", StatusCode: resp.StatusCode()}
	}
	return resp.Body(), nil
}

// DefaultBBox is the bounding box used when none is supplied: all of Montana.
var DefaultBBox = [4]float64{-116.5, 42.5, -103, 49.5}
