// Package wrqs retrieves water-rights records from the DNRC Water Rights
// Query System FeatureServer. Layers are queried by administrative basin
// code; large result sets are fetched in object-ID blocks because the
// service truncates unbounded feature queries.
package wrqs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mthydro/stagedata/stage"
)

// DefaultBaseURL is the public WRQS FeatureServer endpoint.
const DefaultBaseURL = "https://gis.dnrc.mt.gov/arcgis/rest/services/WRD/WRQS/FeatureServer"

// FeatureServer layer paths: points of diversion, places of use, reservoirs.
const (
	podPath   = "/1/query"
	pouPath   = "/2/query"
	resvrPath = "/3/query"
)

// defaultBlockSize caps how many object IDs one feature query covers.
const defaultBlockSize = 2000

// Feature is one water-rights record: its object ID plus the raw attribute
// map. The three layers have different schemas, so attributes stay untyped.
type Feature struct {
	ObjectID   int64          `json:"object_id"`
	Attributes map[string]any `json:"attributes"`
}

// BasinRights holds every POD, POU, and reservoir record for one basin.
type BasinRights struct {
	Basin      string    `json:"basin"`
	PODs       []Feature `json:"pods"`
	POUs       []Feature `json:"pous"`
	Reservoirs []Feature `json:"reservoirs"`
}

// Client talks to the WRQS FeatureServer.
type Client struct {
	http      *resty.Client
	logger    *zap.Logger
	blockSize int
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a different FeatureServer root.
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

// WithBlockSize overrides the object-ID block size (tests).
func WithBlockSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.blockSize = n
		}
	}
}

// NewClient builds a WRQS client with sane transport defaults.
func NewClient(opts ...ClientOption) *Client {
	httpClient := resty.New().
		SetBaseURL(DefaultBaseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Accept", "application/json")

	c := &Client{
		http:      httpClient,
		logger:    zap.NewNop(),
		blockSize: defaultBlockSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BasinRights fetches all three layers for one administrative basin code.
func (c *Client) BasinRights(ctx context.Context, basinCode string) (*BasinRights, error) {
	rights := &BasinRights{Basin: basinCode}

	layers := []struct {
		name string
		path string
		dst  *[]Feature
	}{
		{"pod", podPath, &rights.PODs},
		{"pou", pouPath, &rights.POUs},
		{"reservoir", resvrPath, &rights.Reservoirs},
	}
	for _, layer := range layers {
		features, err := c.fetchLayer(ctx, layer.name, layer.path, basinCode)
		if err != nil {
			return nil, err
		}
		*layer.dst = features
	}
	return rights, nil
}

type idEnvelope struct {
	ObjectIDs []int64 `json:"objectIds"`
}

type featureEnvelope struct {
	Features []struct {
		Attributes map[string]any `json:"attributes"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// fetchLayer discovers the matching object IDs, then pulls features in
// blocks small enough that the service will not truncate them.
func (c *Client) fetchLayer(ctx context.Context, name, path, basinCode string) ([]Feature, error) {
	operation := name + " rights"
	where := fmt.Sprintf("BOCA_CD='%s'", basinCode)

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"where":         where,
			"returnIdsOnly": "true",
			"f":             "pjson",
		}).
		Get(path)
	if err != nil {
		return nil, &stage.UpstreamError{Operation: operation, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &stage.UpstreamError{Operation: operation, StatusCode: resp.StatusCode()}
	}

	var ids idEnvelope
	if err := json.Unmarshal(resp.Body(), &ids); err != nil {
		return nil, &stage.UpstreamError{Operation: operation, Err: fmt.Errorf("decode id payload: %w", err)}
	}
	if len(ids.ObjectIDs) == 0 {
		return []Feature{}, nil
	}
	sort.Slice(ids.ObjectIDs, func(i, j int) bool { return ids.ObjectIDs[i] < ids.ObjectIDs[j] })

	features := make([]Feature, 0, len(ids.ObjectIDs))
	for start := 0; start < len(ids.ObjectIDs); start += c.blockSize {
		end := start + c.blockSize
		if end > len(ids.ObjectIDs) {
			end = len(ids.ObjectIDs)
		}
		block := ids.ObjectIDs[start:end]

		batch, err := c.fetchBlock(ctx, operation, path, where, block[0], block[len(block)-1])
		if err != nil {
			return nil, err
		}
		features = append(features, batch...)
	}

	c.logger.Debug("wrqs layer fetched",
		zap.String("layer", name),
		zap.String("basin", basinCode),
		zap.Int("features", len(features)))
	return features, nil
}

func (c *Client) fetchBlock(ctx context.Context, operation, path, where string, firstID, lastID int64) ([]Feature, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"where":     fmt.Sprintf("%s AND (OBJECTID BETWEEN %d AND %d)", where, firstID, lastID),
			"outFields": "*",
			"f":         "pjson",
		}).
		Get(path)
	if err != nil {
		return nil, &stage.UpstreamError{Operation: operation, Err: err}
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &stage.UpstreamError{Operation: operation, StatusCode: resp.StatusCode()}
	}

	var envelope featureEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, &stage.UpstreamError{Operation: operation, Err: fmt.Errorf("decode payload: %w", err)}
	}
	if envelope.Error != nil {
		return nil, &stage.UpstreamError{
			Operation:  operation,
			StatusCode: envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}

	features := make([]Feature, 0, len(envelope.Features))
	for _, f := range envelope.Features {
		feature := Feature{Attributes: f.Attributes}
		if id, ok := f.Attributes["OBJECTID"]; ok {
			if n, ok := id.(float64); ok {
				feature.ObjectID = int64(n)
			}
		}
		features = append(features, feature)
	}
	return features, nil
}
