package stage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Fetcher is the remote-service boundary the dataset builder depends on.
// *Client implements it; tests substitute fakes.
type Fetcher interface {
	FetchSensorMetadata(ctx context.Context, locationCode string) ([]SensorMetadata, error)
	FetchSamples(ctx context.Context, sensorID string, window *TimeWindow) ([]RawSample, error)
}

// BuildRequest describes one site dataset to assemble.
type BuildRequest struct {
	SiteCode string
	Timestep Timestep
	// Dataset narrows the parameter codes; the zero value takes everything.
	Dataset DatasetFilter
	// Start and End are optional YYYY-MM-DD bounds. When both are empty,
	// Policy decides the window.
	Start string
	End   string
	// Policy defaults to PolicyMostRecent when empty.
	Policy DefaultPolicy
}

// Builder assembles SiteDatasets: select sensors, resolve a query window per
// sensor, fetch, normalize, merge. Construction happens only through explicit
// Build calls; a Builder holds no state between them.
type Builder struct {
	Fetcher Fetcher
	// Logger defaults to a nop logger.
	Logger *zap.Logger
	// Location is the display timezone for instant samples; nil means
	// time.Local.
	Location *time.Location
	// Now overrides the clock used for default-policy windows (tests).
	Now func() time.Time
}

// NewBuilder returns a Builder over the given fetch boundary.
func NewBuilder(fetcher Fetcher, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{Fetcher: fetcher, Logger: logger}
}

// Build assembles the dataset for one site. It fails with ErrSiteNotFound
// when the location code matches no metadata records, and with an empty
// sample sequence (not an error) when the site has no sensors matching the
// request. A failure fetching any selected sensor aborts the whole build.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*SiteDataset, error) {
	if b.Fetcher == nil {
		return nil, invalidArgf("builder has no fetcher")
	}
	if !req.Timestep.Valid() {
		return nil, invalidArgf("timestep must be %q or %q, got %q", TimestepInstant, TimestepDaily, req.Timestep)
	}
	policy := req.Policy
	if policy == "" {
		policy = PolicyMostRecent
	}
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sensors, err := b.Fetcher.FetchSensorMetadata(ctx, req.SiteCode)
	if err != nil {
		return nil, err
	}
	if len(sensors) == 0 {
		return nil, fmt.Errorf("location %q: %w", req.SiteCode, ErrSiteNotFound)
	}

	selected, err := SelectSensors(sensors, req.Timestep, req.Dataset)
	if err != nil {
		return nil, err
	}

	dataset := &SiteDataset{
		Site:     siteInfo(sensors),
		Timestep: req.Timestep,
		Samples:  make([]NormalizedSample, 0),
	}
	if len(selected) == 0 {
		logger.Info("no sensors match request",
			zap.String("site", req.SiteCode),
			zap.String("timestep", string(req.Timestep)))
		return dataset, nil
	}

	resolver := &Resolver{Logger: logger, Now: b.Now}
	for _, sensor := range selected {
		offset := ParseUTCOffset(sensor.DatasetUtcOffset)
		window, err := resolver.Resolve(req.Timestep, req.Start, req.End, policy, offset)
		if err != nil {
			return nil, err
		}

		samples, err := b.Fetcher.FetchSamples(ctx, sensor.SensorID, window)
		if err != nil {
			return nil, err
		}

		normalized := Normalize(samples, req.Timestep, sensor.Parameter,
			sensor.LocationCode, sensor.Label, offset, b.Location)
		dataset.Samples = append(dataset.Samples, normalized...)

		logger.Debug("sensor series merged",
			zap.String("sensor", sensor.SensorID),
			zap.String("label", sensor.Label),
			zap.Int("samples", len(normalized)))
	}
	return dataset, nil
}

// siteInfo flattens the metadata records into one site row. Available
// datasets are the distinct parameter codes across all sensor records, in
// first-seen order.
func siteInfo(sensors []SensorMetadata) SiteInfo {
	first := sensors[0]
	seen := make(map[string]struct{}, len(sensors))
	datasets := ""
	for _, s := range sensors {
		if s.Parameter == "" {
			continue
		}
		if _, ok := seen[s.Parameter]; ok {
			continue
		}
		seen[s.Parameter] = struct{}{}
		if datasets != "" {
			datasets += ","
		}
		datasets += s.Parameter
	}
	return SiteInfo{
		LocationCode:      first.LocationCode,
		LocationName:      first.LocationName,
		LocationType:      first.LocationType,
		Longitude:         first.Longitude,
		Latitude:          first.Latitude,
		Elevation:         first.Elevation,
		ElevationUnits:    first.ElevationUnits,
		Description:       first.Description,
		AvailableDatasets: datasets,
		CountyName:        first.CountyName,
		BasinName:         first.BasinName,
		HUC8Code:          first.HUC8Code,
	}
}
