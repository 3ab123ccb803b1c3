package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mthydro/stagedata/stage"
)

const upsertSiteSQL = `
    INSERT INTO stagedata.sites (
        location_code, location_name, location_type, lon, lat,
        elevation, elevation_units, description, available_datasets,
        county_name, basin_name, huc8_code, updated_at
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
    ON CONFLICT (location_code) DO UPDATE SET
        location_name = EXCLUDED.location_name,
        location_type = EXCLUDED.location_type,
        lon = EXCLUDED.lon,
        lat = EXCLUDED.lat,
        elevation = EXCLUDED.elevation,
        elevation_units = EXCLUDED.elevation_units,
        description = EXCLUDED.description,
        available_datasets = EXCLUDED.available_datasets,
        county_name = EXCLUDED.county_name,
        basin_name = EXCLUDED.basin_name,
        huc8_code = EXCLUDED.huc8_code,
        updated_at = now()
`

// UpsertSite stores or refreshes one site metadata row.
func UpsertSite(ctx context.Context, pool *pgxpool.Pool, site stage.SiteInfo) error {
	_, err := pool.Exec(ctx, upsertSiteSQL,
		site.LocationCode,
		site.LocationName,
		site.LocationType,
		site.Longitude,
		site.Latitude,
		site.Elevation,
		site.ElevationUnits,
		site.Description,
		site.AvailableDatasets,
		site.CountyName,
		site.BasinName,
		site.HUC8Code,
	)
	if err != nil {
		return fmt.Errorf("upsert site %s: %w", site.LocationCode, err)
	}
	return nil
}

const insertDailyValueSQL = `
    INSERT INTO stagedata.daily_values (
        location_code, parameter, dataset_label, day, value,
        grade_name, approval_name
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    ON CONFLICT (location_code, parameter, day) DO NOTHING
`

// InsertDailyValues bulk-inserts normalized daily samples, skipping days
// already archived. Samples without a date or value are dropped. Returns how
// many rows were sent.
func InsertDailyValues(ctx context.Context, pool *pgxpool.Pool, samples []stage.NormalizedSample) (int, error) {
	batch := &pgx.Batch{}
	for _, s := range samples {
		if s.Date == "" || s.Value == nil {
			continue
		}
		batch.Queue(insertDailyValueSQL,
			s.SiteCode, s.ParameterCode, s.DatasetLabel, s.Date, *s.Value,
			s.GradeName, s.ApprovalName,
		)
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("insert daily value: %w", err)
		}
	}
	return batch.Len(), nil
}
