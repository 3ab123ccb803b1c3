package db

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps database access helpers for the archive schema.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Site represents an archived site metadata record.
type Site struct {
	LocationCode      string    `json:"location_code"`
	LocationName      *string   `json:"location_name,omitempty"`
	LocationType      *string   `json:"location_type,omitempty"`
	Lon               float64   `json:"lon"`
	Lat               float64   `json:"lat"`
	Elevation         *float64  `json:"elevation,omitempty"`
	ElevationUnits    *string   `json:"elevation_units,omitempty"`
	Description       *string   `json:"description,omitempty"`
	AvailableDatasets *string   `json:"available_datasets,omitempty"`
	CountyName        *string   `json:"county_name,omitempty"`
	BasinName         *string   `json:"basin_name,omitempty"`
	HUC8Code          *string   `json:"huc8_code,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const listSitesSQL = `
    SELECT location_code, location_name, location_type, lon, lat,
           elevation, elevation_units, description, available_datasets,
           county_name, basin_name, huc8_code, updated_at
    FROM stagedata.sites
    ORDER BY location_code
`

// ListSites returns all archived site metadata.
func (s *Store) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := s.pool.Query(ctx, listSitesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := make([]Site, 0)
	for rows.Next() {
		var site Site
		if err := rows.Scan(
			&site.LocationCode,
			&site.LocationName,
			&site.LocationType,
			&site.Lon,
			&site.Lat,
			&site.Elevation,
			&site.ElevationUnits,
			&site.Description,
			&site.AvailableDatasets,
			&site.CountyName,
			&site.BasinName,
			&site.HUC8Code,
			&site.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

const getSiteSQL = `
    SELECT location_code, location_name, location_type, lon, lat,
           elevation, elevation_units, description, available_datasets,
           county_name, basin_name, huc8_code, updated_at
    FROM stagedata.sites
    WHERE location_code = $1
`

// GetSite returns one archived site, or pgx.ErrNoRows.
func (s *Store) GetSite(ctx context.Context, locationCode string) (Site, error) {
	var site Site
	err := s.pool.QueryRow(ctx, getSiteSQL, locationCode).Scan(
		&site.LocationCode,
		&site.LocationName,
		&site.LocationType,
		&site.Lon,
		&site.Lat,
		&site.Elevation,
		&site.ElevationUnits,
		&site.Description,
		&site.AvailableDatasets,
		&site.CountyName,
		&site.BasinName,
		&site.HUC8Code,
		&site.UpdatedAt,
	)
	return site, err
}

// DailyValue represents one archived daily reading.
type DailyValue struct {
	LocationCode string  `json:"location_code"`
	Parameter    string  `json:"parameter"`
	DatasetLabel string  `json:"dataset_label"`
	Day          string  `json:"day"`
	Value        float64 `json:"value"`
	GradeName    *string `json:"grade_name,omitempty"`
	ApprovalName *string `json:"approval_name,omitempty"`
}

// ValueQuery holds filters for retrieving daily values.
type ValueQuery struct {
	LocationCode string
	Parameter    string
	Since        string
	Until        string
	Limit        int
}

const dailyValuesBase = `
    SELECT location_code, parameter, dataset_label, to_char(day, 'YYYY-MM-DD'), value,
           grade_name, approval_name
    FROM stagedata.daily_values
    WHERE location_code = $1
`

// FetchDailyValues returns archived daily readings for a site.
func (s *Store) FetchDailyValues(ctx context.Context, q ValueQuery) ([]DailyValue, error) {
	args := []any{q.LocationCode}
	clause := ""
	argPos := 2
	if q.Parameter != "" {
		clause += " AND parameter = $" + strconv.Itoa(argPos)
		args = append(args, q.Parameter)
		argPos++
	}
	if q.Since != "" {
		clause += " AND day >= $" + strconv.Itoa(argPos)
		args = append(args, q.Since)
		argPos++
	}
	if q.Until != "" {
		clause += " AND day <= $" + strconv.Itoa(argPos)
		args = append(args, q.Until)
		argPos++
	}
	order := " ORDER BY day"
	limit := ""
	if q.Limit > 0 {
		limit = " LIMIT $" + strconv.Itoa(argPos)
		args = append(args, q.Limit)
	}

	rows, err := s.pool.Query(ctx, dailyValuesBase+clause+order+limit, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]DailyValue, 0)
	for rows.Next() {
		var v DailyValue
		if err := rows.Scan(
			&v.LocationCode,
			&v.Parameter,
			&v.DatasetLabel,
			&v.Day,
			&v.Value,
			&v.GradeName,
			&v.ApprovalName,
		); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
