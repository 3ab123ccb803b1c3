// Command archiver pulls the daily discharge record for every StAGE site
// that advertises one and stores it in Postgres. Sites whose daily sensor is
// mislabeled upstream are pulled as instantaneous readings and collapsed to
// last-of-day values instead.
package main

import (
	"context"
	"log"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mthydro/stagedata/internal/logging"
	"github.com/mthydro/stagedata/services/archiver/internal/config"
	"github.com/mthydro/stagedata/services/archiver/internal/db"
	"github.com/mthydro/stagedata/stage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "archiver")
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("archiver failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := []stage.ClientOption{
		stage.WithTimeout(cfg.RequestTimeout),
		stage.WithLogger(logger),
	}
	if cfg.StageBaseURL != "" {
		opts = append(opts, stage.WithBaseURL(cfg.StageBaseURL))
	}
	client := stage.NewClient(opts...)

	builder := stage.NewBuilder(client, logger)
	builder.Location = time.UTC

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sites, err := client.SiteList(ctx)
	if err != nil {
		return err
	}
	logger.Info("fetched site directory", zap.Int("sites", len(sites)))

	var archived, skipped, failed int
	for _, site := range sites {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		samples, err := pullDailyDischarge(ctx, client, builder, cfg, site.LocationCode)
		if err != nil {
			failed++
			logger.Warn("site pull failed",
				zap.String("site", site.LocationCode),
				zap.Error(err))
			continue
		}
		if samples == nil {
			skipped++
			logger.Debug("no daily discharge for site", zap.String("site", site.LocationCode))
			continue
		}

		if cfg.DryRun {
			archived++
			logger.Info("dry-run: would archive site",
				zap.String("site", site.LocationCode),
				zap.Int("samples", len(samples.Samples)))
			continue
		}

		if err := db.UpsertSite(ctx, pool, samples.Site); err != nil {
			return err
		}
		inserted, err := db.InsertDailyValues(ctx, pool, samples.Samples)
		if err != nil {
			return err
		}
		archived++
		logger.Info("site archived",
			zap.String("site", site.LocationCode),
			zap.Int("rows", inserted))
	}

	logger.Info("archive run complete",
		zap.Int("archived", archived),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
	return nil
}

// pullDailyDischarge fetches the daily discharge dataset for one site, or
// nil when the site has no discharge record at all.
func pullDailyDischarge(ctx context.Context, client *stage.Client, builder *stage.Builder, cfg config.Config, siteCode string) (*stage.SiteDataset, error) {
	params, err := client.LocationParameters(ctx, siteCode)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		// Some new sites have no listed parameters yet.
		return nil, nil
	}

	hasDaily := false
	mislabeled := false
	for _, p := range params {
		if p.ParameterLabel+" "+p.ComputationPeriod == "Discharge Daily" {
			hasDaily = true
		}
		// Historic discontinued sites sometimes carry the daily-average
		// sensor without a correct ComputationPeriod.
		if strings.Contains(p.SensorCode, "Discharge.Daily Average") {
			mislabeled = true
		}
	}

	switch {
	case hasDaily:
		return builder.Build(ctx, stage.BuildRequest{
			SiteCode: siteCode,
			Timestep: stage.TimestepDaily,
			Dataset:  stage.Dataset("QR"),
			Start:    cfg.StartDate,
			End:      cfg.EndDate,
		})
	case mislabeled:
		ds, err := builder.Build(ctx, stage.BuildRequest{
			SiteCode: siteCode,
			Timestep: stage.TimestepInstant,
			Dataset:  stage.Dataset("QR"),
			Start:    cfg.StartDate,
			End:      cfg.EndDate,
		})
		if err != nil {
			return nil, err
		}
		ds.Samples = lastOfDay(ds.Samples)
		ds.Timestep = stage.TimestepDaily
		return ds, nil
	default:
		return nil, nil
	}
}

// lastOfDay collapses instantaneous samples to one representative value per
// calendar day, keeping the chronologically last reading. Grouping is by day,
// not by run: a site with several instantaneous sensors concatenates into a
// series that revisits earlier days.
func lastOfDay(samples []stage.NormalizedSample) []stage.NormalizedSample {
	byDay := make(map[string]stage.NormalizedSample)
	for _, s := range samples {
		day := s.LocalTime.Format("2006-01-02")
		if prev, ok := byDay[day]; !ok || !s.LocalTime.Before(prev.LocalTime) {
			byDay[day] = s
		}
	}

	out := make([]stage.NormalizedSample, 0, len(byDay))
	for day, s := range byDay {
		s.Date = day
		s.LocalTime = time.Time{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
