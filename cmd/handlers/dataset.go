package handlers

import (
	"context"
	"fmt"
	"time"

	"rfmseg/internal/config"
	"rfmseg/internal/segment"
	"rfmseg/internal/sources"
)

// loadDataset reads the configured source and builds the cohort once.
// Every error here is fatal for the calling command.
func loadDataset(ctx context.Context, cfg *config.Config) (*segment.Dataset, error) {
	reader, closeReader, err := sources.NewReader(ctx, cfg.Data)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeReader() }()

	tables, err := sources.LoadAll(ctx, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s data: %w", cfg.Data.Source, err)
	}

	return segment.Build(tables, datasetOptions(cfg, time.Now()))
}

func datasetOptions(cfg *config.Config, now time.Time) segment.Options {
	return segment.Options{
		Cutoff:             cfg.Cohort.CutoffTime(),
		Reference:          cfg.Cohort.ReferenceTime(now),
		Predicate:          cfg.Cohort.Predicate,
		Seed:               cfg.Clustering.Seed,
		MaxIterations:      cfg.Clustering.MaxIterations,
		SilhouetteWarnSize: cfg.Clustering.SilhouetteWarnSize,
	}
}
