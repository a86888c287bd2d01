// Package segment wires the RFM pipeline together: a Dataset is built once from
// raw tables, and Run clusters it for a chosen K.
package segment

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rfmseg/internal/clustering"
	"rfmseg/internal/core"
	"rfmseg/internal/features"
	"rfmseg/internal/logger"
	"rfmseg/internal/scaling"

	"github.com/google/uuid"
)

// Options configures dataset construction and clustering runs
type Options struct {
	Cutoff             time.Time
	Reference          time.Time
	Predicate          string // optional CEL cohort predicate
	Seed               int64
	MaxIterations      int
	SilhouetteWarnSize int
}

// Dataset is the read-only input shared by every clustering request: the
// filtered cohort in original units and its standardized matrix.
// Nothing mutates a Dataset after Build returns.
type Dataset struct {
	rows         []core.CustomerFeatureRow
	matrix       [][]float64
	standardizer *scaling.Standardizer
	options      Options
	builtAt      time.Time
	extracted    int
}

// Build runs extraction, cohort filtering and standardization. Any failure is
// fatal for startup: core.ErrParse, or core.ErrDataIntegrity when the join or
// cohort is empty or a feature has zero variance.
func Build(tables core.RawTables, opts Options) (*Dataset, error) {
	log := logger.Get()

	rows, err := features.Extract(tables, opts.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to extract customer features: %w", err)
	}
	log.Info("Extracted customer features",
		"orders", len(tables.Orders),
		"customers", len(tables.Customers),
		"items", len(tables.Items),
		"unique_customers", len(rows),
		"reference_date", opts.Reference.Format(core.DateLayout),
	)

	cohort, err := features.FilterCohort(rows, opts.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to filter cohort: %w", err)
	}

	predicate, err := features.CompilePredicate(opts.Predicate)
	if err != nil {
		return nil, fmt.Errorf("failed to compile cohort predicate: %w", err)
	}
	cohort, err = predicate.Apply(cohort)
	if err != nil {
		return nil, fmt.Errorf("failed to apply cohort predicate: %w", err)
	}

	standardizer, err := scaling.FitFeatures(cohort)
	if err != nil {
		return nil, fmt.Errorf("failed to standardize cohort: %w", err)
	}

	log.Info("Cohort ready",
		"cutoff_date", opts.Cutoff.Format(core.DateLayout),
		"predicate", predicate.String(),
		"cohort_size", len(cohort),
		"mean", standardizer.Mean,
		"std", standardizer.Std,
	)
	if opts.SilhouetteWarnSize > 0 && len(cohort) > opts.SilhouetteWarnSize {
		log.Warn("Cohort is large for the O(N²) silhouette computation; runs will be slow",
			"cohort_size", len(cohort),
			"warn_size", opts.SilhouetteWarnSize,
		)
	}

	return &Dataset{
		rows:         cohort,
		matrix:       standardizer.Transform(scaling.Vectors(cohort)),
		standardizer: standardizer,
		options:      opts,
		builtAt:      time.Now().UTC(),
		extracted:    len(rows),
	}, nil
}

// Size returns the number of customers in the cohort
func (d *Dataset) Size() int { return len(d.rows) }

// Extracted returns the number of customers before cohort filtering
func (d *Dataset) Extracted() int { return d.extracted }

// BuiltAt returns when the dataset was built
func (d *Dataset) BuiltAt() time.Time { return d.builtAt }

// Options returns the options the dataset was built with
func (d *Dataset) Options() Options { return d.options }

// Rows returns a copy of the cohort rows
func (d *Dataset) Rows() []core.CustomerFeatureRow {
	return append([]core.CustomerFeatureRow(nil), d.rows...)
}

// Stats returns copies of the standardization statistics
func (d *Dataset) Stats() (columns []string, mean, std []float64) {
	s := d.standardizer
	return append([]string(nil), s.Columns...), append([]float64(nil), s.Mean...), append([]float64(nil), s.Std...)
}

// Run clusters the dataset into k segments and evaluates and summarizes the
// result. It has no hidden state: concurrent calls on the same Dataset are safe
// and independent.
//
// An out-of-range k returns core.ErrInvalidParameter. An undefined silhouette
// (singleton cluster) is not an error: the result carries Quality.Defined=false
// next to the still-valid labels and summary.
func Run(d *Dataset, k int) (*core.SegmentResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := logger.Get().With("run_id", runID, "k", k)

	km := clustering.NewKMeans(clustering.KMeansConfig{
		MaxIterations: d.options.MaxIterations,
		Seed:          d.options.Seed,
	})
	fit, err := km.Fit(d.matrix, k)
	if err != nil {
		log.Warn("Clustering request rejected", "error", err)
		return nil, err
	}

	quality := evaluate(log, d.matrix, fit.Labels)

	summary, err := Summarize(d.rows, fit.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize clusters: %w", err)
	}

	points := make([]core.LabeledPoint, len(d.rows))
	for i, row := range d.rows {
		points[i] = core.LabeledPoint{
			CustomerUniqueID: row.CustomerUniqueID,
			Frequency:        row.Frequency,
			Monetary:         row.Monetary,
			Recency:          row.Recency,
			Cluster:          fit.Labels[i],
		}
	}

	result := &core.SegmentResult{
		RunID:      runID,
		K:          k,
		Iterations: fit.Iterations,
		Converged:  fit.Converged,
		Quality:    quality,
		ScoreText:  quality.Text(),
		Summary:    summary,
		Points:     points,
		Duration:   time.Since(start),
	}

	log.Info("Segmentation run complete",
		"points", len(points),
		"iterations", fit.Iterations,
		"converged", fit.Converged,
		"silhouette", quality.Score,
		"silhouette_defined", quality.Defined,
		"duration", result.Duration,
	)

	return result, nil
}

func evaluate(log *slog.Logger, matrix [][]float64, labels []int) core.Quality {
	analysis, err := clustering.PerformSilhouetteAnalysis(matrix, labels)
	if err != nil {
		if errors.Is(err, core.ErrDegenerateCluster) {
			log.Warn("Silhouette coefficient undefined", "error", err)
			return core.Quality{Reason: degenerateReason(err)}
		}
		log.Error("Silhouette evaluation failed", "error", err)
		return core.Quality{Reason: err.Error()}
	}

	return core.Quality{
		Score:          RoundHalfEven(analysis.OverallScore, 2),
		Defined:        true,
		Interpretation: analysis.Quality,
	}
}

// degenerateReason strips the sentinel prefix for display
func degenerateReason(err error) string {
	return strings.TrimPrefix(err.Error(), core.ErrDegenerateCluster.Error()+": ")
}
