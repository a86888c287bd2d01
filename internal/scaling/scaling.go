package scaling

import (
	"errors"
	"fmt"
	"math"

	"rfmseg/internal/core"
)

// ErrZeroVariance is wrapped when a column has a single distinct value
// across the cohort and therefore cannot be z-scored.
var ErrZeroVariance = errors.New("zero variance column")

// Standardizer holds per-column mean and population standard deviation.
// Formula: z = (x - mean) / std
type Standardizer struct {
	Columns []string
	Mean    []float64
	Std     []float64
}

// Fit computes column statistics over rows. Every row must have len(columns) values.
// It returns core.ErrDataIntegrity for an empty input and for zero-variance columns.
func Fit(columns []string, rows [][]float64) (*Standardizer, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: cannot standardize an empty cohort", core.ErrDataIntegrity)
	}

	dim := len(columns)
	mean := make([]float64, dim)
	std := make([]float64, dim)

	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", core.ErrDataIntegrity, i, len(row), dim)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}

	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 || math.IsNaN(std[j]) {
			return nil, fmt.Errorf("%w: %w: %s", core.ErrDataIntegrity, ErrZeroVariance, columns[j])
		}
	}

	return &Standardizer{Columns: columns, Mean: mean, Std: std}, nil
}

// FitFeatures fits the standardizer on the frequency, monetary and recency
// columns of the cohort.
func FitFeatures(rows []core.CustomerFeatureRow) (*Standardizer, error) {
	return Fit(core.FeatureNames, Vectors(rows))
}

// Vectors converts feature rows to a raw matrix in core.FeatureNames order
func Vectors(rows []core.CustomerFeatureRow) [][]float64 {
	matrix := make([][]float64, len(rows))
	for i, row := range rows {
		matrix[i] = row.Vector()
	}
	return matrix
}

// Transform returns a new standardized matrix; rows is left untouched
func (s *Standardizer) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = (v - s.Mean[j]) / s.Std[j]
		}
	}
	return out
}

// Inverse maps standardized values back to original units
func (s *Standardizer) Inverse(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = make([]float64, len(row))
		for j, z := range row {
			out[i][j] = z*s.Std[j] + s.Mean[j]
		}
	}
	return out
}
