package segment

import (
	"fmt"
	"math"

	"rfmseg/internal/core"
)

// Summarize groups cohort rows by label and reports the mean features in
// original units. mean_frequency keeps one decimal; mean_recency and
// mean_monetary are rounded to integers. Rows are ordered by ascending label
// and only populated labels appear, so the sizes always add up to len(rows).
func Summarize(rows []core.CustomerFeatureRow, labels []int) ([]core.ClusterSummaryRow, error) {
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("%w: %d rows but %d labels", core.ErrInvalidParameter, len(rows), len(labels))
	}

	maxLabel := -1
	for i, label := range labels {
		if label < 0 {
			return nil, fmt.Errorf("%w: label %d at row %d is negative", core.ErrInvalidParameter, label, i)
		}
		if label > maxLabel {
			maxLabel = label
		}
	}

	type totals struct {
		frequency, recency, monetary float64
		count                        int
	}
	groups := make([]totals, maxLabel+1)
	for i, row := range rows {
		g := &groups[labels[i]]
		g.frequency += float64(row.Frequency)
		g.recency += float64(row.Recency)
		g.monetary += row.Monetary
		g.count++
	}

	summary := make([]core.ClusterSummaryRow, 0, len(groups))
	for label, g := range groups {
		if g.count == 0 {
			continue
		}
		n := float64(g.count)
		summary = append(summary, core.ClusterSummaryRow{
			Cluster:       label,
			MeanFrequency: RoundHalfEven(g.frequency/n, 1),
			MeanRecency:   int(RoundHalfEven(g.recency/n, 0)),
			MeanMonetary:  int(RoundHalfEven(g.monetary/n, 0)),
			ClusterSize:   g.count,
		})
	}

	return summary, nil
}

// RoundHalfEven rounds x to the given number of decimal places, sending exact
// halves to the even neighbour.
func RoundHalfEven(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(x*scale) / scale
}
