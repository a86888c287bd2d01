package clustering

import (
	"fmt"
	"math"

	"rfmseg/internal/core"
)

// Silhouette computes the silhouette coefficient of every point:
//
//	s(i) = (b(i) - a(i)) / max(a(i), b(i))
//
// where a(i) is the mean Euclidean distance to the other members of its cluster
// and b(i) is the smallest mean distance to the members of another cluster.
// Scores lie in [-1, 1]:
//
//	-1: point likely in the wrong cluster
//	 0: point on the border between clusters
//	+1: point well matched to its cluster
//
// Distances are computed on the fly: memory is O(N+K) and time is O(N²·d), which
// limits practical cohorts to the low thousands of customers.
//
// core.ErrDegenerateCluster is returned when a populated cluster has a single
// member or fewer than two clusters are populated, since a(i) or b(i) is then undefined.
func Silhouette(points [][]float64, labels []int) ([]float64, error) {
	if len(points) != len(labels) {
		return nil, fmt.Errorf("%w: %d points but %d labels", core.ErrInvalidParameter, len(points), len(labels))
	}

	sizes, err := clusterSizes(labels)
	if err != nil {
		return nil, err
	}

	populated := 0
	for label, size := range sizes {
		switch size {
		case 0:
			continue
		case 1:
			return nil, fmt.Errorf("%w: cluster %d has a single member", core.ErrDegenerateCluster, label)
		}
		populated++
	}
	if populated < 2 {
		return nil, fmt.Errorf("%w: %d populated cluster(s), need at least 2", core.ErrDegenerateCluster, populated)
	}

	scores := make([]float64, len(points))
	sums := make([]float64, len(sizes))

	for i, p := range points {
		for c := range sums {
			sums[c] = 0
		}
		for j, q := range points {
			if i == j {
				continue
			}
			sums[labels[j]] += EuclideanDistance(p, q)
		}

		own := labels[i]
		a := sums[own] / float64(sizes[own]-1)

		b := math.Inf(1)
		for c, size := range sizes {
			if c == own || size == 0 {
				continue
			}
			if mean := sums[c] / float64(size); mean < b {
				b = mean
			}
		}

		if denom := math.Max(a, b); denom > 0 {
			scores[i] = (b - a) / denom
		}
	}

	return scores, nil
}

// AverageSilhouetteScore returns the mean silhouette coefficient over all points
func AverageSilhouetteScore(points [][]float64, labels []int) (float64, error) {
	scores, err := Silhouette(points, labels)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, s := range scores {
		total += s
	}
	return total / float64(len(scores)), nil
}

// SilhouetteAnalysis provides a per-cluster breakdown of the silhouette scores
type SilhouetteAnalysis struct {
	OverallScore  float64         // Average across all points
	ClusterScores map[int]float64 // Per-cluster average scores
	PointScores   []float64       // Individual point scores
	NumClusters   int             // Populated clusters
	NumPoints     int
	Quality       string // Interpretation: Strong/Reasonable/Weak/No structure
}

// PerformSilhouetteAnalysis computes overall, per-cluster and per-point scores
func PerformSilhouetteAnalysis(points [][]float64, labels []int) (*SilhouetteAnalysis, error) {
	scores, err := Silhouette(points, labels)
	if err != nil {
		return nil, err
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	total := 0.0
	for i, s := range scores {
		sums[labels[i]] += s
		counts[labels[i]]++
		total += s
	}

	clusterScores := make(map[int]float64, len(sums))
	for label, sum := range sums {
		clusterScores[label] = sum / float64(counts[label])
	}

	overall := total / float64(len(scores))
	return &SilhouetteAnalysis{
		OverallScore:  overall,
		ClusterScores: clusterScores,
		PointScores:   scores,
		NumClusters:   len(clusterScores),
		NumPoints:     len(scores),
		Quality:       InterpretSilhouetteScore(overall),
	}, nil
}

// InterpretSilhouetteScore provides a human-readable interpretation
func InterpretSilhouetteScore(score float64) string {
	if score >= 0.71 {
		return "Strong cluster structure"
	} else if score >= 0.51 {
		return "Reasonable cluster structure"
	} else if score >= 0.26 {
		return "Weak cluster structure"
	}
	return "No substantial cluster structure"
}

func clusterSizes(labels []int) ([]int, error) {
	maxLabel := -1
	for i, label := range labels {
		if label < 0 {
			return nil, fmt.Errorf("%w: label %d at row %d is negative", core.ErrInvalidParameter, label, i)
		}
		if label > maxLabel {
			maxLabel = label
		}
	}

	sizes := make([]int, maxLabel+1)
	for _, label := range labels {
		sizes[label]++
	}
	return sizes, nil
}
