package clustering

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"rfmseg/internal/core"
	"rfmseg/internal/logger"
)

// KMeansConfig holds configuration for K-means clustering
type KMeansConfig struct {
	MaxIterations int   // Iteration cap when assignments keep changing
	Seed          int64 // Seed for centroid initialization
}

// DefaultKMeansConfig returns the defaults used for segmentation runs
func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{
		MaxIterations: 300,
		Seed:          1,
	}
}

// KMeansResult is the outcome of a single k-means run
type KMeansResult struct {
	Labels     []int       // Cluster label per input row, in [0, k)
	Centroids  [][]float64 // Final centroids, indexed by label
	Iterations int         // Lloyd iterations performed
	Converged  bool        // False when MaxIterations was reached first
	Inertia    float64     // Sum of squared distances to the assigned centroid
}

// Sizes returns the number of rows assigned to each label
func (r *KMeansResult) Sizes() []int {
	sizes := make([]int, len(r.Centroids))
	for _, label := range r.Labels {
		sizes[label]++
	}
	return sizes
}

// KMeans runs Lloyd's algorithm with a single seeded k-means++ initialization.
// It holds no per-run state, so one instance may serve concurrent callers.
type KMeans struct {
	config KMeansConfig
	log    *slog.Logger
}

// NewKMeans creates a k-means clusterer
func NewKMeans(config KMeansConfig) *KMeans {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultKMeansConfig().MaxIterations
	}
	return &KMeans{
		config: config,
		log:    logger.Get(),
	}
}

// Fit clusters points into k groups. Identical (points, k, seed) always give
// identical labels; label numbers follow initialization order and carry no ranking.
// points is never modified. k must satisfy 1 <= k < len(points), otherwise
// core.ErrInvalidParameter is returned.
func (km *KMeans) Fit(points [][]float64, k int) (*KMeansResult, error) {
	n := len(points)
	if k < 1 || k >= n {
		return nil, fmt.Errorf("%w: k=%d must be in [1, %d)", core.ErrInvalidParameter, k, n)
	}

	dim := len(points[0])
	for i, p := range points {
		if len(p) != dim {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", core.ErrInvalidParameter, i, len(p), dim)
		}
	}

	rng := rand.New(rand.NewSource(km.config.Seed))
	centroids := initializeCentroidsKMeansPP(points, k, rng)

	var assignments []int
	converged := false
	iterations := 0

	for iteration := 0; iteration < km.config.MaxIterations && !converged; iteration++ {
		iterations = iteration + 1

		// Assignment step: assign each point to nearest centroid
		newAssignments := make([]int, n)
		for i, p := range points {
			newAssignments[i] = findNearestCentroid(p, centroids)
		}

		// Check convergence
		if iteration > 0 {
			converged = true
			for i := range assignments {
				if assignments[i] != newAssignments[i] {
					converged = false
					break
				}
			}
		}

		assignments = newAssignments

		if !converged {
			// Update step: recalculate centroids
			centroids = updateCentroids(points, assignments, centroids)
		}
	}

	inertia := 0.0
	for i, p := range points {
		inertia += squaredDistance(p, centroids[assignments[i]])
	}

	km.log.Debug("k-means finished",
		"k", k,
		"points", n,
		"iterations", iterations,
		"converged", converged,
		"inertia", inertia,
	)

	return &KMeansResult{
		Labels:     assignments,
		Centroids:  centroids,
		Iterations: iterations,
		Converged:  converged,
		Inertia:    inertia,
	}, nil
}

// initializeCentroidsKMeansPP picks k starting centroids from points: the first
// uniformly, each next one with probability proportional to its squared distance
// from the nearest centroid chosen so far.
func initializeCentroidsKMeansPP(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clonePoint(points[rng.Intn(len(points))]))

	distances := make([]float64, len(points))
	for i := range distances {
		distances[i] = math.Inf(1)
	}

	for len(centroids) < k {
		latest := centroids[len(centroids)-1]
		total := 0.0
		for j, p := range points {
			if d := squaredDistance(p, latest); d < distances[j] {
				distances[j] = d
			}
			total += distances[j]
		}

		// All remaining points coincide with a centroid
		if total == 0 {
			centroids = append(centroids, clonePoint(points[rng.Intn(len(points))]))
			continue
		}

		target := rng.Float64() * total
		cumulative := 0.0
		selected := len(points) - 1
		for j, d := range distances {
			cumulative += d
			if cumulative > target {
				selected = j
				break
			}
		}

		centroids = append(centroids, clonePoint(points[selected]))
	}

	return centroids
}

// findNearestCentroid returns the index of the closest centroid; ties go to the lower index
func findNearestCentroid(p []float64, centroids [][]float64) int {
	minDistance := math.Inf(1)
	nearestIndex := 0

	for i, centroid := range centroids {
		if d := squaredDistance(p, centroid); d < minDistance {
			minDistance = d
			nearestIndex = i
		}
	}

	return nearestIndex
}

// updateCentroids recalculates centroids as assignment means. A cluster that
// lost all its points keeps its previous centroid.
func updateCentroids(points [][]float64, assignments []int, previous [][]float64) [][]float64 {
	k := len(previous)
	dim := len(previous[0])
	centroids := make([][]float64, k)
	counts := make([]int, k)

	for i := range centroids {
		centroids[i] = make([]float64, dim)
	}

	for i, p := range points {
		clusterID := assignments[i]
		counts[clusterID]++
		for j := range p {
			centroids[clusterID][j] += p[j]
		}
	}

	for i := range centroids {
		if counts[i] == 0 {
			copy(centroids[i], previous[i])
			continue
		}
		for j := range centroids[i] {
			centroids[i][j] /= float64(counts[i])
		}
	}

	return centroids
}

func clonePoint(p []float64) []float64 {
	c := make([]float64, len(p))
	copy(c, p)
	return c
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// EuclideanDistance calculates Euclidean distance between two vectors
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	return math.Sqrt(squaredDistance(a, b))
}
