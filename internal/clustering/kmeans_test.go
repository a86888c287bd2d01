package clustering

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"rfmseg/internal/core"
)

func randomPoints(seed int64, n, dim int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, dim)
		for j := range points[i] {
			points[i][j] = rng.NormFloat64()
		}
	}
	return points
}

func TestKMeansRecoversSeparatedGroups(t *testing.T) {
	points := [][]float64{
		{-1.0, -1.1, -0.9},
		{-1.1, -1.0, -1.0},
		{-0.9, -0.9, -1.1},
		{1.0, 1.1, 0.9},
		{1.1, 1.0, 1.0},
		{0.9, 0.9, 1.1},
	}

	result, err := NewKMeans(DefaultKMeansConfig()).Fit(points, 2)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if result.Labels[0] != result.Labels[1] || result.Labels[1] != result.Labels[2] {
		t.Errorf("First group split across clusters: %v", result.Labels)
	}
	if result.Labels[3] != result.Labels[4] || result.Labels[4] != result.Labels[5] {
		t.Errorf("Second group split across clusters: %v", result.Labels)
	}
	if result.Labels[0] == result.Labels[3] {
		t.Errorf("Groups merged into one cluster: %v", result.Labels)
	}
	if !result.Converged {
		t.Error("Expected convergence on separated data")
	}

	sizes := result.Sizes()
	if sizes[0] != 3 || sizes[1] != 3 {
		t.Errorf("Expected sizes [3 3], got %v", sizes)
	}
}

func TestKMeansDeterministic(t *testing.T) {
	points := randomPoints(42, 200, 3)
	km := NewKMeans(KMeansConfig{MaxIterations: 300, Seed: 1})

	first, err := km.Fit(points, 4)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := km.Fit(points, 4)
		if err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		for i := range first.Labels {
			if first.Labels[i] != again.Labels[i] {
				t.Fatalf("run %d: label %d differs (%d vs %d)", run, i, first.Labels[i], again.Labels[i])
			}
		}
	}
}

func TestKMeansLabelsInRange(t *testing.T) {
	points := randomPoints(3, 120, 3)
	km := NewKMeans(DefaultKMeansConfig())

	for _, k := range []int{1, 2, 3, 4, 5, 6, 10, 119} {
		result, err := km.Fit(points, k)
		if err != nil {
			t.Fatalf("k=%d: Fit failed: %v", k, err)
		}
		if len(result.Labels) != len(points) {
			t.Fatalf("k=%d: expected %d labels, got %d", k, len(points), len(result.Labels))
		}
		total := 0
		for _, size := range result.Sizes() {
			total += size
		}
		if total != len(points) {
			t.Errorf("k=%d: sizes sum to %d, want %d", k, total, len(points))
		}
		for i, label := range result.Labels {
			if label < 0 || label >= k {
				t.Errorf("k=%d: label %d at row %d out of range", k, label, i)
			}
		}
		if result.Iterations < 1 || result.Iterations > DefaultKMeansConfig().MaxIterations {
			t.Errorf("k=%d: unexpected iteration count %d", k, result.Iterations)
		}
	}
}

func TestKMeansInvalidK(t *testing.T) {
	points := randomPoints(1, 5, 3)
	km := NewKMeans(DefaultKMeansConfig())

	for _, k := range []int{-1, 0, 5, 6} {
		if _, err := km.Fit(points, k); !errors.Is(err, core.ErrInvalidParameter) {
			t.Errorf("k=%d: expected ErrInvalidParameter, got %v", k, err)
		}
	}
}

func TestKMeansDoesNotMutateInput(t *testing.T) {
	points := randomPoints(9, 50, 3)
	snapshot := make([][]float64, len(points))
	for i := range points {
		snapshot[i] = append([]float64(nil), points[i]...)
	}

	if _, err := NewKMeans(DefaultKMeansConfig()).Fit(points, 3); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	for i := range points {
		for j := range points[i] {
			if points[i][j] != snapshot[i][j] {
				t.Fatalf("Input modified at [%d][%d]", i, j)
			}
		}
	}
}

func TestKMeansDuplicatePoints(t *testing.T) {
	points := [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}, {0, 0, 0}}

	result, err := NewKMeans(DefaultKMeansConfig()).Fit(points, 2)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	for _, label := range result.Labels {
		if label < 0 || label >= 2 {
			t.Errorf("Label out of range: %d", label)
		}
	}
}

func TestEuclideanDistance(t *testing.T) {
	if d := EuclideanDistance([]float64{0, 0, 0}, []float64{1, 2, 2}); math.Abs(d-3) > 1e-12 {
		t.Errorf("Expected 3, got %v", d)
	}
	if d := EuclideanDistance([]float64{0}, []float64{1, 2}); d != math.MaxFloat64 {
		t.Errorf("Expected MaxFloat64 for mismatched dimensions, got %v", d)
	}
}
