package tui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"rfmseg/internal/core"

	tea "github.com/charmbracelet/bubbletea"
)

func fakeRun(k int) (*core.SegmentResult, error) {
	if k > 5 {
		return nil, fmt.Errorf("%w: k=%d too large", core.ErrInvalidParameter, k)
	}
	q := core.Quality{Score: 0.42, Defined: true}
	return &core.SegmentResult{
		K:         k,
		Quality:   q,
		ScoreText: q.Text(),
		Summary:   []core.ClusterSummaryRow{{Cluster: 0, MeanFrequency: 1, MeanRecency: 10, MeanMonetary: 100, ClusterSize: 3}},
	}, nil
}

// drive applies msg and executes the returned command, feeding its message back
func drive(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(model)
	if cmd != nil {
		next, _ = m.Update(cmd())
		m = next.(model)
	}
	return m
}

func TestInitRunsDefaultK(t *testing.T) {
	m := newModel(fakeRun, []int{3, 4, 5, 6}, 4, 10)
	if m.kOptions[m.selected] != 4 {
		t.Fatalf("Expected default k 4 selected, got %d", m.kOptions[m.selected])
	}

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init should start a run")
	}
	next, _ := m.Update(cmd())
	m = next.(model)

	if m.result == nil || m.result.K != 4 {
		t.Fatalf("Expected result for k=4, got %+v", m.result)
	}
	if m.running {
		t.Error("Model should not be running after the result arrived")
	}
	if !strings.Contains(m.View(), "Mean Silhouette Coefficient : 0.42") {
		t.Error("View should show the score line")
	}
}

func TestKeysCycleOptions(t *testing.T) {
	m := newModel(fakeRun, []int{3, 4, 5}, 4, 10)

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.result == nil || m.result.K != 5 {
		t.Fatalf("Expected k=5 after right, got %+v", m.result)
	}

	// Already at the last option
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.kOptions[m.selected] != 5 {
		t.Errorf("Selection should stay at 5, got %d", m.kOptions[m.selected])
	}

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.result.K != 3 {
		t.Errorf("Expected k=3 after two lefts, got %d", m.result.K)
	}
}

func TestFailedRunKeepsLastResult(t *testing.T) {
	m := newModel(fakeRun, []int{5, 6}, 5, 10)
	m = drive(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.result == nil || m.result.K != 5 {
		t.Fatalf("Expected k=5 result, got %+v", m.result)
	}

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if !errors.Is(m.err, core.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", m.err)
	}
	if m.result == nil || m.result.K != 5 {
		t.Errorf("Previous result should be kept, got %+v", m.result)
	}
	if !strings.Contains(m.View(), "Error: k=6") {
		t.Error("View should show the error line")
	}
}

func TestStaleResultIsDropped(t *testing.T) {
	m := newModel(fakeRun, []int{3, 4, 5}, 4, 10)

	// Move to 5 before the k=4 run finishes
	next, staleCmd := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = next.(model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(model)
	next, freshCmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(model)
	if m.kOptions[m.selected] != 5 {
		t.Fatalf("Expected k=5 selected, got %d", m.kOptions[m.selected])
	}

	stale := staleCmd()
	next, _ = m.Update(stale)
	m = next.(model)
	if m.result != nil {
		t.Fatalf("Result for k=3 should be dropped while k=5 is selected, got k=%d", m.result.K)
	}
	if !m.running {
		t.Error("Model should still be running while the k=5 run is in flight")
	}

	next, _ = m.Update(freshCmd())
	m = next.(model)
	next, _ = m.Update(resultMsg{k: 4, result: &core.SegmentResult{K: 4}})
	m = next.(model)
	if m.result == nil || m.result.K != 5 {
		t.Fatalf("Expected k=5 result to stay shown, got %+v", m.result)
	}
	if m.running {
		t.Error("Model should not be running after the selected result arrived")
	}
}

func TestQuit(t *testing.T) {
	m := newModel(fakeRun, []int{3}, 3, 1)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if !next.(model).quitting {
		t.Error("Model should be quitting")
	}
}
