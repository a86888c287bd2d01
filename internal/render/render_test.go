package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rfmseg/internal/core"

	"gopkg.in/yaml.v3"
)

func sampleResult() *core.SegmentResult {
	quality := core.Quality{Score: 0.5, Defined: true, Interpretation: "Reasonable cluster structure"}
	return &core.SegmentResult{
		RunID:      "run-1",
		K:          2,
		Iterations: 3,
		Converged:  true,
		Quality:    quality,
		ScoreText:  quality.Text(),
		Summary: []core.ClusterSummaryRow{
			{Cluster: 0, MeanFrequency: 1.0, MeanRecency: 12, MeanMonetary: 140, ClusterSize: 2},
			{Cluster: 1, MeanFrequency: 2.5, MeanRecency: 40, MeanMonetary: 1020, ClusterSize: 1},
		},
		Points: []core.LabeledPoint{
			{CustomerUniqueID: "a", Frequency: 1, Monetary: 100.25, Recency: 10, Cluster: 0},
			{CustomerUniqueID: "b", Frequency: 1, Monetary: 180, Recency: 14, Cluster: 0},
			{CustomerUniqueID: "c", Frequency: 2, Monetary: 1020, Recency: 40, Cluster: 1},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleResult())

	expected := []string{
		"# Customer segments (k=2)",
		"Mean Silhouette Coefficient : 0.5",
		"| cluster | mean_frequency | mean_recency | mean_monetary | cluster_size |",
		"| 0 | 1.0 | 12 | 140 | 2 |",
		"| 1 | 2.5 | 40 | 1020 | 1 |",
		"3 customers, 3 iterations",
	}
	for _, want := range expected {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown should contain %q, got:\n%s", want, md)
		}
	}
	if strings.Contains(md, "iteration cap") {
		t.Error("Converged run should not mention the iteration cap")
	}
}

func TestHTML(t *testing.T) {
	out := string(HTML(sampleResult()))

	if !strings.Contains(out, "<table>") {
		t.Errorf("HTML should contain a table, got:\n%s", out)
	}
	if !strings.Contains(out, "<h1") {
		t.Errorf("HTML should contain a heading, got:\n%s", out)
	}
	if !strings.Contains(out, "Mean Silhouette Coefficient : 0.5") {
		t.Error("HTML should contain the score line")
	}
}

func TestJSONAndYAML(t *testing.T) {
	result := sampleResult()

	var buf bytes.Buffer
	if err := JSON(&buf, result); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	var decoded core.SegmentResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.K != 2 || len(decoded.Summary) != 2 || decoded.Summary[1].MeanMonetary != 1020 {
		t.Errorf("Unexpected decoded result: %+v", decoded)
	}

	buf.Reset()
	if err := YAML(&buf, result); err != nil {
		t.Fatalf("YAML failed: %v", err)
	}
	var generic map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &generic); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if generic["score_text"] != " Mean Silhouette Coefficient : 0.5" {
		t.Errorf("Unexpected score_text: %v", generic["score_text"])
	}
}

func TestPointsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := PointsCSV(&buf, sampleResult().Points); err != nil {
		t.Fatalf("PointsCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected header plus 3 rows, got %d", len(records))
	}
	if got := strings.Join(records[1], ","); got != "a,1,100.25,10,0" {
		t.Errorf("Unexpected first row: %s", got)
	}
}

func TestTable(t *testing.T) {
	out := Table(sampleResult())

	for _, want := range []string{"Mean Silhouette Coefficient : 0.5", "mean_frequency", "1020"} {
		if !strings.Contains(out, want) {
			t.Errorf("Table should contain %q, got:\n%s", want, out)
		}
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "pdf", sampleResult())
	if !errors.Is(err, core.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
}

func TestWriteToFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "reports", "segments.md")

	if err := WriteToFile(path, FormatMarkdown, sampleResult()); err != nil {
		t.Fatalf("WriteToFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	if !strings.Contains(string(content), "Clusters info table") {
		t.Errorf("Report should contain the summary table, got:\n%s", content)
	}
}
