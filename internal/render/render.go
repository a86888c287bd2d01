// Package render turns a segmentation result into report formats: markdown,
// HTML, JSON, YAML, CSV points and a styled terminal table.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rfmseg/internal/core"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"
)

// Format names accepted by Write
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatCSV      = "csv"
)

// Formats lists the supported output formats
var Formats = []string{FormatTable, FormatMarkdown, FormatHTML, FormatJSON, FormatYAML, FormatCSV}

// SummaryHeader is the column order of the cluster summary table
var SummaryHeader = []string{"cluster", "mean_frequency", "mean_recency", "mean_monetary", "cluster_size"}

// Write renders result in the given format
func Write(w io.Writer, format string, result *core.SegmentResult) error {
	switch format {
	case FormatTable:
		_, err := io.WriteString(w, Table(result)+"\n")
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(result))
		return err
	case FormatHTML:
		_, err := w.Write(HTML(result))
		return err
	case FormatJSON:
		return JSON(w, result)
	case FormatYAML:
		return YAML(w, result)
	case FormatCSV:
		return PointsCSV(w, result.Points)
	default:
		return fmt.Errorf("%w: unknown format %q (supported: %s)", core.ErrInvalidParameter, format, strings.Join(Formats, ", "))
	}
}

// SummaryCells returns the summary table as text cells, one slice per row
func SummaryCells(rows []core.ClusterSummaryRow) [][]string {
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, []string{
			strconv.Itoa(row.Cluster),
			core.FormatScore(row.MeanFrequency),
			strconv.Itoa(row.MeanRecency),
			strconv.Itoa(row.MeanMonetary),
			strconv.Itoa(row.ClusterSize),
		})
	}
	return cells
}

// Markdown renders the score line and summary table as a markdown document
func Markdown(result *core.SegmentResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Customer segments (k=%d)\n\n", result.K)
	fmt.Fprintf(&b, "**%s**\n\n", strings.TrimSpace(result.ScoreText))
	if result.Quality.Interpretation != "" {
		fmt.Fprintf(&b, "_%s_\n\n", result.Quality.Interpretation)
	}

	b.WriteString("## Clusters info table\n\n")
	b.WriteString("| " + strings.Join(SummaryHeader, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" ---: |", len(SummaryHeader)) + "\n")
	for _, cells := range SummaryCells(result.Summary) {
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	fmt.Fprintf(&b, "\n%d customers, %d iterations", len(result.Points), result.Iterations)
	if !result.Converged {
		b.WriteString(" (iteration cap reached)")
	}
	fmt.Fprintf(&b, ", run `%s`\n", result.RunID)

	return b.String()
}

// HTML renders the markdown report to an HTML fragment
func HTML(result *core.SegmentResult) []byte {
	return markdownToHTML(Markdown(result))
}

func markdownToHTML(text string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})

	return markdown.ToHTML([]byte(text), mdParser, renderer)
}

// JSON writes the result as indented JSON
func JSON(w io.Writer, result *core.SegmentResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

// YAML writes the result as YAML
func YAML(w io.Writer, result *core.SegmentResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}

// PointsCSV exports the labeled points, one customer per line
func PointsCSV(w io.Writer, points []core.LabeledPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"customer_unique_id", "frequency", "monetary", "recency", "cluster"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range points {
		record := []string{
			p.CustomerUniqueID,
			strconv.Itoa(p.Frequency),
			strconv.FormatFloat(p.Monetary, 'f', -1, 64),
			strconv.Itoa(p.Recency),
			strconv.Itoa(p.Cluster),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteToFile renders result into path, creating parent directories
func WriteToFile(path, format string, result *core.SegmentResult) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := Write(f, format, result); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
