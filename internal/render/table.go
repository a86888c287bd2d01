package render

import (
	"strconv"
	"strings"

	"rfmseg/internal/core"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	scoreStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
)

// SummaryTable renders the cluster summary rows as a bordered terminal table
func SummaryTable(rows []core.ClusterSummaryRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(SummaryHeader...).
		Rows(SummaryCells(rows)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

// Table renders the score line above the summary table
func Table(result *core.SegmentResult) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Customer segments"))
	b.WriteString(mutedStyle.Render("  k=" + strconv.Itoa(result.K)))
	b.WriteString("\n")
	b.WriteString(scoreStyle.Render(result.ScoreText))
	if result.Quality.Interpretation != "" {
		b.WriteString(mutedStyle.Render("  (" + result.Quality.Interpretation + ")"))
	}
	b.WriteString("\n")
	b.WriteString(SummaryTable(result.Summary))

	return b.String()
}
