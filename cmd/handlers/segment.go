package handlers

import (
	"fmt"
	"os"
	"strings"

	"rfmseg/internal/config"
	"rfmseg/internal/logger"
	"rfmseg/internal/render"
	"rfmseg/internal/segment"

	"github.com/spf13/cobra"
)

// NewSegmentCmd creates the one-shot segmentation command
func NewSegmentCmd() *cobra.Command {
	var (
		k      int
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Cluster the cohort into k segments and print the report",
		Long: `Load the order history, build the RFM cohort and cluster it once.

The report contains the mean silhouette coefficient and the per-cluster summary
table. The csv format exports the labeled points instead.

Examples:
  # Default k from config (4)
  rfmseg segment

  # Five clusters as markdown
  rfmseg segment --k 5 --format markdown

  # Export labeled points
  rfmseg segment --k 3 --format csv --out segments.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSegment(cmd, k, format, out)
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of clusters (default from config: clustering.default_k)")
	cmd.Flags().StringVarP(&format, "format", "f", render.FormatTable, "output format: "+strings.Join(render.Formats, ", "))
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the report to this file instead of stdout")

	return cmd
}

func runSegment(cmd *cobra.Command, k int, format, out string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if k == 0 {
		k = cfg.Clustering.DefaultK
	}

	ds, err := loadDataset(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	result, err := segment.Run(ds, k)
	if err != nil {
		return err
	}

	if out != "" {
		if err := render.WriteToFile(out, format, result); err != nil {
			return err
		}
		logger.Info("Report written", "path", out, "format", format, "k", k)
		return nil
	}

	return render.Write(os.Stdout, format, result)
}
