package handlers

import (
	"fmt"
	"io"
	"os"

	"rfmseg/internal/config"
	"rfmseg/internal/core"
	"rfmseg/internal/segment"

	"github.com/spf13/cobra"
)

// NewProfileCmd creates the command that prints the cohort and its scaling statistics
func NewProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print cohort size and standardization statistics",
		Long: `Build the cohort without clustering it and print how many customers were
extracted, how many passed the cohort filter, and the mean and standard
deviation used to standardize each feature.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ds, err := loadDataset(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			printProfile(os.Stdout, ds)
			return nil
		},
	}
}

func printProfile(w io.Writer, ds *segment.Dataset) {
	opts := ds.Options()

	fmt.Fprintf(w, "Reference date:  %s\n", opts.Reference.Format(core.DateLayout))
	fmt.Fprintf(w, "Cutoff date:     %s\n", opts.Cutoff.Format(core.DateLayout))
	if opts.Predicate != "" {
		fmt.Fprintf(w, "Predicate:       %s\n", opts.Predicate)
	}
	fmt.Fprintf(w, "Customers:       %d\n", ds.Extracted())
	fmt.Fprintf(w, "Cohort size:     %d\n\n", ds.Size())

	columns, mean, std := ds.Stats()
	fmt.Fprintf(w, "%-10s %14s %14s\n", "feature", "mean", "std")
	for i, col := range columns {
		fmt.Fprintf(w, "%-10s %14.4f %14.4f\n", col, mean[i], std[i])
	}
}
