package handlers

import (
	"fmt"

	"rfmseg/internal/config"
	"rfmseg/internal/tui"

	"github.com/spf13/cobra"
)

// NewTUICmd creates the TUI command
func NewTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive K selector",
		Long:  `Build the cohort once and browse segmentation results for each configured K in the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ds, err := loadDataset(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			return tui.StartTUI(ds, cfg.Clustering.KOptions, cfg.Clustering.DefaultK)
		},
	}
}
