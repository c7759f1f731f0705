package main

import (
	"github.com/spf13/cobra"
)

var calibCmd = &cobra.Command{
	Use:   "calib",
	Short: "run one plain band sweep and write a single table file",
	Long: `calib steps the band configured in freq_min_mhz/freq_max_mhz once at
the default LO power, sampling every bank at every frequency, and writes
one table file covering the whole band.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupViper(); err != nil {
			return err
		}
		cfg := baseConfig()
		cfg.Sweep.Bands = 1
		return runSweep(cfg)
	},
}

func init() {
	rootCmd.AddCommand(calibCmd)
}
