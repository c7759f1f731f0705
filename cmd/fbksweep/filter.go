package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "run one band sweep per configured LO power level",
	Long: `filter repeats the configured band once per entry of power_levels,
letting the LO settle after each power change, and writes one table file
per level with the signed level in the file name and the POWER_DBM column.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupViper(); err != nil {
			return err
		}
		cfg := baseConfig()
		cfg.Sweep.PowerLevels = viper.GetIntSlice("power_levels")
		if len(cfg.Sweep.PowerLevels) == 0 {
			return fmt.Errorf("filter sweep needs at least one entry in power_levels")
		}
		return runSweep(cfg)
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)
}
