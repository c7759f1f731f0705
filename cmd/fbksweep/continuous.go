package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alhosani-abdulla/highz-filterbank"
)

var continuousCmd = &cobra.Command{
	Use:   "continuous <nrows> <start_mhz> <end_mhz>",
	Short: "sweep the band over and over until the switch sentinel state appears",
	Long: `continuous wraps around the band indefinitely, decoding the switch
state from the spare converter channels into each row, and hands off a
file every <nrows> rows. Observing the sentinel state stops the run and
flushes whatever rows the current buffer holds.

All three arguments are strictly positive integers; anything else fails
before any hardware is touched.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		nrows, err := positiveInt(args[0], "nrows")
		if err != nil {
			return err
		}
		start, err := positiveInt(args[1], "start_mhz")
		if err != nil {
			return err
		}
		end, err := positiveInt(args[2], "end_mhz")
		if err != nil {
			return err
		}
		if end <= start {
			return fmt.Errorf("end_mhz %d must be greater than start_mhz %d", end, start)
		}

		if err := setupViper(); err != nil {
			return err
		}
		cfg := baseConfig()
		cfg.NRows = nrows
		cfg.Sweep.FreqMin = float64(start)
		cfg.Sweep.FreqMax = float64(end)
		cfg.Sweep.Bands = 0 // wrap until the sentinel
		cfg.Switch = switchConfig()
		cfg.Volts = filterbank.VoltsConfig{} // no voltage scalar in continuous files
		return runSweep(cfg)
	},
}

func positiveInt(s, name string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, s)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be strictly positive, got %d", name, v)
	}
	return v, nil
}

func init() {
	rootCmd.AddCommand(continuousCmd)
}
