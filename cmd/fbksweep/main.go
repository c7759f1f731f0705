package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alhosani-abdulla/highz-filterbank"
)

var githash = "githash not computed"
var gitdate = "git date not computed"
var buildDate = "build date not computed"

var rootFlags = struct {
	sim       bool
	parquet   bool
	quicklook bool
	noJournal bool
	outputDir string
}{}

var rootCmd = &cobra.Command{
	Use:   "fbksweep",
	Short: "step the filter-bank LO through calibration sweeps and record them",
	Long: `fbksweep drives the synthesizer stepping lines of the filter-bank
calibration rig, samples the three converter banks at every frequency, and
writes each completed sweep to a columnar table file.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version information and quit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("This is fbksweep version %s\n", filterbank.Build.Version)
		fmt.Printf("Git commit hash: %s\n", githash)
		fmt.Printf("Build time: %s\n", buildDate)
		fmt.Printf("Built on go version %s\n", runtime.Version())
		fmt.Printf("Running on %d CPUs.\n", runtime.NumCPU())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootFlags.sim, "sim", false, "run against the simulated rig instead of real hardware")
	rootCmd.PersistentFlags().BoolVar(&rootFlags.parquet, "parquet", false, "write Parquet files instead of FITS")
	rootCmd.PersistentFlags().BoolVar(&rootFlags.quicklook, "quicklook", false, "export per-bank .npy matrices next to each table file")
	rootCmd.PersistentFlags().BoolVar(&rootFlags.noJournal, "no-journal", false, "skip the ClickHouse run journal")
	rootCmd.PersistentFlags().StringVarP(&rootFlags.outputDir, "output", "o", "", "output directory (default from config)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	buildDate = strings.Replace(buildDate, ".", " ", -1) // workaround for Make problems
	filterbank.Build.Date = buildDate
	filterbank.Build.Githash = githash
	filterbank.Build.Gitdate = gitdate
	filterbank.Build.Summary = fmt.Sprintf("fbksweep version %s (git commit %s of %s)",
		filterbank.Build.Version, githash, gitdate)
	if host, err := os.Hostname(); err == nil {
		filterbank.Build.Host = host
	} else {
		filterbank.Build.Host = "host not detected"
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
