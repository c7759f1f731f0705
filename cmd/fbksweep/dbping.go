package main

import (
	"github.com/spf13/cobra"

	"github.com/alhosani-abdulla/highz-filterbank/internal/sweepdb"
)

var dbpingCmd = &cobra.Command{
	Use:   "dbping",
	Short: "check that the ClickHouse run journal is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweepdb.PingServer()
	},
}

func init() {
	rootCmd.AddCommand(dbpingCmd)
}
