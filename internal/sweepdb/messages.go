package sweepdb

import "time"

// The composite types used for messages to the ClickHouse journal.

// RunMessage is the information for the sweepruns table: one row per
// invocation of the acquisition program.
type RunMessage struct {
	ID        string
	Hostname  string
	Version   string
	GoVersion string
	CPUs      int
	Band      string // human-readable sweep description, e.g. "900-960 MHz / 0.2"
	Start     time.Time
	End       time.Time
}

// FileMessage is the information for the sweepfiles table: one row per
// persisted table file.
type FileMessage struct {
	RunID    string
	Path     string
	Rows     int
	PowerDBM int
	HasPower bool
	Start    time.Time
	End      time.Time
}
