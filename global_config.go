package filterbank

import (
	"log"
	"os"
	"time"
)

// BuildInfo can contain compile-time information about the build
type BuildInfo struct {
	Version string
	Githash string
	Gitdate string
	Date    string
	Summary string
	Host    string
}

// Build is a global holding compile-time information about the build
var Build = BuildInfo{
	Version: "0.4.1",
	Githash: "no git hash computed",
	Date:    "no build date computed",
}

// StartTime is a global holding the time init() was run
var StartTime time.Time

// ProblemLogger logs warnings and errors. The main program points it at a
// rotating log file; until then it goes to stderr.
var ProblemLogger *log.Logger

// UpdateLogger logs status lines for the major pipeline transitions
// (buffer full, write start/end, abort observed).
var UpdateLogger *log.Logger

func init() {
	StartTime = time.Now()

	// The fbksweep main program will override these, but at least initialize
	// with sensible values.
	ProblemLogger = log.New(os.Stderr, "", log.LstdFlags)
	UpdateLogger = log.New(os.Stdout, "", log.LstdFlags)
}
