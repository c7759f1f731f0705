//go:build !linux

// Package gpioline drives the synthesizer control lines through the
// kernel character-device GPIO interface on the rig's Raspberry Pi.
// This stub keeps non-linux builds compiling; runs there use --sim.
package gpioline

import (
	"fmt"
	"time"

	"github.com/alhosani-abdulla/highz-filterbank"
)

// Lines implements filterbank.DigitalIO. It cannot be opened off linux.
type Lines struct{}

// Open always fails: the character-device GPIO interface is linux-only.
func Open(chipName string, offsets ...int) (*Lines, error) {
	return nil, fmt.Errorf("gpio lines need linux; use the simulated rig instead")
}

func (l *Lines) SetLine(line int, level filterbank.Level) {}

func (l *Lines) Sleep(d time.Duration) { time.Sleep(d) }

func (l *Lines) Close() error { return nil }
