//go:build linux

// Package gpioline drives the synthesizer control lines through the
// kernel character-device GPIO interface on the rig's Raspberry Pi.
package gpioline

import (
	"fmt"
	"time"

	"github.com/warthog618/gpiod"

	"github.com/alhosani-abdulla/highz-filterbank"
)

// Lines implements filterbank.DigitalIO over requested output lines.
// All requested lines start HIGH, the idle state of the control bus.
type Lines struct {
	chip  *gpiod.Chip
	lines map[int]*gpiod.Line
}

// Open requests the given line offsets as outputs on the named chip
// (usually "gpiochip0"). The request is exclusive: a second process
// holding any of the lines makes Open fail, which is the safe outcome.
func Open(chipName string, offsets ...int) (*Lines, error) {
	chip, err := gpiod.NewChip(chipName, gpiod.WithConsumer("fbksweep"))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", chipName, err)
	}
	l := &Lines{chip: chip, lines: make(map[int]*gpiod.Line, len(offsets))}
	for _, off := range offsets {
		line, err := chip.RequestLine(off, gpiod.AsOutput(1))
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("request line %d: %w", off, err)
		}
		l.lines[off] = line
	}
	return l, nil
}

// SetLine implements filterbank.DigitalIO. A set failure after a
// successful Open means the kernel revoked the line; it is logged and the
// sweep carries on, matching the rig's tolerance for a flaky pin.
func (l *Lines) SetLine(line int, level filterbank.Level) {
	handle, ok := l.lines[line]
	if !ok {
		filterbank.ProblemLogger.Printf("gpio line %d was never requested", line)
		return
	}
	v := 0
	if level == filterbank.High {
		v = 1
	}
	if err := handle.SetValue(v); err != nil {
		filterbank.ProblemLogger.Printf("gpio line %d set %d: %v", line, v, err)
	}
}

// Sleep implements filterbank.DigitalIO with real wall time.
func (l *Lines) Sleep(d time.Duration) { time.Sleep(d) }

// Close releases every requested line and the chip handle.
func (l *Lines) Close() error {
	for _, line := range l.lines {
		line.Close()
	}
	return l.chip.Close()
}
