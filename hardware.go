package filterbank

import (
	"fmt"
	"time"
)

// Level is a digital output line level.
type Level int

// Lines idle High; pulses are Low-then-High transitions.
const (
	Low Level = iota
	High
)

// LineFunc names the three logical control lines of the stepping hardware.
type LineFunc int

// The synthesizer control lines: increment steps the frequency, reset
// returns it to the band start, power gates the LO board supply.
const (
	LineIncrement LineFunc = iota
	LineReset
	LinePower
)

func (f LineFunc) String() string {
	switch f {
	case LineIncrement:
		return "increment"
	case LineReset:
		return "reset"
	case LinePower:
		return "power"
	}
	return fmt.Sprintf("LineFunc(%d)", int(f))
}

// Converter is the analog front end collaborator. Calls block for up to tens
// of milliseconds while the ADC settles and shifts data out.
type Converter interface {
	// ReadChannels reads the listed channels of one converter bank, in order.
	ReadChannels(device int, channels []int) ([]Sample, error)
	// ReadChannel reads a single channel of one converter bank.
	ReadChannel(device int, channel int) (Sample, error)
}

// DigitalIO drives the control-plane output lines. Implementations are
// assumed not to fail once initialized, matching the rig hardware.
type DigitalIO interface {
	SetLine(line int, level Level)
	Sleep(d time.Duration)
}

// LineConfig maps the logical control lines to physical line offsets and
// carries the pulse timing contract. The widths are load-bearing: too short
// a LOW pulse leaves the synthesizer state ambiguous, so they are
// configuration, never hardcoded at call sites.
type LineConfig struct {
	IncrementLine int // e.g. BCM 13
	ResetLine     int // e.g. BCM 19
	PowerLine     int // e.g. BCM 26

	PulseWidth      time.Duration // LOW width of an increment pulse (3 ms)
	ResetPulseWidth time.Duration // LOW width of a reset pulse (10 ms)
	SettleTime      time.Duration // delay after any pulse before sampling
	PowerUpDelay    time.Duration // LO board stabilization after power-on
}

// Validate rejects timing that the hardware contract cannot honor.
func (c LineConfig) Validate() error {
	if c.PulseWidth <= 0 {
		return fmt.Errorf("increment pulse width %v, must be positive", c.PulseWidth)
	}
	if c.ResetPulseWidth <= 0 {
		return fmt.Errorf("reset pulse width %v, must be positive", c.ResetPulseWidth)
	}
	if c.SettleTime < 0 {
		return fmt.Errorf("settle time %v, must be nonnegative", c.SettleTime)
	}
	return nil
}

// Offset returns the physical line offset for a logical line.
func (c LineConfig) Offset(f LineFunc) int {
	switch f {
	case LineIncrement:
		return c.IncrementLine
	case LineReset:
		return c.ResetLine
	case LinePower:
		return c.PowerLine
	}
	panic(fmt.Sprintf("LineConfig.Offset(%v): no such line", f))
}

// width returns the LOW width for a pulse on the given logical line.
func (c LineConfig) width(f LineFunc) time.Duration {
	if f == LineReset {
		return c.ResetPulseWidth
	}
	return c.PulseWidth
}

// ExecutePulse issues one LOW-then-HIGH transition with the configured
// width, holding HIGH for the same width so back-to-back pulses stay
// distinguishable at the far end.
func ExecutePulse(dio DigitalIO, cfg LineConfig, p Pulse) {
	line := cfg.Offset(p.Func)
	dio.SetLine(line, Low)
	dio.Sleep(cfg.width(p.Func))
	dio.SetLine(line, High)
	dio.Sleep(cfg.width(p.Func))
}

// InitLines drives all control lines to their idle state (HIGH, LO power
// off), issues a reset pulse so the synthesizer starts from the band lower
// bound, then enables the LO supply and waits for it to stabilize.
func InitLines(dio DigitalIO, cfg LineConfig) {
	dio.SetLine(cfg.IncrementLine, High)
	dio.SetLine(cfg.ResetLine, High)
	dio.SetLine(cfg.PowerLine, Low)
	dio.Sleep(cfg.SettleTime)

	ExecutePulse(dio, cfg, Pulse{Func: LineReset})

	dio.SetLine(cfg.PowerLine, High)
	dio.Sleep(cfg.PowerUpDelay)
}

// ShutdownLines resets the synthesizer to its initial state and powers the
// LO board down. Called on every exit path after acquisition stops.
func ShutdownLines(dio DigitalIO, cfg LineConfig) {
	ExecutePulse(dio, cfg, Pulse{Func: LineReset})
	dio.SetLine(cfg.PowerLine, Low)
	dio.Sleep(cfg.SettleTime)
}
