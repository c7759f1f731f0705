package filterbank

import (
	"fmt"
	"math"
	"time"
)

// SweepConfig parameterizes the stepping machine. The three rig variants
// (plain band sweep, band sweep nested in a power-level list, unbounded
// continuous sweep) are all configurations of the same machine:
//
//   - PowerLevels empty, Bands=1: one pass over the band, then done.
//   - PowerLevels set: one band pass per power level, outer loop over levels.
//   - PowerLevels empty, Bands=0: wrap forever (continuous acquisition).
type SweepConfig struct {
	FreqMin  float64 // band lower bound, MHz
	FreqMax  float64 // band upper bound, MHz (inclusive last step)
	FreqStep float64 // step size, MHz

	PowerLevels []int         // optional outer axis, signed dBm (e.g. +5, -4)
	Bands       int           // band passes when PowerLevels is empty; 0 = unlimited
	LevelSettle time.Duration // extra LO stabilization time after a power change

	DefaultState string // per-row state label when no power level applies
}

// Validate checks the band parameters. Called before any hardware is touched.
func (c SweepConfig) Validate() error {
	if c.FreqStep <= 0 {
		return fmt.Errorf("sweep step %g MHz, must be positive", c.FreqStep)
	}
	if c.FreqMax <= c.FreqMin {
		return fmt.Errorf("sweep band [%g, %g] MHz is empty", c.FreqMin, c.FreqMax)
	}
	if c.Bands < 0 {
		return fmt.Errorf("sweep band count %d, must be nonnegative", c.Bands)
	}
	return nil
}

// StepsPerBand returns the number of measurement points in one band pass,
// endpoints inclusive: (max-min)/step + 1.
func (c SweepConfig) StepsPerBand() int {
	return int(math.Round((c.FreqMax-c.FreqMin)/c.FreqStep)) + 1
}

// StepKind distinguishes the two transitions the stepping machine makes.
type StepKind int

// The machine advances within a band until the upper bound, then wraps back
// to the lower bound (and on to the next power level, if one is configured).
const (
	StepAdvance StepKind = iota
	StepWrap
)

func (k StepKind) String() string {
	if k == StepWrap {
		return "wrap"
	}
	return "advance"
}

// Pulse is one LOW-then-HIGH transition instruction for a logical control
// line. The controller emits instructions; the acquirer executes them
// against DigitalIO with the configured widths.
type Pulse struct {
	Func LineFunc
}

// StepResult reports one Advance transition: which kind it was, the pulses
// the caller must issue, and the now-current sweep position for labeling.
type StepResult struct {
	Kind      StepKind
	Pulses    []Pulse
	Frequency float64
	PowerDBM  int
	HasPower  bool
	Done      bool // the whole configured sweep is exhausted
}

// SweepController owns the current oscillator frequency and power index.
// It is a pure state machine: it never touches hardware, and it is local to
// the acquirer goroutine, so it needs no locking.
type SweepController struct {
	cfg      SweepConfig
	freq     float64
	powerIdx int
	bands    int // completed band passes
	done     bool
}

// NewSweepController validates cfg and returns a controller positioned at
// the band start (first power level, if any).
func NewSweepController(cfg SweepConfig) (*SweepController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SweepController{cfg: cfg, freq: cfg.FreqMin}, nil
}

// Frequency returns the current LO frequency in MHz.
func (s *SweepController) Frequency() float64 { return s.freq }

// PowerDBM returns the current power level, if the sweep has a power axis.
func (s *SweepController) PowerDBM() (int, bool) {
	if len(s.cfg.PowerLevels) == 0 {
		return 0, false
	}
	return s.cfg.PowerLevels[s.powerIdx], true
}

// Done reports whether the configured sweep is exhausted.
func (s *SweepController) Done() bool { return s.done }

// FrequencyLabel formats the current frequency the way the table expects.
func (s *SweepController) FrequencyLabel() string {
	return fmt.Sprintf("%.1f", s.freq)
}

// StateLabel returns the per-row state text: the signed power level on
// power sweeps, otherwise the configured default.
func (s *SweepController) StateLabel() string {
	if p, ok := s.PowerDBM(); ok {
		return fmt.Sprintf("%+d", p)
	}
	return s.cfg.DefaultState
}

// Advance makes one transition. Within a band it emits an increment pulse
// and raises the frequency by one step; at the band edge it emits a reset
// pulse and wraps to the lower bound, advancing the power axis when one is
// configured. The band-edge comparison uses a half-step guard so that
// floating-point accumulation over hundreds of steps cannot overshoot.
func (s *SweepController) Advance() StepResult {
	if s.done {
		return StepResult{Kind: StepWrap, Frequency: s.freq, Done: true}
	}

	halfStep := s.cfg.FreqStep / 2
	if s.freq < s.cfg.FreqMax-halfStep {
		s.freq += s.cfg.FreqStep
		r := StepResult{
			Kind:      StepAdvance,
			Pulses:    []Pulse{{Func: LineIncrement}},
			Frequency: s.freq,
		}
		r.PowerDBM, r.HasPower = s.PowerDBM()
		return r
	}

	// Band edge: wrap to the lower bound.
	s.freq = s.cfg.FreqMin
	s.bands++
	r := StepResult{
		Kind:      StepWrap,
		Pulses:    []Pulse{{Func: LineReset}},
		Frequency: s.freq,
	}
	if n := len(s.cfg.PowerLevels); n > 0 {
		s.powerIdx++
		if s.powerIdx >= n {
			s.powerIdx = n - 1
			s.done = true
		}
	} else if s.cfg.Bands > 0 && s.bands >= s.cfg.Bands {
		s.done = true
	}
	r.PowerDBM, r.HasPower = s.PowerDBM()
	r.Done = s.done
	return r
}
