package filterbank

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// SimRig simulates the stepping hardware and the three converter banks as
// one coherent device: falling edges on the increment line advance an
// internal step counter, falling edges on the reset line zero it, and the
// simulated channel readings are a deterministic band-pass response over
// that counter. It backs tests and --sim runs with no hardware attached.
type SimRig struct {
	mu     sync.Mutex
	cfg    LineConfig
	step   int // increment pulses since the last reset
	levels map[int]Level

	// SwitchCode is the state code presented on the spare channels.
	SwitchCode int
	// VoltsSample is returned for the system-voltage channel.
	VoltsSample Sample
	// FailReads makes the next N ReadChannels calls fail, for testing the
	// per-row error policy.
	FailReads int

	pulseLog []LineFunc
}

// Typical raw levels for the simulated response.
const (
	simPedestal  = 120000
	simPeak      = 2400000
	simHighLevel = 40000 // comfortably above the switch threshold
)

// NewSimRig creates a simulated rig with all lines idle HIGH.
func NewSimRig(cfg LineConfig) *SimRig {
	return &SimRig{
		cfg:         cfg,
		levels:      make(map[int]Level),
		VoltsSample: 512000000, // about 1.2 V of a 5 V full scale
	}
}

// SetLine implements DigitalIO. Falling edges on the increment and reset
// lines drive the simulated synthesizer.
func (r *SimRig) SetLine(line int, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, seen := r.levels[line]
	r.levels[line] = level
	if level != Low || (seen && prev == Low) {
		return
	}
	switch line {
	case r.cfg.IncrementLine:
		r.step++
		r.pulseLog = append(r.pulseLog, LineIncrement)
	case r.cfg.ResetLine:
		r.step = 0
		r.pulseLog = append(r.pulseLog, LineReset)
	}
}

// Sleep implements DigitalIO. Simulated time is compressed: settle and
// pulse delays are honored but capped, so a sim sweep takes milliseconds
// per row while the producer/consumer pacing still resembles the rig's.
func (r *SimRig) Sleep(d time.Duration) {
	if d > time.Millisecond {
		d = time.Millisecond
	}
	if d > 0 {
		time.Sleep(d)
	}
}

// Step returns the current simulated step counter.
func (r *SimRig) Step() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.step
}

// Pulses returns the log of falling edges seen so far.
func (r *SimRig) Pulses() []LineFunc {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LineFunc, len(r.pulseLog))
	copy(out, r.pulseLog)
	return out
}

// ReadChannels implements Converter with a deterministic response: each
// channel is a Gaussian passband over the step counter, its center spread
// across the band by channel and bank so every filter peaks somewhere.
func (r *SimRig) ReadChannels(device int, channels []int) ([]Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailReads > 0 {
		r.FailReads--
		return nil, fmt.Errorf("simulated read failure on device %d", device)
	}
	out := make([]Sample, len(channels))
	for i, ch := range channels {
		out[i] = r.response(device, ch)
	}
	return out, nil
}

// ReadChannel implements Converter for the spare channels: the switch-state
// bits and the system-voltage channel.
func (r *SimRig) ReadChannel(device int, channel int) (Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channel >= 10 {
		return r.VoltsSample, nil
	}
	if channel >= 7 {
		bit := channel - 7
		if r.SwitchCode&(1<<bit) != 0 {
			return simHighLevel, nil
		}
		return 0, nil
	}
	return r.response(device, channel), nil
}

func (r *SimRig) response(device, channel int) Sample {
	center := float64(8*channel + 3*device)
	x := float64(r.step) - center
	v := simPedestal + simPeak*math.Exp(-x*x/32.0)
	return Sample(v)
}
