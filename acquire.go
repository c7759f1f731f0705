package filterbank

import (
	"fmt"
	"strconv"
	"time"
)

// SwitchConfig describes the digitally-read state code: which spare
// channels carry its bits and which code value forces early termination.
type SwitchConfig struct {
	Enabled   bool
	Device    int    // converter bank whose spare channels carry the code
	Channels  []int  // code bits, least significant first (e.g. 7, 8, 9)
	Threshold Sample // readings at or above this count as a 1 bit
	StopState int    // sentinel code; observing it stops the whole sweep
}

// VoltsConfig describes the once-per-sweep system voltage capture.
type VoltsConfig struct {
	Enabled bool
	Device  int
	Channel int
}

// VoltsFromSample converts a raw reading to volts on the 5 V bipolar scale
// the front end uses: the top bit folds the two's-complement half back.
func VoltsFromSample(s Sample) float64 {
	const fullScale = 5.0
	const half = float64(1 << 31)
	if s>>31 == 1 {
		return 2*fullScale - float64(s)/half*fullScale
	}
	return float64(s) / half * fullScale
}

// Acquirer is the producer: it drives the SweepController, samples the
// converter banks, and fills rows into whichever pooled buffer it owns.
// It runs on the caller's goroutine; everything here except the Handoff
// and AbortSignal is local to that goroutine.
type Acquirer struct {
	cfg     *Config
	conv    Converter
	dio     DigitalIO
	ctrl    *SweepController
	pool    *BufferPool
	handoff *Handoff
	abort   *AbortSignal

	active     BufferID
	voltsLabel string
	rowsTotal  int
	handoffs   int
}

// NewAcquirer wires a producer over an already-validated Config.
func NewAcquirer(cfg *Config, conv Converter, dio DigitalIO, ctrl *SweepController,
	pool *BufferPool, handoff *Handoff, abort *AbortSignal) *Acquirer {
	return &Acquirer{
		cfg:     cfg,
		conv:    conv,
		dio:     dio,
		ctrl:    ctrl,
		pool:    pool,
		handoff: handoff,
		abort:   abort,
		active:  BufA,
	}
}

// Run produces rows until the sweep is exhausted or AbortSignal is set.
// On exit it publishes any partially-filled buffer, closes the handoff so
// the writer can terminate, and returns. It never blocks on the writer.
func (a *Acquirer) Run() {
	defer a.handoff.Close()

	for !a.ctrl.Done() {
		if a.abort.IsSet() {
			UpdateLogger.Printf("acquirer: abort observed; stopping after %d rows", a.rowsTotal)
			break
		}
		buf := a.pool.Buffer(a.active)
		a.acquireRow(buf)
		if buf.Full() {
			a.publish(buf)
		}
	}

	if buf := a.pool.Buffer(a.active); buf.Count() > 0 {
		UpdateLogger.Printf("acquirer: final handoff of partially filled buffer %v (%d of %d rows)",
			a.active, buf.Count(), buf.Capacity())
		a.handoff.Publish(a.active)
	}
}

func (a *Acquirer) publish(buf *SweepBuffer) {
	UpdateLogger.Printf("buffer %v full (%d rows); handing off", a.active, buf.Count())
	a.handoff.Publish(a.active)
	a.handoffs++
	a.active = a.active.Other()
	// Taking ownership of the other buffer for refilling. Its previous
	// write has finished by now unless a sweep outran the disk, in which
	// case last-writer-wins, matching the deployed rig's behavior.
	a.pool.Buffer(a.active).Reset()
}

// acquireRow performs one measurement instant. A failed read or metadata
// error skips this row only: the controller is not advanced, nothing is
// stored, and the loop moves on. There are no retries; re-reading would
// desynchronize the frequency/row correspondence.
func (a *Acquirer) acquireRow(buf *SweepBuffer) {
	idx := buf.Count()

	if idx == 0 {
		a.startSweep(buf)
	}

	state := a.ctrl.StateLabel()
	if a.cfg.Switch.Enabled {
		code, err := a.readSwitchState()
		if err != nil {
			ProblemLogger.Printf("row %d: switch-state read failed, skipping row: %v", idx, err)
			return
		}
		if code == a.cfg.Switch.StopState {
			UpdateLogger.Printf("acquirer: sentinel state %d observed at row %d; terminating sweep", code, idx)
			a.abort.Set()
			return
		}
		state = strconv.Itoa(code)
	}

	stamp := time.Now().Format(TimestampLayout) + tableSuffix
	row := Row{
		Timestamp: stamp,
		State:     state,
		Frequency: a.ctrl.FrequencyLabel(),
		Filename:  stamp,
		Volts:     a.voltsLabel,
	}

	for k := 0; k < NumBanks; k++ {
		samples, err := a.conv.ReadChannels(a.cfg.Devices[k], a.cfg.Channels)
		if err != nil {
			ProblemLogger.Printf("row %d: bank %d (device %d) read failed, skipping row: %v",
				idx, k, a.cfg.Devices[k], err)
			return
		}
		if len(samples) != len(a.cfg.Channels) {
			ProblemLogger.Printf("row %d: bank %d returned %d samples, want %d; skipping row",
				idx, k, len(samples), len(a.cfg.Channels))
			return
		}
		row.Banks[k] = samples
	}

	res := a.ctrl.Advance()
	for _, p := range res.Pulses {
		ExecutePulse(a.dio, a.cfg.Lines, p)
	}
	a.dio.Sleep(a.cfg.Lines.SettleTime)
	if res.Kind == StepWrap && res.HasPower && !res.Done {
		// Next band runs at a new output power; let the LO stabilize.
		UpdateLogger.Printf("sweep wrapped; next band at %+d dBm", res.PowerDBM)
		a.dio.Sleep(a.cfg.Sweep.LevelSettle)
	}

	if err := buf.Append(&row); err != nil {
		ProblemLogger.Printf("row %d: %v", idx, err)
		return
	}
	a.rowsTotal++
}

// startSweep captures the sweep-scoped metadata before the first row.
func (a *Acquirer) startSweep(buf *SweepBuffer) {
	if p, ok := a.ctrl.PowerDBM(); ok {
		buf.SetPowerDBM(p)
	}
	a.voltsLabel = ""
	if !a.cfg.Volts.Enabled {
		return
	}
	s, err := a.conv.ReadChannel(a.cfg.Volts.Device, a.cfg.Volts.Channel)
	if err != nil {
		ProblemLogger.Printf("system voltage read failed; sweep proceeds without it: %v", err)
		return
	}
	v := VoltsFromSample(s)
	buf.SetSysVolts(v)
	a.voltsLabel = fmt.Sprintf("%.3f", v)
}

// readSwitchState reads the spare channels and assembles the state code,
// one bit per channel, least significant first.
func (a *Acquirer) readSwitchState() (int, error) {
	code := 0
	for bit, ch := range a.cfg.Switch.Channels {
		s, err := a.conv.ReadChannel(a.cfg.Switch.Device, ch)
		if err != nil {
			return 0, err
		}
		if s >= a.cfg.Switch.Threshold {
			code |= 1 << bit
		}
	}
	return code, nil
}
