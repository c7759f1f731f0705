package filterbank

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepsPerBand(t *testing.T) {
	cfg := SweepConfig{FreqMin: 900.0, FreqMax: 960.0, FreqStep: 0.2}
	assert.Equal(t, 301, cfg.StepsPerBand())

	cfg = SweepConfig{FreqMin: 900.0, FreqMax: 901.0, FreqStep: 0.2}
	assert.Equal(t, 6, cfg.StepsPerBand())
}

func TestSweepConfigValidate(t *testing.T) {
	good := SweepConfig{FreqMin: 900, FreqMax: 960, FreqStep: 0.2, Bands: 1}
	require.NoError(t, good.Validate())

	bad := good
	bad.FreqStep = 0
	assert.Error(t, bad.Validate())

	bad = good
	bad.FreqMax = bad.FreqMin
	assert.Error(t, bad.Validate())

	bad = good
	bad.Bands = -1
	assert.Error(t, bad.Validate())
}

// The frequency a row is labeled with must be the frequency at sampling
// time: the label is read before Advance, so row 0 is the band start.
func TestSingleBandSweep(t *testing.T) {
	cfg := SweepConfig{FreqMin: 900.0, FreqMax: 901.0, FreqStep: 0.2, Bands: 1}
	ctrl, err := NewSweepController(cfg)
	require.NoError(t, err)

	var labels []string
	var wraps, increments int
	for !ctrl.Done() {
		labels = append(labels, ctrl.FrequencyLabel())
		res := ctrl.Advance()
		require.Len(t, res.Pulses, 1)
		switch res.Pulses[0].Func {
		case LineIncrement:
			increments++
			assert.Equal(t, StepAdvance, res.Kind)
		case LineReset:
			wraps++
			assert.Equal(t, StepWrap, res.Kind)
		default:
			t.Fatalf("unexpected pulse %v", res.Pulses[0].Func)
		}
	}

	want := []string{"900.0", "900.2", "900.4", "900.6", "900.8", "901.0"}
	assert.Equal(t, want, labels)
	assert.Equal(t, "900.8", labels[4])
	assert.Equal(t, 5, increments)
	assert.Equal(t, 1, wraps)
	assert.InDelta(t, 900.0, ctrl.Frequency(), 1e-9) // reset to band start
}

// Accumulated floating-point error over hundreds of steps must never add
// or drop a step: the count of increments before the wrap is always
// StepsPerBand-1, whatever the band parameters.
func TestSweepStepCountStable(t *testing.T) {
	rng := rand.New(rand.NewSource(2213))
	for trial := 0; trial < 50; trial++ {
		min := 100 + 1800*rng.Float64()
		step := 0.05 + 0.5*rng.Float64()
		n := 2 + rng.Intn(800)
		cfg := SweepConfig{
			FreqMin:  min,
			FreqMax:  min + float64(n-1)*step,
			FreqStep: step,
			Bands:    1,
		}
		require.NoError(t, cfg.Validate())
		require.Equal(t, n, cfg.StepsPerBand())

		ctrl, err := NewSweepController(cfg)
		require.NoError(t, err)
		increments := 0
		for !ctrl.Done() {
			res := ctrl.Advance()
			if res.Kind == StepAdvance {
				increments++
			}
			require.Less(t, increments, n, "band [%g,%g] step %g overshot", cfg.FreqMin, cfg.FreqMax, step)
		}
		assert.Equal(t, n-1, increments, "band [%g,%g] step %g", cfg.FreqMin, cfg.FreqMax, step)
	}
}

func TestDualPowerSweep(t *testing.T) {
	cfg := SweepConfig{
		FreqMin:     900.0,
		FreqMax:     900.4,
		FreqStep:    0.2,
		PowerLevels: []int{5, -4},
	}
	ctrl, err := NewSweepController(cfg)
	require.NoError(t, err)

	var states []string
	for !ctrl.Done() {
		states = append(states, ctrl.StateLabel())
		ctrl.Advance()
	}
	assert.Equal(t, []string{"+5", "+5", "+5", "-4", "-4", "-4"}, states)

	p, ok := ctrl.PowerDBM()
	assert.True(t, ok)
	assert.Equal(t, -4, p)
}

func TestContinuousSweepNeverDone(t *testing.T) {
	cfg := SweepConfig{FreqMin: 900.0, FreqMax: 901.0, FreqStep: 0.2, Bands: 0}
	ctrl, err := NewSweepController(cfg)
	require.NoError(t, err)

	wraps := 0
	for i := 0; i < 100; i++ {
		require.False(t, ctrl.Done())
		if ctrl.Advance().Kind == StepWrap {
			wraps++
		}
	}
	assert.Equal(t, 100/6, wraps)
}

func TestStateLabelDefault(t *testing.T) {
	cfg := SweepConfig{FreqMin: 900, FreqMax: 901, FreqStep: 0.2, Bands: 1, DefaultState: "GPIOS_NOT_SET"}
	ctrl, err := NewSweepController(cfg)
	require.NoError(t, err)
	assert.Equal(t, "GPIOS_NOT_SET", ctrl.StateLabel())
	_, ok := ctrl.PowerDBM()
	assert.False(t, ok)
}
