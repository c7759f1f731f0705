package filterbank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoltsFromSample(t *testing.T) {
	assert.InDelta(t, 0.0, VoltsFromSample(0), 1e-9)
	assert.InDelta(t, 2.5, VoltsFromSample(1<<30), 1e-9)
	assert.InDelta(t, 1.192, VoltsFromSample(512000000), 1e-3)
	// Top bit set: the two's-complement half folds back below full scale.
	assert.InDelta(t, 5.0, VoltsFromSample(1<<31), 1e-9)
	assert.InDelta(t, 2.5, VoltsFromSample(3<<30), 1e-9)
}

func TestReadSwitchState(t *testing.T) {
	cfg := &Config{Sweep: SweepConfig{FreqMin: 900, FreqMax: 960, FreqStep: 0.2, Bands: 1}}
	cfg.ApplyDefaults()
	cfg.Switch = SwitchConfig{
		Enabled:   true,
		Device:    12,
		Channels:  []int{7, 8, 9},
		Threshold: 3,
	}
	rig := NewSimRig(cfg.Lines)
	a := &Acquirer{cfg: cfg, conv: rig}

	for _, code := range []int{0, 1, 2, 5, 7} {
		rig.SwitchCode = code
		got, err := a.readSwitchState()
		require.NoError(t, err)
		assert.Equal(t, code, got)
	}
}
