package filterbank

import (
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		OutputDir: t.TempDir(),
		Sweep:     SweepConfig{FreqMin: 900.0, FreqMax: 901.0, FreqStep: 0.2, Bands: 1},
	}
	cfg.ApplyDefaults()
	return cfg
}

func textColumn(tbl *memTable, index int) []string {
	out := make([]string, len(tbl.text[index]))
	for i, s := range tbl.text[index] {
		out[i] = UnpadText(s)
	}
	return out
}

func TestPipelineSingleBand(t *testing.T) {
	cfg := simConfig(t)
	rig := NewSimRig(cfg.Lines)
	tw := &memTableWriter{}

	p, err := NewPipeline(cfg, rig, rig, tw)
	require.NoError(t, err)
	require.NoError(t, p.Run())

	written := tw.written()
	require.Len(t, written, 1)
	tbl := written[0]
	assert.Equal(t, 6*7, len(tbl.numeric[0]))
	assert.Equal(t, []string{"900.0", "900.2", "900.4", "900.6", "900.8", "901.0"},
		textColumn(tbl, 2))
	for _, s := range textColumn(tbl, 1) {
		assert.Equal(t, "GPIOS_NOT_SET", s)
	}
	assert.False(t, tbl.hasV, "no voltage configured, none recorded")

	// Init reset, five increments, band-edge reset, shutdown reset.
	pulses := rig.Pulses()
	require.Len(t, pulses, 8)
	assert.Equal(t, LineReset, pulses[0])
	assert.Equal(t, LineReset, pulses[6])
	assert.Equal(t, LineReset, pulses[7])
	for _, f := range pulses[1:6] {
		assert.Equal(t, LineIncrement, f)
	}
	assert.Equal(t, 0, rig.Step(), "synthesizer left at the band start")
}

func TestPipelineRecordsSystemVoltage(t *testing.T) {
	cfg := simConfig(t)
	cfg.Volts = VoltsConfig{Enabled: true, Device: 12, Channel: 10}
	rig := NewSimRig(cfg.Lines)
	tw := &memTableWriter{}

	p, err := NewPipeline(cfg, rig, rig, tw)
	require.NoError(t, err)
	require.NoError(t, p.Run())

	written := tw.written()
	require.Len(t, written, 1)
	assert.True(t, written[0].hasV)
	assert.InDelta(t, 1.192, written[0].volts, 1e-3)
}

func TestPipelineDualPower(t *testing.T) {
	cfg := &Config{
		OutputDir: t.TempDir(),
		Sweep:     SweepConfig{FreqMin: 900.0, FreqMax: 900.4, FreqStep: 0.2, PowerLevels: []int{5, -4}},
	}
	cfg.ApplyDefaults()
	require.Equal(t, 3, cfg.NRows)
	require.Equal(t, "POWER_DBM", cfg.Schema.StateColumn)

	rig := NewSimRig(cfg.Lines)
	tw := &memTableWriter{}
	p, err := NewPipeline(cfg, rig, rig, tw)
	require.NoError(t, err)
	require.NoError(t, p.Run())

	written := tw.written()
	require.Len(t, written, 2)
	assert.True(t, strings.HasSuffix(written[0].path, "_+5dBm.fits"), written[0].path)
	assert.True(t, strings.HasSuffix(written[1].path, "_-4dBm.fits"), written[1].path)
	assert.Equal(t, []string{"+5", "+5", "+5"}, textColumn(written[0], 1))
	assert.Equal(t, []string{"-4", "-4", "-4"}, textColumn(written[1], 1))
}

// A failed converter read skips the row without advancing the sweep, so
// the finished file still covers every frequency exactly once.
func TestPipelineRetriesRowAfterReadFailure(t *testing.T) {
	cfg := simConfig(t)
	rig := NewSimRig(cfg.Lines)
	rig.FailReads = 2
	tw := &memTableWriter{}

	p, err := NewPipeline(cfg, rig, rig, tw)
	require.NoError(t, err)
	require.NoError(t, p.Run())

	written := tw.written()
	require.Len(t, written, 1)
	assert.Equal(t, []string{"900.0", "900.2", "900.4", "900.6", "900.8", "901.0"},
		textColumn(written[0], 2))
}

func TestPipelineSentinelStopsBeforeFirstRow(t *testing.T) {
	cfg := simConfig(t)
	cfg.Switch = SwitchConfig{
		Enabled:   true,
		Device:    12,
		Channels:  []int{7, 8, 9},
		Threshold: 3,
		StopState: 2,
	}
	rig := NewSimRig(cfg.Lines)
	rig.SwitchCode = 2
	tw := &memTableWriter{}

	p, err := NewPipeline(cfg, rig, rig, tw)
	require.NoError(t, err)
	require.NoError(t, p.Run())

	assert.Empty(t, tw.written(), "sentinel before any row means nothing to persist")
}

// sentinelConv flips the simulated switch code to the sentinel after a
// fixed number of rows, exercising mid-sweep termination.
type sentinelConv struct {
	*SimRig
	afterRows int
	rowsSeen  int
	stop      int
}

func (c *sentinelConv) ReadChannel(device, channel int) (Sample, error) {
	if channel == 7 {
		c.rowsSeen++
		if c.rowsSeen > c.afterRows {
			c.SwitchCode = c.stop
		}
	}
	return c.SimRig.ReadChannel(device, channel)
}

func TestPipelineContinuousSentinelFlushesPartial(t *testing.T) {
	cfg := &Config{
		NRows:     4,
		OutputDir: t.TempDir(),
		Sweep:     SweepConfig{FreqMin: 900.0, FreqMax: 960.0, FreqStep: 0.2, Bands: 0},
		Switch: SwitchConfig{
			Enabled:   true,
			Device:    12,
			Channels:  []int{7, 8, 9},
			Threshold: 3,
			StopState: 2,
		},
	}
	cfg.ApplyDefaults()

	rig := NewSimRig(cfg.Lines)
	rig.SwitchCode = 5 // states 5 until the sentinel
	conv := &sentinelConv{SimRig: rig, afterRows: 10, stop: 2}
	tw := &memTableWriter{}

	p, err := NewPipeline(cfg, conv, rig, tw)
	require.NoError(t, err)
	require.NoError(t, p.Run())

	written := tw.written()
	require.Len(t, written, 3, "two full buffers plus the flushed partial: %s", spew.Sdump(written))
	assert.Len(t, written[0].numeric[0], 4*7)
	assert.Len(t, written[1].numeric[0], 4*7)
	assert.Len(t, written[2].numeric[0], 2*7, "rows before the sentinel survive")
	assert.Equal(t, []string{"5", "5"}, textColumn(written[2], 1))
}

func TestPipelineRequestStop(t *testing.T) {
	cfg := simConfig(t)
	rig := NewSimRig(cfg.Lines)
	tw := &memTableWriter{}

	p, err := NewPipeline(cfg, rig, rig, tw)
	require.NoError(t, err)
	p.RequestStop()
	require.NoError(t, p.Run())

	assert.Empty(t, tw.written())
	assert.Equal(t, 0, rig.Step())
}

func TestConfigValidation(t *testing.T) {
	cfg := simConfig(t)
	cfg.NRows = -1
	rig := NewSimRig(cfg.Lines)
	_, err := NewPipeline(cfg, rig, rig, &memTableWriter{})
	assert.Error(t, err)

	cfg = simConfig(t)
	cfg.Sweep.PowerLevels = []int{5}
	cfg.NRows = cfg.Sweep.StepsPerBand() + 1
	_, err = NewPipeline(cfg, rig, rig, &memTableWriter{})
	assert.Error(t, err, "power sweeps are one file per band")

	cfg = simConfig(t)
	cfg.Switch.Enabled = true
	_, err = NewPipeline(cfg, rig, rig, &memTableWriter{})
	assert.Error(t, err, "switch decoding needs channels")
}
