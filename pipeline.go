package filterbank

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Config is the complete description of one acquisition run. Fill in the
// sweep parameters and collaborators, call ApplyDefaults, then hand it to
// NewPipeline, which validates everything before any hardware is touched.
type Config struct {
	NRows     int    // rows per sweep buffer; 0 means one full band pass
	Channels  []int  // converter channels sampled per bank, in column order
	Devices   [NumBanks]int
	OutputDir string
	RunID     string // journal key; generated by the caller
	Quicklook bool   // export per-bank .npy matrices next to each table

	Sweep  SweepConfig
	Lines  LineConfig
	Schema TableSchema
	Switch SwitchConfig
	Volts  VoltsConfig
}

// ApplyDefaults fills zero values with the deployed rig's settings.
func (c *Config) ApplyDefaults() {
	if len(c.Channels) == 0 {
		c.Channels = []int{0, 1, 2, 3, 4, 5, 6}
	}
	if c.Devices == [NumBanks]int{} {
		c.Devices = [NumBanks]int{12, 22, 23}
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Lines.IncrementLine == 0 && c.Lines.ResetLine == 0 && c.Lines.PowerLine == 0 {
		c.Lines.IncrementLine = 13
		c.Lines.ResetLine = 19
		c.Lines.PowerLine = 26
	}
	if c.Lines.PulseWidth == 0 {
		c.Lines.PulseWidth = 3 * time.Millisecond
	}
	if c.Lines.ResetPulseWidth == 0 {
		c.Lines.ResetPulseWidth = 10 * time.Millisecond
	}
	if c.Lines.SettleTime == 0 {
		c.Lines.SettleTime = 50 * time.Millisecond
	}
	if c.Lines.PowerUpDelay == 0 {
		c.Lines.PowerUpDelay = 10 * time.Millisecond
	}
	if c.Sweep.LevelSettle == 0 {
		c.Sweep.LevelSettle = 2 * time.Second
	}
	if c.Sweep.DefaultState == "" {
		c.Sweep.DefaultState = "GPIOS_NOT_SET"
	}
	if c.NRows == 0 && c.Sweep.Validate() == nil {
		c.NRows = c.Sweep.StepsPerBand()
	}
	if c.Schema.ChannelCount == 0 {
		c.Schema = DefaultSchema(len(c.Channels))
		if len(c.Sweep.PowerLevels) > 0 {
			c.Schema.StateColumn = "POWER_DBM"
			c.Schema.StateUnit = "dBm"
		}
	}
}

// Validate checks the whole run description. It is called before any
// hardware is initialized, so a bad command line can never pulse a line.
func (c *Config) Validate() error {
	if err := c.Sweep.Validate(); err != nil {
		return err
	}
	if err := c.Lines.Validate(); err != nil {
		return err
	}
	if err := c.Schema.Validate(); err != nil {
		return err
	}
	if c.NRows <= 0 {
		return fmt.Errorf("rows per buffer %d, must be positive", c.NRows)
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("no converter channels configured")
	}
	if c.Schema.ChannelCount != len(c.Channels) {
		return fmt.Errorf("schema channel count %d does not match %d configured channels",
			c.Schema.ChannelCount, len(c.Channels))
	}
	if len(c.Sweep.PowerLevels) > 0 && c.NRows != c.Sweep.StepsPerBand() {
		return fmt.Errorf("power sweep needs one file per band: rows per buffer %d, band has %d steps",
			c.NRows, c.Sweep.StepsPerBand())
	}
	if c.Switch.Enabled && len(c.Switch.Channels) == 0 {
		return fmt.Errorf("switch-state decoding enabled with no channels")
	}
	return nil
}

// Pipeline owns the producer/consumer pair and the shared state between
// them. Construct with NewPipeline, then call Run once.
type Pipeline struct {
	cfg      *Config
	dio      DigitalIO
	acquirer *Acquirer
	writer   *Writer
	abort    *AbortSignal
	wg       sync.WaitGroup
}

// NewPipeline validates cfg and assembles the two halves around a fresh
// buffer pool and handoff channel. No hardware is touched here.
func NewPipeline(cfg *Config, conv Converter, dio DigitalIO, tw TableWriter) (*Pipeline, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctrl, err := NewSweepController(cfg.Sweep)
	if err != nil {
		return nil, err
	}
	pool, err := NewBufferPool(cfg.NRows, len(cfg.Channels))
	if err != nil {
		return nil, err
	}
	handoff := NewHandoff()
	abort := &AbortSignal{}
	return &Pipeline{
		cfg:      cfg,
		dio:      dio,
		acquirer: NewAcquirer(cfg, conv, dio, ctrl, pool, handoff, abort),
		writer:   NewWriter(cfg, tw, pool, handoff, abort),
		abort:    abort,
	}, nil
}

// SetRecorder installs an optional per-file journal hook. Call before Run.
func (p *Pipeline) SetRecorder(r FileRecorder) { p.writer.SetRecorder(r) }

// RequestStop asks the pipeline to wind down at the next row boundary.
// Safe to call from any goroutine, including a signal handler's.
func (p *Pipeline) RequestStop() { p.abort.Set() }

// Run initializes the control lines, runs the producer on the calling
// goroutine and the consumer on its own, and returns once both have
// finished and the lines are back in their idle state. In-flight rows are
// finished and any partial buffer is persisted before Run returns.
func (p *Pipeline) Run() error {
	if err := os.MkdirAll(p.cfg.OutputDir, 0775); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	UpdateLogger.Printf("sweep start: band [%g, %g] MHz step %g, %d rows x %d channels per file, output %s",
		p.cfg.Sweep.FreqMin, p.cfg.Sweep.FreqMax, p.cfg.Sweep.FreqStep,
		p.cfg.NRows, len(p.cfg.Channels), p.cfg.OutputDir)
	start := time.Now()

	InitLines(p.dio, p.cfg.Lines)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.writer.Run()
	}()
	p.acquirer.Run()
	p.wg.Wait()

	ShutdownLines(p.dio, p.cfg.Lines)

	UpdateLogger.Printf("sweep end: %d files in %v", p.writer.FilesWritten(),
		time.Since(start).Round(time.Second))
	return nil
}
