package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/viper"

	"github.com/alhosani-abdulla/highz-filterbank"
	"github.com/alhosani-abdulla/highz-filterbank/internal/fitstable"
	"github.com/alhosani-abdulla/highz-filterbank/internal/gpioline"
	"github.com/alhosani-abdulla/highz-filterbank/internal/iioconv"
	"github.com/alhosani-abdulla/highz-filterbank/internal/pqtable"
	"github.com/alhosani-abdulla/highz-filterbank/internal/sweepdb"
)

// baseConfig assembles a Config from the viper settings and the root
// flags. Subcommands fill in the sweep variant before validation.
func baseConfig() *filterbank.Config {
	cfg := &filterbank.Config{
		OutputDir: viper.GetString("output_dir"),
		Channels:  viper.GetIntSlice("channels"),
		Quicklook: rootFlags.quicklook,
		Sweep: filterbank.SweepConfig{
			FreqMin:      viper.GetFloat64("freq_min_mhz"),
			FreqMax:      viper.GetFloat64("freq_max_mhz"),
			FreqStep:     viper.GetFloat64("freq_step_mhz"),
			LevelSettle:  viper.GetDuration("level_settle"),
			DefaultState: "GPIOS_NOT_SET",
		},
		Lines: filterbank.LineConfig{
			IncrementLine:   viper.GetInt("increment_line"),
			ResetLine:       viper.GetInt("reset_line"),
			PowerLine:       viper.GetInt("power_line"),
			PulseWidth:      viper.GetDuration("pulse_width"),
			ResetPulseWidth: viper.GetDuration("reset_pulse_width"),
			SettleTime:      viper.GetDuration("settle_time"),
			PowerUpDelay:    viper.GetDuration("power_up_delay"),
		},
	}
	if devs := viper.GetIntSlice("devices"); len(devs) == filterbank.NumBanks {
		copy(cfg.Devices[:], devs)
	}
	if rootFlags.outputDir != "" {
		cfg.OutputDir = rootFlags.outputDir
	}
	if viper.GetBool("read_sysvolts") {
		cfg.Volts = filterbank.VoltsConfig{
			Enabled: true,
			Device:  viper.GetInt("volts_device"),
			Channel: viper.GetInt("volts_channel"),
		}
	}
	return cfg
}

func switchConfig() filterbank.SwitchConfig {
	return filterbank.SwitchConfig{
		Enabled:   true,
		Device:    viper.GetInt("switch_device"),
		Channels:  viper.GetIntSlice("switch_channels"),
		Threshold: filterbank.Sample(viper.GetUint32("switch_threshold")),
		StopState: viper.GetInt("switch_stop_state"),
	}
}

// openHardware binds the converter and digital lines: the simulated rig
// under --sim, otherwise the GPIO character device plus the iio sysfs
// converters. The returned cleanup releases whatever was opened.
func openHardware(cfg *filterbank.Config) (filterbank.Converter, filterbank.DigitalIO, func(), error) {
	if rootFlags.sim {
		rig := filterbank.NewSimRig(cfg.Lines)
		return rig, rig, func() {}, nil
	}
	lines, err := gpioline.Open(viper.GetString("gpio_chip"),
		cfg.Lines.IncrementLine, cfg.Lines.ResetLine, cfg.Lines.PowerLine)
	if err != nil {
		return nil, nil, nil, err
	}
	conv := iioconv.New(viper.GetString("iio_root"))
	return conv, lines, func() { lines.Close() }, nil
}

func tableWriter() filterbank.TableWriter {
	if rootFlags.parquet {
		return pqtable.NewWriter()
	}
	return fitstable.NewWriter()
}

// runSweep validates cfg, binds the hardware, starts the journal, and
// runs the pipeline to completion. A first SIGINT/SIGTERM requests a
// cooperative stop; a second one kills the process.
func runSweep(cfg *filterbank.Config) error {
	if _, _, err := startLogging(); err != nil {
		return err
	}
	filterbank.UpdateLogger.Printf("%s", filterbank.Build.Summary)

	conv, dio, cleanup, err := openHardware(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := filterbank.NewPipeline(cfg, conv, dio, tableWriter())
	if err != nil {
		return err
	}

	abort := make(chan struct{})
	if viper.GetBool("journal") && !rootFlags.noJournal {
		run := &sweepdb.RunMessage{
			ID:        ulid.Make().String(),
			Hostname:  filterbank.Build.Host,
			Version:   filterbank.Build.Version,
			GoVersion: runtime.Version(),
			CPUs:      runtime.NumCPU(),
			Band: fmt.Sprintf("%g-%g MHz / %g",
				cfg.Sweep.FreqMin, cfg.Sweep.FreqMax, cfg.Sweep.FreqStep),
			Start: time.Now(),
		}
		db := sweepdb.Start(run, abort)
		p.SetRecorder(db)
		defer db.Wait()
	}
	defer close(abort)

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		<-signals
		filterbank.UpdateLogger.Printf("signal received; stopping at the next row")
		p.RequestStop()
		<-signals
		filterbank.ProblemLogger.Printf("second signal received; hard shutdown")
		os.Exit(1)
	}()

	return p.Run()
}
