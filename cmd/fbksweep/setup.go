package main

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alhosani-abdulla/highz-filterbank"
)

// makeFileExist checks that dir/filename exists, and creates the directory
// and file if it doesn't.
func makeFileExist(dir, filename string) (string, error) {
	// Replace 1 instance of "$HOME" in the path with the actual home directory.
	if strings.Contains(dir, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = strings.Replace(dir, "$HOME", home, 1)
	}

	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		if err2 := os.MkdirAll(dir, 0775); err2 != nil {
			return "", err2
		}
	}

	fullname := path.Join(dir, filename)
	_, err := os.Stat(fullname)
	if os.IsNotExist(err) {
		f, err2 := os.OpenFile(fullname, os.O_WRONLY|os.O_CREATE, 0664)
		if err2 != nil {
			return "", err2
		}
		f.Close()
	}
	return fullname, nil
}

// setupViper sets up the viper configuration manager: says where to find
// config files and the filename and suffix. Sets the rig defaults.
func setupViper() error {
	viper.SetDefault("increment_line", 13)
	viper.SetDefault("reset_line", 19)
	viper.SetDefault("power_line", 26)
	viper.SetDefault("gpio_chip", "gpiochip0")
	viper.SetDefault("pulse_width", 3*time.Millisecond)
	viper.SetDefault("reset_pulse_width", 10*time.Millisecond)
	viper.SetDefault("settle_time", 50*time.Millisecond)
	viper.SetDefault("power_up_delay", 10*time.Millisecond)
	viper.SetDefault("level_settle", 2*time.Second)

	viper.SetDefault("freq_min_mhz", 900.0)
	viper.SetDefault("freq_max_mhz", 960.0)
	viper.SetDefault("freq_step_mhz", 0.2)
	viper.SetDefault("power_levels", []int{5, -4})

	viper.SetDefault("channels", []int{0, 1, 2, 3, 4, 5, 6})
	viper.SetDefault("devices", []int{12, 22, 23})
	viper.SetDefault("iio_root", "")

	viper.SetDefault("switch_device", 12)
	viper.SetDefault("switch_channels", []int{7, 8, 9})
	viper.SetDefault("switch_threshold", 3)
	viper.SetDefault("switch_stop_state", 2)

	viper.SetDefault("read_sysvolts", true)
	viper.SetDefault("volts_device", 12)
	viper.SetDefault("volts_channel", 10)

	viper.SetDefault("output_dir", ".")
	viper.SetDefault("text_width", filterbank.TextWidth15)
	viper.SetDefault("journal", true)

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Printf("Error finding User Home Dir: %s\n", err)
	}
	dotDir := filepath.Join(home, ".fbksweep")
	const filename string = "config"
	const suffix string = ".yaml"
	if _, err := makeFileExist(dotDir, filename+suffix); err != nil {
		return err
	}

	viper.SetConfigName(filename)
	viper.AddConfigPath(filepath.FromSlash("/etc/fbksweep"))
	viper.AddConfigPath(dotDir)
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %s", err)
	}
	return nil
}

func startLogger(pfname string) *log.Logger {
	probFile, err := os.OpenFile(pfname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		msg := fmt.Sprintf("Could not open log file '%s'", pfname)
		panic(msg)
	}
	probLogger := log.New(probFile, "", log.LstdFlags)
	probLogger.SetOutput(&lumberjack.Logger{
		Filename:   pfname,
		MaxSize:    10,   // megabytes after which new file is created
		MaxBackups: 4,    // number of backups
		MaxAge:     180,  // days
		Compress:   true, // whether to gzip the backups
	})
	return probLogger
}

// startLogging points the package loggers at rotating files under
// ~/.fbksweep/logs and returns the two file names.
func startLogging() (string, string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", err
	}
	logdir := filepath.Join(home, ".fbksweep", "logs")
	problemname, err := makeFileExist(logdir, "problems.log")
	if err != nil {
		return "", "", err
	}
	logname, err := makeFileExist(logdir, "updates.log")
	if err != nil {
		return "", "", err
	}
	filterbank.ProblemLogger = startLogger(problemname)
	filterbank.UpdateLogger = startLogger(logname)
	return problemname, logname, nil
}
