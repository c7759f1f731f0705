// Package iioconv reads the converter banks through the Linux Industrial
// I/O sysfs interface, where each HAT shows up as an iio device exposing
// one raw-value file per channel. Reads block for the converter's own
// settling time, exactly like the pipeline expects.
package iioconv

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alhosani-abdulla/highz-filterbank"
)

// DefaultRoot is where the kernel mounts the iio device tree.
const DefaultRoot = "/sys/bus/iio/devices"

// Converter implements filterbank.Converter over an iio device tree.
// The root is configurable so tests can point it at a fixture tree.
type Converter struct {
	root string
}

// New returns a Converter over the given sysfs root; "" means DefaultRoot.
func New(root string) *Converter {
	if root == "" {
		root = DefaultRoot
	}
	return &Converter{root: root}
}

// ReadChannel reads one channel's raw value file.
func (c *Converter) ReadChannel(device int, channel int) (filterbank.Sample, error) {
	path := filepath.Join(c.root,
		fmt.Sprintf("iio:device%d", device),
		fmt.Sprintf("in_voltage%d_raw", channel))
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return filterbank.Sample(v), nil
}

// ReadChannels reads the listed channels of one device, in order. The
// first failed channel fails the whole read; the pipeline treats that as
// a skipped row.
func (c *Converter) ReadChannels(device int, channels []int) ([]filterbank.Sample, error) {
	out := make([]filterbank.Sample, len(channels))
	for i, ch := range channels {
		s, err := c.ReadChannel(device, ch)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
