package filterbank

import (
	"fmt"
	"time"
)

// Sample holds one raw channel reading from a converter bank.
type Sample uint32

// NumBanks is the number of independent converter front ends read per row.
const NumBanks = 3

// TimestampLayout is the layout of the per-row timestamp labels and of the
// derived output filenames. It matches the files the reading tools expect:
// MMDDYYYY_HHMMSS plus the table suffix.
const TimestampLayout = "01022006_150405"

// Row holds the readings and labels for one measurement instant. A Row is
// written exactly once, at acquisition time, and never revisited.
type Row struct {
	Banks     [NumBanks][]Sample
	Timestamp string // formatted with TimestampLayout + file suffix
	State     string // switch-state code or signed power level
	Frequency string // LO frequency label, MHz
	Filename  string // output file identity, derived from Timestamp
	Volts     string // optional once-per-sweep voltage label
}

// SweepBuffer is a fixed-capacity, ordered sequence of Rows plus a write
// cursor. Two of these form the double buffer; each is allocated once at
// startup and reused (Reset) across sweeps, never reallocated.
//
// Invariant: 0 <= count <= nrows, and the buffer is full iff count == nrows.
type SweepBuffer struct {
	rows     []Row
	nrows    int
	nchan    int
	count    int
	sysVolts float64 // once-per-sweep system voltage, valid iff hasVolts
	hasVolts bool
	powerDBM int // sweep-scoped output power, valid iff hasPower
	hasPower bool
	started  time.Time
}

// NewSweepBuffer allocates a buffer of capacity nrows with nchan channels
// per bank. Allocation happens here and never again: Row bank slices are
// carved from two contiguous backing arrays.
func NewSweepBuffer(nrows, nchan int) (*SweepBuffer, error) {
	if nrows <= 0 {
		return nil, fmt.Errorf("SweepBuffer capacity %d, must be positive", nrows)
	}
	if nchan <= 0 {
		return nil, fmt.Errorf("SweepBuffer channel count %d, must be positive", nchan)
	}
	b := &SweepBuffer{
		rows:  make([]Row, nrows),
		nrows: nrows,
		nchan: nchan,
	}
	backing := make([]Sample, nrows*nchan*NumBanks)
	for i := range b.rows {
		for k := 0; k < NumBanks; k++ {
			off := (i*NumBanks + k) * nchan
			b.rows[i].Banks[k] = backing[off : off+nchan : off+nchan]
		}
	}
	return b, nil
}

// Capacity returns the fixed row capacity.
func (b *SweepBuffer) Capacity() int { return b.nrows }

// NChan returns the per-bank channel count.
func (b *SweepBuffer) NChan() int { return b.nchan }

// Count returns the number of rows written since the last Reset.
func (b *SweepBuffer) Count() int { return b.count }

// Full reports whether the write cursor has reached capacity.
func (b *SweepBuffer) Full() bool { return b.count == b.nrows }

// Row returns the i'th populated row. It panics on an unpopulated index,
// which would indicate a pipeline ownership bug.
func (b *SweepBuffer) Row(i int) *Row {
	if i < 0 || i >= b.count {
		panic(fmt.Sprintf("SweepBuffer.Row(%d) with %d rows populated", i, b.count))
	}
	return &b.rows[i]
}

// Append stores one row at the write cursor and advances it. The bank slices
// in r are copied into the buffer's own storage; r does not escape.
func (b *SweepBuffer) Append(r *Row) error {
	if b.count >= b.nrows {
		return fmt.Errorf("SweepBuffer overflow: capacity %d", b.nrows)
	}
	if b.count == 0 {
		b.started = time.Now()
	}
	dst := &b.rows[b.count]
	for k := 0; k < NumBanks; k++ {
		copy(dst.Banks[k], r.Banks[k])
	}
	dst.Timestamp = r.Timestamp
	dst.State = r.State
	dst.Frequency = r.Frequency
	dst.Filename = r.Filename
	dst.Volts = r.Volts
	b.count++
	return nil
}

// Started returns when the current sweep's first row was stored. Zero
// until the first Append after a Reset.
func (b *SweepBuffer) Started() time.Time { return b.started }

// SetSysVolts records the once-per-sweep system voltage.
func (b *SweepBuffer) SetSysVolts(v float64) {
	b.sysVolts = v
	b.hasVolts = true
}

// SysVolts returns the sweep-scoped system voltage and whether one was read.
func (b *SweepBuffer) SysVolts() (float64, bool) { return b.sysVolts, b.hasVolts }

// SetPowerDBM records the sweep-scoped LO output power level.
func (b *SweepBuffer) SetPowerDBM(p int) {
	b.powerDBM = p
	b.hasPower = true
}

// PowerDBM returns the sweep-scoped power level and whether one was set.
func (b *SweepBuffer) PowerDBM() (int, bool) { return b.powerDBM, b.hasPower }

// Reset rewinds the write cursor and clears the sweep-scoped metadata,
// returning the buffer to the writable state. The row storage is reused.
func (b *SweepBuffer) Reset() {
	b.count = 0
	b.hasVolts = false
	b.hasPower = false
	b.started = time.Time{}
}

// BufferID identifies one of the two pooled buffers in the handoff slot.
type BufferID int

// The legal handoff slot values.
const (
	BufNone BufferID = iota
	BufA
	BufB
)

func (id BufferID) String() string {
	switch id {
	case BufNone:
		return "none"
	case BufA:
		return "A"
	case BufB:
		return "B"
	}
	return fmt.Sprintf("BufferID(%d)", int(id))
}

// Other returns the alternate buffer in the double-buffer pair.
func (id BufferID) Other() BufferID {
	switch id {
	case BufA:
		return BufB
	case BufB:
		return BufA
	}
	return BufNone
}

// BufferPool holds exactly two SweepBuffers. At any instant each buffer has
// one owner: the acquirer fills one while the writer drains the other; the
// strict alternation in the acquirer guarantees exclusivity without locks.
type BufferPool struct {
	a, b *SweepBuffer
}

// NewBufferPool allocates both sweep buffers up front. An allocation or
// sizing failure here is fatal to startup: nothing has been persisted yet.
func NewBufferPool(nrows, nchan int) (*BufferPool, error) {
	a, err := NewSweepBuffer(nrows, nchan)
	if err != nil {
		return nil, err
	}
	b, err := NewSweepBuffer(nrows, nchan)
	if err != nil {
		return nil, err
	}
	return &BufferPool{a: a, b: b}, nil
}

// Buffer maps a BufferID to its SweepBuffer.
func (p *BufferPool) Buffer(id BufferID) *SweepBuffer {
	switch id {
	case BufA:
		return p.a
	case BufB:
		return p.b
	}
	panic(fmt.Sprintf("BufferPool.Buffer(%v): no such buffer", id))
}
