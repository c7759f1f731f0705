package filterbank

import (
	"fmt"
	"strings"
)

// ColumnSet is the columnar form of one SweepBuffer, laid out exactly as
// the persisted table wants it: three row-major numeric columns and the
// fixed-width padded text columns.
type ColumnSet struct {
	NRows        int
	ChannelCount int
	Banks        [NumBanks][]uint32 // row i, channel j at i*ChannelCount+j
	Text         [][]string         // one slice per text column, schema order
	SysVolts     float64
	HasSysVolts  bool
	FileName     string // derived output file name, including suffix
}

// tableSuffix is the extension carried inside the per-row filename labels.
const tableSuffix = ".fits"

// Serialize transcodes a row-oriented buffer into the column layout of the
// given schema. It is a pure transformation: no I/O, no mutation of buf.
// Serializing an empty buffer is an error, because the output file name is
// taken from row 0.
func Serialize(buf *SweepBuffer, schema TableSchema) (*ColumnSet, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	nrows := buf.Count()
	if nrows == 0 {
		return nil, fmt.Errorf("cannot serialize an empty sweep buffer")
	}
	nchan := schema.ChannelCount
	if buf.NChan() != nchan {
		return nil, fmt.Errorf("buffer has %d channels per bank, schema wants %d", buf.NChan(), nchan)
	}

	cs := &ColumnSet{NRows: nrows, ChannelCount: nchan}
	for k := 0; k < NumBanks; k++ {
		cs.Banks[k] = make([]uint32, nrows*nchan)
	}
	ntext := 4
	if schema.IncludeVolts {
		ntext = 5
	}
	cs.Text = make([][]string, ntext)
	for t := range cs.Text {
		cs.Text[t] = make([]string, nrows)
	}

	w := schema.TextWidth
	for i := 0; i < nrows; i++ {
		row := buf.Row(i)
		for k := 0; k < NumBanks; k++ {
			for j := 0; j < nchan; j++ {
				cs.Banks[k][i*nchan+j] = uint32(row.Banks[k][j])
			}
		}
		cs.Text[0][i] = PadText(row.Timestamp, w)
		cs.Text[1][i] = PadText(row.State, w)
		cs.Text[2][i] = PadText(row.Frequency, w)
		cs.Text[3][i] = PadText(row.Filename, w)
		if schema.IncludeVolts {
			cs.Text[4][i] = PadText(row.Volts, w)
		}
	}

	cs.SysVolts, cs.HasSysVolts = buf.SysVolts()
	cs.FileName = outputFileName(buf)
	return cs, nil
}

// outputFileName derives the persisted file's name from the first row's
// filename label, appending the signed power level on power sweeps. The
// label has one-second resolution, so two sweeps started within the same
// second produce colliding names; that behavior is deliberate and
// unchanged from the deployed rig.
func outputFileName(buf *SweepBuffer) string {
	name := buf.Row(0).Filename
	p, ok := buf.PowerDBM()
	if !ok {
		return name
	}
	stem := strings.TrimSuffix(name, tableSuffix)
	return fmt.Sprintf("%s_%+ddBm%s", stem, p, tableSuffix)
}

// PadText returns s space-padded to exactly width bytes with the final
// byte NUL-terminated, matching the persisted text field format. Content
// longer than width-1 bytes is silently truncated: that is a documented
// data-loss boundary of the format, not an error. Padding is idempotent:
// re-padding an already-padded string returns it unchanged.
func PadText(s string, width int) string {
	b := make([]byte, width)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	b[width-1] = 0
	return string(b)
}

// UnpadText inverts PadText: it strips the trailing NUL and the space
// padding, recovering the original content (unless it was truncated).
func UnpadText(s string) string {
	return strings.TrimRight(s, " \x00")
}
