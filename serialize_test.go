package filterbank

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadText(t *testing.T) {
	p := PadText("900.2", 15)
	require.Len(t, p, 15)
	assert.Equal(t, "900.2", p[:5])
	assert.Equal(t, byte(0), p[14])
	for i := 5; i < 14; i++ {
		assert.Equal(t, byte(' '), p[i])
	}

	assert.Equal(t, p, PadText(p, 15), "padding must be idempotent")
	assert.Equal(t, "900.2", UnpadText(p))
}

func TestPadTextTruncates(t *testing.T) {
	long := strings.Repeat("x", 40)
	p := PadText(long, 15)
	require.Len(t, p, 15)
	assert.Equal(t, strings.Repeat("x", 14), p[:14])
	assert.Equal(t, byte(0), p[14])
	assert.Equal(t, strings.Repeat("x", 14), UnpadText(p))
}

func TestPadTextExactFit(t *testing.T) {
	s := strings.Repeat("y", 14)
	p := PadText(s, 15)
	assert.Equal(t, s, UnpadText(p))
}

func fillBuffer(t *testing.T, nrows, nchan int) *SweepBuffer {
	t.Helper()
	buf, err := NewSweepBuffer(nrows, nchan)
	require.NoError(t, err)
	for i := 0; i < nrows; i++ {
		require.NoError(t, buf.Append(testRow(i, nchan)))
	}
	return buf
}

func TestSerializeRoundTrip(t *testing.T) {
	const nrows, nchan = 4, 7
	buf := fillBuffer(t, nrows, nchan)
	buf.SetSysVolts(1.192)

	schema := DefaultSchema(nchan)
	cs, err := Serialize(buf, schema)
	require.NoError(t, err)

	assert.Equal(t, nrows, cs.NRows)
	assert.Equal(t, nchan, cs.ChannelCount)
	assert.Equal(t, "08310001_120000.fits", cs.FileName)
	require.Len(t, cs.Text, 4)

	for k := 0; k < NumBanks; k++ {
		require.Len(t, cs.Banks[k], nrows*nchan)
		for i := 0; i < nrows; i++ {
			for j := 0; j < nchan; j++ {
				want := uint32(buf.Row(i).Banks[k][j])
				assert.Equal(t, want, cs.Banks[k][i*nchan+j])
			}
		}
	}
	for i := 0; i < nrows; i++ {
		row := buf.Row(i)
		// The 20-byte timestamp labels overflow a 15A field; the format
		// truncates them, as the deployed files do.
		assert.Equal(t, PadText(row.Timestamp, schema.TextWidth), cs.Text[0][i])
		assert.Equal(t, PadText(row.Filename, schema.TextWidth), cs.Text[3][i])
		assert.Equal(t, row.State, UnpadText(cs.Text[1][i]))
		assert.Equal(t, row.Frequency, UnpadText(cs.Text[2][i]))
		for _, col := range cs.Text {
			assert.Len(t, col[i], schema.TextWidth)
		}
	}

	v, ok := cs.SysVolts, cs.HasSysVolts
	assert.True(t, ok)
	assert.InDelta(t, 1.192, v, 1e-9)
}

func TestSerializeVoltsColumn(t *testing.T) {
	buf := fillBuffer(t, 2, 3)
	schema := DefaultSchema(3)
	schema.IncludeVolts = true
	cs, err := Serialize(buf, schema)
	require.NoError(t, err)
	require.Len(t, cs.Text, 5)
}

func TestSerializePowerSuffix(t *testing.T) {
	buf := fillBuffer(t, 2, 3)
	buf.SetPowerDBM(-4)
	cs, err := Serialize(buf, DefaultSchema(3))
	require.NoError(t, err)
	assert.Equal(t, "08310001_120000_-4dBm.fits", cs.FileName)

	buf.Reset()
	require.NoError(t, buf.Append(testRow(0, 3)))
	buf.SetPowerDBM(5)
	cs, err = Serialize(buf, DefaultSchema(3))
	require.NoError(t, err)
	assert.Equal(t, "08310001_120000_+5dBm.fits", cs.FileName)
}

func TestSerializeEmptyBufferFails(t *testing.T) {
	buf, err := NewSweepBuffer(4, 3)
	require.NoError(t, err)
	_, err = Serialize(buf, DefaultSchema(3))
	assert.Error(t, err)
}

func TestSerializeChannelMismatchFails(t *testing.T) {
	buf := fillBuffer(t, 2, 3)
	_, err := Serialize(buf, DefaultSchema(7))
	assert.Error(t, err)
}

func TestSerializePartialBuffer(t *testing.T) {
	buf, err := NewSweepBuffer(10, 3)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, buf.Append(testRow(i, 3)))
	}
	cs, err := Serialize(buf, DefaultSchema(3))
	require.NoError(t, err)
	assert.Equal(t, 4, cs.NRows, "partial buffers serialize their populated rows only")
	assert.Len(t, cs.Banks[0], 4*3)
}
