package pqtable

import (
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alhosani-abdulla/highz-filterbank"
)

func TestWriteAndReadBack(t *testing.T) {
	const nrows, nchan = 3, 2
	schema := filterbank.DefaultSchema(nchan)
	path := filepath.Join(t.TempDir(), "08312026_120000.parquet")

	tbl, err := NewWriter().CreateTable(path, schema)
	require.NoError(t, err)

	for k := 0; k < filterbank.NumBanks; k++ {
		data := make([]uint32, nrows*nchan)
		for i := range data {
			data[i] = uint32(100*k + i)
		}
		require.NoError(t, tbl.WriteNumericColumn(k, data))
	}
	texts := [][]string{
		{"t0", "t1", "t2"},
		{"5", "5", "5"},
		{"900.0", "900.2", "900.4"},
		{"f", "f", "f"},
	}
	for c, col := range texts {
		padded := make([]string, len(col))
		for i, s := range col {
			padded[i] = filterbank.PadText(s, schema.TextWidth)
		}
		require.NoError(t, tbl.WriteTextColumn(c, padded))
	}
	require.NoError(t, tbl.SetSysVolts(12.25))
	require.NoError(t, tbl.Close())

	rows, err := parquet.ReadFile[sweepRow](path)
	require.NoError(t, err)
	require.Len(t, rows, nrows)
	for i, row := range rows {
		assert.Equal(t, []int64{int64(i * nchan), int64(i*nchan + 1)}, row.Bank1)
		assert.Equal(t, texts[2][i], row.Frequency, "text comes back unpadded")
		assert.Equal(t, "5", row.State)
	}
}

func TestColumnLengthMismatchFails(t *testing.T) {
	schema := filterbank.DefaultSchema(2)
	path := filepath.Join(t.TempDir(), "bad.parquet")
	tbl, err := NewWriter().CreateTable(path, schema)
	require.NoError(t, err)
	require.NoError(t, tbl.WriteNumericColumn(0, []uint32{1, 2}))
	// banks 1 and 2 left empty: inconsistent row count
	assert.Error(t, tbl.Close())
}
