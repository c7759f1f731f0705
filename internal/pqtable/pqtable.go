// Package pqtable persists serialized sweeps as Parquet files, an
// alternate sink for hosts where the analysis stack speaks Parquet rather
// than FITS. The column names are fixed by the row schema below; the
// configured state-column name and the sweep-level system voltage travel
// in the file's key/value metadata instead of the table layout.
package pqtable

import (
	"fmt"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/alhosani-abdulla/highz-filterbank"
)

// sweepRow is one measurement instant. Text fields are stored unpadded;
// Parquet strings carry their own lengths.
type sweepRow struct {
	Bank1     []int64 `parquet:"ADHAT_1,list"`
	Bank2     []int64 `parquet:"ADHAT_2,list"`
	Bank3     []int64 `parquet:"ADHAT_3,list"`
	Time      string  `parquet:"TIME_RPI2"`
	State     string  `parquet:"STATE"`
	Frequency string  `parquet:"FREQUENCY"`
	Filename  string  `parquet:"FILENAME"`
	Volts     string  `parquet:"VOLTAGE,optional"`
}

// Writer implements filterbank.TableWriter over Parquet files.
type Writer struct{}

// NewWriter returns a Parquet table writer.
func NewWriter() *Writer { return &Writer{} }

// CreateTable creates path. Columns are buffered and the Parquet rows are
// written on Close, once the sweep-level metadata is known.
func (w *Writer) CreateTable(path string, schema filterbank.TableSchema) (filterbank.Table, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	ntext := len(schema.Columns()) - schema.NumericColumns()
	return &table{f: f, schema: schema, text: make([][]string, ntext)}, nil
}

type table struct {
	f      *os.File
	schema filterbank.TableSchema

	numeric [filterbank.NumBanks][]uint32
	text    [][]string
	volts   float64
	hasV    bool
}

func (t *table) WriteNumericColumn(index int, data []uint32) error {
	if index < 0 || index >= filterbank.NumBanks {
		return fmt.Errorf("numeric column index %d out of range", index)
	}
	t.numeric[index] = append([]uint32(nil), data...)
	return nil
}

func (t *table) WriteTextColumn(index int, data []string) error {
	if index < 0 || index >= len(t.text) {
		return fmt.Errorf("text column index %d out of range", index)
	}
	t.text[index] = append([]string(nil), data...)
	return nil
}

func (t *table) SetSysVolts(v float64) error {
	t.volts, t.hasV = v, true
	return nil
}

func (t *table) Close() error {
	err := t.flush()
	if cerr := t.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (t *table) flush() error {
	nchan := t.schema.ChannelCount
	nrows := len(t.numeric[0]) / nchan
	for k := 0; k < filterbank.NumBanks; k++ {
		if len(t.numeric[k]) != nrows*nchan {
			return fmt.Errorf("numeric column %d has %d values, want %d", k, len(t.numeric[k]), nrows*nchan)
		}
	}
	for i, col := range t.text {
		if len(col) != nrows {
			return fmt.Errorf("text column %d has %d values, want %d", i, len(col), nrows)
		}
	}

	opts := []parquet.WriterOption{
		parquet.KeyValueMetadata("extname", t.schema.ExtName),
		parquet.KeyValueMetadata("state_column", t.schema.StateColumn),
	}
	if t.hasV {
		opts = append(opts, parquet.KeyValueMetadata("sysvolt",
			strconv.FormatFloat(t.volts, 'f', -1, 64)))
	}
	pw := parquet.NewGenericWriter[sweepRow](t.f, opts...)

	rows := make([]sweepRow, nrows)
	for i := 0; i < nrows; i++ {
		row := &rows[i]
		banks := [filterbank.NumBanks]*[]int64{&row.Bank1, &row.Bank2, &row.Bank3}
		for k := 0; k < filterbank.NumBanks; k++ {
			vals := make([]int64, nchan)
			for j := 0; j < nchan; j++ {
				vals[j] = int64(t.numeric[k][i*nchan+j])
			}
			*banks[k] = vals
		}
		row.Time = filterbank.UnpadText(t.text[0][i])
		row.State = filterbank.UnpadText(t.text[1][i])
		row.Frequency = filterbank.UnpadText(t.text[2][i])
		row.Filename = filterbank.UnpadText(t.text[3][i])
		if len(t.text) > 4 {
			row.Volts = filterbank.UnpadText(t.text[4][i])
		}
	}
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return err
	}
	return pw.Close()
}
