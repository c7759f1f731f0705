// Package fitstable persists serialized sweeps as FITS binary tables, the
// format the rig's analysis notebooks read. One file holds an empty
// primary HDU plus a single binary table extension whose layout comes
// from the TableSchema.
package fitstable

import (
	"fmt"
	"os"
	"reflect"

	"github.com/astrogo/fitsio"

	"github.com/alhosani-abdulla/highz-filterbank"
)

// sysVoltsKeyword is the header keyword carrying the once-per-sweep
// system voltage.
const sysVoltsKeyword = "SYSVOLT"

// Writer implements filterbank.TableWriter over FITS files.
type Writer struct{}

// NewWriter returns a FITS table writer.
func NewWriter() *Writer { return &Writer{} }

// CreateTable creates path and its primary HDU. The table extension is
// assembled in memory and flushed on Close, because the FITS library
// writes binary tables row-oriented while the pipeline hands us columns.
func (w *Writer) CreateTable(path string, schema filterbank.TableSchema) (filterbank.Table, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	fits, err := fitsio.Create(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		fits.Close()
		f.Close()
		return nil, err
	}
	if err := fits.Write(phdu); err != nil {
		fits.Close()
		f.Close()
		return nil, err
	}
	t := &table{
		f:      f,
		fits:   fits,
		schema: schema,
	}
	t.text = make([][]string, len(schema.Columns())-schema.NumericColumns())
	return t, nil
}

type table struct {
	f      *os.File
	fits   *fitsio.File
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

// Close assembles the binary table extension, writes every buffered row,
// and finalizes the file. An error on any step still releases the file
// handle.
func (t *table) Close() error {
	err := t.flush()
	if cerr := t.fits.Close(); err == nil {
		err = cerr
	}
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

	specs := t.schema.Columns()
	cols := make([]fitsio.Column, len(specs))
	for i, s := range specs {
		cols[i] = fitsio.Column{Name: s.Name, Format: s.Form, Unit: s.Unit}
	}
	tbl, err := fitsio.NewTable(t.schema.ExtName, cols, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer tbl.Close()

	if t.hasV {
		card := fitsio.Card{
			Name:    sysVoltsKeyword,
			Value:   t.volts,
			Comment: "system supply voltage at sweep start [V]",
		}
		if err := tbl.Header().Append(card); err != nil {
			return err
		}
	}

	// Rows go through the struct path: the library copies struct fields
	// into the heap faithfully, where map-valued writes do not. The row
	// type is built at run time because the bank width is configuration.
	rowType := rowStructType(specs, nchan)
	for i := 0; i < nrows; i++ {
		row := reflect.New(rowType).Elem()
		for k := 0; k < filterbank.NumBanks; k++ {
			arr := row.Field(k)
			for j := 0; j < nchan; j++ {
				arr.Index(j).SetInt(int64(t.numeric[k][i*nchan+j]))
			}
		}
		for c, col := range t.text {
			row.Field(filterbank.NumBanks + c).SetString(col[i])
		}
		if err := tbl.Write(row.Addr().Interface()); err != nil {
			return err
		}
	}
	return t.fits.Write(tbl)
}

// rowStructType builds the per-row struct: one [nchan]int64 array field
// per bank, one string field per text column, each tagged with its FITS
// column name (the names are not valid Go identifiers, so the fields get
// synthetic names and the tags carry the truth).
func rowStructType(specs []filterbank.ColumnSpec, nchan int) reflect.Type {
	bankType := reflect.ArrayOf(nchan, reflect.TypeOf(int64(0)))
	fields := make([]reflect.StructField, len(specs))
	for i, s := range specs {
		ft := reflect.TypeOf("")
		if i < filterbank.NumBanks {
			ft = bankType
		}
		fields[i] = reflect.StructField{
			Name: fmt.Sprintf("Col%d", i),
			Type: ft,
			Tag:  reflect.StructTag(fmt.Sprintf(`fits:%q`, s.Name)),
		}
	}
	return reflect.StructOf(fields)
}
