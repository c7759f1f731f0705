package filterbank

import "fmt"

// DefaultExtName is the table extension name the reading tools look for.
const DefaultExtName = "FILTER BANK DATA"

// Default widths for the fixed-width text columns. Both are deployed:
// the rig's own files use 15, the wide-timestamp variant uses 25.
const (
	TextWidth15 = 15
	TextWidth25 = 25
)

// TableSchema describes the persisted table layout: which columns exist,
// their order, names, FITS-style forms, and the text field width. Column
// order, names, and widths are a compatibility contract with the reading
// tools and must not change silently.
type TableSchema struct {
	ExtName      string
	ChannelCount int    // samples per bank per row
	TextWidth    int    // fixed width of every text column
	StateColumn  string // "SWITCH STATE" or "POWER_DBM"
	StateUnit    string // "" or "dBm"
	IncludeVolts bool   // append the per-row VOLTAGE text column
}

// DefaultSchema returns the layout of the original calibration files.
func DefaultSchema(nchan int) TableSchema {
	return TableSchema{
		ExtName:      DefaultExtName,
		ChannelCount: nchan,
		TextWidth:    TextWidth15,
		StateColumn:  "SWITCH STATE",
	}
}

// Validate rejects schemas the serializer cannot honor.
func (s TableSchema) Validate() error {
	if s.ChannelCount <= 0 {
		return fmt.Errorf("schema channel count %d, must be positive", s.ChannelCount)
	}
	if s.TextWidth < 2 {
		return fmt.Errorf("schema text width %d, must be at least 2", s.TextWidth)
	}
	if s.StateColumn == "" {
		return fmt.Errorf("schema state column name is empty")
	}
	return nil
}

// ColumnSpec describes one table column.
type ColumnSpec struct {
	Name string
	Form string // FITS tform, e.g. "7K" or "15A"
	Unit string
	Text bool
}

// Columns returns the column layout in persisted order: the three numeric
// bank columns, then the fixed-width text columns.
func (s TableSchema) Columns() []ColumnSpec {
	kform := fmt.Sprintf("%dK", s.ChannelCount)
	aform := fmt.Sprintf("%dA", s.TextWidth)
	cols := []ColumnSpec{
		{Name: "ADHAT_1", Form: kform},
		{Name: "ADHAT_2", Form: kform},
		{Name: "ADHAT_3", Form: kform},
		{Name: "TIME_RPI2", Form: aform, Text: true},
		{Name: s.StateColumn, Form: aform, Unit: s.StateUnit, Text: true},
		{Name: "FREQUENCY", Form: aform, Unit: "MHz", Text: true},
		{Name: "FILENAME", Form: aform, Text: true},
	}
	if s.IncludeVolts {
		cols = append(cols, ColumnSpec{Name: "VOLTAGE", Form: aform, Unit: "V", Text: true})
	}
	return cols
}

// NumericColumns returns how many leading columns are numeric.
func (s TableSchema) NumericColumns() int { return NumBanks }

// TableWriter is the binary table file collaborator. The production
// implementations live in internal/fitstable and internal/pqtable; tests
// substitute fakes.
type TableWriter interface {
	// CreateTable creates the file at path with the given layout. Any
	// error aborts only the current sweep's file, never the pipeline.
	CreateTable(path string, schema TableSchema) (Table, error)
}

// Table is an open table being written. Columns are written one at a time,
// in schema order, then the handle is closed. Status from the underlying
// library is surfaced verbatim in the returned errors.
type Table interface {
	// WriteNumericColumn writes numeric column index (0-based within the
	// numeric columns) from row-major data of nrows*channelCount values.
	WriteNumericColumn(index int, data []uint32) error
	// WriteTextColumn writes text column index (0-based within the text
	// columns); every entry is already padded to the schema width.
	WriteTextColumn(index int, data []string) error
	// SetSysVolts records the once-per-sweep system voltage as a
	// header-level scalar, separate from the per-row columns.
	SetSysVolts(v float64) error
	Close() error
}
