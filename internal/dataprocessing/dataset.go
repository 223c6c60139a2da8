package dataprocessing

import (
	"errors"
	"fmt"
	"time"

	"datacleaner/pkg/contracts/domain"
)

var (
	ErrColumnNotFound  = errors.New("column not found")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrLengthMismatch  = errors.New("column length mismatch")
	ErrNoColumns       = errors.New("dataset has no columns")
)

// ColumnError ties a column-level failure to the column's name. It unwraps
// to Err, one of ErrColumnNotFound, ErrNotNumeric or ErrNoData.
type ColumnError struct {
	Name string
	Kind domain.Kind // set when the column's kind is the problem
	Err  error
}

func (e *ColumnError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%v: %q is %s", e.Err, e.Name, e.Kind)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Name)
}

func (e *ColumnError) Unwrap() error { return e.Err }

// Column is a named, typed vector of values. nil marks a missing value.
type Column struct {
	Name   string
	Kind   domain.Kind
	Values []any
}

// NewColumn creates a column.
func NewColumn(name string, kind domain.Kind, values []any) *Column {
	return &Column{Name: name, Kind: kind, Values: values}
}

// Len returns the number of values.
func (c *Column) Len() int {
	return len(c.Values)
}

// MissingCount returns the number of missing values.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Clone returns a copy of the column sharing no slice storage.
func (c *Column) Clone() *Column {
	values := make([]any, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}

// Dataset is an ordered set of uniquely named, equal length columns.
type Dataset struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewDataset builds a dataset from columns. All columns must have the same
// length and distinct names.
func NewDataset(columns ...*Column) (*Dataset, error) {
	ds := &Dataset{index: make(map[string]int, len(columns))}
	for i, col := range columns {
		if _, exists := ds.index[col.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
		if i == 0 {
			ds.rows = col.Len()
		} else if col.Len() != ds.rows {
			return nil, fmt.Errorf("%w: %q has %d values, expected %d", ErrLengthMismatch, col.Name, col.Len(), ds.rows)
		}
		ds.index[col.Name] = i
		ds.columns = append(ds.columns, col)
	}
	return ds, nil
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int {
	return d.rows
}

// Width returns the number of columns.
func (d *Dataset) Width() int {
	return len(d.columns)
}

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice is a copy; the columns
// are not.
func (d *Dataset) Columns() []*Column {
	out := make([]*Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, &ColumnError{Name: name, Err: ErrColumnNotFound}
	}
	return d.columns[i], nil
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// ReplaceColumn swaps in a new version of an existing column.
func (d *Dataset) ReplaceColumn(col *Column) error {
	i, ok := d.index[col.Name]
	if !ok {
		return &ColumnError{Name: col.Name, Err: ErrColumnNotFound}
	}
	if col.Len() != d.rows {
		return fmt.Errorf("%w: %q has %d values, expected %d", ErrLengthMismatch, col.Name, col.Len(), d.rows)
	}
	d.columns[i] = col
	return nil
}

// DropColumns removes the named columns. Either every name is removed or,
// when one is unknown, none is.
func (d *Dataset) DropColumns(names ...string) error {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if !d.HasColumn(name) {
			return &ColumnError{Name: name, Err: ErrColumnNotFound}
		}
		drop[name] = true
	}

	kept := d.columns[:0]
	for _, c := range d.columns {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	d.columns = kept
	d.reindex()
	if len(d.columns) == 0 {
		d.rows = 0
	}
	return nil
}

// Row returns the values of row i in column order.
func (d *Dataset) Row(i int) []any {
	row := make([]any, len(d.columns))
	for j, c := range d.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Clone returns a deep copy of the dataset structure. Values themselves are
// immutable and shared.
func (d *Dataset) Clone() *Dataset {
	columns := make([]*Column, len(d.columns))
	for i, c := range d.columns {
		columns[i] = c.Clone()
	}
	ds := &Dataset{columns: columns, rows: d.rows}
	ds.reindex()
	return ds
}

// Head returns the first n rows.
func (d *Dataset) Head(n int) domain.Preview {
	if n > d.rows {
		n = d.rows
	}
	return d.preview("head", 0, n)
}

// Tail returns the last n rows.
func (d *Dataset) Tail(n int) domain.Preview {
	if n > d.rows {
		n = d.rows
	}
	return d.preview("tail", d.rows-n, d.rows)
}

func (d *Dataset) preview(mode string, from, to int) domain.Preview {
	p := domain.Preview{
		Mode:    mode,
		Columns: d.Names(),
		Kinds:   make([]domain.Kind, len(d.columns)),
		Rows:    make([][]any, 0, to-from),
		Total:   d.rows,
	}
	for j, c := range d.columns {
		p.Kinds[j] = c.Kind
	}
	for i := from; i < to; i++ {
		row := d.Row(i)
		for j := range row {
			row[j] = JSONValue(row[j])
		}
		p.Rows = append(p.Rows, row)
	}
	return p
}

// Info summarizes the dataset structure.
func (d *Dataset) Info() domain.DatasetInfo {
	info := domain.DatasetInfo{
		Rows:    d.rows,
		Columns: make([]domain.ColumnInfo, len(d.columns)),
	}
	for i, c := range d.columns {
		missing := c.MissingCount()
		info.Columns[i] = domain.ColumnInfo{
			Name:    c.Name,
			Kind:    c.Kind,
			NonNull: c.Len() - missing,
			Missing: missing,
		}
		info.MemoryBytes += columnMemory(c)
	}
	return info
}

// keepRows retains the rows whose flag is true.
func (d *Dataset) keepRows(keep []bool) {
	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}
	for _, c := range d.columns {
		values := make([]any, 0, kept)
		for i, v := range c.Values {
			if keep[i] {
				values = append(values, v)
			}
		}
		c.Values = values
	}
	d.rows = kept
}

func (d *Dataset) reindex() {
	d.index = make(map[string]int, len(d.columns))
	for i, c := range d.columns {
		d.index[c.Name] = i
	}
}

// columnMemory approximates the bytes held by a column's values.
func columnMemory(c *Column) int64 {
	var total int64
	for _, v := range c.Values {
		switch val := v.(type) {
		case nil:
			total += 8
		case int64, float64:
			total += 8
		case bool:
			total++
		case string:
			total += int64(len(val)) + 16
		case time.Time:
			total += 24
		default:
			total += 64
		}
	}
	return total
}
