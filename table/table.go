// Package table is a small in-memory tabular dataset: rows addressable by a unique key,
// float64 columns addressable by name. Missing values are NaN.
package table

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrDuplicateKey    = errors.New("duplicate row key")
	ErrColumnCount     = errors.New("number of values does not match number of columns")
	ErrColumnNotFound  = errors.New("column not found")
	ErrColumnExists    = errors.New("column already exists")
	ErrRowNotFound     = errors.New("row not found")
	ErrLengthMismatch  = errors.New("number of values does not match number of rows")
	ErrEmptyTable      = errors.New("table has no rows")
	ErrNoColumns       = errors.New("no columns selected")
	ErrKeyNameMismatch = errors.New("tables are keyed by different identifiers")
)

type Table struct {
	keyName string
	keys    []string
	index   map[string]int
	columns []string
	data    map[string][]float64
}

// New returns an empty table whose rows are identified by keyName
func New(keyName string, columns ...string) *Table {
	t := &Table{
		keyName: keyName,
		index:   make(map[string]int),
		data:    make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		t.columns = append(t.columns, c)
		t.data[c] = nil
	}
	return t
}

// KeyName returns the name of the identifier column
func (t *Table) KeyName() string {
	return t.keyName
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.keys)
}

// Keys returns the row keys in row order
func (t *Table) Keys() []string {
	return slices.Clone(t.keys)
}

// Columns returns the column names in insertion order
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

func (t *Table) HasKey(key string) bool {
	_, ok := t.index[key]
	return ok
}

// Append adds a row, one value per column in column order
func (t *Table) Append(key string, values ...float64) error {
	if _, ok := t.index[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	if len(values) != len(t.columns) {
		return fmt.Errorf("%w: got %d, expected %d", ErrColumnCount, len(values), len(t.columns))
	}

	t.index[key] = len(t.keys)
	t.keys = append(t.keys, key)
	for i, c := range t.columns {
		t.data[c] = append(t.data[c], values[i])
	}
	return nil
}

// Column returns a copy of the named column
func (t *Table) Column(name string) ([]float64, error) {
	values, ok := t.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return slices.Clone(values), nil
}

// Value returns the value of column for the row identified by key
func (t *Table) Value(key, column string) (float64, error) {
	i, ok := t.index[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRowNotFound, key)
	}
	values, ok := t.data[column]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	return values[i], nil
}

// SetColumn adds the named column, or replaces it if it already exists
func (t *Table) SetColumn(name string, values []float64) error {
	if len(values) != len(t.keys) {
		return fmt.Errorf("%w: got %d, expected %d", ErrLengthMismatch, len(values), len(t.keys))
	}
	if _, ok := t.data[name]; !ok {
		t.columns = append(t.columns, name)
	}
	t.data[name] = slices.Clone(values)
	return nil
}

// Rename renames a column in place
func (t *Table) Rename(from, to string) error {
	values, ok := t.data[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, from)
	}
	if from == to {
		return nil
	}
	if _, ok := t.data[to]; ok {
		return fmt.Errorf("%w: %s", ErrColumnExists, to)
	}
	delete(t.data, from)
	t.data[to] = values
	t.columns[slices.Index(t.columns, from)] = to
	return nil
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	c := New(t.keyName)
	c.keys = slices.Clone(t.keys)
	for k, v := range t.index {
		c.index[k] = v
	}
	c.columns = slices.Clone(t.columns)
	for name, values := range t.data {
		c.data[name] = slices.Clone(values)
	}
	return c
}

// Where returns the rows whose value in column satisfies keep, in row order
func (t *Table) Where(column string, keep func(float64) bool) (*Table, error) {
	values, ok := t.data[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}

	out := New(t.keyName, t.columns...)
	row := make([]float64, len(t.columns))
	for i, key := range t.keys {
		if !keep(values[i]) {
			continue
		}
		for j, c := range t.columns {
			row[j] = t.data[c][i]
		}
		if err := out.Append(key, row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Select returns a copy of the table holding only the given columns
func (t *Table) Select(columns ...string) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	out := New(t.keyName)
	out.keys = slices.Clone(t.keys)
	for k, v := range t.index {
		out.index[k] = v
	}
	for _, c := range columns {
		values, ok := t.data[c]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, c)
		}
		if _, ok := out.data[c]; ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnExists, c)
		}
		out.columns = append(out.columns, c)
		out.data[c] = slices.Clone(values)
	}
	return out, nil
}

// Join inner-joins other onto t by row key. Rows keep t's order and
// column names must not overlap.
func (t *Table) Join(other *Table) (*Table, error) {
	if t.keyName != other.keyName {
		return nil, fmt.Errorf("%w: %s and %s", ErrKeyNameMismatch, t.keyName, other.keyName)
	}
	for _, c := range other.columns {
		if t.HasColumn(c) {
			return nil, fmt.Errorf("%w: %s", ErrColumnExists, c)
		}
	}

	columns := append(slices.Clone(t.columns), other.columns...)
	out := New(t.keyName, columns...)
	row := make([]float64, len(columns))
	for i, key := range t.keys {
		j, ok := other.index[key]
		if !ok {
			continue
		}
		for n, c := range t.columns {
			row[n] = t.data[c][i]
		}
		for n, c := range other.columns {
			row[len(t.columns)+n] = other.data[c][j]
		}
		if err := out.Append(key, row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FillNaN replaces every missing value in column with value
func (t *Table) FillNaN(column string, value float64) error {
	values, ok := t.data[column]
	if !ok {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = value
		}
	}
	return nil
}

// RowMean returns the mean of the given columns for each row, skipping missing values.
// A row where every value is missing yields NaN.
func (t *Table) RowMean(columns ...string) ([]float64, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	for _, c := range columns {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, c)
		}
	}

	means := make([]float64, len(t.keys))
	for i := range t.keys {
		var sum float64
		var n int
		for _, c := range columns {
			v := t.data[c][i]
			if math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
		if n == 0 {
			means[i] = math.NaN()
			continue
		}
		means[i] = sum / float64(n)
	}
	return means, nil
}

// Sum adds up the non-missing values of column
func (t *Table) Sum(column string) (float64, error) {
	values, ok := t.data[column]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	var sum float64
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum, nil
}

// Matrix copies the given columns into a rows x columns dense matrix
func (t *Table) Matrix(columns ...string) (*mat.Dense, error) {
	if len(columns) == 0 {
		columns = t.columns
	}
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	if len(t.keys) == 0 {
		return nil, ErrEmptyTable
	}

	m := mat.NewDense(len(t.keys), len(columns), nil)
	for j, c := range columns {
		values, ok := t.data[c]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, c)
		}
		m.SetCol(j, values)
	}
	return m, nil
}
