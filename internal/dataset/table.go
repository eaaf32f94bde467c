package dataset

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrColumnKind    = errors.New("column has wrong kind")
	ErrRaggedColumns = errors.New("columns have different lengths")
)

// Kind is the declared type of a column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Column is one named, typed column. Missing text cells are empty strings and
// missing numeric cells are NaN.
type Column struct {
	Name    string
	Kind    Kind
	Text    []string
	Numbers []float64
}

// TextColumn builds a textual column.
func TextColumn(name string, values ...string) Column {
	return Column{Name: name, Kind: KindText, Text: values}
}

// NumberColumn builds a numeric column.
func NumberColumn(name string, values ...float64) Column {
	return Column{Name: name, Kind: KindNumber, Numbers: values}
}

func (c Column) Len() int {
	if c.Kind == KindNumber {
		return len(c.Numbers)
	}
	return len(c.Text)
}

// Table is an immutable in-memory table. Every operation returns a new Table.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// NewTable validates and assembles columns into a table. Column slices are
// copied so later changes by the caller cannot leak in.
func NewTable(cols ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(cols)),
		index:   make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
		t.columns = append(t.columns, cloneColumn(c))
	}
	return t, nil
}

func cloneColumn(c Column) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == KindNumber {
		out.Numbers = append([]float64(nil), c.Numbers...)
	} else {
		out.Text = append([]string(nil), c.Text...)
	}
	return out
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Columns returns the column names in declaration order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Kind returns the declared kind of a column.
func (t *Table) Kind(name string) (Kind, error) {
	c, err := t.column(name)
	if err != nil {
		return 0, err
	}
	return c.Kind, nil
}

// Text returns a copy of a textual column.
func (t *Table) Text(name string) ([]string, error) {
	c, err := t.typed(name, KindText)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), c.Text...), nil
}

// Numbers returns a copy of a numeric column.
func (t *Table) Numbers(name string) ([]float64, error) {
	c, err := t.typed(name, KindNumber)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), c.Numbers...), nil
}

func (t *Table) column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return &t.columns[i], nil
}

func (t *Table) typed(name string, kind Kind) (*Column, error) {
	c, err := t.column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != kind {
		return nil, fmt.Errorf("%w: %q is %s, want %s", ErrColumnKind, name, c.Kind, kind)
	}
	return c, nil
}

// take builds a new table holding the given rows, in the given order.
func (t *Table) take(rows []int) *Table {
	out := &Table{
		columns: make([]Column, len(t.columns)),
		index:   t.index,
		rows:    len(rows),
	}
	for i, c := range t.columns {
		nc := Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == KindNumber {
			nc.Numbers = make([]float64, len(rows))
			for j, r := range rows {
				nc.Numbers[j] = c.Numbers[r]
			}
		} else {
			nc.Text = make([]string, len(rows))
			for j, r := range rows {
				nc.Text[j] = c.Text[r]
			}
		}
		out.columns[i] = nc
	}
	return out
}

// IsMissing reports whether a numeric cell holds no value.
func IsMissing(v float64) bool { return math.IsNaN(v) }
