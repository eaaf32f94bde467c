package dataset

import (
	"fmt"
	"slices"
)

// NoSelection is the choice that means "nothing selected".
const NoSelection = "None of the above"

const (
	formTitle       = "Visualising my Customers"
	formDescription = "Plotting customer data based on user choice"
)

// AggregateModes and ChartKinds are the closed choice lists offered for the
// aggregation and graph type controls.
var (
	AggregateModes = []string{"mean", "sum", "running sum"}
	ChartKinds     = []string{"bar chart", "pie chart", "line chart"}
)

// Schema partitions a table's columns into the selectable sets. It is built
// once from the table's declared column kinds and never changes.
type Schema struct {
	filterColumn string
	filterValues []string
	categorical  []string
	numeric      []string
}

// NewSchema derives the selectable columns of t. excluded names identifier
// columns that must never be offered; the filter column is excluded from the
// categorical set as well.
func NewSchema(t *Table, filterColumn string, excluded []string) (*Schema, error) {
	if _, err := t.typed(filterColumn, KindText); err != nil {
		return nil, fmt.Errorf("filter column: %w", err)
	}
	values, err := t.Distinct(filterColumn)
	if err != nil {
		return nil, err
	}

	s := &Schema{
		filterColumn: filterColumn,
		filterValues: values,
	}
	for _, c := range t.columns {
		switch c.Kind {
		case KindNumber:
			s.numeric = append(s.numeric, c.Name)
		case KindText:
			if c.Name == filterColumn || slices.Contains(excluded, c.Name) {
				continue
			}
			s.categorical = append(s.categorical, c.Name)
		}
	}
	return s, nil
}

func (s *Schema) FilterColumn() string { return s.filterColumn }

func (s *Schema) IsFilterValue(v string) bool { return slices.Contains(s.filterValues, v) }

func (s *Schema) IsCategorical(name string) bool { return slices.Contains(s.categorical, name) }

func (s *Schema) IsNumeric(name string) bool { return slices.Contains(s.numeric, name) }

// Control describes one form input.
type Control struct {
	Label   string   `json:"label"`
	Choices []string `json:"choices,omitempty"`
}

// Choices is the form definition offered to hosts.
type Choices struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	FilterValues   Control `json:"filter_values"`
	CategoricalVar Control `json:"categorical_var"`
	NumericVar     Control `json:"numeric_var"`
	ShowFrequency  Control `json:"show_frequency"`
	AggregateMode  Control `json:"aggregate_mode"`
	ChartKind      Control `json:"chart_kind"`
}

// Choices returns the closed choice lists with NoSelection prepended to each.
func (s *Schema) Choices() Choices {
	return Choices{
		Title:          formTitle,
		Description:    formDescription,
		FilterValues:   Control{Label: "Select " + s.filterColumn, Choices: withNoSelection(s.filterValues)},
		CategoricalVar: Control{Label: "Select Categorical Variable", Choices: withNoSelection(s.categorical)},
		NumericVar:     Control{Label: "Select Numeric Variable", Choices: withNoSelection(s.numeric)},
		ShowFrequency:  Control{Label: "View Frequency Distribution"},
		AggregateMode:  Control{Label: "Aggregate by", Choices: withNoSelection(AggregateModes)},
		ChartKind:      Control{Label: "Graph Type", Choices: withNoSelection(ChartKinds)},
	}
}

func withNoSelection(values []string) []string {
	out := make([]string, 0, len(values)+1)
	out = append(out, NoSelection)
	return append(out, values...)
}
