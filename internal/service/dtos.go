package service

// PlotRequest carries one set of form selections.
type PlotRequest struct {
	FilterValues   []string `json:"filter_values"`
	CategoricalVar string   `json:"categorical_var"`
	NumericVar     string   `json:"numeric_var"`
	ShowFrequency  bool     `json:"show_frequency"`
	AggregateMode  string   `json:"aggregate_mode"`
	ChartKind      string   `json:"chart_kind"`
}

// AggregatedRow is one (group key, reduced value) pair.
type AggregatedRow struct {
	Key   string
	Value float64
}
