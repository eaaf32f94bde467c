package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godilite/customerviz/internal/dataset"
	"github.com/godilite/customerviz/internal/figure"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedMode      = errors.New("unsupported aggregation mode")
	ErrUnsupportedChartKind = errors.New("unsupported chart kind")
	ErrEmptyAggregation     = errors.New("no rows to aggregate")
	ErrInvalidSelection     = errors.New("invalid selection")
)

// Placeholder titles for requests whose selection leaves nothing to draw.
const (
	titleSelectCategorical = "Select a categorical variable"
	titleSelectNumeric     = "Select a numeric variable"
	titleSelectAggregation = "Select an aggregation method"
	titleSelectChartKind   = "Select a graph type"
)

// PlotService turns form selections into charts over a read-only dataset.
// It holds no mutable state, so concurrent calls are safe.
type PlotService struct {
	table  *dataset.Table
	schema *dataset.Schema
	logger *zap.Logger
}

// NewPlotService creates a new PlotService instance.
func NewPlotService(table *dataset.Table, schema *dataset.Schema, logger *zap.Logger) *PlotService {
	if table == nil {
		panic("table must not be nil")
	}
	if schema == nil {
		panic("schema must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	return &PlotService{
		table:  table,
		schema: schema,
		logger: logger,
	}
}

// Choices returns the closed choice lists for the form controls.
func (s *PlotService) Choices() dataset.Choices {
	return s.schema.Choices()
}

// GeneratePlot filters the dataset, then either draws the frequency
// distribution of the categorical variable or aggregates the numeric variable
// per category and draws it as the requested chart kind. Every returned
// figure has the fixed display size.
func (s *PlotService) GeneratePlot(ctx context.Context, req PlotRequest) (*figure.Figure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	filters, err := s.filterSet(req.FilterValues)
	if err != nil {
		return nil, err
	}

	table := s.table
	if len(filters) > 0 {
		table, err = table.Filter(s.schema.FilterColumn(), filters)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
	}

	var fig *figure.Figure
	if req.ShowFrequency {
		fig, err = s.frequency(table, req.CategoricalVar)
	} else {
		fig, err = s.aggregate(table, req)
	}
	if err != nil {
		return nil, err
	}
	fig.Resize()

	s.logger.Debug("plot generated",
		zap.String("title", fig.Title()),
		zap.Int("filter_values", len(filters)),
		zap.Int("rows", table.Rows()),
		zap.Bool("empty", fig.Empty()),
		zap.Duration("elapsed", time.Since(start)))

	return fig, nil
}

// filterSet deduplicates the selected filter values. A selection holding only
// NoSelection means no filtering.
func (s *PlotService) filterSet(values []string) ([]string, error) {
	seen := make(map[string]struct{}, len(values))
	set := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		if v != dataset.NoSelection && !s.schema.IsFilterValue(v) {
			return nil, fmt.Errorf("%w: unknown %s %q", ErrInvalidSelection, s.schema.FilterColumn(), v)
		}
		seen[v] = struct{}{}
		set = append(set, v)
	}
	if len(set) == 1 && set[0] == dataset.NoSelection {
		return nil, nil
	}
	return set, nil
}

func (s *PlotService) frequency(table *dataset.Table, categorical string) (*figure.Figure, error) {
	if unset(categorical) {
		return figure.New(titleSelectCategorical), nil
	}
	if !s.schema.IsCategorical(categorical) {
		return nil, fmt.Errorf("%w: %q is not a categorical variable", ErrInvalidSelection, categorical)
	}

	counts, err := table.Counts(categorical)
	if err != nil {
		return nil, fmt.Errorf("count %q: %w", categorical, err)
	}
	keys := make([]string, len(counts))
	values := make(figure.Values, len(counts))
	for i, kc := range counts {
		keys[i] = kc.Key
		values[i] = float64(kc.Count)
	}

	title := fmt.Sprintf("Frequency Distribution of %s", categorical)
	return figure.Histogram(title, categorical, keys, values), nil
}

func (s *PlotService) aggregate(table *dataset.Table, req PlotRequest) (*figure.Figure, error) {
	mode, err := ParseAggregateMode(req.AggregateMode)
	if err != nil {
		return nil, err
	}
	if mode == AggregateNone {
		return figure.New(titleSelectAggregation), nil
	}

	kind, err := ParseChartKind(req.ChartKind)
	if err != nil {
		return nil, err
	}
	if kind == ChartNone {
		return figure.New(titleSelectChartKind), nil
	}

	cat, num := req.CategoricalVar, req.NumericVar
	if unset(cat) {
		return figure.New(titleSelectCategorical), nil
	}
	if unset(num) {
		return figure.New(titleSelectNumeric), nil
	}
	if !s.schema.IsCategorical(cat) {
		return nil, fmt.Errorf("%w: %q is not a categorical variable", ErrInvalidSelection, cat)
	}
	if !s.schema.IsNumeric(num) {
		return nil, fmt.Errorf("%w: %q is not a numeric variable", ErrInvalidSelection, num)
	}

	rows, err := Aggregate(table, cat, num, mode)
	if err != nil {
		if !errors.Is(err, ErrEmptyAggregation) {
			return nil, err
		}
		s.logger.Info("filter left no rows; returning empty chart",
			zap.String("categorical", cat),
			zap.String("numeric", num),
			zap.Strings("filter", req.FilterValues))
	}
	keys, values := splitRows(rows)

	title := fmt.Sprintf("%s by %s (%s)", num, cat, mode)
	switch kind {
	case ChartBar:
		return figure.Bar(title, cat, num, keys, values), nil
	case ChartPie:
		return figure.Pie(title, num, keys, values), nil
	case ChartLine:
		return figure.Line(title, cat, num, keys, values), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChartKind, kind)
	}
}

func unset(selection string) bool {
	return selection == "" || selection == dataset.NoSelection
}
