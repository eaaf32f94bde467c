package service

import (
	"fmt"

	"github.com/godilite/customerviz/internal/dataset"
)

// AggregateMode selects the per-group reduction.
type AggregateMode int

const (
	AggregateNone AggregateMode = iota
	AggregateMean
	AggregateSum
	AggregateRunningSum
)

func (m AggregateMode) String() string {
	switch m {
	case AggregateNone:
		return dataset.NoSelection
	case AggregateMean:
		return "mean"
	case AggregateSum:
		return "sum"
	case AggregateRunningSum:
		return "running sum"
	default:
		return fmt.Sprintf("AggregateMode(%d)", int(m))
	}
}

// ParseAggregateMode maps a form value onto an AggregateMode. An empty value
// or NoSelection yields AggregateNone.
func ParseAggregateMode(s string) (AggregateMode, error) {
	switch s {
	case "", dataset.NoSelection:
		return AggregateNone, nil
	case "mean":
		return AggregateMean, nil
	case "sum":
		return AggregateSum, nil
	case "running sum":
		return AggregateRunningSum, nil
	default:
		return AggregateNone, fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}

// ChartKind selects how aggregated rows are drawn.
type ChartKind int

const (
	ChartNone ChartKind = iota
	ChartBar
	ChartPie
	ChartLine
)

func (k ChartKind) String() string {
	switch k {
	case ChartNone:
		return dataset.NoSelection
	case ChartBar:
		return "bar chart"
	case ChartPie:
		return "pie chart"
	case ChartLine:
		return "line chart"
	default:
		return fmt.Sprintf("ChartKind(%d)", int(k))
	}
}

// ParseChartKind maps a form value onto a ChartKind. An empty value or
// NoSelection yields ChartNone.
func ParseChartKind(s string) (ChartKind, error) {
	switch s {
	case "", dataset.NoSelection:
		return ChartNone, nil
	case "bar chart":
		return ChartBar, nil
	case "pie chart":
		return ChartPie, nil
	case "line chart":
		return ChartLine, nil
	default:
		return ChartNone, fmt.Errorf("%w: %q", ErrUnsupportedChartKind, s)
	}
}
