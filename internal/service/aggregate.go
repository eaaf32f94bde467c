package service

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/godilite/customerviz/internal/dataset"
)

// Aggregate groups t by key and reduces the value column per group. Groups
// come out in the table's group emission order; running sum accumulates in
// that same order. Missing numeric cells are skipped.
func Aggregate(t *dataset.Table, key, value string, mode AggregateMode) ([]AggregatedRow, error) {
	switch mode {
	case AggregateMean, AggregateSum, AggregateRunningSum:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}

	groups, err := t.Groups(key)
	if err != nil {
		return nil, fmt.Errorf("group by %q: %w", key, err)
	}
	nums, err := t.Numbers(value)
	if err != nil {
		return nil, fmt.Errorf("aggregate %q: %w", value, err)
	}
	if len(groups) == 0 {
		return nil, ErrEmptyAggregation
	}

	rows := make([]AggregatedRow, len(groups))
	present := make([]float64, 0, t.Rows())
	for i, g := range groups {
		present = present[:0]
		for _, r := range g.Rows {
			if !dataset.IsMissing(nums[r]) {
				present = append(present, nums[r])
			}
		}

		rows[i].Key = g.Key
		switch {
		case mode != AggregateMean:
			rows[i].Value = floats.Sum(present)
		case len(present) == 0:
			rows[i].Value = math.NaN()
		default:
			rows[i].Value = stat.Mean(present, nil)
		}
	}

	if mode == AggregateRunningSum {
		_, values := splitRows(rows)
		floats.CumSum(values, values)
		for i := range rows {
			rows[i].Value = values[i]
		}
	}
	return rows, nil
}

func splitRows(rows []AggregatedRow) ([]string, []float64) {
	keys := make([]string, len(rows))
	values := make([]float64, len(rows))
	for i, r := range rows {
		keys[i] = r.Key
		values[i] = r.Value
	}
	return keys, values
}
