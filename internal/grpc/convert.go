package grpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/godilite/customerviz/internal/dataset"
	"github.com/godilite/customerviz/internal/figure"
	"github.com/godilite/customerviz/internal/service"
)

var ErrBadRequest = errors.New("malformed request")

// Request field names. They match the JSON form of service.PlotRequest.
const (
	fieldFilterValues   = "filter_values"
	fieldCategoricalVar = "categorical_var"
	fieldNumericVar     = "numeric_var"
	fieldShowFrequency  = "show_frequency"
	fieldAggregateMode  = "aggregate_mode"
	fieldChartKind      = "chart_kind"
	fieldFormat         = "format"
)

// DecodePlotRequest reads a plot request from a Struct. Unknown fields and
// values of the wrong type are rejected. The optional "format" field is only
// meaningful to RenderPlot.
func DecodePlotRequest(s *structpb.Struct) (service.PlotRequest, string, error) {
	var (
		req    service.PlotRequest
		format string
		err    error
	)
	for name, v := range s.GetFields() {
		switch name {
		case fieldFilterValues:
			req.FilterValues, err = stringList(name, v)
		case fieldCategoricalVar:
			req.CategoricalVar, err = stringValue(name, v)
		case fieldNumericVar:
			req.NumericVar, err = stringValue(name, v)
		case fieldAggregateMode:
			req.AggregateMode, err = stringValue(name, v)
		case fieldChartKind:
			req.ChartKind, err = stringValue(name, v)
		case fieldFormat:
			format, err = stringValue(name, v)
		case fieldShowFrequency:
			req.ShowFrequency, err = boolValue(name, v)
		default:
			err = fmt.Errorf("%w: unknown field %q", ErrBadRequest, name)
		}
		if err != nil {
			return service.PlotRequest{}, "", err
		}
	}
	return req, format, nil
}

// EncodePlotRequest is the client side of DecodePlotRequest. An empty format
// is omitted.
func EncodePlotRequest(req service.PlotRequest, format string) (*structpb.Struct, error) {
	filters := make([]any, len(req.FilterValues))
	for i, v := range req.FilterValues {
		filters[i] = v
	}
	fields := map[string]any{
		fieldFilterValues:   filters,
		fieldCategoricalVar: req.CategoricalVar,
		fieldNumericVar:     req.NumericVar,
		fieldShowFrequency:  req.ShowFrequency,
		fieldAggregateMode:  req.AggregateMode,
		fieldChartKind:      req.ChartKind,
	}
	if format != "" {
		fields[fieldFormat] = format
	}
	return structpb.NewStruct(fields)
}

func stringValue(name string, v *structpb.Value) (string, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s must be a string", ErrBadRequest, name)
	}
}

func boolValue(name string, v *structpb.Value) (bool, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return k.BoolValue, nil
	case *structpb.Value_NullValue:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s must be a bool", ErrBadRequest, name)
	}
}

func stringList(name string, v *structpb.Value) ([]string, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		return []string{k.StringValue}, nil
	case *structpb.Value_ListValue:
		items := k.ListValue.GetValues()
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return nil, fmt.Errorf("%w: %s must hold strings", ErrBadRequest, name)
			}
			out = append(out, s.StringValue)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a list of strings", ErrBadRequest, name)
	}
}

// toStruct converts any JSON-encodable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("to struct: %w", err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("from struct: %w", err)
	}
	return json.Unmarshal(b, v)
}

// FigureFromStruct decodes a GeneratePlot response.
func FigureFromStruct(s *structpb.Struct) (*figure.Figure, error) {
	fig := &figure.Figure{}
	if err := fromStruct(s, fig); err != nil {
		return nil, err
	}
	return fig, nil
}

// ChoicesFromStruct decodes a GetChoices response.
func ChoicesFromStruct(s *structpb.Struct) (dataset.Choices, error) {
	var c dataset.Choices
	err := fromStruct(s, &c)
	return c, err
}
