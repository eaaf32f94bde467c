// Package figure holds the renderer-neutral chart object returned by the plot
// service. Its JSON form follows the Plotly figure layout (data + layout), so
// a browser host can hand it to Plotly.newPlot unchanged.
package figure

import (
	"encoding/json"
	"math"
	"strconv"
)

// Display size shared by every chart.
const (
	Height = 500
	Width  = 700
)

// TraceType is the Plotly trace type.
type TraceType string

const (
	TypeBar       TraceType = "bar"
	TypePie       TraceType = "pie"
	TypeScatter   TraceType = "scatter"
	TypeHistogram TraceType = "histogram"
)

// Values is a numeric series whose missing entries (NaN) encode as null.
type Values []float64

func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(v)*8)
	buf = append(buf, '[')
	for i, x := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, x, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

func (v *Values) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*v = nil
		return nil
	}
	out := make(Values, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *p
		}
	}
	*v = out
	return nil
}

// Trace is one series of a figure.
type Trace struct {
	Type         TraceType `json:"type"`
	Name         string    `json:"name,omitempty"`
	X            []string  `json:"x,omitempty"`
	Y            Values    `json:"y,omitempty"`
	Labels       []string  `json:"labels,omitempty"`
	Values       Values    `json:"values,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	HistFunc     string    `json:"histfunc,omitempty"`
	TextTemplate string    `json:"texttemplate,omitempty"`
	TextPosition string    `json:"textposition,omitempty"`
	TextInfo     string    `json:"textinfo,omitempty"`
}

// Points returns the category labels and values of the trace regardless of
// whether it is positional (x/y) or a pie (labels/values).
func (t Trace) Points() ([]string, Values) {
	if t.Type == TypePie {
		return t.Labels, t.Values
	}
	return t.X, t.Y
}

type Title struct {
	Text string `json:"text"`
}

type Axis struct {
	Title Title `json:"title"`
}

type Layout struct {
	Title  Title `json:"title"`
	Height int   `json:"height"`
	Width  int   `json:"width"`
	XAxis  *Axis `json:"xaxis,omitempty"`
	YAxis  *Axis `json:"yaxis,omitempty"`
}

// Figure is the chart object handed to hosts. It is never mutated after it
// is returned.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// New returns an empty figure with the given title and the fixed display size.
func New(title string) *Figure {
	f := &Figure{Data: []Trace{}}
	f.Layout.Title.Text = title
	f.Resize()
	return f
}

// Resize applies the fixed display size.
func (f *Figure) Resize() {
	f.Layout.Height = Height
	f.Layout.Width = Width
}

// Title returns the figure title.
func (f *Figure) Title() string { return f.Layout.Title.Text }

// Empty reports whether the figure has nothing to draw.
func (f *Figure) Empty() bool {
	for _, t := range f.Data {
		labels, _ := t.Points()
		if len(labels) > 0 {
			return false
		}
	}
	return true
}

func (f *Figure) withAxes(x, y string) *Figure {
	f.Layout.XAxis = &Axis{Title: Title{Text: x}}
	f.Layout.YAxis = &Axis{Title: Title{Text: y}}
	return f
}

// Histogram counts rows per category. Counts are pre-computed, so the trace
// uses histfunc "sum" over the supplied y values.
func Histogram(title, category string, keys []string, counts Values) *Figure {
	f := New(title).withAxes(category, "count")
	f.Data = append(f.Data, Trace{
		Type:     TypeHistogram,
		Name:     category,
		X:        keys,
		Y:        counts,
		HistFunc: "sum",
	})
	return f
}

// Bar draws one bar per category labelled with its value above the bar.
func Bar(title, category, value string, keys []string, values Values) *Figure {
	f := New(title).withAxes(category, value)
	f.Data = append(f.Data, Trace{
		Type:         TypeBar,
		Name:         value,
		X:            keys,
		Y:            values,
		TextTemplate: "%{y}",
		TextPosition: "outside",
	})
	return f
}

// Pie draws one slice per category labelled with its share and name.
func Pie(title, value string, keys []string, values Values) *Figure {
	f := New(title)
	f.Data = append(f.Data, Trace{
		Type:     TypePie,
		Name:     value,
		Labels:   keys,
		Values:   values,
		TextInfo: "percent+label",
	})
	return f
}

// Line connects the categories in order and labels each point above it.
func Line(title, category, value string, keys []string, values Values) *Figure {
	f := New(title).withAxes(category, value)
	f.Data = append(f.Data, Trace{
		Type:         TypeScatter,
		Name:         value,
		X:            keys,
		Y:            values,
		Mode:         "lines+markers+text",
		TextTemplate: "%{y}",
		TextPosition: "top center",
	})
	return f
}
