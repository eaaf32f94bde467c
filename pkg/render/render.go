// Package render draws figures as static PNG or SVG images with go-chart.
// It is the headless counterpart of the browser host, which draws the same
// figure JSON with Plotly.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"

	"github.com/godilite/customerviz/internal/figure"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrUnsupportedTrace  = errors.New("unsupported trace type")

	errNothingToDraw = errors.New("nothing to draw")
)

type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat accepts "png" or "svg" in any case. An empty string means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "svg":
		return SVG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() (chart.RendererProvider, error) {
	switch f {
	case PNG:
		return chart.PNG, nil
	case SVG:
		return chart.SVG, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

type plot interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

type Renderer struct {
	logger *zap.Logger
	width  int
	height int
}

type Option func(*Renderer)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// WithSize overrides the image size. Non-positive values keep the figure
// display size.
func WithSize(width, height int) Option {
	return func(r *Renderer) {
		if width > 0 {
			r.width = width
		}
		if height > 0 {
			r.height = height
		}
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{
		logger: zap.NewNop(),
		width:  figure.Width,
		height: figure.Height,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws the first trace of fig in the requested format. Figures with
// nothing to draw, and figures go-chart cannot draw, come back as a blank
// canvas carrying the figure title.
func (r *Renderer) Render(ctx context.Context, fig *figure.Figure, format Format) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rp, err := format.provider()
	if err != nil {
		return nil, err
	}
	if fig == nil {
		return nil, errors.New("figure must not be nil")
	}

	p, err := r.plot(fig)
	if err != nil {
		if errors.Is(err, ErrUnsupportedTrace) {
			return nil, err
		}
		if !errors.Is(err, errNothingToDraw) {
			r.logger.Warn("chart build failed, using blank canvas", zap.String("title", fig.Title()), zap.Error(err))
		}
		return r.placeholder(rp, fig.Title())
	}

	var buf bytes.Buffer
	if err := p.Render(rp, &buf); err != nil {
		r.logger.Warn("chart render failed, using blank canvas", zap.String("title", fig.Title()), zap.Error(err))
		return r.placeholder(rp, fig.Title())
	}
	return buf.Bytes(), nil
}

func (r *Renderer) plot(fig *figure.Figure) (plot, error) {
	if fig.Empty() {
		return nil, errNothingToDraw
	}
	trace := fig.Data[0]
	switch trace.Type {
	case figure.TypeBar:
		return r.bar(fig, trace, true)
	case figure.TypeHistogram:
		return r.bar(fig, trace, false)
	case figure.TypePie:
		return r.pie(fig, trace)
	case figure.TypeScatter:
		return r.line(fig, trace)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTrace, string(trace.Type))
	}
}

func (r *Renderer) bar(fig *figure.Figure, trace figure.Trace, labelled bool) (plot, error) {
	keys, values := trace.Points()

	bars := make([]chart.Value, len(keys))
	labels := make([]string, len(keys))
	lo, hi := 0.0, 0.0
	for i, key := range keys {
		v, ok := valueAt(values, i)
		if ok {
			labels[i] = formatValue(v)
		}
		bars[i] = chart.Value{Label: key, Value: v}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	yr := &chart.ContinuousRange{Min: lo, Max: hi + (hi-lo)*0.1}

	bc := chart.BarChart{
		Title:      fig.Title(),
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 10, Bottom: 50}},
		YAxis:      chart.YAxis{Range: yr},
		Bars:       bars,
	}
	if labelled {
		bc.Elements = []chart.Renderable{barLabels(bc, yr, labels)}
	}
	return bc, nil
}

// barLabels writes each value centred above its bar. go-chart keeps bar
// placement private, so the slot arithmetic of BarChart.drawBars is repeated
// against the final canvas box.
func barLabels(bc chart.BarChart, yr chart.Range, labels []string) chart.Renderable {
	return func(r chart.Renderer, box chart.Box, defaults chart.Style) {
		n := len(bc.Bars)
		if n == 0 {
			return
		}
		width, spacing := bc.GetBarWidth(), bc.GetBarSpacing()
		if n*(width+spacing) > box.Width() {
			spacing = shrink(box.Width()-n*width, n)
		}
		if n*(width+spacing) > box.Width() {
			width = shrink(box.Width()-n*spacing, n)
		}

		style := chart.Style{
			Font:      defaults.Font,
			FontSize:  chart.DefaultAxisFontSize,
			FontColor: chart.ColorBlack,
		}
		x := box.Left
		for i, b := range bc.Bars {
			if labels[i] != "" {
				tb := chart.Draw.MeasureText(r, labels[i], style)
				cx := x + spacing>>1 + width>>1
				top := box.Bottom - yr.Translate(b.Value)
				chart.Draw.Text(r, labels[i], cx-tb.Width()>>1, top-4, style)
			}
			x += width + spacing
		}
	}
}

func shrink(available, n int) int {
	if available <= 0 {
		return 0
	}
	return int(math.Ceil(float64(available) / float64(n)))
}

func (r *Renderer) pie(fig *figure.Figure, trace figure.Trace) (plot, error) {
	keys, values := trace.Points()

	total := 0.0
	for i := range keys {
		if v, ok := valueAt(values, i); ok && v > 0 {
			total += v
		}
	}
	if total == 0 {
		return nil, errNothingToDraw
	}

	slices := make([]chart.Value, 0, len(keys))
	for i, key := range keys {
		v, ok := valueAt(values, i)
		if !ok || v <= 0 {
			continue
		}
		slices = append(slices, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", key, v/total*100),
			Value: v,
		})
	}

	return chart.PieChart{
		Title:  fig.Title(),
		Width:  r.width,
		Height: r.height,
		Values: slices,
	}, nil
}

func (r *Renderer) line(fig *figure.Figure, trace figure.Trace) (plot, error) {
	keys, values := trace.Points()
	n := len(keys)

	ticks := make([]chart.Tick, 0, n+2)
	ticks = append(ticks, chart.Tick{Value: 0.5})
	var xs, ys []float64
	var notes []chart.Value2
	for i, key := range keys {
		x := float64(i + 1)
		ticks = append(ticks, chart.Tick{Value: x, Label: key})
		v, ok := valueAt(values, i)
		if !ok {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, v)
		notes = append(notes, chart.Value2{XValue: x, YValue: v, Label: formatValue(v)})
	}
	ticks = append(ticks, chart.Tick{Value: float64(n) + 0.5})
	if len(xs) == 0 {
		return nil, errNothingToDraw
	}

	lo, hi := ys[0], ys[0]
	for _, v := range ys[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.15
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.1, 1)
	}

	var xName, yName string
	if fig.Layout.XAxis != nil {
		xName = fig.Layout.XAxis.Title.Text
	}
	if fig.Layout.YAxis != nil {
		yName = fig.Layout.YAxis.Title.Text
	}

	return chart.Chart{
		Title:      fig.Title(),
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      chart.XAxis{Name: xName, Ticks: ticks},
		YAxis:      chart.YAxis{Name: yName, Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    trace.Name,
				Style:   chart.Style{StrokeWidth: 2, DotWidth: 4},
				XValues: xs,
				YValues: ys,
			},
			chart.AnnotationSeries{Annotations: notes},
		},
	}, nil
}

// placeholder draws a white canvas with the title centred at the top.
func (r *Renderer) placeholder(rp chart.RendererProvider, title string) ([]byte, error) {
	cr, err := rp(r.width, r.height)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	cr.SetDPI(chart.DefaultDPI)

	chart.Draw.Box(cr, chart.Box{Right: r.width, Bottom: r.height}, chart.Style{
		FillColor:   drawing.ColorWhite,
		StrokeColor: drawing.ColorWhite,
		StrokeWidth: chart.DefaultStrokeWidth,
	})
	if title != "" {
		chart.Draw.TextWithin(cr, title, chart.Box{Top: 20, Left: 20, Right: r.width - 20, Bottom: 80}, chart.Style{
			Font:                font,
			FontSize:            18,
			FontColor:           chart.ColorBlack,
			TextHorizontalAlign: chart.TextHorizontalAlignCenter,
			TextVerticalAlign:   chart.TextVerticalAlignTop,
			TextWrap:            chart.TextWrapWord,
		})
	}

	var buf bytes.Buffer
	if err := cr.Save(&buf); err != nil {
		return nil, fmt.Errorf("save placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func valueAt(values figure.Values, i int) (float64, bool) {
	if i >= len(values) {
		return 0, false
	}
	v := values[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
