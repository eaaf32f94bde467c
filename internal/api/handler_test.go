package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/customerviz/internal/dataset"
	"github.com/godilite/customerviz/internal/figure"
	"github.com/godilite/customerviz/internal/service"
	"github.com/godilite/customerviz/pkg/render"
	"github.com/godilite/customerviz/web"
)

type stubRenderer struct {
	err error
}

func (s stubRenderer) Render(ctx context.Context, fig *figure.Figure, format render.Format) ([]byte, error) {
	return nil, s.err
}

func newTestRouter(t *testing.T, renderer ImageRenderer) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)

	table, err := dataset.NewTable(
		dataset.TextColumn("Customer ID", "c1", "c2", "c3", "c4", "c5"),
		dataset.TextColumn("Occupation", "Doctor", "Doctor", "Teacher", "", "Lawyer"),
		dataset.NumberColumn("Age", 30, 40, 50, 60, math.NaN()),
		dataset.TextColumn("Credit Score", "Good", "Good", "Standard", "Poor", "Poor"),
	)
	require.NoError(t, err)
	schema, err := dataset.NewSchema(table, "Credit Score", []string{"Customer ID"})
	require.NoError(t, err)

	page, err := web.PageTemplate()
	require.NoError(t, err)

	plots := service.NewPlotService(table, schema, logger)
	return NewRouter(NewPlotHandler(plots, renderer, page, logger), logger)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeFigure(t *testing.T, rr *httptest.ResponseRecorder) figure.Figure {
	t.Helper()
	var fig figure.Figure
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&fig))
	return fig
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusCreated, map[string]string{"foo": "bar"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"foo":"bar"}`, w.Body.String())
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, "unsupported chart kind")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"unsupported chart kind"}`, w.Body.String())
}

func TestNewPlotHandler(t *testing.T) {
	page, err := web.PageTemplate()
	require.NoError(t, err)

	assert.Panics(t, func() { NewPlotHandler(nil, nil, page, nil) })

	h := NewPlotHandler(&service.PlotService{}, nil, page, nil)
	assert.NotNil(t, h.renderer)
	assert.NotNil(t, h.logger)
}

func TestPage(t *testing.T) {
	h := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	body := rr.Body.String()
	assert.Contains(t, body, "Visualising my Customers")
	assert.Contains(t, body, "Select Credit Score")
	assert.Contains(t, body, `value="Occupation"`)
	assert.Contains(t, body, `value="running sum"`)
	assert.Contains(t, body, `value="line chart"`)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetChoices(t *testing.T) {
	h := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/choices", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var choices dataset.Choices
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&choices))
	assert.Equal(t, []string{dataset.NoSelection, "Good", "Standard", "Poor"}, choices.FilterValues.Choices)
	assert.Equal(t, []string{dataset.NoSelection, "Occupation"}, choices.CategoricalVar.Choices)
	assert.Equal(t, []string{dataset.NoSelection, "Age"}, choices.NumericVar.Choices)
	assert.Equal(t, []string{dataset.NoSelection, "mean", "sum", "running sum"}, choices.AggregateMode.Choices)
}

func TestGeneratePlot(t *testing.T) {
	h := newTestRouter(t, nil)

	t.Run("mean bar", func(t *testing.T) {
		rr := post(t, h, "/api/plot", `{
			"filter_values": ["Good", "Standard"],
			"categorical_var": "Occupation",
			"numeric_var": "Age",
			"aggregate_mode": "mean",
			"chart_kind": "bar chart"
		}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		fig := decodeFigure(t, rr)
		assert.Equal(t, "Age by Occupation (mean)", fig.Title())
		require.Len(t, fig.Data, 1)
		assert.Equal(t, []string{"Doctor", "Teacher"}, fig.Data[0].X)
		assert.Equal(t, figure.Values{35, 50}, fig.Data[0].Y)
		assert.Equal(t, figure.Height, fig.Layout.Height)
		assert.Equal(t, figure.Width, fig.Layout.Width)
	})

	t.Run("frequency ignores mode and kind", func(t *testing.T) {
		rr := post(t, h, "/api/plot", `{
			"categorical_var": "Occupation",
			"show_frequency": true,
			"aggregate_mode": "median",
			"chart_kind": "radar"
		}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		fig := decodeFigure(t, rr)
		assert.Equal(t, "Frequency Distribution of Occupation", fig.Title())
		assert.Equal(t, []string{"Doctor", "Teacher", "Lawyer"}, fig.Data[0].X)
	})

	t.Run("empty body is a placeholder", func(t *testing.T) {
		rr := post(t, h, "/api/plot", "")
		require.Equal(t, http.StatusOK, rr.Code)

		fig := decodeFigure(t, rr)
		assert.Empty(t, fig.Data)
		assert.Equal(t, figure.Height, fig.Layout.Height)
	})

	rejected := map[string]string{
		"unknown chart kind": `{"categorical_var":"Occupation","numeric_var":"Age","aggregate_mode":"sum","chart_kind":"radar"}`,
		"unknown mode":       `{"aggregate_mode":"median"}`,
		"unknown filter":     `{"filter_values":["Excellent"]}`,
		"not categorical":    `{"categorical_var":"Age","show_frequency":true}`,
		"unknown field":      `{"colour":"red"}`,
		"malformed json":     `{"chart_kind":`,
		"wrong field type":   `{"show_frequency":"yes"}`,
	}
	for name, body := range rejected {
		t.Run(name, func(t *testing.T) {
			rr := post(t, h, "/api/plot", body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestRenderPlot(t *testing.T) {
	body := `{"categorical_var":"Occupation","numeric_var":"Age","aggregate_mode":"sum","chart_kind":"pie chart"}`

	t.Run("png", func(t *testing.T) {
		h := newTestRouter(t, nil)

		rr := post(t, h, "/api/plot.png", body)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
		cfg, err := png.DecodeConfig(bytes.NewReader(rr.Body.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, figure.Width, cfg.Width)
		assert.Equal(t, figure.Height, cfg.Height)
	})

	t.Run("svg", func(t *testing.T) {
		h := newTestRouter(t, nil)

		rr := post(t, h, "/api/plot.svg", body)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Body.String(), "<svg")
	})

	t.Run("rejected selection", func(t *testing.T) {
		h := newTestRouter(t, nil)

		rr := post(t, h, "/api/plot.png", `{"aggregate_mode":"median"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("renderer failure hides details", func(t *testing.T) {
		h := newTestRouter(t, stubRenderer{err: errors.New("font cache corrupted")})

		rr := post(t, h, "/api/plot.png", body)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error":"internal error"}`, rr.Body.String())
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(context.Canceled))
	assert.Equal(t, http.StatusBadRequest, statusFor(render.ErrUnsupportedFormat))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
