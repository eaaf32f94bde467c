package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/godilite/customerviz/internal/dataset"
	"github.com/godilite/customerviz/internal/figure"
	"github.com/godilite/customerviz/internal/service"
	"github.com/godilite/customerviz/pkg/render"
)

const maxRequestBody = 64 << 10

var errBadBody = errors.New("malformed request body")

type PlotService interface {
	Choices() dataset.Choices
	GeneratePlot(ctx context.Context, req service.PlotRequest) (*figure.Figure, error)
}

type ImageRenderer interface {
	Render(ctx context.Context, fig *figure.Figure, format render.Format) ([]byte, error)
}

// PlotHandler serves the form page and the plot endpoints behind it.
type PlotHandler struct {
	plots    PlotService
	renderer ImageRenderer
	page     *template.Template
	logger   *zap.Logger
}

func NewPlotHandler(plots PlotService, renderer ImageRenderer, page *template.Template, logger *zap.Logger) *PlotHandler {
	if plots == nil {
		panic("nil PlotService provided to NewPlotHandler")
	}
	if page == nil {
		panic("nil page template provided to NewPlotHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = render.New(render.WithLogger(logger))
	}
	return &PlotHandler{
		plots:    plots,
		renderer: renderer,
		page:     page,
		logger:   logger.Named("http-handler"),
	}
}

func (h *PlotHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Page)
	r.Route("/api", func(r chi.Router) {
		r.Get("/choices", h.GetChoices)
		r.Post("/plot", h.GeneratePlot)
		r.Post("/plot.png", h.RenderPlot(render.PNG))
		r.Post("/plot.svg", h.RenderPlot(render.SVG))
	})
}

// NewRouter builds the HTTP host: chi middleware, the plot routes and a
// /health heartbeat.
func NewRouter(h *PlotHandler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))

	h.RegisterRoutes(r)
	return r
}

// Page renders the form with its closed choice lists.
func (h *PlotHandler) Page(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.page.Execute(&buf, h.plots.Choices()); err != nil {
		h.logger.Error("render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *PlotHandler) GetChoices(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.plots.Choices())
}

// GeneratePlot returns the figure as JSON. Rejected selections come back as
// 400 with the reason, which the form shows in place of the chart.
func (h *PlotHandler) GeneratePlot(w http.ResponseWriter, r *http.Request) {
	req, err := decodePlotRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	fig, err := h.plots.GeneratePlot(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, fig)
}

func (h *PlotHandler) RenderPlot(format render.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodePlotRequest(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		fig, err := h.plots.GeneratePlot(r.Context(), req)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		img, err := h.renderer.Render(r.Context(), fig, format)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img)
	}
}

func (h *PlotHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("plot request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		Error(w, status, "internal error")
		return
	}
	Error(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, service.ErrInvalidSelection),
		errors.Is(err, service.ErrUnsupportedMode),
		errors.Is(err, service.ErrUnsupportedChartKind),
		errors.Is(err, render.ErrUnsupportedFormat),
		errors.Is(err, dataset.ErrUnknownColumn),
		errors.Is(err, dataset.ErrColumnKind):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodePlotRequest reads a JSON PlotRequest. Unknown fields are rejected and
// an empty body is an empty selection.
func decodePlotRequest(r *http.Request) (service.PlotRequest, error) {
	var req service.PlotRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return service.PlotRequest{}, nil
		}
		return service.PlotRequest{}, fmt.Errorf("%w: %v", errBadBody, err)
	}
	return req, nil
}
