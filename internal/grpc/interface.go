package grpc

import (
	"context"

	"github.com/godilite/customerviz/internal/dataset"
	"github.com/godilite/customerviz/internal/figure"
	"github.com/godilite/customerviz/internal/service"
	"github.com/godilite/customerviz/pkg/render"
)

type PlotService interface {
	Choices() dataset.Choices
	GeneratePlot(ctx context.Context, req service.PlotRequest) (*figure.Figure, error)
}

// ImageRenderer draws a figure as a static image.
type ImageRenderer interface {
	Render(ctx context.Context, fig *figure.Figure, format render.Format) ([]byte, error)
}
