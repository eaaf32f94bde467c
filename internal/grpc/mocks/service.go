package mocks

import (
	"context"
	"errors"

	"github.com/godilite/customerviz/internal/dataset"
	"github.com/godilite/customerviz/internal/figure"
	"github.com/godilite/customerviz/internal/service"
)

// MockPlotService is a mock implementation of the PlotService interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockPlotService struct {
	ChoicesFunc      func() dataset.Choices
	GeneratePlotFunc func(ctx context.Context, req service.PlotRequest) (*figure.Figure, error)
}

// Choices implements the PlotService interface
func (m *MockPlotService) Choices() dataset.Choices {
	if m.ChoicesFunc != nil {
		return m.ChoicesFunc()
	}
	return dataset.Choices{}
}

// GeneratePlot implements the PlotService interface
func (m *MockPlotService) GeneratePlot(ctx context.Context, req service.PlotRequest) (*figure.Figure, error) {
	if m.GeneratePlotFunc != nil {
		return m.GeneratePlotFunc(ctx, req)
	}
	return nil, errors.New("GeneratePlotFunc not implemented")
}
