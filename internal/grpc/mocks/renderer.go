package mocks

import (
	"context"
	"errors"

	"github.com/godilite/customerviz/internal/figure"
	"github.com/godilite/customerviz/pkg/render"
)

// MockRenderer is a mock implementation of the ImageRenderer interface.
type MockRenderer struct {
	RenderFunc func(ctx context.Context, fig *figure.Figure, format render.Format) ([]byte, error)
}

// Render implements the ImageRenderer interface
func (m *MockRenderer) Render(ctx context.Context, fig *figure.Figure, format render.Format) ([]byte, error) {
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, fig, format)
	}
	return nil, errors.New("RenderFunc not implemented")
}
