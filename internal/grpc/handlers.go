package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/godilite/customerviz/internal/dataset"
	"github.com/godilite/customerviz/internal/service"
	"github.com/godilite/customerviz/pkg/render"
)

const defaultGRPCTimeout = 10 * time.Second

type GRPCHandlers struct {
	plots    PlotService
	renderer ImageRenderer
	logger   *zap.Logger
	sfGroup  singleflight.Group
	timeout  time.Duration
}

var _ PlotServiceServer = (*GRPCHandlers)(nil)

// NewGRPCHandlers initializes the gRPC handlers. A nil renderer draws with
// go-chart at the figure display size.
func NewGRPCHandlers(plots PlotService, renderer ImageRenderer, logger *zap.Logger, timeout time.Duration) *GRPCHandlers {
	if plots == nil {
		panic("nil PlotService provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = render.New(render.WithLogger(logger))
	}
	if timeout <= 0 {
		timeout = defaultGRPCTimeout
	}
	return &GRPCHandlers{
		plots:    plots,
		renderer: renderer,
		logger:   logger.Named("grpc-handler"),
		timeout:  timeout,
	}
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidSelection),
		errors.Is(err, service.ErrUnsupportedMode),
		errors.Is(err, service.ErrUnsupportedChartKind),
		errors.Is(err, render.ErrUnsupportedFormat),
		errors.Is(err, dataset.ErrUnknownColumn),
		errors.Is(err, dataset.ErrColumnKind):
		s.logger.Info("rejected request", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) GetChoices(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(s.plots.Choices())
	if err != nil {
		return nil, s.handleError(ctx, "GetChoices", err)
	}
	return out, nil
}

func (s *GRPCHandlers) GeneratePlot(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, _, err := DecodePlotRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fig, err := s.plots.GeneratePlot(ctx, req)
	if err != nil {
		return nil, s.handleError(ctx, "GeneratePlot", err)
	}

	out, err := toStruct(fig)
	if err != nil {
		return nil, s.handleError(ctx, "GeneratePlot", err)
	}
	return out, nil
}

// RenderPlot generates the figure and draws it as PNG (default) or SVG.
// Identical requests in flight at the same time share one render.
func (s *GRPCHandlers) RenderPlot(ctx context.Context, in *structpb.Struct) (*wrapperspb.BytesValue, error) {
	req, rawFormat, err := DecodePlotRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	format, err := render.ParseFormat(rawFormat)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	img, err := Coalesce(ctx, &s.sfGroup, renderKey(req, format), s.logger, func(ctx context.Context) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		fig, err := s.plots.GeneratePlot(ctx, req)
		if err != nil {
			return nil, err
		}
		return s.renderer.Render(ctx, fig, format)
	})
	if err != nil {
		return nil, s.handleError(ctx, "RenderPlot", err)
	}

	return wrapperspb.Bytes(img), nil
}

func renderKey(req service.PlotRequest, format render.Format) string {
	b, _ := json.Marshal(req)
	return "render:" + string(format) + ":" + string(b)
}
