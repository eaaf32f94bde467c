package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// PlotService messages are protobuf well-known types, so the service needs no
// generated code: requests and figures travel as google.protobuf.Struct.
const (
	ServiceName = "customerviz.v1.PlotService"

	getChoicesMethod   = "/" + ServiceName + "/GetChoices"
	generatePlotMethod = "/" + ServiceName + "/GeneratePlot"
	renderPlotMethod   = "/" + ServiceName + "/RenderPlot"
)

type PlotServiceServer interface {
	GetChoices(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GeneratePlot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenderPlot(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

func RegisterPlotServiceServer(s grpc.ServiceRegistrar, srv PlotServiceServer) {
	s.RegisterService(&PlotServiceDesc, srv)
}

var PlotServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetChoices", Handler: getChoicesHandler},
		{MethodName: "GeneratePlot", Handler: generatePlotHandler},
		{MethodName: "RenderPlot", Handler: renderPlotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "customerviz/v1/plot.proto",
}

func getChoicesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlotServiceServer).GetChoices(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getChoicesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlotServiceServer).GetChoices(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func generatePlotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlotServiceServer).GeneratePlot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: generatePlotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlotServiceServer).GeneratePlot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func renderPlotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlotServiceServer).RenderPlot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: renderPlotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlotServiceServer).RenderPlot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// PlotServiceClient calls a remote PlotService.
type PlotServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPlotServiceClient(cc grpc.ClientConnInterface) *PlotServiceClient {
	return &PlotServiceClient{cc: cc}
}

func (c *PlotServiceClient) GetChoices(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getChoicesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PlotServiceClient) GeneratePlot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, generatePlotMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PlotServiceClient) RenderPlot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, renderPlotMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
