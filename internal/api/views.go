package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReportViewsServiceName is the fully qualified gRPC service name.
const ReportViewsServiceName = "mirador.churn.v1.ReportViews"

const (
	methodGetDataset    = "/" + ReportViewsServiceName + "/GetDataset"
	methodGetAnalysis   = "/" + ReportViewsServiceName + "/GetAnalysis"
	methodGetEvaluation = "/" + ReportViewsServiceName + "/GetEvaluation"
	methodListRuns      = "/" + ReportViewsServiceName + "/ListRuns"
)

// ReportViewsServer serves read-only views of the latest churn report.
type ReportViewsServer interface {
	GetDataset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetAnalysis(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetEvaluation(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListRuns(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterReportViewsServer attaches srv to a gRPC service registrar.
func RegisterReportViewsServer(s grpc.ServiceRegistrar, srv ReportViewsServer) {
	s.RegisterService(&ReportViewsServiceDesc, srv)
}

// ReportViewsServiceDesc describes the ReportViews service. Messages are the
// well-known Empty and Struct types, so no generated code is needed.
var ReportViewsServiceDesc = grpc.ServiceDesc{
	ServiceName: ReportViewsServiceName,
	HandlerType: (*ReportViewsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDataset", Handler: unaryHandler(methodGetDataset, ReportViewsServer.GetDataset)},
		{MethodName: "GetAnalysis", Handler: unaryHandler(methodGetAnalysis, ReportViewsServer.GetAnalysis)},
		{MethodName: "GetEvaluation", Handler: unaryHandler(methodGetEvaluation, ReportViewsServer.GetEvaluation)},
		{MethodName: "ListRuns", Handler: unaryHandler(methodListRuns, ReportViewsServer.ListRuns)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mirador/churn/v1/report_views.proto",
}

type viewMethod func(ReportViewsServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call viewMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReportViewsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReportViewsServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ReportViewsClient calls the ReportViews service.
type ReportViewsClient struct {
	cc grpc.ClientConnInterface
}

// NewReportViewsClient wraps an established connection.
func NewReportViewsClient(cc grpc.ClientConnInterface) *ReportViewsClient {
	return &ReportViewsClient{cc: cc}
}

// GetDataset fetches the dataset view.
func (c *ReportViewsClient) GetDataset(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetDataset, opts...)
}

// GetAnalysis fetches the descriptive analysis view.
func (c *ReportViewsClient) GetAnalysis(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetAnalysis, opts...)
}

// GetEvaluation fetches the model evaluation view.
func (c *ReportViewsClient) GetEvaluation(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetEvaluation, opts...)
}

// ListRuns fetches the recent run history.
func (c *ReportViewsClient) ListRuns(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListRuns, opts...)
}

func (c *ReportViewsClient) invoke(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
