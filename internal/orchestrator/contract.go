// Package orchestrator holds the gRPC contract between the scheduler and the
// orchestrator. Messages are plain structs carried by the JSON codec in
// internal/grpcjson, so the service descriptor is written by hand.
package orchestrator

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName = "reviewreply.orchestrator.OrchestratorService"

	enqueueMethod = "/" + ServiceName + "/Enqueue"
	healthMethod  = "/" + ServiceName + "/GetHealthStatus"
)

type JobStatus string

const JobStatusPending JobStatus = "pending"

type EnqueueRequest struct {
	RequestID string `json:"requestId"`
	JobType   string `json:"jobType"`
	Timestamp int64  `json:"timestamp"`
}

type JobInfo struct {
	JobID      string    `json:"jobId"`
	JobType    string    `json:"jobType"`
	LocationID string    `json:"locationId,omitempty"`
	BusinessID string    `json:"businessId,omitempty"`
	Status     JobStatus `json:"status"`
}

type EnqueueResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	RequestID   string    `json:"requestId"`
	JobsCreated int32     `json:"jobsCreated"`
	Jobs        []JobInfo `json:"jobs,omitempty"`
}

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

type OrchestratorServiceServer interface {
	Enqueue(ctx context.Context, req *EnqueueRequest) (*EnqueueResponse, error)
	GetHealthStatus(ctx context.Context, req *HealthRequest) (*HealthResponse, error)
}

func RegisterOrchestratorServiceServer(registrar grpc.ServiceRegistrar, srv OrchestratorServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrchestratorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Enqueue", Handler: enqueueHandler},
		{MethodName: "GetHealthStatus", Handler: healthHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orchestrator.json",
}

func enqueueHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(EnqueueRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrchestratorServiceServer).Enqueue(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: enqueueMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrchestratorServiceServer).Enqueue(ctx, req.(*EnqueueRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func healthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrchestratorServiceServer).GetHealthStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: healthMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrchestratorServiceServer).GetHealthStatus(ctx, req.(*HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type OrchestratorServiceClient interface {
	Enqueue(ctx context.Context, in *EnqueueRequest, opts ...grpc.CallOption) (*EnqueueResponse, error)
	GetHealthStatus(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error)
}

type orchestratorServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrchestratorServiceClient(cc grpc.ClientConnInterface) OrchestratorServiceClient {
	return &orchestratorServiceClient{cc: cc}
}

func (c *orchestratorServiceClient) Enqueue(ctx context.Context, in *EnqueueRequest, opts ...grpc.CallOption) (*EnqueueResponse, error) {
	out := new(EnqueueResponse)
	if err := c.cc.Invoke(ctx, enqueueMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orchestratorServiceClient) GetHealthStatus(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	out := new(HealthResponse)
	if err := c.cc.Invoke(ctx, healthMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
