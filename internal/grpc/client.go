package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// SessionServiceClient is a typed client for SessionService
type SessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient wraps a connection. Calls are sent with the json
// content subtype.
func NewSessionServiceClient(cc grpc.ClientConnInterface) *SessionServiceClient {
	return &SessionServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession calls SessionService.CreateSession
func (c *SessionServiceClient) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error) {
	return invoke[CreateSessionResponse](ctx, c.cc, "CreateSession", in, opts)
}

// CloseSession calls SessionService.CloseSession
func (c *SessionServiceClient) CloseSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*CloseSessionResponse, error) {
	return invoke[CloseSessionResponse](ctx, c.cc, "CloseSession", in, opts)
}

// StartTracking calls SessionService.StartTracking
func (c *SessionServiceClient) StartTracking(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c.cc, "StartTracking", in, opts)
}

// StopTracking calls SessionService.StopTracking
func (c *SessionServiceClient) StopTracking(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*StopTrackingResponse, error) {
	return invoke[StopTrackingResponse](ctx, c.cc, "StopTracking", in, opts)
}

// RecordPosition calls SessionService.RecordPosition
func (c *SessionServiceClient) RecordPosition(ctx context.Context, in *RecordPositionRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c.cc, "RecordPosition", in, opts)
}

// RecordHeading calls SessionService.RecordHeading
func (c *SessionServiceClient) RecordHeading(ctx context.Context, in *RecordHeadingRequest, opts ...grpc.CallOption) (*RecordHeadingResponse, error) {
	return invoke[RecordHeadingResponse](ctx, c.cc, "RecordHeading", in, opts)
}

// GetStats calls SessionService.GetStats
func (c *SessionServiceClient) GetStats(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c.cc, "GetStats", in, opts)
}

// GenerateRoute calls SessionService.GenerateRoute
func (c *SessionServiceClient) GenerateRoute(ctx context.Context, in *GenerateRouteRequest, opts ...grpc.CallOption) (*GenerateRouteResponse, error) {
	return invoke[GenerateRouteResponse](ctx, c.cc, "GenerateRoute", in, opts)
}

// GetRouteJob calls SessionService.GetRouteJob
func (c *SessionServiceClient) GetRouteJob(ctx context.Context, in *GetRouteJobRequest, opts ...grpc.CallOption) (*GetRouteJobResponse, error) {
	return invoke[GetRouteJobResponse](ctx, c.cc, "GetRouteJob", in, opts)
}

// ListRouteJobs calls SessionService.ListRouteJobs
func (c *SessionServiceClient) ListRouteJobs(ctx context.Context, in *ListRouteJobsRequest, opts ...grpc.CallOption) (*ListRouteJobsResponse, error) {
	return invoke[ListRouteJobsResponse](ctx, c.cc, "ListRouteJobs", in, opts)
}

// ReplayTrack calls SessionService.ReplayTrack
func (c *SessionServiceClient) ReplayTrack(ctx context.Context, in *ReplayTrackRequest, opts ...grpc.CallOption) (*ReplayTrackResponse, error) {
	return invoke[ReplayTrackResponse](ctx, c.cc, "ReplayTrack", in, opts)
}
