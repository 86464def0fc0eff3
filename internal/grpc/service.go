package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/stuartshay/walkroute/internal/geo"
	"github.com/stuartshay/walkroute/internal/route"
	"github.com/stuartshay/walkroute/internal/session"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "walkroute.v1.SessionService"

// SessionServiceServer is the server API for SessionService
type SessionServiceServer interface {
	CreateSession(context.Context, *CreateSessionRequest) (*CreateSessionResponse, error)
	CloseSession(context.Context, *SessionRequest) (*CloseSessionResponse, error)
	StartTracking(context.Context, *SessionRequest) (*StatsResponse, error)
	StopTracking(context.Context, *SessionRequest) (*StopTrackingResponse, error)
	RecordPosition(context.Context, *RecordPositionRequest) (*StatsResponse, error)
	RecordHeading(context.Context, *RecordHeadingRequest) (*RecordHeadingResponse, error)
	GetStats(context.Context, *SessionRequest) (*StatsResponse, error)
	GenerateRoute(context.Context, *GenerateRouteRequest) (*GenerateRouteResponse, error)
	GetRouteJob(context.Context, *GetRouteJobRequest) (*GetRouteJobResponse, error)
	ListRouteJobs(context.Context, *ListRouteJobsRequest) (*ListRouteJobsResponse, error)
	ReplayTrack(context.Context, *ReplayTrackRequest) (*ReplayTrackResponse, error)
}

// CreateSessionRequest starts a new session
type CreateSessionRequest struct{}

// CreateSessionResponse carries the new session id
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRequest addresses an existing session
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// CloseSessionResponse confirms a closed session
type CloseSessionResponse struct {
	SessionID string `json:"session_id"`
	Closed    bool   `json:"closed"`
}

// StatsResponse carries running track totals
type StatsResponse struct {
	SessionID string            `json:"session_id"`
	Stats     session.StatsView `json:"stats"`
}

// StopTrackingResponse carries the final totals and the completed track
type StopTrackingResponse struct {
	SessionID string            `json:"session_id"`
	Stats     session.StatsView `json:"stats"`
	Track     []geo.Point       `json:"track"`
}

// RecordPositionRequest reports a position fix
type RecordPositionRequest struct {
	SessionID string  `json:"session_id"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// RecordHeadingRequest reports a raw compass heading in degrees [0,360)
type RecordHeadingRequest struct {
	SessionID string  `json:"session_id"`
	Heading   float64 `json:"heading"`
}

// RecordHeadingResponse reports whether the smoothed heading changed
type RecordHeadingResponse struct {
	SessionID string  `json:"session_id"`
	Changed   bool    `json:"changed"`
	Heading   float64 `json:"heading"`
	Delta     float64 `json:"delta,omitempty"`
}

// GenerateRouteRequest asks for a round-trip route. Origin defaults to the
// session's last known position.
type GenerateRouteRequest struct {
	SessionID  string     `json:"session_id"`
	DistanceKM float64    `json:"distance_km"`
	Origin     *geo.Point `json:"origin,omitempty"`
}

// GenerateRouteResponse identifies the queued job
type GenerateRouteResponse struct {
	JobID    string    `json:"job_id"`
	Status   string    `json:"status"`
	QueuedAt time.Time `json:"queued_at"`
}

// GetRouteJobRequest addresses a route job
type GetRouteJobRequest struct {
	JobID string `json:"job_id"`
}

// GetRouteJobResponse reports job progress and, once completed, the route
type GetRouteJobResponse struct {
	JobID            string      `json:"job_id"`
	SessionID        string      `json:"session_id"`
	Status           string      `json:"status"`
	QueuedAt         time.Time   `json:"queued_at"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`
	ErrorCode        string      `json:"error_code,omitempty"`
	ErrorMessage     string      `json:"error_message,omitempty"`
	Plan             *route.Plan `json:"plan,omitempty"`
	Path             []geo.Point `json:"path,omitempty"`
	DistanceMeters   float64     `json:"distance_meters,omitempty"`
	DurationSeconds  float64     `json:"duration_seconds,omitempty"`
	ProcessingTimeMS int64       `json:"processing_time_ms,omitempty"`
}

// ListRouteJobsRequest filters route jobs. Empty fields match everything.
type ListRouteJobsRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// RouteJobSummary is one entry of ListRouteJobsResponse
type RouteJobSummary struct {
	JobID       string     `json:"job_id"`
	SessionID   string     `json:"session_id"`
	Status      string     `json:"status"`
	DistanceKM  float64    `json:"distance_km"`
	QueuedAt    time.Time  `json:"queued_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListRouteJobsResponse is a page of route jobs, newest first
type ListRouteJobsResponse struct {
	Jobs       []RouteJobSummary `json:"jobs"`
	TotalCount int               `json:"total_count"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// ReplayTrackRequest selects a day of recorded positions
type ReplayTrackRequest struct {
	Date     string `json:"date"`
	DeviceID string `json:"device_id"`
}

// ReplayTrackResponse carries the replayed totals
type ReplayTrackResponse struct {
	Date     string            `json:"date"`
	DeviceID string            `json:"device_id"`
	Stats    session.StatsView `json:"stats"`
	Track    []geo.Point       `json:"track"`
	Skipped  int               `json:"skipped"`
}

// RegisterSessionServiceServer registers srv with the gRPC server
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

// SessionServiceDesc describes SessionService for grpc.Server
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateSession", SessionServiceServer.CreateSession),
		unary("CloseSession", SessionServiceServer.CloseSession),
		unary("StartTracking", SessionServiceServer.StartTracking),
		unary("StopTracking", SessionServiceServer.StopTracking),
		unary("RecordPosition", SessionServiceServer.RecordPosition),
		unary("RecordHeading", SessionServiceServer.RecordHeading),
		unary("GetStats", SessionServiceServer.GetStats),
		unary("GenerateRoute", SessionServiceServer.GenerateRoute),
		unary("GetRouteJob", SessionServiceServer.GetRouteJob),
		unary("ListRouteJobs", SessionServiceServer.ListRouteJobs),
		unary("ReplayTrack", SessionServiceServer.ReplayTrack),
	},
	Streams: []grpc.StreamDesc{},
}

func unary[Req, Resp any](name string, call func(SessionServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SessionServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SessionServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
