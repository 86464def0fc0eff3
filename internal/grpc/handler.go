// Package grpc implements the SessionService gRPC server handlers for
// walk tracking sessions, heading smoothing and asynchronous round-trip
// route generation.
package grpc

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stuartshay/walkroute/internal/config"
	"github.com/stuartshay/walkroute/internal/database"
	"github.com/stuartshay/walkroute/internal/geo"
	"github.com/stuartshay/walkroute/internal/queue"
	"github.com/stuartshay/walkroute/internal/route"
	"github.com/stuartshay/walkroute/internal/session"
	"github.com/stuartshay/walkroute/internal/tracking"
)

// LocationSource supplies recorded positions for track replay
type LocationSource interface {
	GetLocationsByDate(ctx context.Context, date string, deviceID string) ([]database.Location, error)
}

// Server implements the SessionService gRPC server
type Server struct {
	cfg       *config.Config
	sessions  *session.Manager
	generator *route.Generator
	locations LocationSource
	queue     *queue.Queue
}

var _ SessionServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance. locations may be nil, in
// which case ReplayTrack reports Unavailable.
func NewServer(cfg *config.Config, sessions *session.Manager, generator *route.Generator, locations LocationSource) *Server {
	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		generator: generator,
		locations: locations,
	}

	// Initialize job queue with processor
	s.queue = queue.NewQueue(cfg.RouteWorkers, s.processRouteJob)

	return s
}

// CreateSession starts a new tracking session
func (s *Server) CreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	sess := s.sessions.Create()
	return &CreateSessionResponse{
		SessionID: sess.ID,
		CreatedAt: sess.CreatedAt,
	}, nil
}

// CloseSession removes a session and disconnects its observers
func (s *Server) CloseSession(ctx context.Context, req *SessionRequest) (*CloseSessionResponse, error) {
	if err := s.sessions.Remove(req.SessionID); err != nil {
		return nil, toStatus(err)
	}
	return &CloseSessionResponse{SessionID: req.SessionID, Closed: true}, nil
}

// StartTracking clears the session track and starts accumulating positions
func (s *Server) StartTracking(ctx context.Context, req *SessionRequest) (*StatsResponse, error) {
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}

	stats, err := sess.StartTracking()
	if err != nil {
		return nil, toStatus(err)
	}
	log.Info().Str("session_id", sess.ID).Msg("Tracking started")

	return &StatsResponse{SessionID: sess.ID, Stats: session.NewStatsView(stats)}, nil
}

// StopTracking ends tracking and returns the completed track
func (s *Server) StopTracking(ctx context.Context, req *SessionRequest) (*StopTrackingResponse, error) {
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}

	stats, track, err := sess.StopTracking()
	if err != nil {
		return nil, toStatus(err)
	}

	log.Info().
		Str("session_id", sess.ID).
		Int("points", stats.Points).
		Float64("distance_m", stats.DistanceMeters).
		Dur("elapsed", stats.Elapsed).
		Msg("Tracking stopped")

	return &StopTrackingResponse{
		SessionID: sess.ID,
		Stats:     session.NewStatsView(stats),
		Track:     track,
	}, nil
}

// RecordPosition updates the last known position and, while tracking,
// extends the track
func (s *Server) RecordPosition(ctx context.Context, req *RecordPositionRequest) (*StatsResponse, error) {
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}

	stats, err := sess.UpdatePosition(geo.Point{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		return nil, toStatus(err)
	}

	return &StatsResponse{SessionID: sess.ID, Stats: session.NewStatsView(stats)}, nil
}

// RecordHeading feeds a raw compass reading through the session's heading
// filter. Readings are normalized into [0,360) first.
func (s *Server) RecordHeading(ctx context.Context, req *RecordHeadingRequest) (*RecordHeadingResponse, error) {
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}

	if math.IsNaN(req.Heading) || math.IsInf(req.Heading, 0) {
		return nil, status.Error(codes.InvalidArgument, "heading must be a finite number of degrees")
	}

	ev, changed := sess.IngestHeading(geo.NormalizeBearing(req.Heading))
	if !changed {
		return &RecordHeadingResponse{SessionID: sess.ID, Heading: sess.Heading()}, nil
	}

	return &RecordHeadingResponse{
		SessionID: sess.ID,
		Changed:   true,
		Heading:   ev.Heading,
		Delta:     ev.Delta,
	}, nil
}

// GetStats returns the running distance and elapsed time of a session
func (s *Server) GetStats(ctx context.Context, req *SessionRequest) (*StatsResponse, error) {
	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &StatsResponse{SessionID: sess.ID, Stats: session.NewStatsView(sess.Stats())}, nil
}

// GenerateRoute validates the request and enqueues an asynchronous
// round-trip route generation job
func (s *Server) GenerateRoute(ctx context.Context, req *GenerateRouteRequest) (*GenerateRouteResponse, error) {
	log.Info().
		Str("session_id", req.SessionID).
		Float64("distance_km", req.DistanceKM).
		Msg("Received route generation request")

	sess, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}

	if err := sess.CheckRoutable(); err != nil {
		return nil, toStatus(err)
	}

	distance := req.DistanceKM * 1000
	if !(distance > 0) {
		return nil, toStatus(fmt.Errorf("%w: %v km", route.ErrInvalidDistance, req.DistanceKM))
	}
	if s.cfg.MaxRouteDistance > 0 && distance > s.cfg.MaxRouteDistance {
		return nil, toStatus(fmt.Errorf("%w: %v km exceeds limit of %v m",
			route.ErrInvalidDistance, req.DistanceKM, s.cfg.MaxRouteDistance))
	}

	var origin geo.Point
	if req.Origin != nil {
		if err := req.Origin.Validate(); err != nil {
			return nil, toStatus(err)
		}
		origin = *req.Origin
	} else if origin, err = sess.Position(); err != nil {
		return nil, toStatus(err)
	}

	jobID, err := s.queue.Enqueue(queue.Request{
		SessionID:      sess.ID,
		Origin:         origin,
		DistanceMeters: distance,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to enqueue route job")
		return nil, toStatus(fmt.Errorf("failed to enqueue job: %w", err))
	}

	job, err := s.queue.GetJob(jobID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &GenerateRouteResponse{
		JobID:    job.ID,
		Status:   string(queue.StatusQueued),
		QueuedAt: job.QueuedAt,
	}, nil
}

// GetRouteJob returns the current status of a route generation job
func (s *Server) GetRouteJob(ctx context.Context, req *GetRouteJobRequest) (*GetRouteJobResponse, error) {
	job, err := s.queue.GetJob(req.JobID)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &GetRouteJobResponse{
		JobID:        job.ID,
		SessionID:    job.Request.SessionID,
		Status:       string(job.Status),
		QueuedAt:     job.QueuedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		ErrorMessage: job.ErrorMessage,
	}

	if job.Err != nil {
		resp.ErrorCode = errorCode(job.Err).String()
	}

	if job.Result != nil && job.Result.Trip != nil {
		trip := job.Result.Trip
		resp.Plan = &trip.Plan
		resp.Path = trip.Path()
		resp.DistanceMeters = trip.DistanceMeters()
		if trip.Outbound != nil {
			resp.DurationSeconds = 2 * trip.Outbound.DurationSeconds
		}
		resp.ProcessingTimeMS = job.Result.ProcessingTimeMS
	}

	return resp, nil
}

// ListRouteJobs returns route jobs with optional filtering
func (s *Server) ListRouteJobs(ctx context.Context, req *ListRouteJobsRequest) (*ListRouteJobsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	jobs, total := s.queue.ListJobs(queue.JobStatus(req.Status), req.SessionID, limit, offset)

	resp := &ListRouteJobsResponse{
		Jobs:       make([]RouteJobSummary, 0, len(jobs)),
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	}

	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, RouteJobSummary{
			JobID:       job.ID,
			SessionID:   job.Request.SessionID,
			Status:      string(job.Status),
			DistanceKM:  job.Request.DistanceMeters / 1000,
			QueuedAt:    job.QueuedAt,
			CompletedAt: job.CompletedAt,
		})
	}

	return resp, nil
}

// ReplayTrack runs a day of recorded OwnTracks positions through a tracker
// and returns the resulting totals
func (s *Server) ReplayTrack(ctx context.Context, req *ReplayTrackRequest) (*ReplayTrackResponse, error) {
	if s.locations == nil {
		return nil, status.Error(codes.Unavailable, "track replay requires a database")
	}
	if req.Date == "" {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid date %q: want YYYY-MM-DD", req.Date)
	}

	locations, err := s.locations.GetLocationsByDate(ctx, req.Date, req.DeviceID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch locations from database")
		return nil, status.Errorf(codes.Internal, "database query failed: %v", err)
	}

	fixes := make([]tracking.Fix, len(locations))
	for i, loc := range locations {
		fixes[i] = tracking.Fix{Point: loc.Point(), At: loc.CreatedAt}
	}

	stats, track, skipped := tracking.Replay(fixes)

	log.Info().
		Str("date", req.Date).
		Str("device_id", req.DeviceID).
		Int("locations", len(locations)).
		Int("skipped", skipped).
		Float64("distance_m", stats.DistanceMeters).
		Msg("Track replayed")

	return &ReplayTrackResponse{
		Date:     req.Date,
		DeviceID: req.DeviceID,
		Stats:    session.NewStatsView(stats),
		Track:    track,
		Skipped:  skipped,
	}, nil
}

// processRouteJob is the worker function that generates a round trip and
// hands it to the requesting session
func (s *Server) processRouteJob(ctx context.Context, job *queue.Job) (*queue.JobResult, error) {
	log.Info().
		Str("job_id", job.ID).
		Str("session_id", job.Request.SessionID).
		Str("origin", job.Request.Origin.String()).
		Float64("distance_m", job.Request.DistanceMeters).
		Msg("Processing route generation job")

	trip, err := s.generator.Generate(ctx, job.Request.Origin, job.Request.DistanceMeters)
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("Route generation failed")
		return nil, err
	}

	sess, err := s.sessions.Get(job.Request.SessionID)
	if err != nil {
		log.Warn().Str("job_id", job.ID).Msg("Session closed before route was ready")
	} else {
		sess.SetRoute(trip)
	}

	return &queue.JobResult{Trip: trip}, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.queue.Shutdown(timeout)
}
