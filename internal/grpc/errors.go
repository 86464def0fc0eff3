package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stuartshay/walkroute/internal/geo"
	"github.com/stuartshay/walkroute/internal/queue"
	"github.com/stuartshay/walkroute/internal/route"
	"github.com/stuartshay/walkroute/internal/session"
	"github.com/stuartshay/walkroute/internal/tracking"
)

// errorCode maps domain errors to gRPC status codes
func errorCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, queue.ErrJobNotFound):
		return codes.NotFound
	case errors.Is(err, route.ErrInvalidDistance),
		errors.Is(err, geo.ErrOutOfRangeCoordinate):
		return codes.InvalidArgument
	case errors.Is(err, session.ErrNoPosition),
		errors.Is(err, session.ErrNoRoute),
		errors.Is(err, session.ErrTracking),
		errors.Is(err, tracking.ErrNotTracking),
		errors.Is(err, tracking.ErrSessionNotStarted):
		return codes.FailedPrecondition
	case errors.Is(err, route.ErrRouteUnavailable),
		errors.Is(err, queue.ErrQueueFull),
		errors.Is(err, queue.ErrShutdown):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Internal
}

// toStatus converts err into a gRPC status error, keeping its message
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(errorCode(err), err.Error())
}
