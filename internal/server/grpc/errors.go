package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/notevault/internal/errs"
)

// toStatus maps service errors onto gRPC status codes. Session failures share
// codes.Unauthenticated but keep distinct messages.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrMissingCredential),
		errors.Is(err, errs.ErrMalformed),
		errors.Is(err, errs.ErrBadSignature),
		errors.Is(err, errs.ErrExpired),
		errors.Is(err, errs.ErrRevoked):
		return status.Error(codes.Unauthenticated, sentinelMessage(err))
	case errors.Is(err, errs.ErrInvalidCredential):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrDuplicateIdentity):
		return status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, errs.ErrWeakCredential), errors.Is(err, errs.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrStorageUnavailable):
		return status.Error(codes.Unavailable, "storage unavailable")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Error(codes.Internal, "internal")
	}
}

func sentinelMessage(err error) string {
	for _, e := range []error{errs.ErrMissingCredential, errs.ErrMalformed, errs.ErrBadSignature, errs.ErrExpired, errs.ErrRevoked} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return err.Error()
}
