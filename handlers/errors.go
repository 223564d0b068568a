package handlers

import (
	"context"
	"errors"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/Yulian302/lfusys-services-recordings/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatus maps application errors onto gRPC status codes.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, apperror.ErrUnauthenticated) {
		return status.Error(codes.Unauthenticated, apperror.ErrUnauthenticated.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}

	switch apperror.KindOf(err) {
	case apperror.KindInvalidArgument, apperror.KindUnsupportedMediaType:
		return status.Error(codes.InvalidArgument, err.Error())
	case apperror.KindPayloadTooLarge:
		return status.Error(codes.ResourceExhausted, err.Error())
	case apperror.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case apperror.KindForbidden:
		// no detail beyond the sentinel message
		var appErr *apperror.Error
		errors.As(err, &appErr)
		return status.Error(codes.PermissionDenied, appErr.Message)
	case apperror.KindIncompleteUpload:
		return status.Error(codes.FailedPrecondition, err.Error())
	case apperror.KindAssemblyFailed:
		return status.Error(codes.Aborted, err.Error())
	case apperror.KindStoreUnavailable:
		return status.Error(codes.Unavailable, "store unavailable")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// UnaryErrorInterceptor converts handler errors with ToStatus and logs the
// ones that point at the server rather than the caller.
func UnaryErrorInterceptor(l logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}

		st := ToStatus(err)
		switch status.Code(st) {
		case codes.Internal, codes.Unavailable, codes.Aborted:
			l.Error("rpc failed", "method", info.FullMethod, "error", err)
		}
		return nil, st
	}
}
