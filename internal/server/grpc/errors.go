package grpcserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/logging"
)

var classCodes = map[error]codes.Code{
	errs.ErrValidation:      codes.InvalidArgument,
	errs.ErrConflict:        codes.AlreadyExists,
	errs.ErrUnauthorized:    codes.Unauthenticated,
	errs.ErrForbidden:       codes.PermissionDenied,
	errs.ErrNotFound:        codes.NotFound,
	errs.ErrRateLimited:     codes.ResourceExhausted,
	errs.ErrVersionConflict: codes.Aborted,
}

// toStatus maps a service error to a gRPC status. Internal errors are logged in full
// and reach the client only as "internal".
func toStatus(ctx context.Context, log *zap.Logger, err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		return st.Err()
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	class := errs.Class(err)
	code, ok := classCodes[class]
	if !ok {
		if log = loggerFrom(ctx, log); log != nil {
			logging.Error(logging.WithTrace(ctx, log), "internal error", err)
		}
		return status.Error(codes.Internal, "internal")
	}

	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(code, ve.Error())
	case errs.Reason(err) != "":
		return status.Error(code, errs.Reason(err))
	default:
		return status.Error(code, class.Error())
	}
}
