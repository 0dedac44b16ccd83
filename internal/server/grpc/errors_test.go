package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/gophpress/internal/errs"
)

func TestToStatus(t *testing.T) {
	t.Parallel()

	ve := &errs.ValidationError{}
	ve.Add("email", "is required")

	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
		wantMsg  string
	}{
		{"validation", ve, codes.InvalidArgument, ve.Error()},
		{"conflict reason", errs.WithReason(errs.ErrConflict, errs.ReasonEmailTaken), codes.AlreadyExists, errs.ReasonEmailTaken},
		{"unauthorized", errs.WithReason(errs.ErrUnauthorized, errs.ReasonBadCredentials), codes.Unauthenticated, errs.ReasonBadCredentials},
		{"forbidden", errs.ErrForbidden, codes.PermissionDenied, errs.ErrForbidden.Error()},
		{"not found", errs.WithReason(errs.ErrNotFound, errs.ReasonPostNotFound), codes.NotFound, errs.ReasonPostNotFound},
		{"rate limited", errs.WithReason(errs.ErrRateLimited, errs.ReasonRateLimited), codes.ResourceExhausted, errs.ReasonRateLimited},
		{"contention", fmt.Errorf("edit: %w", errs.ErrVersionConflict), codes.Aborted, errs.ErrVersionConflict.Error()},
		{"canceled", context.Canceled, codes.Canceled, "canceled"},
		{"internal", errors.New("pq: connection reset at 10.0.0.3"), codes.Internal, "internal"},
		{"status passthrough", status.Error(codes.Unavailable, "down"), codes.Unavailable, "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := toStatus(context.Background(), zaptest.NewLogger(t), tt.err)
			st, ok := status.FromError(err)
			require.True(t, ok)
			require.Equal(t, tt.wantCode, st.Code())
			require.Equal(t, tt.wantMsg, st.Message())
		})
	}

	require.NoError(t, toStatus(context.Background(), nil, nil))
}
