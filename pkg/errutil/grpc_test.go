package errutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGRPCCode(t *testing.T) {
	cases := []struct {
		status CoreStatus
		want   codes.Code
	}{
		{StatusNotFound, codes.NotFound},
		{StatusBadRequest, codes.InvalidArgument},
		{StatusValidationFailed, codes.InvalidArgument},
		{StatusConflict, codes.AlreadyExists},
		{StatusTooManyRequests, codes.ResourceExhausted},
		{StatusServiceUnavailable, codes.Unavailable},
		{StatusInternal, codes.Internal},
		{StatusUnauthorized, codes.Unauthenticated},
		{StatusForbidden, codes.PermissionDenied},
		{StatusTimeout, codes.DeadlineExceeded},
		{CoreStatus("bogus"), codes.Unknown},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.status.GRPCCode(), "status %s", tc.status)
	}
}

func TestToGRPCErrorNil(t *testing.T) {
	require.NoError(t, ToGRPCError(nil))
}

func TestToGRPCErrorPassthrough(t *testing.T) {
	in := status.Error(codes.AlreadyExists, "duplicate")
	require.Equal(t, in, ToGRPCError(in))
}

func TestToGRPCErrorContext(t *testing.T) {
	require.Equal(t, codes.Canceled, status.Code(ToGRPCError(context.Canceled)))
	require.Equal(t, codes.DeadlineExceeded, status.Code(ToGRPCError(context.DeadlineExceeded)))
}

func TestToGRPCErrorBaseError(t *testing.T) {
	err := ToGRPCError(NotFound("unknown action", nil))
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.NotFound, st.Code())
	require.Equal(t, "unknown action", st.Message())

	err = ToGRPCError(ServiceUnavailable("retry later", errors.New("deadlock")))
	st, ok = status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.Unavailable, st.Code())
	require.Contains(t, st.Message(), "deadlock")
}

func TestToGRPCErrorWrappedBaseError(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), Internal("ledger fault", nil))
	require.Equal(t, codes.Internal, status.Code(ToGRPCError(wrapped)))
}

func TestToGRPCErrorPlain(t *testing.T) {
	require.Equal(t, codes.Internal, status.Code(ToGRPCError(errors.New("boom"))))
}
