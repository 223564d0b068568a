package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Yulian302/lfusys-services-recordings/apperror"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{apperror.New(apperror.KindInvalidArgument, "bad"), codes.InvalidArgument},
		{apperror.New(apperror.KindUnsupportedMediaType, "bad type"), codes.InvalidArgument},
		{apperror.New(apperror.KindPayloadTooLarge, "big"), codes.ResourceExhausted},
		{fmt.Errorf("load: %w", apperror.ErrSessionNotFound), codes.NotFound},
		{apperror.ErrForbidden, codes.PermissionDenied},
		{apperror.ErrUnauthenticated, codes.Unauthenticated},
		{&apperror.IncompleteUploadError{UploadID: "u", Missing: []uint32{2}}, codes.FailedPrecondition},
		{apperror.WithCause(apperror.ErrAssemblyFailed, errors.New("disk")), codes.Aborted},
		{apperror.WithCause(apperror.ErrStoreUnavailable, errors.New("timeout")), codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Unimplemented, "x"), codes.Unimplemented},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, status.Code(ToStatus(tc.err)), tc.err.Error())
	}
	assert.NoError(t, ToStatus(nil))
}

func TestToStatusHidesInternalDetail(t *testing.T) {
	st := status.Convert(ToStatus(errors.New("dynamodb: table arn:aws:... missing")))
	assert.Equal(t, "internal error", st.Message())
}
