package errors_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
)

func TestMap_Codes(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{svcErr.InvalidArgument("text or file required"), codes.InvalidArgument},
		{fmt.Errorf("delete: %w", svcErr.ErrConfirmationRequired), codes.FailedPrecondition},
		{svcErr.NotFound("profile"), codes.NotFound},
		{gorm.ErrRecordNotFound, codes.NotFound},
		{svcErr.PermissionDenied("chats/a_b"), codes.PermissionDenied},
		{svcErr.ErrUnauthenticated, codes.Unauthenticated},
		{svcErr.AlreadyExists("email"), codes.AlreadyExists},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{fmt.Errorf("boom"), codes.Internal},
	}
	for _, c := range cases {
		st, ok := status.FromError(svcErr.Map(c.err))
		assert.True(t, ok)
		assert.Equal(t, c.code, st.Code(), c.err.Error())
	}
}

func TestMap_PassesStatusThrough(t *testing.T) {
	in := status.Error(codes.Unavailable, "down")
	assert.Equal(t, in, svcErr.Map(in))
	assert.Nil(t, svcErr.Map(nil))
}

func TestHTTPStatus(t *testing.T) {
	code, msg := svcErr.HTTPStatus(svcErr.InvalidArgument("minAge > maxAge"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, msg, "minAge > maxAge")

	code, _ = svcErr.HTTPStatus(svcErr.ErrUnauthenticated)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = svcErr.HTTPStatus(svcErr.PermissionDenied("x"))
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = svcErr.HTTPStatus(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
}
