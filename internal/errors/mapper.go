// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Domain sentinels. Services wrap them with context and transports map them.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNotFound             = errors.New("not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrAlreadyExists        = errors.New("already exists")
	ErrRecentLoginRequired  = errors.New("recent login required")
)

// Map converts domain/repo/infra errors into gRPC-friendly status errors.
// Errors that already carry a status are returned unchanged.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code, msg := classify(err)
	return status.Error(code, msg)
}

// HTTPStatus returns the HTTP status code and the client-facing message for err.
func HTTPStatus(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}
	if st, ok := status.FromError(err); ok {
		return httpFromCode(st.Code()), st.Message()
	}
	code, msg := classify(err)
	return httpFromCode(code), msg
}

func classify(err error) (codes.Code, string) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return codes.InvalidArgument, err.Error()

	case errors.Is(err, ErrConfirmationRequired):
		return codes.FailedPrecondition, err.Error()

	case errors.Is(err, ErrRecentLoginRequired):
		return codes.FailedPrecondition, err.Error()

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return codes.NotFound, "record not found"

	case errors.Is(err, ErrPermissionDenied):
		return codes.PermissionDenied, err.Error()

	case errors.Is(err, ErrUnauthenticated):
		return codes.Unauthenticated, err.Error()

	case errors.Is(err, ErrAlreadyExists):
		return codes.AlreadyExists, err.Error()

	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded, "request timed out"

	case errors.Is(err, context.Canceled):
		return codes.Canceled, "request was canceled"

	default:
		// fallback → bubble up error message for debugging
		return codes.Internal, err.Error()
	}
}

func httpFromCode(c codes.Code) int {
	switch c {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusPreconditionRequired
	case codes.NotFound:
		return http.StatusNotFound
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// InvalidArgument wraps ErrInvalidArgument with a message.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

// AlreadyExists wraps ErrAlreadyExists with a message.
func AlreadyExists(msg string) error {
	return fmt.Errorf("%w: %s", ErrAlreadyExists, msg)
}

// NotFound wraps ErrNotFound with the name of the missing thing.
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// PermissionDenied wraps ErrPermissionDenied with the offending path or action.
func PermissionDenied(what string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, what)
}
