package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/book-exchange/internal/core/domain"
)

// errorMapping is checked in order; the first sentinel the error wraps wins.
var errorMapping = []struct {
	target  error
	status  int
	code    codes.Code
	message string
}{
	{domain.ErrDuplicateRequest, http.StatusConflict, codes.AlreadyExists, "duplicate request"},
	{domain.ErrValidation, http.StatusBadRequest, codes.InvalidArgument, ""},
	{domain.ErrNotFound, http.StatusNotFound, codes.NotFound, "not found"},
	{domain.ErrUnauthorized, http.StatusForbidden, codes.PermissionDenied, "not allowed to respond to this exchange"},
	{domain.ErrInvalidState, http.StatusConflict, codes.FailedPrecondition, "exchange is no longer pending"},
	{domain.ErrOwnershipMismatch, http.StatusConflict, codes.Aborted, "ownership changed, exchange left accepted"},
	{domain.ErrTimeout, http.StatusGatewayTimeout, codes.DeadlineExceeded, "timed out"},
}

// classify returns the HTTP status, gRPC code and client-facing message for
// err. Validation messages are passed through since they describe the input.
func classify(err error) (int, codes.Code, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			message := m.message
			if message == "" {
				message = err.Error()
			}
			return m.status, m.code, message
		}
	}
	return http.StatusInternalServerError, codes.Internal, "internal error"
}
