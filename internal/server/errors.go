package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docparser/internal/async"
	"github.com/joseph-ayodele/docparser/internal/common"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err in the {"error","message","request_id"} envelope.
// Internal failures never leak their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := http.StatusInternalServerError, "internal"
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		code, kind = http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, common.ErrNotFound):
		code, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrInvalidInput):
		code, kind = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, common.ErrValidation):
		code, kind = http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, common.ErrPrecondition):
		code, kind = http.StatusPreconditionFailed, "precondition_failed"
	case errors.Is(err, async.ErrQueueClosed):
		code, kind = http.StatusServiceUnavailable, "unavailable"
	}
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{
		"error":      kind,
		"message":    msg,
		"request_id": middleware.GetReqID(r.Context()),
	})
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// grpcError maps application errors onto gRPC status codes.
func grpcError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, common.ErrNotFound):
		return common.NotFoundError(err.Error())
	case errors.Is(err, common.ErrInvalidInput):
		return common.InvalidArgumentError(err.Error())
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrPrecondition):
		return common.FailedPreconditionError(err.Error())
	}
	return common.InternalError("internal error")
}
