package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Codes carried by AppError.
const (
	CodeConfig = "CONFIG_ERROR"
	CodeStore  = "STORE_ERROR"
)

// AppError is a coded failure raised while wiring the service (config,
// stores). Callers match on the wrapped sentinel, not on Code.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

var (
	// ErrNotFound: no stored result under the requested document id.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidInput: a malformed request, upload or setting.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDatabase: the result store failed.
	ErrDatabase = errors.New("store error")
	// ErrValidation: the payload was well formed but its content is unusable.
	ErrValidation = errors.New("validation failed")
	// ErrPrecondition: a conditional update lost against a newer revision.
	ErrPrecondition = errors.New("precondition failed")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ConfigError reports an unusable setting.
func ConfigError(message string) *AppError {
	return NewAppError(CodeConfig, message, ErrInvalidInput)
}

// gRPC status helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func FailedPreconditionError(message string) error {
	return status.Error(codes.FailedPrecondition, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}
