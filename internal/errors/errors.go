// Package errors maps application failures to HTTP error envelopes.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/3leaps/bucketdeck/pkg/filelist"
	"github.com/3leaps/bucketdeck/pkg/provider"
)

// Error codes carried in HTTPErrorResponse.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeUnsupported        = "UNSUPPORTED_STORAGE"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeInternal           = "INTERNAL_ERROR"
)

// AppError is an error with an HTTP status and a stable code.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of e carrying details.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	c := *e
	c.Details = details
	return &c
}

func newAppError(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func NewBadRequest(message string) *AppError {
	return newAppError(http.StatusBadRequest, CodeBadRequest, message)
}

func NewNotFound(message string) *AppError {
	return newAppError(http.StatusNotFound, CodeNotFound, message)
}

func NewMethodNotAllowed(message string) *AppError {
	return newAppError(http.StatusMethodNotAllowed, CodeMethodNotAllowed, message)
}

func NewForbidden(message string) *AppError {
	return newAppError(http.StatusForbidden, CodeForbidden, message)
}

func NewConflict(message string) *AppError {
	return newAppError(http.StatusConflict, CodeConflict, message)
}

func NewTooManyRequests(message string) *AppError {
	return newAppError(http.StatusTooManyRequests, CodeTooManyRequests, message)
}

func NewServiceUnavailable(message string) *AppError {
	return newAppError(http.StatusServiceUnavailable, CodeServiceUnavailable, message)
}

// NewExternalServiceError reports a failing storage backend.
func NewExternalServiceError(message string) *AppError {
	return newAppError(http.StatusBadGateway, CodeExternalService, message)
}

// WrapInternal wraps err as a 500. A cancelled ctx is not reported as internal.
func WrapInternal(ctx context.Context, err error, message string) *AppError {
	if ctx != nil && ctx.Err() != nil {
		return &AppError{Status: http.StatusServiceUnavailable, Code: CodeServiceUnavailable, Message: message, Err: err}
	}
	return &AppError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: message, Err: err}
}

// FromError classifies err. Provider and file-list sentinels get specific
// statuses; anything else is internal.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	wrap := func(status int, code, message string) *AppError {
		return &AppError{Status: status, Code: code, Message: message, Err: err}
	}

	switch {
	case stderrors.Is(err, filelist.ErrNotConfirmed):
		return wrap(http.StatusBadRequest, CodeBadRequest, "delete requires confirmation")
	case stderrors.Is(err, filelist.ErrDeleteInProgress):
		return wrap(http.StatusConflict, CodeConflict, "delete already in progress")
	case stderrors.Is(err, filelist.ErrSuperseded):
		return wrap(http.StatusConflict, CodeConflict, "storage configuration changed")
	case stderrors.Is(err, filelist.ErrClosed):
		return wrap(http.StatusServiceUnavailable, CodeServiceUnavailable, "file list is closed")
	case provider.IsUnsupported(err):
		return wrap(http.StatusNotImplemented, CodeUnsupported, "storage type not supported")
	case provider.IsAccessDenied(err), provider.IsInvalidCredentials(err):
		return wrap(http.StatusForbidden, CodeForbidden, "storage access denied")
	case provider.IsBucketNotFound(err), provider.IsNotFound(err):
		return wrap(http.StatusNotFound, CodeNotFound, "storage resource not found")
	case provider.IsThrottled(err):
		return wrap(http.StatusTooManyRequests, CodeTooManyRequests, "storage request throttled")
	case stderrors.Is(err, context.DeadlineExceeded):
		return wrap(http.StatusGatewayTimeout, CodeTimeout, "storage request timed out")
	case provider.IsProviderUnavailable(err):
		return wrap(http.StatusBadGateway, CodeExternalService, "storage provider unavailable")
	}

	var pe *provider.ProviderError
	if stderrors.As(err, &pe) {
		return wrap(http.StatusBadGateway, CodeExternalService, "storage operation failed")
	}
	return wrap(http.StatusInternalServerError, CodeInternal, "internal error")
}
