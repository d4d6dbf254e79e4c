package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDecode     = NewError("DECODE_FAILURE", "inbound payload is not a valid question")
	ErrRetrieval  = NewError("RETRIEVAL_FAILURE", "search index request failed")
	ErrGeneration = NewError("GENERATION_FAILURE", "generation service request failed")
	ErrPublish    = NewError("PUBLISH_FAILURE", "reply publish failed")
	ErrInternal   = NewError("INTERNAL_ERROR", "internal error")
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code so that errors.Is(err, ErrRetrieval) holds for any
// retrieval failure regardless of cause or details.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		if errors.Is(e.Cause, context.Canceled) {
			return false
		}
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) && fatalErr.IsFatal() {
			return false
		}
	}
	switch e.Code {
	case ErrRetrieval.Code, ErrGeneration.Code, ErrPublish.Code:
		return true
	default:
		return false
	}
}

func (e *Error) IsFatal() bool {
	return !e.IsRetryable()
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) AsRetryable() *Error {
	err := *e
	retryable := true
	err.retryable = &retryable
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func IsRetrieval(err error) bool {
	return errors.Is(err, ErrRetrieval)
}

func IsGeneration(err error) bool {
	return errors.Is(err, ErrGeneration)
}

// Code returns the taxonomy code of err, INTERNAL_ERROR for foreign errors.
func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal.Code
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	return map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}
}
