package domain

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeToolNotFound   ErrorCode = "TOOL_NOT_FOUND"
	CodeInvalidParams  ErrorCode = "INVALID_PARAMS"
	CodeUnknownAccount ErrorCode = "UNKNOWN_ACCOUNT"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeRateLimited    ErrorCode = "RATE_LIMITED"
	CodeTimeout        ErrorCode = "TIMEOUT"
	CodeCanceled       ErrorCode = "CANCELED"
	CodeHandlerError   ErrorCode = "HANDLER_ERROR"
	CodeInternal       ErrorCode = "INTERNAL"
)

// FieldViolation describes a single schema violation at a JSON path.
type FieldViolation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type Error struct {
	Code       ErrorCode
	Op         string
	Message    string
	Cause      error
	Retryable  bool
	Violations []FieldViolation
	Meta       map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:       existing.Code,
			Op:         op,
			Message:    existing.Message,
			Cause:      existing.Cause,
			Retryable:  existing.Retryable,
			Violations: existing.Violations,
			Meta:       existing.Meta,
		}
	}
	return E(code, op, "", err)
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrToolNotFound):
		return CodeToolNotFound, true
	case errors.Is(err, ErrAccountNotFound):
		return CodeUnknownAccount, true
	case errors.Is(err, ErrDuplicateTool), errors.Is(err, ErrInvalidDefinition):
		return CodeInvalidParams, true
	case errors.Is(err, ErrRegistryFrozen):
		return CodeInternal, true
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout, true
	case errors.Is(err, context.Canceled):
		return CodeCanceled, true
	default:
		return "", false
	}
}
