// Package apperr defines the error taxonomy shared by the household,
// roster, and recommendation packages and its mapping onto HTTP.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown                   Code = "UNKNOWN"
	CodeInvalidArgument           Code = "INVALID_ARGUMENT"
	CodeUnauthenticated           Code = "UNAUTHENTICATED"
	CodeForbiddenRoleTransition   Code = "FORBIDDEN_ROLE_TRANSITION"
	CodeNotAMember                Code = "NOT_A_MEMBER"
	CodeInvalidTransition         Code = "INVALID_TRANSITION"
	CodeUnknownUser               Code = "UNKNOWN_USER"
	CodeAlreadyMember             Code = "ALREADY_MEMBER"
	CodeDuplicateOwner            Code = "DUPLICATE_OWNER"
	CodeNoActiveHousehold         Code = "NO_ACTIVE_HOUSEHOLD"
	CodeRecommendationUnavailable Code = "RECOMMENDATION_UNAVAILABLE"
	CodeEmailTaken                Code = "EMAIL_TAKEN"
	CodeNotFound                  Code = "NOT_FOUND"
	CodeRateLimited               Code = "RATE_LIMITED"
)

// HTTPStatus maps a code onto the status the JSON API responds with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbiddenRoleTransition, CodeNotAMember:
		return http.StatusForbidden
	case CodeUnknownUser, CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition, CodeAlreadyMember, CodeDuplicateOwner,
		CodeNoActiveHousehold, CodeEmailTaken:
		return http.StatusConflict
	case CodeRecommendationUnavailable:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type. Two errors are equal under errors.Is when
// their codes match, so callers can test against the sentinels below.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Sentinels for errors.Is checks.
var (
	ErrUnauthenticated           = New(CodeUnauthenticated, "not authenticated")
	ErrForbiddenRoleTransition   = New(CodeForbiddenRoleTransition, "role does not permit this transition")
	ErrNotAMember                = New(CodeNotAMember, "not a member of this household")
	ErrInvalidTransition         = New(CodeInvalidTransition, "invalid role transition")
	ErrUnknownUser               = New(CodeUnknownUser, "unknown user")
	ErrAlreadyMember             = New(CodeAlreadyMember, "user is already a member")
	ErrDuplicateOwner            = New(CodeDuplicateOwner, "household was already created")
	ErrNoActiveHousehold         = New(CodeNoActiveHousehold, "no active household")
	ErrRecommendationUnavailable = New(CodeRecommendationUnavailable, "recommendations unavailable")
	ErrEmailTaken                = New(CodeEmailTaken, "email already registered")
	ErrNotFound                  = New(CodeNotFound, "not found")
)
