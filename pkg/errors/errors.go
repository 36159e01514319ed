package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies an error for clients, HTTP status and retry decisions.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeBelowMinimumOrder  Code = "BELOW_MINIMUM_ORDER"
	CodeInsufficientStock  Code = "INSUFFICIENT_STOCK"
	CodeEmptyCart          Code = "EMPTY_CART"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeStateConflict      Code = "STATE_CONFLICT"
	CodeOrderFinalized     Code = "ORDER_ALREADY_FINALIZED"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit          Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces over HTTP and to message consumers.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	withDetails = true
	noDetails   = false
	retry       = true
	final       = false
)

func meta(status int, retryable, details bool, public string) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retryable, PublicMessage: public, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:         meta(http.StatusBadRequest, final, withDetails, "validation failed"),
	CodeBelowMinimumOrder:  meta(http.StatusUnprocessableEntity, final, withDetails, "quantity below minimum order"),
	CodeInsufficientStock:  meta(http.StatusUnprocessableEntity, final, withDetails, "insufficient stock"),
	CodeEmptyCart:          meta(http.StatusUnprocessableEntity, final, noDetails, "cart is empty"),
	CodeUnauthorized:       meta(http.StatusUnauthorized, final, noDetails, "authentication required"),
	CodeForbidden:          meta(http.StatusForbidden, final, noDetails, "access denied"),
	CodeNotFound:           meta(http.StatusNotFound, final, noDetails, "resource not found"),
	CodeConflict:           meta(http.StatusConflict, final, noDetails, "conflict detected"),
	CodeStateConflict:      meta(http.StatusUnprocessableEntity, final, withDetails, "state transition disallowed"),
	CodeOrderFinalized:     meta(http.StatusConflict, final, withDetails, "order already finalized"),
	CodeIdempotency:        meta(http.StatusConflict, final, withDetails, "idempotency key reused"),
	CodeRateLimit:          meta(http.StatusTooManyRequests, final, noDetails, "rate limit exceeded"),
	CodeInternal:           meta(http.StatusInternalServerError, retry, noDetails, "internal server error"),
	CodePersistenceFailure: meta(http.StatusServiceUnavailable, retry, noDetails, "storage unavailable"),
	CodeDependency:         meta(http.StatusServiceUnavailable, retry, withDetails, "dependency unavailable"),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails returns a copy of e carrying details. Details reach clients
// only for codes whose metadata allows them.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.details = details
	return &clone
}

// Error renders "CODE: message" followed by the cause, if any.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return string(e.code) + ": " + e.message
	}
	return string(e.code) + ": " + e.message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
