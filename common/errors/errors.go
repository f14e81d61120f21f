package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an application error independent of transport.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindPreconditionFailed Kind = "precondition_failed"
	KindInvalidState       Kind = "invalid_state"
	KindUpstreamPayment    Kind = "upstream_payment"
	KindInternal           Kind = "internal"
)

// Reason codes carried by precondition and state errors.
const (
	ReasonUnresolvedComments   = "UNRESOLVED_COMMENTS"
	ReasonOrderNotPayable      = "ORDER_NOT_PAYABLE"
	ReasonAlreadyRefunded      = "ALREADY_REFUNDED"
	ReasonRefundExceedsBalance = "REFUND_EXCEEDS_BALANCE"
	ReasonNoSucceededPayment   = "NO_SUCCEEDED_PAYMENT"
	ReasonIllegalTransition    = "ILLEGAL_TRANSITION"
	ReasonThreadResolved       = "THREAD_RESOLVED"
	ReasonThreadNotResolved    = "THREAD_NOT_RESOLVED"
	ReasonReviewClosed         = "REVIEW_CLOSED"
	ReasonZeroTotalCheckout    = "ZERO_TOTAL_CHECKOUT"
)

// Error represents an application error
type Error struct {
	Code    int            `json:"code"`
	Kind    Kind           `json:"kind"`
	Reason  string         `json:"reason,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind and reason so callers can compare against sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// WithDetail returns a copy of e carrying an extra machine-readable counter.
func (e *Error) WithDetail(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// Body is the JSON response payload for this error.
func (e *Error) Body() gin.H {
	body := gin.H{"error": e.Message, "kind": e.Kind}
	if e.Reason != "" {
		body["reason"] = e.Reason
	}
	for k, v := range e.Details {
		body[k] = v
	}
	return body
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, KindValidation, message, nil)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, KindUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, KindForbidden, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, KindNotFound, message, nil)
}

func PreconditionFailed(reason, message string) *Error {
	e := New(http.StatusBadRequest, KindPreconditionFailed, message, nil)
	e.Reason = reason
	return e
}

func InvalidState(reason, message string) *Error {
	e := New(http.StatusConflict, KindInvalidState, message, nil)
	e.Reason = reason
	return e
}

func UpstreamPayment(message string, err error) *Error {
	return New(http.StatusBadGateway, KindUpstreamPayment, message, err)
}

func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, KindInternal, message, err)
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrPreconditionFailed   = &Error{Kind: KindPreconditionFailed}
	ErrInvalidState         = &Error{Kind: KindInvalidState}
	ErrUpstreamPayment      = &Error{Kind: KindUpstreamPayment}
	ErrUnresolvedComments   = &Error{Kind: KindPreconditionFailed, Reason: ReasonUnresolvedComments}
	ErrAlreadyRefunded      = &Error{Kind: KindPreconditionFailed, Reason: ReasonAlreadyRefunded}
	ErrRefundExceedsBalance = &Error{Kind: KindPreconditionFailed, Reason: ReasonRefundExceedsBalance}
	ErrIllegalTransition    = &Error{Kind: KindInvalidState, Reason: ReasonIllegalTransition}
)

// From converts any error to an *Error, treating unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}

// Respond writes err as a JSON response and aborts the handler chain.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	if appErr.Code >= http.StatusInternalServerError {
		_ = c.Error(appErr)
	}
	c.AbortWithStatusJSON(appErr.Code, appErr.Body())
}
