package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound   = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrValidation = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal   = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrTimeout    = NewError("TIMEOUT", "operation timed out", http.StatusRequestTimeout)

	// ErrStoreUnavailable means the ledger's backing store could not be
	// reached. The deduplicator degrades to treating the event as novel.
	ErrStoreUnavailable = NewError("STORE_UNAVAILABLE", "ledger store unavailable", http.StatusServiceUnavailable)

	// ErrConflict means a duplicate key was written concurrently; another
	// pass already ledgered the event.
	ErrConflict = NewError("CONFLICT", "record already exists", http.StatusConflict)

	// ErrClassification means the classifier failed or returned malformed
	// output. The orchestrator substitutes a not-important verdict.
	ErrClassification = NewError("CLASSIFICATION_FAILED", "classification failed", http.StatusBadGateway)

	// ErrDelivery means the notifier could not deliver the alert. The
	// ledger record is not rolled back and delivery is not retried.
	ErrDelivery = NewError("DELIVERY_FAILED", "alert delivery failed", http.StatusBadGateway)

	// ErrLedgerWrite means a ledger append failed for a reason other than a
	// duplicate key. This is the one failure that can reintroduce a
	// duplicate alert later, so it is escalated past the orchestrator.
	ErrLedgerWrite = NewError("LEDGER_WRITE_FAILED", "ledger write failed", http.StatusInternalServerError)
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
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
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

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var retryableErr RetryableError
		if errors.As(e.Cause, &retryableErr) {
			return retryableErr.IsRetryable()
		}
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return !fatalErr.IsFatal()
		}
	}
	return e.Code != ErrValidation.Code && e.Code != ErrNotFound.Code && e.Code != ErrConflict.Code
}

func (e *Error) IsFatal() bool {
	if e.retryable != nil {
		return !*e.retryable
	}

	if e.Cause != nil {
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return fatalErr.IsFatal()
		}
	}

	return e.Code == ErrValidation.Code || e.Code == ErrNotFound.Code || e.Code == ErrConflict.Code
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	if err.Details == nil {
		err.Details = make(map[string]interface{})
	}
	err.Details[key] = value
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

func hasCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound.Code)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrValidation.Code)
}

func IsConflict(err error) bool {
	return hasCode(err, ErrConflict.Code)
}

func IsStoreUnavailable(err error) bool {
	return hasCode(err, ErrStoreUnavailable.Code)
}

func IsClassification(err error) bool {
	return hasCode(err, ErrClassification.Code)
}

func IsDelivery(err error) bool {
	return hasCode(err, ErrDelivery.Code)
}

func IsLedgerWrite(err error) bool {
	return hasCode(err, ErrLedgerWrite.Code)
}

func IsTimeout(err error) bool {
	return hasCode(err, ErrTimeout.Code)
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}
