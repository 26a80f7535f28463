package order

import (
	"errors"
	"fmt"
)

// APIError carries the HTTP status and decoded error body of a failed call
// to the remote order service.
type APIError struct {
	Status int
	Body   *ErrorInfo
}

func (e *APIError) Error() string {
	if e.Body != nil {
		return fmt.Sprintf("order service status %d: %s", e.Status, e.Body.Message)
	}
	return fmt.Sprintf("order service status %d", e.Status)
}

// Kind classifies client-facing errors per failure source.
type Kind int

const (
	KindGateway Kind = iota + 1
	KindBlockchain
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindGateway:
		return "gateway"
	case KindBlockchain:
		return "blockchain"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the structured client-facing error delivered through callbacks.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Reason returns the most specific human-readable cause, used for telemetry.
func (e *Error) Reason() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

// fromRemoteError wraps a remote gateway failure verbatim.
func fromRemoteError(err error) *Error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Body != nil {
		return &Error{Kind: KindGateway, Message: apiErr.Body.Message, Cause: err}
	}
	return &Error{Kind: KindGateway, Message: "order service request failed", Cause: err}
}

// blockchainError wraps a payment-layer failure.
func blockchainError(message string, cause error) *Error {
	return &Error{Kind: KindBlockchain, Message: message, Cause: cause}
}

// internalError reports a violated local invariant; never retried.
func internalError(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// IsInternal reports whether err is an internal-inconsistency error.
func IsInternal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindInternal
}

// responseBody extracts the error payload of a remote failure, if any.
func responseBody(err error) *ErrorInfo {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return nil
}
