package payment

import (
	"errors"
	"fmt"
)

// ErrorKind is the normalized failure taxonomy for the webhook pipeline.
type ErrorKind string

const (
	// KindNetwork means the issuer could not be reached or did not answer in time.
	// The webhook sender may retry; this service never does.
	KindNetwork ErrorKind = "network"

	// KindRemoteStatus means the issuer answered with a non-200 status.
	KindRemoteStatus ErrorKind = "remote_status"

	// KindMalformedResponse means a 200 body did not match the payment schema.
	KindMalformedResponse ErrorKind = "malformed_response"

	// KindNotCompleted means the payment exists but is not settled yet.
	KindNotCompleted ErrorKind = "not_completed"

	// KindUnknownAction means the webhook asked for an action outside the vocabulary.
	KindUnknownAction ErrorKind = "unknown_action"

	// KindInternal is an unexpected fault inside this process.
	KindInternal ErrorKind = "internal"
)

// Error is a domain failure with enough context to build a client response and an
// audit entry.
type Error struct {
	Kind ErrorKind
	// Message is safe to return to the caller.
	Message string
	// Detail is extra context; returned to the caller except for KindInternal.
	Detail string
	// StatusCode and Body are set for KindRemoteStatus and KindMalformedResponse.
	StatusCode int
	Body       string
	Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Underlying }

// Retryable reports whether the webhook sender should try again later.
func (e *Error) Retryable() bool { return e.Kind == KindNetwork }

// NetworkError wraps a transport failure.
func NetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "Network error", Detail: err.Error(), Underlying: err}
}

// RemoteStatusError records a non-200 issuer response.
func RemoteStatusError(code int, body string) *Error {
	return &Error{
		Kind:       KindRemoteStatus,
		Message:    "Issuer returned an error",
		Detail:     fmt.Sprintf("API returned HTTP %d", code),
		StatusCode: code,
		Body:       body,
	}
}

// MalformedResponseError records an issuer body that failed to parse.
func MalformedResponseError(body string, err error) *Error {
	return &Error{
		Kind:       KindMalformedResponse,
		Message:    "Invalid response data",
		Detail:     "Invalid response data",
		StatusCode: 200,
		Body:       body,
		Underlying: err,
	}
}

// NotCompletedError is returned when a fulfillment is attempted on an unsettled payment.
func NotCompletedError(status string) *Error {
	return &Error{Kind: KindNotCompleted, Message: "Payment is not completed yet", Detail: "status: " + status}
}

// UnknownActionError is returned for actions outside the dispatcher vocabulary.
func UnknownActionError(action string) *Error {
	return &Error{Kind: KindUnknownAction, Message: "Unknown action", Detail: action}
}

// InternalError wraps an unexpected fault. Its detail never reaches the client.
func InternalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Underlying: err}
}

// KindOf returns the kind of err, or KindInternal when err is not a domain error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}
