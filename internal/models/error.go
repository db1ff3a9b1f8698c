package models

import (
	"errors"
	"fmt"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeUpstreamFailed   = "UPSTREAM_FAILED"
	ErrCodeUpstreamRejected = "UPSTREAM_REJECTED"
	ErrCodeSuperseded       = "SUPERSEDED"
	ErrCodeSessionClosed    = "SESSION_CLOSED"
	ErrCodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
)

var (
	// ErrSuperseded is returned when a response arrives for an invocation
	// that is no longer the latest one; its result was discarded.
	ErrSuperseded = errors.New("superseded by a newer invocation")
	// ErrClosed is returned by a name flow that already has an outcome.
	ErrClosed = errors.New("flow already completed")
	// ErrSessionClosed is returned by a session after teardown.
	ErrSessionClosed = errors.New("session closed")
	// ErrNotFound is returned for unknown sessions.
	ErrNotFound = errors.New("not found")
)

// ErrorKind classifies step failures.
type ErrorKind int

const (
	// KindValidation: rejected before any network call.
	KindValidation ErrorKind = iota + 1
	// KindTransport: network failure or non-2xx response.
	KindTransport
	// KindSemantic: the server answered but reported an unsuccessful result.
	KindSemantic
	// KindPollTerminal: the processing run ended in failure.
	KindPollTerminal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindSemantic:
		return "semantic"
	case KindPollTerminal:
		return "poll_terminal"
	}
	return "unknown"
}

// StepError is a failure local to one workflow step.
type StepError struct {
	Kind    ErrorKind
	Step    string
	Message string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// UserMessage is the human-readable text shown for the step.
func (e *StepError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " failure"
}

// NewValidationError builds a validation failure for step.
func NewValidationError(step, format string, args ...any) *StepError {
	return &StepError{Kind: KindValidation, Step: step, Message: fmt.Sprintf(format, args...)}
}

// NewTransportError wraps err as a transport failure for step.
func NewTransportError(step string, err error) *StepError {
	msg := ""
	var up *UpstreamError
	if errors.As(err, &up) && up.Message != "" {
		msg = up.Message
	}
	return &StepError{Kind: KindTransport, Step: step, Message: msg, Err: err}
}

// NewSemanticFailure reports an unsuccessful result the server returned.
func NewSemanticFailure(step, message string) *StepError {
	if message == "" {
		message = "server reported an unsuccessful result"
	}
	return &StepError{Kind: KindSemantic, Step: step, Message: message}
}

// NewPollTerminalFailure reports a processing run that ended in failure.
func NewPollTerminalFailure(step string) *StepError {
	return &StepError{Kind: KindPollTerminal, Step: step, Message: "server-side processing failed"}
}

// KindOf returns the kind of the first StepError in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsTransport(err error) bool    { return KindOf(err) == KindTransport }
func IsSemantic(err error) bool     { return KindOf(err) == KindSemantic }
func IsPollTerminal(err error) bool { return KindOf(err) == KindPollTerminal }

// MessageOf returns the text to show for err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	return err.Error()
}

// UpstreamError is a non-2xx answer from a backend server.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}
