package cinnamon

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorKind classifies a dispatch failure. There are exactly two kinds, each
// mapped to one transport outcome.
type ErrorKind int

const (
	// NotFoundKind covers missing route segments, unknown handlers, handlers
	// without the Handler capability and unknown actions.
	NotFoundKind ErrorKind = iota + 1

	// ServerErrorKind covers everything else that aborts a dispatch.
	ServerErrorKind
)

// String returns the string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case NotFoundKind:
		return "NotFound"
	case ServerErrorKind:
		return "ServerError"
	default:
		return "Unknown"
	}
}

// StatusCode returns the HTTP status the kind is surfaced as
func (k ErrorKind) StatusCode() int {
	if k == NotFoundKind {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Sentinel errors usable with errors.Is against any *DispatchError.
var (
	ErrNotFound    = errors.New("not found")
	ErrServerError = errors.New("server error")

	// ErrUnsupportedType is the cause when a bound parameter has a Go type
	// outside the supported primitive/string/array set.
	ErrUnsupportedType = errors.New("unsupported parameter type")

	// ErrNonMatchingAnnotations is the cause when the bindings declared for
	// an action do not line up with its parameters.
	ErrNonMatchingAnnotations = errors.New("all parameters in an action must carry a binding")
)

// GenericErrorBody is the only text a client ever sees for a failed dispatch.
const GenericErrorBody = "Please check the server log for details."

// DispatchError is returned by every stage of the dispatch pipeline.
// Message and Cause are for the server log only.
type DispatchError struct {
	Kind    ErrorKind
	Handler string
	Action  string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *DispatchError) Error() string {
	target := e.Handler
	if e.Action != "" {
		target = fmt.Sprintf("%s.%s", e.Handler, e.Action)
	}
	msg := e.Message
	if target != "" {
		msg = fmt.Sprintf("%s [%s]", e.Message, target)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause
func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// Is matches the ErrNotFound and ErrServerError sentinels by kind
func (e *DispatchError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == NotFoundKind
	case ErrServerError:
		return e.Kind == ServerErrorKind
	}
	return false
}

// StatusCode returns the HTTP status for this error
func (e *DispatchError) StatusCode() int {
	return e.Kind.StatusCode()
}

// NotFound creates a NotFound dispatch error
func NotFound(message string, cause error) *DispatchError {
	return &DispatchError{Kind: NotFoundKind, Message: message, Cause: cause}
}

// ServerError creates a ServerError dispatch error
func ServerError(message string, cause error) *DispatchError {
	return &DispatchError{Kind: ServerErrorKind, Message: message, Cause: cause}
}

// withTarget annotates the error with the handler/action it concerns
func (e *DispatchError) withTarget(handler, action string) *DispatchError {
	if e.Handler == "" {
		e.Handler = handler
	}
	if e.Action == "" {
		e.Action = action
	}
	return e
}

// KindOf reports the kind of a dispatch failure. Errors that are not
// *DispatchError are treated as server errors.
func KindOf(err error) ErrorKind {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ServerErrorKind
}
