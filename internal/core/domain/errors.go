// Package domain provides the core pipeline types and the error taxonomy
// shared by the runner, the storage layer and the HTTP surface.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind identifies the category of a pipeline error.
type ErrorKind string

const (
	// ErrorKindUnsupportedMethod indicates a step declared a method other than POST.
	ErrorKindUnsupportedMethod ErrorKind = "unsupported_method"

	// ErrorKindServiceFailure indicates a remote service answered with a non-2xx status.
	ErrorKindServiceFailure ErrorKind = "service_failure"

	// ErrorKindTransport indicates a remote service could not be reached.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindConversion indicates the markup converter rejected the input.
	ErrorKindConversion ErrorKind = "conversion"

	// ErrorKindBackwardConversion indicates the annotated result could not be merged back into markup.
	ErrorKindBackwardConversion ErrorKind = "backward_conversion"

	// ErrorKindInvalidRequest indicates a malformed chain or template.
	ErrorKindInvalidRequest ErrorKind = "invalid_request"

	// ErrorKindNotFound indicates a stored pipeline does not exist.
	ErrorKindNotFound ErrorKind = "not_found"

	// ErrorKindInternal is everything else.
	ErrorKindInternal ErrorKind = "internal"
)

var (
	// ErrInvalidPipeline is returned for empty chains and malformed steps.
	ErrInvalidPipeline = errors.New("invalid pipeline")

	// ErrNotFound is returned by stores when a pipeline id is unknown.
	ErrNotFound = errors.New("pipeline not found")
)

// UnsupportedMethodError is returned before any network activity when a step
// declares a method other than POST.
type UnsupportedMethodError struct {
	Endpoint string
	Method   string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported method %s for step %s: only POST is supported", e.Method, e.Endpoint)
}

// ServiceFailure carries the error payload of a step whose remote service
// answered with a non-2xx status.
type ServiceFailure struct {
	Endpoint    string
	StepIndex   int
	StatusCode  int
	Body        string
	ContentType string
}

// NewServiceFailure builds a failure from a remote response. An empty body is
// replaced by a plaintext message naming the endpoint and the status.
func NewServiceFailure(index int, endpoint string, status int, body, contentType string) *ServiceFailure {
	if body == "" {
		body = fmt.Sprintf("%s returned HTTP status %d", endpoint, status)
		contentType = MimePlain
	}
	return &ServiceFailure{
		Endpoint:    endpoint,
		StepIndex:   index,
		StatusCode:  status,
		Body:        body,
		ContentType: contentType,
	}
}

func (e *ServiceFailure) Error() string {
	return fmt.Sprintf("step %d (%s) failed with status %d: %s", e.StepIndex, e.Endpoint, e.StatusCode, e.Body)
}

// TransportError is returned when a step's remote call could not complete at
// the network level.
type TransportError struct {
	Endpoint  string
	StepIndex int
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("step %d (%s) unreachable: %v", e.StepIndex, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConversionError is returned when the markup converter cannot turn the
// initial body into its semantic form.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("markup to semantic conversion failed: %v", e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// BackwardConversionError is returned when the final semantic result cannot
// be merged back into markup.
type BackwardConversionError struct {
	Err error
}

func (e *BackwardConversionError) Error() string {
	return fmt.Sprintf("semantic to markup conversion failed: %v", e.Err)
}

func (e *BackwardConversionError) Unwrap() error { return e.Err }

// KindOf classifies an error.
func KindOf(err error) ErrorKind {
	var (
		unsupported *UnsupportedMethodError
		failure     *ServiceFailure
		transport   *TransportError
		conversion  *ConversionError
		backward    *BackwardConversionError
	)

	switch {
	case err == nil:
		return ""
	case errors.As(err, &unsupported):
		return ErrorKindUnsupportedMethod
	case errors.As(err, &failure):
		return ErrorKindServiceFailure
	case errors.As(err, &transport):
		return ErrorKindTransport
	case errors.As(err, &backward):
		return ErrorKindBackwardConversion
	case errors.As(err, &conversion):
		return ErrorKindConversion
	case errors.Is(err, ErrInvalidPipeline):
		return ErrorKindInvalidRequest
	case errors.Is(err, ErrNotFound):
		return ErrorKindNotFound
	default:
		return ErrorKindInternal
	}
}

// HTTPStatus returns the status code the API answers with for err.
// Service failures keep the remote status.
func HTTPStatus(err error) int {
	var failure *ServiceFailure
	if errors.As(err, &failure) && failure.StatusCode != 0 {
		return failure.StatusCode
	}

	switch KindOf(err) {
	case ErrorKindUnsupportedMethod, ErrorKindInvalidRequest:
		return http.StatusBadRequest
	case ErrorKindNotFound:
		return http.StatusNotFound
	case ErrorKindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
