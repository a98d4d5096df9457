package adapter

import (
	"fmt"

	"servingbridge/internal/contract"
)

// UnsupportedEndpointError reports an endpoint whose advertised task type
// has no registered contract. The adapter fails fast on these: no request
// is ever attempted against an unknown contract.
type UnsupportedEndpointError struct {
	Endpoint string
	TaskType contract.TaskType
}

func (e *UnsupportedEndpointError) Error() string {
	return fmt.Sprintf("adapter: endpoint %q advertises unsupported task type %q", e.Endpoint, e.TaskType)
}

// TransportErrorKind classifies invocation failures.
type TransportErrorKind string

const (
	// TransportTimeout: the call was abandoned on deadline; no partial
	// response is ever surfaced.
	TransportTimeout TransportErrorKind = "timeout"
	// TransportConnectivity: the endpoint was unreachable or answered with
	// a non-schema upstream failure.
	TransportConnectivity TransportErrorKind = "connectivity"
	// TransportSchemaRejection: the endpoint's schema validator rejected
	// the payload. Recurs identically on retry, hence never retried.
	TransportSchemaRejection TransportErrorKind = "schema_rejection"
)

// TransportError reports a failed endpoint invocation. Body preserves the
// raw upstream diagnostic text verbatim for diagnostics.
type TransportError struct {
	Endpoint string
	Kind     TransportErrorKind
	Status   int    // HTTP status, when one was received
	Body     string // raw upstream error text, when one was received
	Err      error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("adapter: invoking endpoint %q failed (%s)", e.Endpoint, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.Status)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the invocation was abandoned on deadline.
func (e *TransportError) Timeout() bool { return e.Kind == TransportTimeout }
