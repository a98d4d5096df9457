// Package adapter orchestrates one serving-endpoint call: resolve the task
// type, check it against the contract registry, build the contract's
// payload, invoke the endpoint, normalize the reply.
package adapter

import (
	"context"
	"errors"
	"log/slog"

	"servingbridge/internal/codec"
	"servingbridge/internal/contract"
	"servingbridge/internal/types"
)

// TaskTypeResolver resolves the task type an endpoint advertises.
// *resolver.Resolver is the production implementation.
type TaskTypeResolver interface {
	Resolve(ctx context.Context, endpointID string) (contract.TaskType, error)
}

// Transport performs the request/response exchange with a serving endpoint.
// Implementations honor ctx for timeout and cancellation, and report
// failures they can classify as *TransportError.
type Transport interface {
	Invoke(ctx context.Context, endpointID string, payload types.WirePayload) (types.WireResponse, error)
}

// Adapter forwards canonical conversations to serving endpoints and
// normalizes their contract-specific replies. Calls for different
// endpoints are independent; the only shared state is the resolver's
// task-type cache.
type Adapter struct {
	resolver  TaskTypeResolver
	transport Transport
}

// New creates an Adapter. Panics if either collaborator is nil.
func New(res TaskTypeResolver, transport Transport) *Adapter {
	if res == nil {
		panic("adapter: TaskTypeResolver must not be nil")
	}
	if transport == nil {
		panic("adapter: Transport must not be nil")
	}
	return &Adapter{resolver: res, transport: transport}
}

// Send forwards conv to the endpoint and returns the normalized reply.
//
// Failures are surfaced, never retried: a ResolutionError from the
// resolver, an *UnsupportedEndpointError before any request is made, a
// *TransportError from the invocation, or codec.ErrEmptyResponse from
// normalization. An unrecognized response shape is not a failure; it comes
// back as a Result tagged Unparsed.
func (a *Adapter) Send(ctx context.Context, endpointID string, conv types.Conversation, params types.GenerationParams) (types.Result, error) {
	tt, err := a.resolver.Resolve(ctx, endpointID)
	if err != nil {
		return types.Result{}, err
	}

	c, ok := contract.For(tt)
	if !ok {
		return types.Result{}, &UnsupportedEndpointError{Endpoint: endpointID, TaskType: tt}
	}

	payload, err := codec.BuildPayload(c, conv, params)
	if err != nil {
		return types.Result{}, err
	}

	raw, err := a.transport.Invoke(ctx, endpointID, payload)
	if err != nil {
		return types.Result{}, wrapTransportErr(ctx, endpointID, err)
	}

	result, err := codec.Normalize(c.Shape, raw)
	if err != nil {
		return types.Result{}, err
	}
	if result.Unparsed {
		slog.Warn("adapter.unparsed_response",
			"endpoint", endpointID,
			"task_type", string(tt),
			"rendering_len", len(result.Raw),
		)
	}
	return result, nil
}

// wrapTransportErr ensures every invocation failure surfaces as a
// classified *TransportError. Transports that already classified their
// failure pass through untouched.
func wrapTransportErr(ctx context.Context, endpointID string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	kind := TransportConnectivity
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = TransportTimeout
	}
	return &TransportError{Endpoint: endpointID, Kind: kind, Err: err}
}
